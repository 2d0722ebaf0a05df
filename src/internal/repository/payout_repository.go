package repository

import (
	"context"
	"fmt"
	"sync"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/pkg/kvstore"
)

const keyPayouts = "WALLET:PAYOUTS:%s"

type PayoutRepository struct {
	Store kvstore.Store

	mu      sync.Mutex
	userID  string
	payouts []entity.Payout
}

func NewPayoutRepository(store kvstore.Store) *PayoutRepository {
	return &PayoutRepository{Store: store}
}

func (r *PayoutRepository) Load(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var payouts []entity.Payout
	if _, err := kvstore.GetJSON(ctx, r.Store, fmt.Sprintf(keyPayouts, userID), &payouts); err != nil {
		return fmt.Errorf("load payouts: %w", err)
	}
	r.userID = userID
	r.payouts = payouts
	return nil
}

func (r *PayoutRepository) Create(ctx context.Context, p entity.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userID == "" {
		return model.ErrNotInitialized
	}
	if r.indexOf(p.PayoutID) >= 0 {
		return model.NewError(model.KindDuplicateRequest, "payout %s already exists", p.PayoutID)
	}
	next := make([]entity.Payout, 0, len(r.payouts)+1)
	next = append(append(next, r.payouts...), p)
	return r.commit(ctx, next)
}

func (r *PayoutRepository) Get(id string) (entity.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return entity.Payout{}, model.NewError(model.KindNotFound, "payout %s not found", id)
	}
	return r.payouts[i], nil
}

func (r *PayoutRepository) List() []entity.Payout {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Payout, len(r.payouts))
	copy(out, r.payouts)
	return out
}

// Update runs fn on a copy of the payout under the repository lock. When fn
// returns changed=false or an error nothing is persisted.
func (r *PayoutRepository) Update(ctx context.Context, id string, fn func(*entity.Payout) (bool, error)) (entity.Payout, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return entity.Payout{}, false, model.NewError(model.KindNotFound, "payout %s not found", id)
	}
	candidate := r.payouts[i]
	changed, err := fn(&candidate)
	if err != nil {
		return r.payouts[i], false, err
	}
	if !changed {
		return r.payouts[i], false, nil
	}
	next := make([]entity.Payout, len(r.payouts))
	copy(next, r.payouts)
	next[i] = candidate
	if err := r.commit(ctx, next); err != nil {
		return entity.Payout{}, false, err
	}
	return candidate, true, nil
}

func (r *PayoutRepository) indexOf(id string) int {
	for i := range r.payouts {
		if r.payouts[i].PayoutID == id {
			return i
		}
	}
	return -1
}

func (r *PayoutRepository) commit(ctx context.Context, next []entity.Payout) error {
	if err := kvstore.SetJSON(ctx, r.Store, fmt.Sprintf(keyPayouts, r.userID), next); err != nil {
		return fmt.Errorf("persist payouts: %w", err)
	}
	r.payouts = next
	return nil
}
