package repository

import (
	"context"
	"fmt"
	"sync"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/pkg/kvstore"
)

const keyPaymentMethods = "WALLET:METHODS:%s"

// PaymentMethodRepository persists the methods a user added on top of the
// built-in catalog.
type PaymentMethodRepository struct {
	Store kvstore.Store

	mu      sync.Mutex
	userID  string
	methods []entity.PaymentMethod
}

func NewPaymentMethodRepository(store kvstore.Store) *PaymentMethodRepository {
	return &PaymentMethodRepository{Store: store}
}

func (r *PaymentMethodRepository) Load(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var methods []entity.PaymentMethod
	if _, err := kvstore.GetJSON(ctx, r.Store, fmt.Sprintf(keyPaymentMethods, userID), &methods); err != nil {
		return fmt.Errorf("load payment methods: %w", err)
	}
	r.userID = userID
	r.methods = methods
	return nil
}

func (r *PaymentMethodRepository) List() []entity.PaymentMethod {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.PaymentMethod, len(r.methods))
	copy(out, r.methods)
	return out
}

func (r *PaymentMethodRepository) Get(id string) (entity.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return entity.PaymentMethod{}, model.NewError(model.KindNotFound, "payment method %s not found", id)
	}
	return r.methods[i], nil
}

func (r *PaymentMethodRepository) Add(ctx context.Context, m entity.PaymentMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userID == "" {
		return model.ErrNotInitialized
	}
	if r.indexOf(m.ID) >= 0 {
		return model.NewError(model.KindDuplicateRequest, "payment method %s already exists", m.ID)
	}
	next := make([]entity.PaymentMethod, 0, len(r.methods)+1)
	next = append(append(next, r.methods...), m)
	return r.commit(ctx, next)
}

func (r *PaymentMethodRepository) Remove(ctx context.Context, id string) (entity.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return entity.PaymentMethod{}, model.NewError(model.KindNotFound, "payment method %s not found", id)
	}
	removed := r.methods[i]
	next := make([]entity.PaymentMethod, 0, len(r.methods)-1)
	next = append(append(next, r.methods[:i]...), r.methods[i+1:]...)
	if err := r.commit(ctx, next); err != nil {
		return entity.PaymentMethod{}, err
	}
	return removed, nil
}

// Update applies fn to a copy of the stored method and persists the result.
func (r *PaymentMethodRepository) Update(ctx context.Context, id string, fn func(*entity.PaymentMethod)) (entity.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return entity.PaymentMethod{}, model.NewError(model.KindNotFound, "payment method %s not found", id)
	}
	next := make([]entity.PaymentMethod, len(r.methods))
	copy(next, r.methods)
	fn(&next[i])
	if err := r.commit(ctx, next); err != nil {
		return entity.PaymentMethod{}, err
	}
	return next[i], nil
}

func (r *PaymentMethodRepository) indexOf(id string) int {
	for i := range r.methods {
		if r.methods[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *PaymentMethodRepository) commit(ctx context.Context, next []entity.PaymentMethod) error {
	if err := kvstore.SetJSON(ctx, r.Store, fmt.Sprintf(keyPaymentMethods, r.userID), next); err != nil {
		return fmt.Errorf("persist payment methods: %w", err)
	}
	r.methods = next
	return nil
}
