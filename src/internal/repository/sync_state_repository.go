package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-engine/src/pkg/kvstore"
)

const keyLastSync = "WALLET:LAST_SYNC:%s"

type SyncStateRepository struct {
	Store kvstore.Store
}

func NewSyncStateRepository(store kvstore.Store) *SyncStateRepository {
	return &SyncStateRepository{Store: store}
}

// LastSync returns nil when the user never synced.
func (r *SyncStateRepository) LastSync(ctx context.Context, userID string) (*time.Time, error) {
	raw, err := r.Store.Get(ctx, fmt.Sprintf(keyLastSync, userID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last sync: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("parse last sync %q: %w", raw, err)
	}
	return &t, nil
}

func (r *SyncStateRepository) SetLastSync(ctx context.Context, userID string, t time.Time) error {
	if err := r.Store.Set(ctx, fmt.Sprintf(keyLastSync, userID), t.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("persist last sync: %w", err)
	}
	return nil
}
