package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/pkg/kvstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayoutRepository(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	r := NewPayoutRepository(store)
	require.NoError(t, r.Load(ctx, "driver-1"))

	now := time.Now().UTC()
	p := entity.Payout{
		PayoutID:            "PO-1",
		Amount:              dec("2000"),
		Method:              "bank",
		Status:              entity.PayoutRequested,
		TransactionID:       "PO-1",
		RequestedAt:         now,
		EstimatedCompletion: now.Add(24 * time.Hour),
	}
	require.NoError(t, r.Create(ctx, p))
	assert.ErrorIs(t, r.Create(ctx, p), model.ErrDuplicateRequest)

	got, changed, err := r.Update(ctx, "PO-1", func(p *entity.Payout) (bool, error) {
		p.Status = entity.PayoutCompleted
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, entity.PayoutCompleted, got.Status)

	_, changed, err = r.Update(ctx, "PO-1", func(p *entity.Payout) (bool, error) {
		return false, errors.New("refused")
	})
	assert.Error(t, err)
	assert.False(t, changed)

	reloaded := NewPayoutRepository(store)
	require.NoError(t, reloaded.Load(ctx, "driver-1"))
	stored, err := reloaded.Get("PO-1")
	require.NoError(t, err)
	assert.Equal(t, entity.PayoutCompleted, stored.Status)
	assert.True(t, stored.Amount.Equal(dec("2000")))
	assert.Len(t, reloaded.List(), 1)

	_, err = reloaded.Get("PO-2")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSyncStateRepository(t *testing.T) {
	ctx := context.Background()
	r := NewSyncStateRepository(kvstore.NewMemoryStore())

	last, err := r.LastSync(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, last)

	at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	require.NoError(t, r.SetLastSync(ctx, "user-1", at))
	last, err = r.LastSync(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(at))
}
