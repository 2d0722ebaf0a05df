package repository

import (
	"context"
	"testing"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/pkg/kvstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentMethodRepository(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	r := NewPaymentMethodRepository(store)
	require.NoError(t, r.Load(ctx, "user-1"))

	m := entity.PaymentMethod{
		ID:          "pm-1",
		Type:        entity.MethodMobileMoney,
		Name:        "My M-Pesa",
		Enabled:     true,
		Provider:    "mpesa",
		PhoneNumber: "+254700000001",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, r.Add(ctx, m))
	assert.ErrorIs(t, r.Add(ctx, m), model.ErrDuplicateRequest)

	updated, err := r.Update(ctx, "pm-1", func(pm *entity.PaymentMethod) { pm.IsVerified = true })
	require.NoError(t, err)
	assert.True(t, updated.IsVerified)

	reloaded := NewPaymentMethodRepository(store)
	require.NoError(t, reloaded.Load(ctx, "user-1"))
	got, err := reloaded.Get("pm-1")
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.Equal(t, "mpesa", got.Provider)

	removed, err := reloaded.Remove(ctx, "pm-1")
	require.NoError(t, err)
	assert.Equal(t, "pm-1", removed.ID)
	assert.Empty(t, reloaded.List())

	_, err = reloaded.Remove(ctx, "pm-1")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = reloaded.Update(ctx, "pm-1", func(*entity.PaymentMethod) {})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPaymentMethodRepositoryKeepsStateOnFailedWrite(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	r := NewPaymentMethodRepository(store)
	require.NoError(t, r.Load(ctx, "user-1"))

	store.failing.Store(true)
	err := r.Add(ctx, entity.PaymentMethod{ID: "pm-1", Type: entity.MethodCard})
	assert.ErrorIs(t, err, errWriteFailed)
	assert.Empty(t, r.List())
}
