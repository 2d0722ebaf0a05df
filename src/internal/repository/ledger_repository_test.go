package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/pkg/kvstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, store kvstore.Store) *LedgerRepository {
	t.Helper()
	r := NewLedgerRepository(store, testLogger(), "IDR")
	require.NoError(t, r.Load(context.Background(), "user-1"))
	return r
}

func TestLedgerLoadDefaults(t *testing.T) {
	r := newLedger(t, kvstore.NewMemoryStore())

	state := r.Snapshot()
	assert.Equal(t, "user-1", state.UserID)
	assert.True(t, state.Balance.IsZero())
	assert.Equal(t, "IDR", state.Currency)

	txs, total := r.Transactions(10, 0)
	assert.Empty(t, txs)
	assert.Zero(t, total)
}

func TestLedgerUpdateBeforeLoad(t *testing.T) {
	r := NewLedgerRepository(kvstore.NewMemoryStore(), testLogger(), "IDR")
	_, _, err := r.UpdateBalance(context.Background(), BalanceMutation{Amount: dec("100"), Reason: "Top up"})
	assert.ErrorIs(t, err, model.ErrNotInitialized)
}

func TestLedgerWalletRidePayment(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	r := newLedger(t, store)

	_, _, err := r.UpdateBalance(ctx, BalanceMutation{Amount: dec("5000"), Reason: "Top up"})
	require.NoError(t, err)

	tx, applied, err := r.UpdateBalance(ctx, BalanceMutation{
		Amount:        dec("-850"),
		Reason:        "Ride: R1",
		PaymentMethod: entity.MethodWallet,
		RideID:        "R1",
	})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, tx.BalanceBefore.Equal(dec("5000")))
	assert.True(t, tx.BalanceAfter.Equal(dec("4150")))
	assert.Equal(t, entity.TransactionDebit, tx.Type)
	assert.Equal(t, entity.StatusCompleted, tx.Status)
	assert.True(t, r.Balance().Equal(dec("4150")))

	txs, total := r.Transactions(1, 0)
	require.Len(t, txs, 1)
	assert.Equal(t, 2, total)
	assert.Equal(t, tx.TransactionID, txs[0].TransactionID)

	raw, err := store.Get(ctx, "WALLET:BALANCE:user-1")
	require.NoError(t, err)
	assert.Equal(t, "4150", raw)

	reloaded := newLedger(t, store)
	assert.True(t, reloaded.Balance().Equal(dec("4150")))
	_, total = reloaded.Transactions(10, 0)
	assert.Equal(t, 2, total)
}

func TestLedgerInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	r := newLedger(t, kvstore.NewMemoryStore())
	_, _, err := r.UpdateBalance(ctx, BalanceMutation{Amount: dec("500"), Reason: "Top up"})
	require.NoError(t, err)

	_, applied, err := r.UpdateBalance(ctx, BalanceMutation{Amount: dec("-850"), Reason: "Ride: R1"})
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)
	assert.False(t, applied)
	assert.True(t, r.Balance().Equal(dec("500")))
	_, total := r.Transactions(10, 0)
	assert.Equal(t, 1, total)
}

func TestLedgerIdempotentUpdate(t *testing.T) {
	ctx := context.Background()
	r := newLedger(t, kvstore.NewMemoryStore())

	first, applied, err := r.UpdateBalance(ctx, BalanceMutation{Amount: dec("1000"), Reason: "Top up", TransactionID: "T1"})
	require.NoError(t, err)
	require.True(t, applied)

	again, applied, err := r.UpdateBalance(ctx, BalanceMutation{Amount: dec("1000"), Reason: "Top up", TransactionID: "T1"})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, first.TransactionID, again.TransactionID)
	assert.True(t, r.Balance().Equal(dec("1000")))
	_, total := r.Transactions(10, 0)
	assert.Equal(t, 1, total)
}

func TestLedgerDuplicateOfNonCompleted(t *testing.T) {
	ctx := context.Background()
	r := newLedger(t, kvstore.NewMemoryStore())

	_, err := r.Record(ctx, entity.Transaction{
		TransactionID: "T2",
		Amount:        dec("-850"),
		Reason:        "Ride: R1",
		Status:        entity.StatusProcessing,
	})
	require.NoError(t, err)

	_, _, err = r.UpdateBalance(ctx, BalanceMutation{Amount: dec("100"), Reason: "Top up", TransactionID: "T2"})
	assert.ErrorIs(t, err, model.ErrDuplicateRequest)
}

func TestLedgerRejectsZeroAmount(t *testing.T) {
	r := newLedger(t, kvstore.NewMemoryStore())
	_, _, err := r.UpdateBalance(context.Background(), BalanceMutation{Amount: decimal.Zero, Reason: "noop"})
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestLedgerRollsBackOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	r := newLedger(t, store)
	_, _, err := r.UpdateBalance(ctx, BalanceMutation{Amount: dec("1000"), Reason: "Top up"})
	require.NoError(t, err)

	store.failing.Store(true)
	_, _, err = r.UpdateBalance(ctx, BalanceMutation{Amount: dec("-200"), Reason: "Ride: R1"})
	require.ErrorIs(t, err, errWriteFailed)

	assert.True(t, r.Balance().Equal(dec("1000")))
	_, total := r.Transactions(10, 0)
	assert.Equal(t, 1, total)
}

func TestLedgerBalanceInvariant(t *testing.T) {
	ctx := context.Background()
	r := newLedger(t, kvstore.NewMemoryStore())

	amounts := []string{"5000", "-850", "120.50", "-4000", "-1000", "300", "-270.5"}
	for i, a := range amounts {
		_, _, err := r.UpdateBalance(ctx, BalanceMutation{Amount: dec(a), Reason: fmt.Sprintf("step %d", i)})
		if err != nil {
			assert.ErrorIs(t, err, model.ErrInsufficientFunds)
		}
	}

	txs, _ := r.Transactions(100, 0)
	sum := decimal.Zero
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		require.NoError(t, tx.Validate())
		assert.True(t, tx.BalanceBefore.Equal(sum), "snapshot of %s", tx.TransactionID)
		sum = sum.Add(tx.Amount)
		assert.False(t, sum.IsNegative())
	}
	assert.True(t, r.Balance().Equal(sum))
}

func TestLedgerConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	r := newLedger(t, kvstore.NewMemoryStore())
	_, _, err := r.UpdateBalance(ctx, BalanceMutation{Amount: dec("1000"), Reason: "Top up"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := r.UpdateBalance(ctx, BalanceMutation{Amount: dec("-100"), Reason: "Ride"}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.True(t, r.Balance().IsZero())
}

func TestLedgerTransition(t *testing.T) {
	ctx := context.Background()
	r := newLedger(t, kvstore.NewMemoryStore())
	_, err := r.Record(ctx, entity.Transaction{
		TransactionID: "T3",
		Amount:        dec("-700"),
		Reason:        "Ride: R2",
		Status:        entity.StatusProcessing,
		PaymentMethod: entity.MethodMobileMoney,
		RideID:        "R2",
	})
	require.NoError(t, err)

	tx, changed, err := r.Transition(ctx, "T3", entity.StatusCompleted, "MM123", "")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, entity.StatusCompleted, tx.Status)
	assert.Equal(t, "MM123", tx.Reference)
	assert.NotNil(t, tx.ConfirmedAt)
	assert.False(t, tx.AffectsWallet)

	_, changed, err = r.Transition(ctx, "T3", entity.StatusFailed, "", "late failure")
	require.NoError(t, err)
	assert.False(t, changed)
	got, err := r.Transaction("T3")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, got.Status)

	_, _, err = r.Transition(ctx, "T3", entity.StatusProcessing, "", "")
	assert.ErrorIs(t, err, model.ErrInvalidState)
	_, _, err = r.Transition(ctx, "missing", entity.StatusFailed, "", "")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.True(t, r.Balance().IsZero())
}

func TestLedgerMarkSyncedOnce(t *testing.T) {
	ctx := context.Background()
	r := newLedger(t, kvstore.NewMemoryStore())
	tx, _, err := r.UpdateBalance(ctx, BalanceMutation{Amount: dec("100"), Reason: "Top up"})
	require.NoError(t, err)

	changed, err := r.MarkSynced(ctx, tx.TransactionID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = r.MarkSynced(ctx, tx.TransactionID)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestLedgerMergeRemote(t *testing.T) {
	ctx := context.Background()
	r := newLedger(t, kvstore.NewMemoryStore())
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }
	_, _, err := r.UpdateBalance(ctx, BalanceMutation{Amount: dec("100"), Reason: "Top up"})
	require.NoError(t, err)

	remote := entity.Transaction{
		TransactionID: "SRV-1",
		Amount:        dec("2500"),
		Type:          entity.TransactionCredit,
		Reason:        "Driver earnings",
		Status:        entity.StatusCompleted,
		Timestamp:     base.Add(-time.Hour),
	}
	inserted, err := r.MergeRemote(ctx, remote)
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = r.MergeRemote(ctx, remote)
	require.NoError(t, err)
	assert.False(t, inserted)

	txs, total := r.Transactions(10, 0)
	assert.Equal(t, 2, total)
	assert.Equal(t, "SRV-1", txs[1].TransactionID)
	assert.True(t, txs[1].Synced)
	assert.True(t, r.Balance().Equal(dec("100")))
}

func TestLedgerSetAuthoritativeBalance(t *testing.T) {
	ctx := context.Background()
	r := newLedger(t, kvstore.NewMemoryStore())

	changed, err := r.SetAuthoritativeBalance(ctx, dec("7300"))
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = r.SetAuthoritativeBalance(ctx, dec("7300"))
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = r.SetAuthoritativeBalance(ctx, dec("-1"))
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
	assert.True(t, r.Balance().Equal(dec("7300")))
}

func TestLedgerPagingAndRideLookup(t *testing.T) {
	ctx := context.Background()
	r := newLedger(t, kvstore.NewMemoryStore())
	for i := 0; i < 5; i++ {
		_, err := r.Record(ctx, entity.Transaction{
			Amount: dec("-100"),
			Reason: "cash",
			Status: entity.StatusPendingCollection,
			RideID: fmt.Sprintf("R%d", i),
		})
		require.NoError(t, err)
	}

	page, total := r.Transactions(2, 4)
	assert.Equal(t, 5, total)
	require.Len(t, page, 1)
	assert.Equal(t, "R0", page[0].RideID)

	page, _ = r.Transactions(2, 10)
	assert.Empty(t, page)

	_, found := r.FindActiveByRide("R3")
	assert.True(t, found)
	_, found = r.FindActiveByRide("R9")
	assert.False(t, found)
}
