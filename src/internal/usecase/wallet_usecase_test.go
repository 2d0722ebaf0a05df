package usecase

import (
	"context"
	"testing"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/pkg/kvstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopUpFromEmptyWallet(t *testing.T) {
	h := newHarness(t)
	h.init(t, false)
	updates := collect[model.WalletUpdated](h.engine.Bus)

	tx, err := h.engine.UpdateWalletBalance(context.Background(), &model.UpdateBalanceRequest{
		Amount: dec("5000"),
		Reason: "Top-up",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionCredit, tx.Type)

	balance, err := h.engine.GetWalletBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5000", balance.Balance.String())
	assert.Equal(t, "KES", balance.Currency)
	assert.True(t, balance.IsOffline)

	list, err := h.engine.GetTransactions(context.Background(), &model.TransactionListRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, tx.TransactionID, list.Transactions[0].TransactionID)

	require.Len(t, updates(), 1)
	assert.Equal(t, SourceLocal, updates()[0].Source)
}

func TestOfflineUpdateSyncsOnReconnect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, false)
	h.fund(t, "5000")

	tx, err := h.engine.UpdateWalletBalance(ctx, &model.UpdateBalanceRequest{Amount: dec("-500"), Reason: "Ride"})
	require.NoError(t, err)
	assert.False(t, tx.Synced)
	assert.NotNil(t, tx.QueuedAt)
	assert.Equal(t, "4500", h.engine.Ledger.Balance().String())
	require.Equal(t, 1, h.engine.Queue.Len())
	assert.Zero(t, h.remote.count())

	h.channel.connected.Store(true)
	h.engine.HandleConnectionChange(ctx, true)

	assert.Zero(t, h.engine.Queue.Len())
	assert.Equal(t, 1, h.remote.count())
	stored, err := h.engine.GetTransaction(ctx, tx.TransactionID)
	require.NoError(t, err)
	assert.True(t, stored.Synced)
	assert.NotEmpty(t, h.channel.events(model.ChannelRequestWalletBalance))
}

func TestConnectedUpdateRecordsRemotely(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, true)
	synced := collect[model.TransactionSynced](h.engine.Bus)

	tx, err := h.engine.UpdateWalletBalance(ctx, &model.UpdateBalanceRequest{Amount: dec("300"), Reason: "Tip"})
	require.NoError(t, err)
	assert.True(t, tx.Synced)
	assert.Zero(t, h.engine.Queue.Len())
	assert.Equal(t, 1, h.remote.count())
	require.Len(t, synced(), 1)
	assert.Len(t, h.channel.events(model.ChannelWalletUpdate), 1)
}

func TestConnectedUpdateFallsBackToQueue(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, true)
	h.remote.setFailing(true)
	queued := collect[model.TransactionQueued](h.engine.Bus)

	tx, err := h.engine.UpdateWalletBalance(ctx, &model.UpdateBalanceRequest{Amount: dec("300"), Reason: "Tip"})
	require.NoError(t, err)
	assert.False(t, tx.Synced)
	assert.Equal(t, 1, h.engine.Queue.Len())
	assert.Len(t, queued(), 1)
}

func TestIdempotentWalletUpdate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, false)
	updates := collect[model.WalletUpdated](h.engine.Bus)

	req := &model.UpdateBalanceRequest{Amount: dec("1000"), Reason: "Top-up", TransactionID: "topup-1"}
	_, err := h.engine.UpdateWalletBalance(ctx, req)
	require.NoError(t, err)
	_, err = h.engine.UpdateWalletBalance(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "1000", h.engine.Ledger.Balance().String())
	assert.Len(t, updates(), 1)
	assert.Equal(t, 1, h.engine.Queue.Len())
}

func TestUpdateBalanceValidation(t *testing.T) {
	h := newHarness(t)
	h.init(t, false)

	_, err := h.engine.UpdateWalletBalance(context.Background(), &model.UpdateBalanceRequest{Amount: dec("10")})
	assert.ErrorIs(t, err, model.ErrInvalidRequest)

	_, err = h.engine.UpdateWalletBalance(context.Background(), &model.UpdateBalanceRequest{Amount: dec("-10"), Reason: "Ride"})
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)
}

func TestStatePersistsAcrossEngines(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	first := newHarnessWithStore(t, store)
	first.init(t, false)
	_, err := first.engine.UpdateWalletBalance(ctx, &model.UpdateBalanceRequest{Amount: dec("750"), Reason: "Top-up"})
	require.NoError(t, err)
	require.NoError(t, first.engine.Cleanup(ctx))

	second := newHarnessWithStore(t, store)
	second.init(t, false)
	assert.Equal(t, "750", second.engine.Ledger.Balance().String())
	assert.Equal(t, 1, second.engine.Queue.Len())
}
