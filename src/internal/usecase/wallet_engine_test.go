package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/pkg/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallsBeforeInitialize(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.engine.GetWalletBalance(ctx)
	assert.ErrorIs(t, err, model.ErrNotInitialized)
	_, err = h.engine.ProcessRidePayment(ctx, rideRequest("R1", "100", "cash"))
	assert.ErrorIs(t, err, model.ErrNotInitialized)
	_, err = h.engine.RequestPayout(ctx, &model.PayoutRequest{Amount: dec("1000"), Method: "bank"})
	assert.ErrorIs(t, err, model.ErrNotInitialized)
	assert.ErrorIs(t, h.engine.Cleanup(ctx), model.ErrNotInitialized)
	assert.ErrorIs(t, h.engine.Initialize(ctx, ""), model.ErrInvalidRequest)
}

func TestInitializeTwice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, false)

	assert.NoError(t, h.engine.Initialize(ctx, "user-1"))
	assert.ErrorIs(t, h.engine.Initialize(ctx, "user-2"), model.ErrInvalidState)
	assert.Equal(t, "user-1", h.engine.UserID())
}

func TestInitializeSyncsWhenConnected(t *testing.T) {
	h := newHarness(t)
	h.init(t, true)

	requests := h.channel.events(model.ChannelRequestWalletBalance)
	require.Len(t, requests, 1)
	payload := requests[0].Payload.(model.BalanceRequestPayload)
	assert.Equal(t, "user-1", payload.UserID)
	assert.Nil(t, payload.Since)
}

func TestInboundWalletBalanceAndTransaction(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, true)
	updates := collect[model.WalletUpdated](h.engine.Bus)

	require.NoError(t, h.engine.HandleInbound(ctx, model.InboundMessage{
		Event: model.ChannelWalletBalance,
		Data:  rawJSON(t, map[string]string{"balance": "7300"}),
	}))
	assert.Equal(t, "7300", h.engine.Ledger.Balance().String())

	serverTx := entity.Transaction{
		TransactionID: "SRV-1",
		Amount:        dec("2300"),
		Type:          entity.TransactionCredit,
		Reason:        "Driver earnings",
		Status:        entity.StatusCompleted,
		AffectsWallet: true,
		BalanceBefore: dec("5000"),
		BalanceAfter:  dec("7300"),
		Timestamp:     time.Now().Add(-time.Minute),
	}
	require.NoError(t, h.engine.HandleInbound(ctx, model.InboundMessage{
		Event: model.ChannelNewTransaction,
		Data:  rawJSON(t, serverTx),
	}))
	require.NoError(t, h.engine.HandleInbound(ctx, model.InboundMessage{
		Event: model.ChannelNewTransaction,
		Data:  rawJSON(t, serverTx),
	}))

	stored, err := h.engine.GetTransaction(ctx, "SRV-1")
	require.NoError(t, err)
	assert.True(t, stored.Synced)
	assert.Equal(t, "7300", h.engine.Ledger.Balance().String())
	require.Len(t, updates(), 2)
	assert.Equal(t, SourceServer, updates()[0].Source)
}

func TestInboundPaymentConfirmation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, true)

	result, err := h.engine.ProcessRidePayment(ctx, rideRequest("R9", "400", "card"))
	require.NoError(t, err)

	require.NoError(t, h.engine.HandleInbound(ctx, model.InboundMessage{
		Event: model.ChannelPaymentConfirmed,
		Data:  rawJSON(t, model.PaymentConfirmedPayload{TransactionID: result.TransactionID, AuthorizationCode: "AUTH000111"}),
	}))
	tx, err := h.engine.GetTransaction(ctx, result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, tx.Status)
	assert.Equal(t, "AUTH000111", tx.Reference)
}

func TestInboundPaymentFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, true)

	result, err := h.engine.ProcessRidePayment(ctx, rideRequest("R10", "400", "mobile_money"))
	require.NoError(t, err)

	require.NoError(t, h.engine.HandleInbound(ctx, model.InboundMessage{
		Event: model.ChannelPaymentFailed,
		Data:  rawJSON(t, model.PaymentFailedPayload{TransactionID: result.TransactionID, Error: "insufficient float"}),
	}))
	tx, err := h.engine.GetTransaction(ctx, result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFailed, tx.Status)
	assert.Len(t, h.channel.events(model.ChannelRidePaymentFailed), 1)
}

func TestInboundPayoutStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, true)
	h.fund(t, "2000")

	payout, err := h.engine.RequestPayout(ctx, &model.PayoutRequest{Amount: dec("1500"), Method: "bank"})
	require.NoError(t, err)

	require.NoError(t, h.engine.HandleInbound(ctx, model.InboundMessage{
		Event: model.ChannelPayoutStatus,
		Data:  rawJSON(t, model.PayoutStatusUpdate{PayoutID: payout.PayoutID, Status: "completed"}),
	}))
	stored, err := h.engine.Payouts.Get(payout.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, entity.PayoutCompleted, stored.Status)
}

func TestInboundMalformedAndUnknown(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, true)

	err := h.engine.HandleInbound(ctx, model.InboundMessage{Event: model.ChannelWalletBalance, Data: []byte(`{"balance":`)})
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
	assert.NoError(t, h.engine.HandleInbound(ctx, model.InboundMessage{Event: "driver_location", Data: []byte(`{}`)}))
}

func TestSubscribersAreIsolated(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, false)

	var order []string
	h.engine.OnPaymentEvent(model.EventWalletUpdated, func(eventbus.Event) error {
		order = append(order, "first")
		panic("boom")
	})
	h.engine.OnPaymentEvent(model.EventWalletUpdated, func(eventbus.Event) error {
		order = append(order, "second")
		return errors.New("ignored")
	})
	unsubscribe := h.engine.OnPaymentEvent(model.EventWalletUpdated, func(eventbus.Event) error {
		order = append(order, "third")
		return nil
	})

	_, err := h.engine.UpdateWalletBalance(ctx, &model.UpdateBalanceRequest{Amount: dec("10"), Reason: "Top-up"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, order)

	unsubscribe()
	order = nil
	_, err = h.engine.UpdateWalletBalance(ctx, &model.UpdateBalanceRequest{Amount: dec("10"), Reason: "Top-up"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, false)
	_, err := h.engine.UpdateWalletBalance(ctx, &model.UpdateBalanceRequest{Amount: dec("10"), Reason: "Top-up"})
	require.NoError(t, err)

	h.channel.connected.Store(true)
	require.NoError(t, h.engine.Cleanup(ctx))

	assert.Zero(t, h.engine.Queue.Len(), "final sync drained the queue")
	assert.Empty(t, h.engine.Bus.Kinds())
	_, err = h.engine.GetWalletBalance(ctx)
	assert.ErrorIs(t, err, model.ErrNotInitialized)

	require.NoError(t, h.engine.Initialize(ctx, "user-1"))
	assert.Equal(t, "10", h.engine.Ledger.Balance().String())
}

func TestConnectionChangeEvent(t *testing.T) {
	h := newHarness(t)
	h.init(t, false)
	changes := collect[model.ConnectionStateChanged](h.engine.Bus)

	h.engine.HandleConnectionChange(context.Background(), false)
	require.Len(t, changes(), 1)
	assert.False(t, changes()[0].Connected)
}
