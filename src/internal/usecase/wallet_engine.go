package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/repository"
	"wallet-engine/src/pkg/eventbus"
	"wallet-engine/src/pkg/log"
)

// WalletEngine is the caller-facing handle of the wallet. It is built once
// and every method except Initialize fails with NotInitialized until
// Initialize succeeded.
type WalletEngine struct {
	Log            log.Log
	Bus            *eventbus.Bus
	Ledger         *repository.LedgerRepository
	Queue          *repository.OfflineQueueRepository
	Methods        *repository.PaymentMethodRepository
	PayoutStore    *repository.PayoutRepository
	Wallet         *WalletUseCase
	PaymentMethods *PaymentMethodUseCase
	Payments       *PaymentUseCase
	Payouts        *PayoutUseCase
	Sync           *SyncUseCase
	Channel        RealtimeChannel
	Gateway        SettlementGateway

	mu          sync.RWMutex
	userID      string
	initialized bool
}

type EngineDeps struct {
	Log            log.Log
	Bus            *eventbus.Bus
	Ledger         *repository.LedgerRepository
	Queue          *repository.OfflineQueueRepository
	Methods        *repository.PaymentMethodRepository
	PayoutStore    *repository.PayoutRepository
	Wallet         *WalletUseCase
	PaymentMethods *PaymentMethodUseCase
	Payments       *PaymentUseCase
	Payouts        *PayoutUseCase
	Sync           *SyncUseCase
	Channel        RealtimeChannel
	Gateway        SettlementGateway
}

func NewWalletEngine(deps EngineDeps) *WalletEngine {
	e := &WalletEngine{
		Log:            deps.Log,
		Bus:            deps.Bus,
		Ledger:         deps.Ledger,
		Queue:          deps.Queue,
		Methods:        deps.Methods,
		PayoutStore:    deps.PayoutStore,
		Wallet:         deps.Wallet,
		PaymentMethods: deps.PaymentMethods,
		Payments:       deps.Payments,
		Payouts:        deps.Payouts,
		Sync:           deps.Sync,
		Channel:        deps.Channel,
		Gateway:        deps.Gateway,
	}
	if e.Gateway != nil {
		e.Gateway.OnOutcome(func(outcome model.SettlementOutcome) {
			if err := e.HandleSettlementOutcome(context.Background(), &outcome); err != nil {
				e.Log.Error("wallet-engine", fmt.Sprintf("failed to handle settlement outcome: %v", err), "OnOutcome", outcome.TransactionID)
			}
		})
	}
	return e
}

// Initialize loads the persisted state of userID, re-arms unfinished
// payouts, starts periodic sync and runs a first sync when connected. Initializing again for the same user is
// a no-op.
func (e *WalletEngine) Initialize(ctx context.Context, userID string) error {
	if userID == "" {
		return model.NewError(model.KindInvalidRequest, "user id is required")
	}

	e.mu.Lock()
	if e.initialized {
		current := e.userID
		e.mu.Unlock()
		if current == userID {
			return nil
		}
		return model.NewError(model.KindInvalidState, "engine already initialized for user %s", current)
	}

	if err := e.Ledger.Load(ctx, userID); err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.Queue.Load(ctx, userID); err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.Methods.Load(ctx, userID); err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.PayoutStore.Load(ctx, userID); err != nil {
		e.mu.Unlock()
		return err
	}
	e.userID = userID
	e.initialized = true
	e.mu.Unlock()

	e.Log.Info("wallet-engine", "engine initialized", "Initialize", fmt.Sprintf("user=%s balance=%s queued=%d", userID, e.Ledger.Balance(), e.Queue.Len()))
	e.Payouts.Resume(ctx)
	e.Sync.Start()
	if e.Channel.IsConnected() {
		result := e.Sync.SyncWithServer(ctx)
		e.Log.Info("wallet-engine", "initial sync finished", "Initialize", fmt.Sprintf("success=%t reason=%s", result.Success, result.Reason))
	}
	return nil
}

func (e *WalletEngine) ready() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.initialized {
		return model.ErrNotInitialized
	}
	return nil
}

func (e *WalletEngine) UserID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.userID
}

func (e *WalletEngine) GetWalletBalance(ctx context.Context) (model.BalanceResponse, error) {
	if err := e.ready(); err != nil {
		return model.BalanceResponse{}, err
	}
	return e.Wallet.GetBalance(ctx), nil
}

func (e *WalletEngine) UpdateWalletBalance(ctx context.Context, request *model.UpdateBalanceRequest) (entity.Transaction, error) {
	if err := e.ready(); err != nil {
		return entity.Transaction{}, err
	}
	return e.Wallet.UpdateBalance(ctx, request)
}

func (e *WalletEngine) ProcessRidePayment(ctx context.Context, request *model.ProcessRidePaymentRequest) (model.SettlementResult, error) {
	if err := e.ready(); err != nil {
		return model.SettlementResult{}, err
	}
	return e.Payments.ProcessRidePayment(ctx, request)
}

func (e *WalletEngine) GetPaymentMethods(ctx context.Context) ([]entity.PaymentMethod, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.PaymentMethods.ListMethods(ctx), nil
}

func (e *WalletEngine) AddPaymentMethod(ctx context.Context, request *model.AddPaymentMethodRequest) (entity.PaymentMethod, error) {
	if err := e.ready(); err != nil {
		return entity.PaymentMethod{}, err
	}
	return e.PaymentMethods.AddMethod(ctx, request)
}

func (e *WalletEngine) RemovePaymentMethod(ctx context.Context, id string) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.PaymentMethods.RemoveMethod(ctx, id)
}

func (e *WalletEngine) UpdatePaymentMethod(ctx context.Context, id string, request *model.UpdatePaymentMethodRequest) (entity.PaymentMethod, error) {
	if err := e.ready(); err != nil {
		return entity.PaymentMethod{}, err
	}
	return e.PaymentMethods.UpdateMethod(ctx, id, request)
}

func (e *WalletEngine) GetTransactions(ctx context.Context, request *model.TransactionListRequest) (model.TransactionListResponse, error) {
	if err := e.ready(); err != nil {
		return model.TransactionListResponse{}, err
	}
	return e.Wallet.Transactions(ctx, request)
}

func (e *WalletEngine) GetTransaction(ctx context.Context, id string) (entity.Transaction, error) {
	if err := e.ready(); err != nil {
		return entity.Transaction{}, err
	}
	return e.Wallet.Transaction(ctx, id)
}

func (e *WalletEngine) RequestPayout(ctx context.Context, request *model.PayoutRequest) (entity.Payout, error) {
	if err := e.ready(); err != nil {
		return entity.Payout{}, err
	}
	return e.Payouts.RequestPayout(ctx, request)
}

func (e *WalletEngine) GetPayouts(ctx context.Context) ([]entity.Payout, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.Payouts.List(), nil
}

func (e *WalletEngine) CompletePayout(ctx context.Context, payoutID string) (entity.Payout, error) {
	if err := e.ready(); err != nil {
		return entity.Payout{}, err
	}
	return e.Payouts.CompletePayout(ctx, payoutID)
}

func (e *WalletEngine) UpdatePayoutStatus(ctx context.Context, update *model.PayoutStatusUpdate) (entity.Payout, error) {
	if err := e.ready(); err != nil {
		return entity.Payout{}, err
	}
	return e.Payouts.HandleStatusUpdate(ctx, update)
}

func (e *WalletEngine) SyncWithServer(ctx context.Context) (model.SyncResult, error) {
	if err := e.ready(); err != nil {
		return model.SyncResult{}, err
	}
	return e.Sync.SyncWithServer(ctx), nil
}

// OnPaymentEvent subscribes handler to events of kind and returns the
// unsubscribe function.
func (e *WalletEngine) OnPaymentEvent(kind string, handler eventbus.Handler) func() {
	return e.Bus.On(kind, handler)
}

func (e *WalletEngine) HandleSettlementOutcome(ctx context.Context, outcome *model.SettlementOutcome) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.Payments.HandleSettlementOutcome(ctx, outcome)
}

// HandleConnectionChange is called by the real-time channel whenever its
// connectivity flips. Reconnecting triggers a sync.
func (e *WalletEngine) HandleConnectionChange(ctx context.Context, connected bool) {
	e.Bus.Emit(model.ConnectionStateChanged{Connected: connected})
	if !connected || e.ready() != nil {
		return
	}
	result := e.Sync.SyncWithServer(ctx)
	e.Log.Info("wallet-engine", "reconnect sync finished", "HandleConnectionChange", fmt.Sprintf("success=%t reason=%s", result.Success, result.Reason))
}

// HandleInbound routes one message received on the real-time channel.
// Unknown events are ignored.
func (e *WalletEngine) HandleInbound(ctx context.Context, msg model.InboundMessage) error {
	if err := e.ready(); err != nil {
		return err
	}

	switch msg.Event {
	case model.ChannelPaymentConfirmed:
		var p model.PaymentConfirmedPayload
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		return e.Payments.HandleSettlementOutcome(ctx, &model.SettlementOutcome{
			TransactionID:     p.TransactionID,
			Success:           true,
			Reference:         p.Reference,
			AuthorizationCode: p.AuthorizationCode,
		})
	case model.ChannelPaymentFailed:
		var p model.PaymentFailedPayload
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		return e.Payments.HandleSettlementOutcome(ctx, &model.SettlementOutcome{
			TransactionID: p.TransactionID,
			Error:         p.Error,
		})
	case model.ChannelWalletBalance:
		var p model.WalletBalancePayload
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		return e.Wallet.ApplyServerBalance(ctx, p.Balance)
	case model.ChannelNewTransaction:
		var tx entity.Transaction
		if err := decodePayload(msg, &tx); err != nil {
			return err
		}
		return e.Wallet.MergeServerTransaction(ctx, tx)
	case model.ChannelPayoutStatus:
		var p model.PayoutStatusUpdate
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		_, err := e.Payouts.HandleStatusUpdate(ctx, &p)
		return err
	case model.ChannelTransactionSynced:
		// acknowledgments are consumed by the remote ledger
		return nil
	default:
		e.Log.Info("wallet-engine", "ignoring unknown channel event", "HandleInbound", msg.Event)
		return nil
	}
}

func decodePayload(msg model.InboundMessage, dst any) error {
	if err := json.Unmarshal(msg.Data, dst); err != nil {
		return model.WrapError(model.KindInvalidRequest, err, "malformed %s payload", msg.Event)
	}
	return nil
}

// Cleanup syncs one last time when connected, stops background work and
// drops every event subscription. The engine must be initialized again
// before further use.
func (e *WalletEngine) Cleanup(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.Channel.IsConnected() {
		result := e.Sync.SyncWithServer(ctx)
		e.Log.Info("wallet-engine", "final sync finished", "Cleanup", fmt.Sprintf("success=%t reason=%s", result.Success, result.Reason))
	}
	e.Sync.Stop()
	e.Bus.Clear()

	e.mu.Lock()
	e.initialized = false
	e.userID = ""
	e.mu.Unlock()
	return nil
}
