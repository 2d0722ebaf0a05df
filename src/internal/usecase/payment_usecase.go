package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/model/converter"
	"wallet-engine/src/internal/repository"
	"wallet-engine/src/internal/usecase/settlement"
	"wallet-engine/src/pkg/eventbus"
	"wallet-engine/src/pkg/log"
	"wallet-engine/src/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// pendingPayment marks a ride whose payment has been dispatched but not
// settled yet. It lives in memory only.
type pendingPayment struct {
	TransactionID string
	Method        entity.PaymentMethodType
	StartedAt     time.Time
}

type PaymentUseCase struct {
	Log        log.Log
	Validate   *validator.Validate
	Ledger     *repository.LedgerRepository
	Methods    *PaymentMethodUseCase
	Bus        *eventbus.Bus
	Channel    RealtimeChannel
	strategies map[entity.PaymentMethodType]settlement.Strategy

	mu      sync.Mutex
	pending map[string]pendingPayment
	now     func() time.Time
}

func NewPaymentUseCase(
	logger log.Log,
	validate *validator.Validate,
	ledger *repository.LedgerRepository,
	methods *PaymentMethodUseCase,
	bus *eventbus.Bus,
	channel RealtimeChannel,
	strategies ...settlement.Strategy,
) *PaymentUseCase {
	byType := make(map[entity.PaymentMethodType]settlement.Strategy, len(strategies))
	for _, s := range strategies {
		byType[s.Type()] = s
	}
	return &PaymentUseCase{
		Log:        logger,
		Validate:   validate,
		Ledger:     ledger,
		Methods:    methods,
		Bus:        bus,
		Channel:    channel,
		strategies: byType,
		pending:    make(map[string]pendingPayment),
		now:        time.Now,
	}
}

// ProcessRidePayment settles the fare of one ride. Validation failures,
// unsupported methods and duplicates are reported before any state changes.
func (c *PaymentUseCase) ProcessRidePayment(ctx context.Context, request *model.ProcessRidePaymentRequest) (model.SettlementResult, error) {
	if err := c.Validate.Struct(request); err != nil {
		c.Log.Error("payment-usecase", fmt.Sprintf("validation error: %v", err), "ProcessRidePayment", utils.ConvertString(request))
		return model.SettlementResult{}, model.WrapError(model.KindInvalidRequest, err, "validation error")
	}
	ride := request.Ride
	if !ride.Fare.IsPositive() {
		return model.SettlementResult{}, model.NewError(model.KindInvalidAmount, "fare must be positive, got %s", ride.Fare)
	}

	method, err := c.Methods.Resolve(request.PaymentMethod, ride.Provider)
	if err != nil {
		c.Log.Error("payment-usecase", err.Error(), "ProcessRidePayment", request.PaymentMethod)
		return model.SettlementResult{}, err
	}
	strategy, ok := c.strategies[method.Type]
	if !ok {
		return model.SettlementResult{}, model.NewError(model.KindUnsupportedMethod, "no settlement strategy for %s", method.Type)
	}

	if ride.RideID == "" {
		ride.RideID = uuid.NewString()
	}
	txID := uuid.NewString()
	if err := c.track(ride.RideID, txID, method.Type); err != nil {
		c.Log.Error("payment-usecase", err.Error(), "ProcessRidePayment", ride.RideID)
		return model.SettlementResult{}, err
	}

	c.Bus.Emit(model.PaymentInitiated{
		TransactionID: txID,
		RideID:        ride.RideID,
		Method:        method.Type,
		Amount:        ride.Fare,
	})
	c.notify(ctx, model.ChannelRidePaymentInitiated, model.RidePaymentPayload{
		RideID:        ride.RideID,
		TransactionID: txID,
		Method:        method.Type,
		Amount:        ride.Fare,
	})

	result, err := strategy.Settle(ctx, settlement.Request{TransactionID: txID, Ride: ride, Method: method})
	if err != nil {
		c.untrack(ride.RideID)
		c.Bus.Emit(model.PaymentFailed{
			TransactionID: txID,
			RideID:        ride.RideID,
			Method:        method.Type,
			Amount:        ride.Fare,
			Error:         err.Error(),
			FailedAt:      c.now(),
		})
		c.notify(ctx, model.ChannelRidePaymentFailed, model.RidePaymentPayload{
			RideID:        ride.RideID,
			TransactionID: txID,
			Method:        method.Type,
			Amount:        ride.Fare,
			Status:        entity.StatusFailed,
			Error:         err.Error(),
		})
		return model.SettlementResult{}, err
	}

	c.Log.Info("payment-usecase", "ride payment dispatched", "ProcessRidePayment", utils.ConvertString(result))
	switch result.Status {
	case entity.StatusCompleted:
		c.untrack(ride.RideID)
		c.completed(ctx, result)
	case entity.StatusPendingCollection:
		// The ledger entry now guards against a second payment for this ride.
		c.untrack(ride.RideID)
	}
	return result, nil
}

func (c *PaymentUseCase) track(rideID, txID string, method entity.PaymentMethodType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[rideID]; ok {
		return model.NewError(model.KindDuplicateRequest, "payment for ride %s is already in progress", rideID)
	}
	if tx, ok := c.Ledger.FindActiveByRide(rideID); ok {
		return model.NewError(model.KindDuplicateRequest, "ride %s already has transaction %s (%s)", rideID, tx.TransactionID, tx.Status)
	}
	c.pending[rideID] = pendingPayment{TransactionID: txID, Method: method, StartedAt: c.now()}
	return nil
}

func (c *PaymentUseCase) untrack(rideID string) {
	c.mu.Lock()
	delete(c.pending, rideID)
	c.mu.Unlock()
}

// Pending returns the number of rides with a payment in flight.
func (c *PaymentUseCase) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// HandleSettlementOutcome finalizes a processing transaction. Outcomes for a
// transaction that is already terminal are ignored.
func (c *PaymentUseCase) HandleSettlementOutcome(ctx context.Context, outcome *model.SettlementOutcome) error {
	if err := c.Validate.Struct(outcome); err != nil {
		return model.WrapError(model.KindInvalidRequest, err, "validation error")
	}

	status := entity.StatusFailed
	reference := outcome.Reference
	if outcome.Success {
		status = entity.StatusCompleted
		if outcome.AuthorizationCode != "" {
			reference = outcome.AuthorizationCode
		}
	}

	tx, changed, err := c.Ledger.Transition(ctx, outcome.TransactionID, status, reference, outcome.Error)
	if err != nil {
		c.Log.Error("payment-usecase", fmt.Sprintf("failed to apply settlement outcome: %v", err), "HandleSettlementOutcome", outcome.TransactionID)
		return err
	}
	if !changed {
		c.Log.Info("payment-usecase", "settlement outcome ignored, transaction already final", "HandleSettlementOutcome", outcome.TransactionID)
		return nil
	}
	c.untrack(tx.RideID)

	if tx.Status == entity.StatusFailed {
		c.Bus.Emit(model.PaymentFailed{
			TransactionID: tx.TransactionID,
			RideID:        tx.RideID,
			Method:        tx.PaymentMethod,
			Amount:        tx.Amount.Abs(),
			Error:         tx.Error,
			FailedAt:      *tx.FailedAt,
		})
		c.notify(ctx, model.ChannelRidePaymentFailed, model.RidePaymentPayload{
			RideID:        tx.RideID,
			TransactionID: tx.TransactionID,
			Method:        tx.PaymentMethod,
			Amount:        tx.Amount.Abs(),
			Status:        tx.Status,
			Error:         tx.Error,
		})
		return nil
	}

	switch tx.PaymentMethod {
	case entity.MethodMobileMoney:
		c.Bus.Emit(model.MobileMoneyCompleted{
			TransactionID: tx.TransactionID,
			RideID:        tx.RideID,
			Provider:      tx.Provider,
			Reference:     tx.Reference,
			Amount:        tx.Amount.Abs(),
		})
	case entity.MethodCard:
		c.Bus.Emit(model.CardPaymentCompleted{
			TransactionID:     tx.TransactionID,
			RideID:            tx.RideID,
			AuthorizationCode: tx.Reference,
			Amount:            tx.Amount.Abs(),
		})
	}
	c.completed(ctx, converter.TransactionToResult(&tx))
	return nil
}

func (c *PaymentUseCase) completed(ctx context.Context, result model.SettlementResult) {
	c.Bus.Emit(model.PaymentCompleted{Result: result})
	c.notify(ctx, model.ChannelRidePaymentCompleted, model.RidePaymentPayload{
		RideID:        result.RideID,
		TransactionID: result.TransactionID,
		Method:        result.Method,
		Amount:        result.Amount,
		Status:        result.Status,
	})
}

// notify emits on the real-time channel when connected. Failures are logged.
func (c *PaymentUseCase) notify(ctx context.Context, event string, payload model.RidePaymentPayload) {
	if !c.Channel.IsConnected() {
		return
	}
	if err := c.Channel.Emit(ctx, event, payload); err != nil {
		c.Log.Error("payment-usecase", fmt.Sprintf("failed to emit %s: %v", event, err), "notify", payload.TransactionID)
	}
}
