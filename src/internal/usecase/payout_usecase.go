package usecase

import (
	"context"
	"fmt"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/repository"
	"wallet-engine/src/pkg/eventbus"
	"wallet-engine/src/pkg/log"
	"wallet-engine/src/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	payoutIDPrefix   = "PO-"
	reversalIDPrefix = "REV-"

	DefaultMinimumPayout  = 1000
	payoutEstimatedWindow = 24 * time.Hour
)

type PayoutUseCase struct {
	Log       log.Log
	Validate  *validator.Validate
	Config    *viper.Viper
	Wallet    *WalletUseCase
	Ledger    *repository.LedgerRepository
	Payouts   *repository.PayoutRepository
	Scheduler PayoutScheduler
	Bus       *eventbus.Bus
	now       func() time.Time
}

func NewPayoutUseCase(
	logger log.Log,
	validate *validator.Validate,
	cfg *viper.Viper,
	wallet *WalletUseCase,
	ledger *repository.LedgerRepository,
	payouts *repository.PayoutRepository,
	scheduler PayoutScheduler,
	bus *eventbus.Bus,
) *PayoutUseCase {
	return &PayoutUseCase{
		Log:       logger,
		Validate:  validate,
		Config:    cfg,
		Wallet:    wallet,
		Ledger:    ledger,
		Payouts:   payouts,
		Scheduler: scheduler,
		Bus:       bus,
		now:       time.Now,
	}
}

func (c *PayoutUseCase) minimum() decimal.Decimal {
	if v := c.Config.GetString("payout.minimum"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.NewFromInt(DefaultMinimumPayout)
}

func (c *PayoutUseCase) completionDelay() time.Duration {
	if d := c.Config.GetDuration("payout.completion_delay"); d > 0 {
		return d
	}
	return payoutEstimatedWindow
}

// Resume re-arms payouts a previous run left unfinished. Requested payouts
// are scheduled again at their original completion time, or now when that
// time has passed. Failed payouts missing their reversal are credited back.
func (c *PayoutUseCase) Resume(ctx context.Context) {
	userID := c.Ledger.Snapshot().UserID
	now := c.now().UTC()
	for _, p := range c.Payouts.List() {
		switch {
		case p.Status == entity.PayoutRequested:
			at := p.RequestedAt.Add(c.completionDelay())
			if at.Before(now) {
				at = now
			}
			if err := c.Scheduler.ScheduleCompletion(ctx, userID, p.PayoutID, at); err != nil {
				c.Log.Error("payout-usecase", fmt.Sprintf("failed to reschedule payout completion: %v", err), "Resume", p.PayoutID)
			}
		case p.Status == entity.PayoutFailed && p.ReversalTransactionID == "":
			if _, err := c.FailPayout(ctx, p.PayoutID, p.FailureReason); err != nil {
				c.Log.Error("payout-usecase", fmt.Sprintf("failed to retry payout reversal: %v", err), "Resume", p.PayoutID)
			}
		}
	}
}

// RequestPayout debits the wallet and records a payout awaiting completion.
func (c *PayoutUseCase) RequestPayout(ctx context.Context, request *model.PayoutRequest) (entity.Payout, error) {
	if err := c.Validate.Struct(request); err != nil {
		c.Log.Error("payout-usecase", fmt.Sprintf("validation error: %v", err), "RequestPayout", utils.ConvertString(request))
		return entity.Payout{}, model.WrapError(model.KindInvalidRequest, err, "validation error")
	}

	amount := request.Amount
	switch {
	case !amount.IsPositive():
		return entity.Payout{}, model.NewError(model.KindInvalidAmount, "payout amount must be positive, got %s", amount)
	case amount.GreaterThan(c.Ledger.Balance()):
		return entity.Payout{}, model.NewError(model.KindInsufficientFunds, "payout of %s exceeds balance %s", amount, c.Ledger.Balance())
	case amount.LessThan(c.minimum()):
		return entity.Payout{}, model.NewError(model.KindBelowMinimum, "payout of %s is below the minimum of %s", amount, c.minimum())
	}

	payoutID := payoutIDPrefix + ulid.Make().String()
	tx, err := c.Wallet.Apply(ctx, repository.BalanceMutation{
		Amount:        amount.Neg(),
		Reason:        fmt.Sprintf("Payout to %s", request.Method),
		TransactionID: payoutID,
		PayoutID:      payoutID,
	})
	if err != nil {
		return entity.Payout{}, err
	}

	now := c.now().UTC()
	payout := entity.Payout{
		PayoutID:            payoutID,
		Amount:              amount,
		Method:              request.Method,
		Status:              entity.PayoutRequested,
		TransactionID:       tx.TransactionID,
		RequestedAt:         now,
		EstimatedCompletion: now.Add(payoutEstimatedWindow),
	}
	if err := c.Payouts.Create(ctx, payout); err != nil {
		c.Log.Error("payout-usecase", fmt.Sprintf("failed to store payout, reversing debit: %v", err), "RequestPayout", payoutID)
		if _, rerr := c.reverse(ctx, payout); rerr != nil {
			c.Log.Error("payout-usecase", fmt.Sprintf("failed to reverse payout debit: %v", rerr), "RequestPayout", payoutID)
		}
		return entity.Payout{}, err
	}

	userID := c.Ledger.Snapshot().UserID
	if err := c.Scheduler.ScheduleCompletion(ctx, userID, payoutID, now.Add(c.completionDelay())); err != nil {
		// The payout stays requested until a payout_status push settles it.
		c.Log.Error("payout-usecase", fmt.Sprintf("failed to schedule payout completion: %v", err), "RequestPayout", payoutID)
	}

	c.Log.Info("payout-usecase", "payout requested", "RequestPayout", utils.ConvertString(payout))
	c.Bus.Emit(model.PayoutRequested{Payout: payout})
	return payout, nil
}

// CompletePayout moves a requested payout to completed. Completing it again
// is a no-op; a failed payout cannot be completed.
func (c *PayoutUseCase) CompletePayout(ctx context.Context, payoutID string) (entity.Payout, error) {
	payout, changed, err := c.Payouts.Update(ctx, payoutID, func(p *entity.Payout) (bool, error) {
		switch p.Status {
		case entity.PayoutCompleted:
			return false, nil
		case entity.PayoutFailed:
			return false, model.NewError(model.KindInvalidState, "payout %s already failed", p.PayoutID)
		}
		at := c.now().UTC()
		p.Status = entity.PayoutCompleted
		p.CompletedAt = &at
		return true, nil
	})
	if err != nil {
		c.Log.Error("payout-usecase", fmt.Sprintf("failed to complete payout: %v", err), "CompletePayout", payoutID)
		return entity.Payout{}, err
	}
	if changed {
		c.Bus.Emit(model.PayoutCompleted{Payout: payout})
	}
	return payout, nil
}

// FailPayout marks a requested payout failed and credits the amount back
// with transaction id REV-<payoutId>. Calling it again retries a missing
// reversal and is otherwise a no-op.
func (c *PayoutUseCase) FailPayout(ctx context.Context, payoutID, reason string) (entity.Payout, error) {
	payout, _, err := c.Payouts.Update(ctx, payoutID, func(p *entity.Payout) (bool, error) {
		switch p.Status {
		case entity.PayoutFailed:
			return false, nil
		case entity.PayoutCompleted:
			return false, model.NewError(model.KindInvalidState, "payout %s already completed", p.PayoutID)
		}
		at := c.now().UTC()
		p.Status = entity.PayoutFailed
		p.FailedAt = &at
		p.FailureReason = reason
		return true, nil
	})
	if err != nil {
		c.Log.Error("payout-usecase", fmt.Sprintf("failed to fail payout: %v", err), "FailPayout", payoutID)
		return entity.Payout{}, err
	}
	if payout.ReversalTransactionID != "" {
		return payout, nil
	}

	reversal, err := c.reverse(ctx, payout)
	if err != nil {
		c.Log.Error("payout-usecase", fmt.Sprintf("failed to credit payout reversal: %v", err), "FailPayout", payoutID)
		return payout, err
	}
	payout, _, err = c.Payouts.Update(ctx, payoutID, func(p *entity.Payout) (bool, error) {
		p.ReversalTransactionID = reversal.TransactionID
		return true, nil
	})
	if err != nil {
		return entity.Payout{}, err
	}

	c.Bus.Emit(model.PayoutFailed{Payout: payout, Reversal: reversal})
	return payout, nil
}

func (c *PayoutUseCase) reverse(ctx context.Context, payout entity.Payout) (entity.Transaction, error) {
	return c.Wallet.Apply(ctx, repository.BalanceMutation{
		Amount:        payout.Amount,
		Reason:        fmt.Sprintf("Payout reversal: %s", payout.PayoutID),
		TransactionID: reversalIDPrefix + payout.PayoutID,
		PayoutID:      payout.PayoutID,
	})
}

// HandleStatusUpdate applies a payout status pushed by the server.
func (c *PayoutUseCase) HandleStatusUpdate(ctx context.Context, update *model.PayoutStatusUpdate) (entity.Payout, error) {
	if err := c.Validate.Struct(update); err != nil {
		return entity.Payout{}, model.WrapError(model.KindInvalidRequest, err, "validation error")
	}
	if update.Status == string(entity.PayoutCompleted) {
		return c.CompletePayout(ctx, update.PayoutID)
	}
	reason := update.Reason
	if reason == "" {
		reason = "rejected by provider"
	}
	return c.FailPayout(ctx, update.PayoutID, reason)
}

func (c *PayoutUseCase) List() []entity.Payout {
	return c.Payouts.List()
}

func (c *PayoutUseCase) Get(payoutID string) (entity.Payout, error) {
	return c.Payouts.Get(payoutID)
}
