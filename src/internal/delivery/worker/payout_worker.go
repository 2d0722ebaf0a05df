package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/gateway/scheduler"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/pkg/log"

	"github.com/hibiken/asynq"
)

type PayoutCompleter interface {
	UserID() string
	CompletePayout(ctx context.Context, payoutID string) (entity.Payout, error)
}

type PayoutWorker struct {
	Engine PayoutCompleter
	Log    log.Log
}

func NewPayoutWorker(engine PayoutCompleter, logger log.Log) *PayoutWorker {
	return &PayoutWorker{Engine: engine, Log: logger}
}

// HandleCompletePayout processes scheduler.TypePayoutComplete tasks. Errors
// that a retry cannot fix are wrapped with asynq.SkipRetry.
func (w *PayoutWorker) HandleCompletePayout(ctx context.Context, t *asynq.Task) error {
	var payload scheduler.PayoutCompletePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.Log.Error("payout-worker", fmt.Sprintf("malformed payload: %v", err), "HandleCompletePayout", string(t.Payload()))
		return fmt.Errorf("decode payout task: %v: %w", err, asynq.SkipRetry)
	}
	if payload.PayoutID == "" {
		return fmt.Errorf("payout task without payout id: %w", asynq.SkipRetry)
	}
	if owner := w.Engine.UserID(); owner != "" && payload.UserID != owner {
		w.Log.Error("payout-worker", "task belongs to another wallet", "HandleCompletePayout", fmt.Sprintf("task_user=%s wallet_user=%s", payload.UserID, owner))
		return fmt.Errorf("payout %s belongs to %s: %w", payload.PayoutID, payload.UserID, asynq.SkipRetry)
	}

	payout, err := w.Engine.CompletePayout(ctx, payload.PayoutID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidState), errors.Is(err, model.ErrNotFound):
			w.Log.Error("payout-worker", err.Error(), "HandleCompletePayout", payload.PayoutID)
			return fmt.Errorf("complete payout %s: %v: %w", payload.PayoutID, err, asynq.SkipRetry)
		default:
			return fmt.Errorf("complete payout %s: %w", payload.PayoutID, err)
		}
	}

	w.Log.Info("payout-worker", "payout completed", "HandleCompletePayout", fmt.Sprintf("payout=%s status=%s", payout.PayoutID, payout.Status))
	return nil
}
