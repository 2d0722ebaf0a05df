package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-engine/src/pkg/log"

	"github.com/hibiken/asynq"
)

const (
	TypePayoutComplete = "payout:complete"
	DefaultQueue       = "payouts"
)

type PayoutCompletePayload struct {
	UserID   string `json:"userId"`
	PayoutID string `json:"payoutId"`
}

func NewPayoutCompleteTask(userID, payoutID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PayoutCompletePayload{UserID: userID, PayoutID: payoutID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePayoutComplete, payload, asynq.MaxRetry(5)), nil
}

// TaskID is the asynq task id used for a payout, so that scheduling the same
// payout twice enqueues one task.
func TaskID(payoutID string) string {
	return TypePayoutComplete + ":" + payoutID
}

type AsynqScheduler struct {
	Client *asynq.Client
	Queue  string
	Log    log.Log
}

func NewAsynqScheduler(client *asynq.Client, queue string, logger log.Log) *AsynqScheduler {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AsynqScheduler{Client: client, Queue: queue, Log: logger}
}

func (s *AsynqScheduler) ScheduleCompletion(ctx context.Context, userID, payoutID string, at time.Time) error {
	task, err := NewPayoutCompleteTask(userID, payoutID)
	if err != nil {
		return fmt.Errorf("build payout task: %w", err)
	}
	info, err := s.Client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.TaskID(TaskID(payoutID)),
		asynq.Queue(s.Queue),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		s.Log.Error("asynq-scheduler", fmt.Sprintf("failed to enqueue payout completion: %v", err), "ScheduleCompletion", payoutID)
		return fmt.Errorf("enqueue payout %s: %w", payoutID, err)
	}
	s.Log.Info("asynq-scheduler", "payout completion scheduled", "ScheduleCompletion", fmt.Sprintf("task=%s queue=%s at=%s", info.ID, info.Queue, at.Format(time.RFC3339)))
	return nil
}
