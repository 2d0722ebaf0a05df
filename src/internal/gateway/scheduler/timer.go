// Package scheduler defers payout completion either in process or through
// an asynq queue.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wallet-engine/src/pkg/log"
)

// CompleteFunc completes one payout. It is what both schedulers eventually call.
type CompleteFunc func(ctx context.Context, userID, payoutID string) error

// TimerScheduler keeps scheduled completions in memory. They do not survive a
// restart; use AsynqScheduler for that.
type TimerScheduler struct {
	log log.Log

	mu      sync.Mutex
	handler CompleteFunc
	timers  map[string]*time.Timer
	now     func() time.Time
}

func NewTimerScheduler(logger log.Log) *TimerScheduler {
	return &TimerScheduler{
		log:    logger,
		timers: make(map[string]*time.Timer),
		now:    time.Now,
	}
}

// SetHandler must be called before the first completion fires. The engine
// that owns the handler is usually built after the scheduler.
func (s *TimerScheduler) SetHandler(fn CompleteFunc) {
	s.mu.Lock()
	s.handler = fn
	s.mu.Unlock()
}

func (s *TimerScheduler) ScheduleCompletion(ctx context.Context, userID, payoutID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[payoutID]; ok {
		return nil
	}
	delay := at.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.timers[payoutID] = time.AfterFunc(delay, func() { s.fire(userID, payoutID) })
	return nil
}

func (s *TimerScheduler) fire(userID, payoutID string) {
	s.mu.Lock()
	delete(s.timers, payoutID)
	handler := s.handler
	s.mu.Unlock()

	if handler == nil {
		s.log.Error("timer-scheduler", "no completion handler registered", "fire", payoutID)
		return
	}
	if err := handler(context.Background(), userID, payoutID); err != nil {
		s.log.Error("timer-scheduler", fmt.Sprintf("payout completion failed: %v", err), "fire", payoutID)
	}
}

func (s *TimerScheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending completion.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
