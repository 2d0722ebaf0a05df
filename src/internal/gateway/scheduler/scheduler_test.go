package scheduler

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"wallet-engine/src/pkg/log"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() log.Log {
	return log.New("test", "ERROR")
}

func TestTimerScheduler_FiresOnce(t *testing.T) {
	s := NewTimerScheduler(testLogger())

	var mu sync.Mutex
	var calls []string
	done := make(chan struct{}, 2)
	s.SetHandler(func(_ context.Context, userID, payoutID string) error {
		mu.Lock()
		calls = append(calls, userID+"/"+payoutID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	at := time.Now().Add(10 * time.Millisecond)
	require.NoError(t, s.ScheduleCompletion(context.Background(), "user-1", "PO-1", at))
	require.NoError(t, s.ScheduleCompletion(context.Background(), "user-1", "PO-1", at))
	assert.Equal(t, 1, s.Scheduled())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("completion never fired")
	}
	select {
	case <-done:
		t.Fatal("completion fired twice")
	case <-time.After(30 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"user-1/PO-1"}, calls)
	assert.Zero(t, s.Scheduled())
}

func TestTimerScheduler_Stop(t *testing.T) {
	s := NewTimerScheduler(testLogger())
	fired := make(chan struct{}, 1)
	s.SetHandler(func(context.Context, string, string) error {
		fired <- struct{}{}
		return nil
	})

	require.NoError(t, s.ScheduleCompletion(context.Background(), "user-1", "PO-2", time.Now().Add(20*time.Millisecond)))
	s.Stop()

	select {
	case <-fired:
		t.Fatal("stopped completion fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestTimerScheduler_CancelledContext(t *testing.T) {
	s := NewTimerScheduler(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.ScheduleCompletion(ctx, "user-1", "PO-3", time.Now()), context.Canceled)
}

func TestAsynqScheduler_EnqueuesScheduledTask(t *testing.T) {
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}
	client := asynq.NewClient(opt)
	defer client.Close()
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	s := NewAsynqScheduler(client, "", testLogger())
	at := time.Now().Add(24 * time.Hour)
	require.NoError(t, s.ScheduleCompletion(context.Background(), "user-1", "PO-9", at))
	// same payout again is accepted and not duplicated
	require.NoError(t, s.ScheduleCompletion(context.Background(), "user-1", "PO-9", at))

	info, err := inspector.GetTaskInfo(DefaultQueue, TaskID("PO-9"))
	require.NoError(t, err)
	assert.Equal(t, TypePayoutComplete, info.Type)
	assert.Equal(t, asynq.TaskStateScheduled, info.State)
	assert.WithinDuration(t, at, info.NextProcessAt, time.Second)

	var payload PayoutCompletePayload
	require.NoError(t, json.Unmarshal(info.Payload, &payload))
	assert.Equal(t, PayoutCompletePayload{UserID: "user-1", PayoutID: "PO-9"}, payload)

	scheduled, err := inspector.ListScheduledTasks(DefaultQueue)
	require.NoError(t, err)
	assert.Len(t, scheduled, 1)
}
