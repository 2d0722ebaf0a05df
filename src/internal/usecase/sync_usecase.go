package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/repository"
	"wallet-engine/src/pkg/eventbus"
	"wallet-engine/src/pkg/log"
	"wallet-engine/src/pkg/utils"

	"github.com/spf13/viper"
)

const (
	DefaultSyncMaxAttempts    = 10
	DefaultSyncBackoffInitial = time.Second
	DefaultSyncBackoffMax     = 5 * time.Minute

	// orphanGrace leaves a fresh transaction to the call that applied it
	// before the sync pass takes it over.
	orphanGrace = time.Minute
)

type SyncUseCase struct {
	Log       log.Log
	Config    *viper.Viper
	Ledger    *repository.LedgerRepository
	Queue     *repository.OfflineQueueRepository
	SyncState *repository.SyncStateRepository
	Wallet    *WalletUseCase
	Remote    RemoteLedger
	Channel   RealtimeChannel
	Bus       *eventbus.Bus
	now       func() time.Time

	running atomic.Bool

	loopMu sync.Mutex
	stop   chan struct{}
	done   chan struct{}
}

func NewSyncUseCase(
	logger log.Log,
	cfg *viper.Viper,
	ledger *repository.LedgerRepository,
	queue *repository.OfflineQueueRepository,
	syncState *repository.SyncStateRepository,
	wallet *WalletUseCase,
	remote RemoteLedger,
	channel RealtimeChannel,
	bus *eventbus.Bus,
) *SyncUseCase {
	return &SyncUseCase{
		Log:       logger,
		Config:    cfg,
		Ledger:    ledger,
		Queue:     queue,
		SyncState: syncState,
		Wallet:    wallet,
		Remote:    remote,
		Channel:   channel,
		Bus:       bus,
		now:       time.Now,
	}
}

func (c *SyncUseCase) maxAttempts() int {
	if n := c.Config.GetInt("sync.max_attempts"); n > 0 {
		return n
	}
	return DefaultSyncMaxAttempts
}

// backoff is the wait after the given number of failed attempts:
// initial * 2^(attempts-1), capped at the configured maximum.
func (c *SyncUseCase) backoff(attempts int) time.Duration {
	initial := c.Config.GetDuration("sync.backoff.initial")
	if initial <= 0 {
		initial = DefaultSyncBackoffInitial
	}
	limit := c.Config.GetDuration("sync.backoff.max")
	if limit <= 0 {
		limit = DefaultSyncBackoffMax
	}
	d := initial
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

// SyncOfflineTransactions replays the offline queue against the remote
// ledger in FIFO order. Entries still backing off are left for later.
func (c *SyncUseCase) SyncOfflineTransactions(ctx context.Context) (model.OfflineSyncResult, error) {
	var result model.OfflineSyncResult
	if !c.Channel.IsConnected() {
		return result, model.ErrNetworkUnavailable
	}

	userID := c.Ledger.Snapshot().UserID
	now := c.now()
	c.requeueOrphans(ctx, now)
	for _, entry := range c.Queue.Entries() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		id := entry.Transaction.TransactionID
		if entry.NextAttemptAt != nil && entry.NextAttemptAt.After(now) {
			result.Deferred++
			continue
		}

		if err := c.Remote.Record(ctx, userID, entry.Transaction); err != nil {
			c.Log.Error("sync-usecase", fmt.Sprintf("failed to sync offline transaction: %v", err), "SyncOfflineTransactions", id)
			if c.fail(ctx, id, entry.Attempts+1, err) {
				result.DeadLettered++
			} else {
				result.Failed++
			}
			continue
		}

		if err := c.Queue.Remove(ctx, id); err != nil {
			c.Log.Error("sync-usecase", fmt.Sprintf("failed to dequeue synced transaction: %v", err), "SyncOfflineTransactions", id)
		}
		if _, err := c.Ledger.MarkSynced(ctx, id); err != nil && !errors.Is(err, model.ErrNotFound) {
			c.Log.Error("sync-usecase", fmt.Sprintf("failed to mark transaction synced: %v", err), "SyncOfflineTransactions", id)
		}
		c.Bus.Emit(model.TransactionSynced{TransactionID: id})
		result.Synced++
	}

	if result != (model.OfflineSyncResult{}) {
		c.Log.Info("sync-usecase", "offline queue processed", "SyncOfflineTransactions", utils.ConvertString(result))
		c.Bus.Emit(model.OfflineQueueSynced{Result: result})
	}
	return result, nil
}

// requeueOrphans queues wallet transactions that are neither acknowledged
// nor tracked by the offline queue, which happens when queueing them failed.
func (c *SyncUseCase) requeueOrphans(ctx context.Context, now time.Time) {
	for _, tx := range c.Ledger.Unsynced() {
		if !tx.Timestamp.Before(now.Add(-orphanGrace)) || c.Queue.Tracks(tx.TransactionID) {
			continue
		}
		if _, err := c.Queue.Enqueue(ctx, tx, now); err != nil {
			c.Log.Error("sync-usecase", fmt.Sprintf("failed to requeue transaction: %v", err), "requeueOrphans", tx.TransactionID)
			continue
		}
		if err := c.Ledger.MarkQueued(ctx, tx.TransactionID, now); err != nil {
			c.Log.Error("sync-usecase", fmt.Sprintf("failed to stamp requeued transaction: %v", err), "requeueOrphans", tx.TransactionID)
		}
		tx.QueuedAt = &now
		c.Log.Info("sync-usecase", "requeued unsynced transaction", "requeueOrphans", tx.TransactionID)
		c.Bus.Emit(model.TransactionQueued{Transaction: tx})
	}
}

// pullDelta merges the transactions the remote ledger recorded since the
// last sync into the local history.
func (c *SyncUseCase) pullDelta(ctx context.Context, source DeltaSource, userID string, last *time.Time) {
	var since time.Time
	if last != nil {
		since = *last
	}
	txs, err := source.ListSince(ctx, userID, since)
	if err != nil {
		c.Log.Error("sync-usecase", fmt.Sprintf("failed to pull remote delta: %v", err), "pullDelta", userID)
		return
	}
	for _, tx := range txs {
		if err := c.Wallet.MergeServerTransaction(ctx, tx); err != nil {
			c.Log.Error("sync-usecase", fmt.Sprintf("failed to merge remote transaction: %v", err), "pullDelta", tx.TransactionID)
		}
	}
}

// fail records a failed attempt and reports whether the entry was moved to
// the dead-letter list.
func (c *SyncUseCase) fail(ctx context.Context, id string, attempts int, cause error) bool {
	next := c.now().Add(c.backoff(attempts))
	if _, err := c.Queue.RecordFailure(ctx, id, cause.Error(), next); err != nil {
		c.Log.Error("sync-usecase", fmt.Sprintf("failed to record sync failure: %v", err), "fail", id)
		return false
	}
	if attempts < c.maxAttempts() {
		return false
	}
	entry, err := c.Queue.DeadLetter(ctx, id)
	if err != nil {
		c.Log.Error("sync-usecase", fmt.Sprintf("failed to dead-letter transaction: %v", err), "fail", id)
		return false
	}
	c.Log.Error("sync-usecase", "offline transaction dead-lettered", "fail", utils.ConvertString(entry))
	c.Bus.Emit(model.TransactionDeadLettered{Entry: entry})
	return true
}

// SyncWithServer asks the server for a fresh balance, pulls the remote delta
// when the remote ledger can list it and replays the offline queue. Only one
// sync runs at a time.
func (c *SyncUseCase) SyncWithServer(ctx context.Context) model.SyncResult {
	if !c.Channel.IsConnected() {
		return model.SyncResult{Reason: model.ReasonOffline}
	}
	if !c.running.CompareAndSwap(false, true) {
		return model.SyncResult{Reason: model.ReasonInProgress}
	}
	defer c.running.Store(false)

	userID := c.Ledger.Snapshot().UserID
	last, err := c.SyncState.LastSync(ctx, userID)
	if err != nil {
		c.Log.Error("sync-usecase", fmt.Sprintf("failed to load last sync: %v", err), "SyncWithServer", userID)
	}
	if err := c.Channel.Emit(ctx, model.ChannelRequestWalletBalance, model.BalanceRequestPayload{UserID: userID, Since: last}); err != nil {
		c.Log.Error("sync-usecase", fmt.Sprintf("failed to request wallet balance: %v", err), "SyncWithServer", userID)
	}
	if source, ok := c.Remote.(DeltaSource); ok {
		c.pullDelta(ctx, source, userID, last)
	}

	offline, err := c.SyncOfflineTransactions(ctx)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, model.ErrNetworkUnavailable) {
			reason = model.ReasonOffline
		}
		return model.SyncResult{Reason: reason, Offline: offline}
	}

	syncedAt := c.now().UTC()
	if err := c.SyncState.SetLastSync(ctx, userID, syncedAt); err != nil {
		c.Log.Error("sync-usecase", fmt.Sprintf("failed to persist last sync: %v", err), "SyncWithServer", userID)
	}
	result := model.SyncResult{Success: true, Offline: offline}
	c.Bus.Emit(model.SyncCompleted{Result: result, SyncedAt: syncedAt})
	return result
}

func (c *SyncUseCase) LastSync(ctx context.Context) (*time.Time, error) {
	return c.SyncState.LastSync(ctx, c.Ledger.Snapshot().UserID)
}

// Start runs SyncWithServer every sync.interval until Stop is called. A
// non-positive interval disables the loop.
func (c *SyncUseCase) Start() {
	interval := c.Config.GetDuration("sync.interval")
	if interval <= 0 {
		return
	}

	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	if c.stop != nil {
		return
	}
	stop, done := make(chan struct{}), make(chan struct{})
	c.stop, c.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				result := c.SyncWithServer(ctx)
				cancel()
				if !result.Success && result.Reason != model.ReasonOffline {
					c.Log.Info("sync-usecase", "periodic sync skipped", "Start", result.Reason)
				}
			}
		}
	}()
}

func (c *SyncUseCase) Stop() {
	c.loopMu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.loopMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
