package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
)

const DefaultAckTimeout = 5 * time.Second

// LedgerPublisher records transactions by emitting transaction_sync on the
// channel. It is used when no dedicated remote ledger is configured. Record
// returns only after the server acknowledged the transaction, either with
// transaction_synced or by echoing it as new_transaction.
type LedgerPublisher struct {
	Channel    *Channel
	AckTimeout time.Duration

	mu      sync.Mutex
	waiters map[string][]chan struct{}
}

func NewLedgerPublisher(channel *Channel, ackTimeout time.Duration) *LedgerPublisher {
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}
	p := &LedgerPublisher{
		Channel:    channel,
		AckTimeout: ackTimeout,
		waiters:    make(map[string][]chan struct{}),
	}
	channel.OnMessage(p.handle)
	return p
}

func (p *LedgerPublisher) Record(ctx context.Context, userID string, tx entity.Transaction) error {
	ack := make(chan struct{})
	p.mu.Lock()
	p.waiters[tx.TransactionID] = append(p.waiters[tx.TransactionID], ack)
	p.mu.Unlock()
	defer p.forget(tx.TransactionID, ack)

	if err := p.Channel.Emit(ctx, model.ChannelTransactionSync, model.TransactionSyncPayload{
		UserID:      userID,
		Transaction: tx,
	}); err != nil {
		return err
	}

	timer := time.NewTimer(p.AckTimeout)
	defer timer.Stop()
	select {
	case <-ack:
		return nil
	case <-timer.C:
		return model.NewError(model.KindNetworkUnavailable, "no acknowledgment for transaction %s", tx.TransactionID)
	case <-ctx.Done():
		return model.WrapError(model.KindNetworkUnavailable, ctx.Err(), "waiting for acknowledgment of %s", tx.TransactionID)
	}
}

// handle runs on the channel reader and releases every Record waiting for
// the acknowledged transaction.
func (p *LedgerPublisher) handle(msg model.InboundMessage) {
	var id string
	switch msg.Event {
	case model.ChannelTransactionSynced:
		var payload model.TransactionSyncedPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		id = payload.TransactionID
	case model.ChannelNewTransaction:
		var tx entity.Transaction
		if err := json.Unmarshal(msg.Data, &tx); err != nil {
			return
		}
		id = tx.TransactionID
	default:
		return
	}
	if id == "" {
		return
	}

	p.mu.Lock()
	waiting := p.waiters[id]
	delete(p.waiters, id)
	p.mu.Unlock()
	for _, ack := range waiting {
		close(ack)
	}
}

func (p *LedgerPublisher) forget(id string, ack chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	waiting := p.waiters[id]
	for i, w := range waiting {
		if w == ack {
			waiting = append(waiting[:i:i], waiting[i+1:]...)
			break
		}
	}
	if len(waiting) == 0 {
		delete(p.waiters, id)
	} else {
		p.waiters[id] = waiting
	}
}
