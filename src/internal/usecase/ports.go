package usecase

import (
	"context"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/usecase/settlement"
)

// RemoteLedger is the authoritative server-side record. Record must be
// idempotent by transaction id; a nil error means the transaction is durably
// stored.
type RemoteLedger interface {
	Record(ctx context.Context, userID string, tx entity.Transaction) error
}

// DeltaSource is implemented by remote ledgers that can list what the server
// recorded for a user since a point in time.
type DeltaSource interface {
	ListSince(ctx context.Context, userID string, since time.Time) ([]entity.Transaction, error)
}

// RealtimeChannel is the bidirectional connection to the backend.
type RealtimeChannel interface {
	IsConnected() bool
	Emit(ctx context.Context, event string, payload any) error
}

type SettlementGateway = settlement.Gateway

// PayoutScheduler arranges for a payout to be completed at the given time.
type PayoutScheduler interface {
	ScheduleCompletion(ctx context.Context, userID, payoutID string, at time.Time) error
}
