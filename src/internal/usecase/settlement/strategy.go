// Package settlement holds the per-method strategies that turn a ride fare
// into a ledger transaction.
package settlement

import (
	"context"
	"fmt"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/repository"
)

// Request is the input of one settlement. TransactionID is already
// allocated by the dispatcher.
type Request struct {
	TransactionID string
	Ride          model.RideData
	Method        entity.PaymentMethod
}

type Strategy interface {
	Type() entity.PaymentMethodType
	Settle(ctx context.Context, req Request) (model.SettlementResult, error)
}

// WalletDebiter applies a balance mutation including its side effects.
type WalletDebiter interface {
	Apply(ctx context.Context, m repository.BalanceMutation) (entity.Transaction, error)
}

// Recorder stores transactions that do not move the wallet balance.
type Recorder interface {
	Record(ctx context.Context, tx entity.Transaction) (entity.Transaction, error)
	Transition(ctx context.Context, id string, status entity.TransactionStatus, reference, errMsg string) (entity.Transaction, bool, error)
}

// Gateway is an external settlement provider. Submit only accepts the
// request; the terminal outcome is delivered to the OnOutcome handler later.
type Gateway interface {
	Submit(ctx context.Context, req model.SettlementRequest) (model.SettlementReceipt, error)
	OnOutcome(handler func(model.SettlementOutcome))
}

func rideReason(rideID string) string {
	return fmt.Sprintf("Ride: %s", rideID)
}
