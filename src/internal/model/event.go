package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is a message published to the remote ledger topic, keyed by its id.
type Event interface {
	GetId() string
}

type TransactionEvent struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	Reason        string          `json:"reason"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	RideID        string          `json:"rideId,omitempty"`
	PayoutID      string          `json:"payoutId,omitempty"`
	AffectsWallet bool            `json:"affectsWallet"`
	Reference     string          `json:"reference,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

func (e *TransactionEvent) GetId() string {
	return e.ID
}
