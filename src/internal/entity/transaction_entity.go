package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

type TransactionStatus string

const (
	StatusPendingCollection TransactionStatus = "pending_collection"
	StatusProcessing        TransactionStatus = "processing"
	StatusCompleted         TransactionStatus = "completed"
	StatusFailed            TransactionStatus = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Transaction struct {
	TransactionID string            `json:"transactionId"`
	Amount        decimal.Decimal   `json:"amount"`
	Type          TransactionType   `json:"type"`
	BalanceBefore decimal.Decimal   `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal   `json:"balanceAfter"`
	Reason        string            `json:"reason"`
	Status        TransactionStatus `json:"status"`
	PaymentMethod PaymentMethodType `json:"paymentMethod,omitempty"`
	Provider      string            `json:"provider,omitempty"`
	RideID        string            `json:"rideId,omitempty"`
	PayoutID      string            `json:"payoutId,omitempty"`
	AffectsWallet bool              `json:"affectsWallet"`
	Reference     string            `json:"reference,omitempty"`
	Error         string            `json:"error,omitempty"`
	Synced        bool              `json:"synced"`
	Timestamp     time.Time         `json:"timestamp"`
	ConfirmedAt   *time.Time        `json:"confirmedAt,omitempty"`
	FailedAt      *time.Time        `json:"failedAt,omitempty"`
	QueuedAt      *time.Time        `json:"queuedAt,omitempty"`
}

// TypeForAmount derives the transaction type from the sign of amount.
func TypeForAmount(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TransactionDebit
	}
	return TransactionCredit
}

// Validate checks the redundant fields of a transaction against each other.
func (t *Transaction) Validate() error {
	if t.TransactionID == "" {
		return fmt.Errorf("transaction id is required")
	}
	if t.Amount.IsZero() {
		return fmt.Errorf("transaction %s: amount must not be zero", t.TransactionID)
	}
	if t.Type != TypeForAmount(t.Amount) {
		return fmt.Errorf("transaction %s: type %s does not match amount %s", t.TransactionID, t.Type, t.Amount)
	}
	if t.AffectsWallet && !t.BalanceBefore.Add(t.Amount).Equal(t.BalanceAfter) {
		return fmt.Errorf("transaction %s: balance after %s != before %s + amount %s",
			t.TransactionID, t.BalanceAfter, t.BalanceBefore, t.Amount)
	}
	if t.AffectsWallet && t.BalanceAfter.IsNegative() {
		return fmt.Errorf("transaction %s: balance after %s is negative", t.TransactionID, t.BalanceAfter)
	}
	switch t.Status {
	case StatusPendingCollection, StatusProcessing, StatusCompleted, StatusFailed:
	default:
		return fmt.Errorf("transaction %s: unknown status %q", t.TransactionID, t.Status)
	}
	return nil
}
