package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutRequested PayoutStatus = "requested"
	PayoutCompleted PayoutStatus = "completed"
	PayoutFailed    PayoutStatus = "failed"
)

type Payout struct {
	PayoutID              string          `json:"payoutId"`
	Amount                decimal.Decimal `json:"amount"`
	Method                string          `json:"method"`
	Status                PayoutStatus    `json:"status"`
	TransactionID         string          `json:"transactionId"`
	RequestedAt           time.Time       `json:"requestedAt"`
	EstimatedCompletion   time.Time       `json:"estimatedCompletion"`
	CompletedAt           *time.Time      `json:"completedAt,omitempty"`
	FailedAt              *time.Time      `json:"failedAt,omitempty"`
	FailureReason         string          `json:"failureReason,omitempty"`
	ReversalTransactionID string          `json:"reversalTransactionId,omitempty"`
}
