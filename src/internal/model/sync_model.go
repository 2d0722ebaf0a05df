package model

import (
	"encoding/json"
	"time"

	"wallet-engine/src/internal/entity"

	"github.com/shopspring/decimal"
)

const (
	ReasonOffline    = "offline"
	ReasonInProgress = "in_progress"
)

type SyncResult struct {
	Success bool              `json:"success"`
	Reason  string            `json:"reason,omitempty"`
	Offline OfflineSyncResult `json:"offline"`
}

type OfflineSyncResult struct {
	Synced       int `json:"synced"`
	Failed       int `json:"failed"`
	Deferred     int `json:"deferred"`
	DeadLettered int `json:"deadLettered"`
}

// Real-time channel event names.
const (
	ChannelPaymentConfirmed     = "payment_confirmed"
	ChannelPaymentFailed        = "payment_failed"
	ChannelWalletBalance        = "wallet_balance"
	ChannelNewTransaction       = "new_transaction"
	ChannelPayoutStatus         = "payout_status"
	ChannelWalletUpdate         = "wallet_update"
	ChannelTransactionSync      = "transaction_sync"
	ChannelTransactionSynced    = "transaction_synced"
	ChannelRequestWalletBalance = "request_wallet_balance"
	ChannelRidePaymentInitiated = "ride_payment_initiated"
	ChannelRidePaymentCompleted = "ride_payment_completed"
	ChannelRidePaymentFailed    = "ride_payment_failed"
)

// InboundMessage is one envelope received from the real-time channel.
type InboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type BalanceRequestPayload struct {
	UserID string     `json:"userId"`
	Since  *time.Time `json:"since,omitempty"`
}

type PaymentConfirmedPayload struct {
	TransactionID     string `json:"transactionId" validate:"required"`
	Reference         string `json:"reference,omitempty"`
	AuthorizationCode string `json:"authorizationCode,omitempty"`
}

type PaymentFailedPayload struct {
	TransactionID string `json:"transactionId" validate:"required"`
	Error         string `json:"error"`
}

type WalletBalancePayload struct {
	Balance decimal.Decimal `json:"balance"`
}

// WalletUpdatePayload is emitted on the channel after a local balance change.
type WalletUpdatePayload struct {
	UserID      string             `json:"userId"`
	Balance     decimal.Decimal    `json:"balance"`
	Transaction entity.Transaction `json:"transaction"`
}

type TransactionSyncPayload struct {
	UserID      string             `json:"userId"`
	Transaction entity.Transaction `json:"transaction"`
}

// TransactionSyncedPayload is the server's acknowledgment of transaction_sync.
type TransactionSyncedPayload struct {
	TransactionID string `json:"transactionId"`
}

type RidePaymentPayload struct {
	RideID        string                   `json:"rideId"`
	TransactionID string                   `json:"transactionId"`
	Method        entity.PaymentMethodType `json:"method"`
	Amount        decimal.Decimal          `json:"amount"`
	Status        entity.TransactionStatus `json:"status,omitempty"`
	Error         string                   `json:"error,omitempty"`
}
