package model

import (
	"time"

	"wallet-engine/src/internal/entity"

	"github.com/shopspring/decimal"
)

const (
	EventWalletUpdated          = "wallet_updated"
	EventPaymentInitiated       = "payment_initiated"
	EventPaymentCompleted       = "payment_completed"
	EventPaymentFailed          = "payment_failed"
	EventCashPaymentPending     = "cash_payment_pending"
	EventMobileMoneyCompleted   = "mobile_money_completed"
	EventCardPaymentCompleted   = "card_payment_completed"
	EventPaymentMethodAdded     = "payment_method_added"
	EventPaymentMethodRemoved   = "payment_method_removed"
	EventPaymentMethodUpdated   = "payment_method_updated"
	EventPayoutRequested        = "payout_requested"
	EventPayoutCompleted        = "payout_completed"
	EventPayoutFailed           = "payout_failed"
	EventTransactionSynced      = "transaction_synced"
	EventTransactionQueued      = "transaction_queued"
	EventTransactionDeadLetter  = "offline_transaction_dead_lettered"
	EventOfflineQueueSynced     = "offline_queue_synced"
	EventSyncCompleted          = "sync_completed"
	EventConnectionStateChanged = "connection_state_changed"
)

type WalletUpdated struct {
	Balance     decimal.Decimal    `json:"balance"`
	Transaction entity.Transaction `json:"transaction"`
	Source      string             `json:"source"`
}

func (WalletUpdated) EventKind() string { return EventWalletUpdated }

type PaymentInitiated struct {
	TransactionID string                   `json:"transactionId"`
	RideID        string                   `json:"rideId"`
	Method        entity.PaymentMethodType `json:"method"`
	Amount        decimal.Decimal          `json:"amount"`
}

func (PaymentInitiated) EventKind() string { return EventPaymentInitiated }

type PaymentCompleted struct {
	Result SettlementResult `json:"result"`
}

func (PaymentCompleted) EventKind() string { return EventPaymentCompleted }

type PaymentFailed struct {
	TransactionID string                   `json:"transactionId"`
	RideID        string                   `json:"rideId"`
	Method        entity.PaymentMethodType `json:"method"`
	Amount        decimal.Decimal          `json:"amount"`
	Error         string                   `json:"error"`
	FailedAt      time.Time                `json:"failedAt"`
}

func (PaymentFailed) EventKind() string { return EventPaymentFailed }

type CashPaymentPending struct {
	TransactionID string          `json:"transactionId"`
	RideID        string          `json:"rideId"`
	DriverID      string          `json:"driverId,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

func (CashPaymentPending) EventKind() string { return EventCashPaymentPending }

type MobileMoneyCompleted struct {
	TransactionID string          `json:"transactionId"`
	RideID        string          `json:"rideId"`
	Provider      string          `json:"provider"`
	Reference     string          `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
}

func (MobileMoneyCompleted) EventKind() string { return EventMobileMoneyCompleted }

type CardPaymentCompleted struct {
	TransactionID     string          `json:"transactionId"`
	RideID            string          `json:"rideId"`
	AuthorizationCode string          `json:"authorizationCode"`
	Amount            decimal.Decimal `json:"amount"`
}

func (CardPaymentCompleted) EventKind() string { return EventCardPaymentCompleted }

type PaymentMethodAdded struct {
	Method entity.PaymentMethod `json:"method"`
}

func (PaymentMethodAdded) EventKind() string { return EventPaymentMethodAdded }

type PaymentMethodRemoved struct {
	MethodID string `json:"methodId"`
}

func (PaymentMethodRemoved) EventKind() string { return EventPaymentMethodRemoved }

type PaymentMethodUpdated struct {
	Method entity.PaymentMethod `json:"method"`
}

func (PaymentMethodUpdated) EventKind() string { return EventPaymentMethodUpdated }

type PayoutRequested struct {
	Payout entity.Payout `json:"payout"`
}

func (PayoutRequested) EventKind() string { return EventPayoutRequested }

type PayoutCompleted struct {
	Payout entity.Payout `json:"payout"`
}

func (PayoutCompleted) EventKind() string { return EventPayoutCompleted }

type PayoutFailed struct {
	Payout   entity.Payout      `json:"payout"`
	Reversal entity.Transaction `json:"reversal"`
}

func (PayoutFailed) EventKind() string { return EventPayoutFailed }

type TransactionSynced struct {
	TransactionID string `json:"transactionId"`
}

func (TransactionSynced) EventKind() string { return EventTransactionSynced }

type TransactionQueued struct {
	Transaction entity.Transaction `json:"transaction"`
}

func (TransactionQueued) EventKind() string { return EventTransactionQueued }

type TransactionDeadLettered struct {
	Entry entity.OfflineQueueEntry `json:"entry"`
}

func (TransactionDeadLettered) EventKind() string { return EventTransactionDeadLetter }

type OfflineQueueSynced struct {
	Result OfflineSyncResult `json:"result"`
}

func (OfflineQueueSynced) EventKind() string { return EventOfflineQueueSynced }

type SyncCompleted struct {
	Result   SyncResult `json:"result"`
	SyncedAt time.Time  `json:"syncedAt"`
}

func (SyncCompleted) EventKind() string { return EventSyncCompleted }

type ConnectionStateChanged struct {
	Connected bool `json:"connected"`
}

func (ConnectionStateChanged) EventKind() string { return EventConnectionStateChanged }
