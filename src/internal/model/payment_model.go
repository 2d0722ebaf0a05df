package model

import (
	"time"

	"wallet-engine/src/internal/entity"

	"github.com/shopspring/decimal"
)

type RideData struct {
	RideID      string          `json:"rideId" validate:"omitempty,max=100"`
	Fare        decimal.Decimal `json:"fare"`
	DriverID    string          `json:"driverId,omitempty" validate:"omitempty,max=100"`
	PassengerID string          `json:"passengerId,omitempty" validate:"omitempty,max=100"`
	Provider    string          `json:"provider,omitempty" validate:"omitempty,max=50"`
	PhoneNumber string          `json:"phoneNumber,omitempty" validate:"omitempty,e164"`
	MethodID    string          `json:"methodId,omitempty" validate:"omitempty,max=100"`
}

type ProcessRidePaymentRequest struct {
	Ride          RideData `json:"ride"`
	PaymentMethod string   `json:"paymentMethod" validate:"required"`
}

type SettlementResult struct {
	Success           bool                     `json:"success"`
	TransactionID     string                   `json:"transactionId"`
	RideID            string                   `json:"rideId"`
	Amount            decimal.Decimal          `json:"amount"`
	Method            entity.PaymentMethodType `json:"method"`
	Status            entity.TransactionStatus `json:"status"`
	Timestamp         time.Time                `json:"timestamp"`
	Balance           *decimal.Decimal         `json:"balance,omitempty"`
	Provider          string                   `json:"provider,omitempty"`
	Reference         string                   `json:"reference,omitempty"`
	AuthorizationCode string                   `json:"authorizationCode,omitempty"`
	Message           string                   `json:"message,omitempty"`
}

// SettlementRequest is what the engine submits to an external gateway.
type SettlementRequest struct {
	TransactionID string                   `json:"transactionId"`
	RideID        string                   `json:"rideId"`
	Method        entity.PaymentMethodType `json:"method"`
	Amount        decimal.Decimal          `json:"amount"`
	Provider      string                   `json:"provider,omitempty"`
	PhoneNumber   string                   `json:"phoneNumber,omitempty"`
	MethodID      string                   `json:"methodId,omitempty"`
}

type SettlementReceipt struct {
	TransactionID string    `json:"transactionId"`
	AcceptedAt    time.Time `json:"acceptedAt"`
}

// SettlementOutcome is the terminal answer of a gateway for one transaction.
type SettlementOutcome struct {
	TransactionID     string                   `json:"transactionId" validate:"required"`
	Method            entity.PaymentMethodType `json:"method"`
	Success           bool                     `json:"success"`
	Reference         string                   `json:"reference,omitempty"`
	AuthorizationCode string                   `json:"authorizationCode,omitempty"`
	Error             string                   `json:"error,omitempty"`
}

type AddPaymentMethodRequest struct {
	Type        string `json:"type" validate:"required,oneof=mobile_money card"`
	Name        string `json:"name" validate:"required,max=100"`
	Provider    string `json:"provider,omitempty" validate:"omitempty,max=50"`
	PhoneNumber string `json:"phoneNumber,omitempty" validate:"omitempty,e164"`
	CardNumber  string `json:"cardNumber,omitempty" validate:"omitempty,credit_card"`
	IsDefault   bool   `json:"isDefault"`
}

type UpdatePaymentMethodRequest struct {
	Enabled  *bool `json:"enabled,omitempty"`
	Verified bool  `json:"verified,omitempty"`
}
