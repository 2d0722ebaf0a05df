package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethodType string

const (
	MethodCash        PaymentMethodType = "cash"
	MethodWallet      PaymentMethodType = "wallet"
	MethodMobileMoney PaymentMethodType = "mobile_money"
	MethodCard        PaymentMethodType = "card"
)

func (t PaymentMethodType) Valid() bool {
	switch t {
	case MethodCash, MethodWallet, MethodMobileMoney, MethodCard:
		return true
	}
	return false
}

type PaymentMethod struct {
	ID          string            `json:"id"`
	Type        PaymentMethodType `json:"type"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Enabled     bool              `json:"enabled"`
	IsDefault   bool              `json:"isDefault"`
	IsVerified  bool              `json:"isVerified"`
	BuiltIn     bool              `json:"builtIn"`
	Provider    string            `json:"provider,omitempty"`
	PhoneNumber string            `json:"phoneNumber,omitempty"`
	Last4       string            `json:"last4,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Balance     *decimal.Decimal  `json:"balance,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}
