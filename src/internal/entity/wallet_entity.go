package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type WalletState struct {
	UserID      string          `json:"userId"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	LastUpdated time.Time       `json:"lastUpdated"`
}
