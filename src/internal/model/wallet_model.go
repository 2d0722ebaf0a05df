package model

import (
	"time"

	"wallet-engine/src/internal/entity"

	"github.com/shopspring/decimal"
)

type BalanceResponse struct {
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	LastUpdated time.Time       `json:"lastUpdated"`
	IsOffline   bool            `json:"isOffline"`
}

type UpdateBalanceRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason" validate:"required,max=200"`
	TransactionID string          `json:"transactionId,omitempty" validate:"omitempty,max=100"`
}

type TransactionListRequest struct {
	Limit  int `json:"limit" query:"limit" validate:"min=0,max=500"`
	Offset int `json:"offset" query:"offset" validate:"min=0"`
}

type TransactionListResponse struct {
	Transactions []entity.Transaction `json:"transactions"`
	Total        int                  `json:"total"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}
