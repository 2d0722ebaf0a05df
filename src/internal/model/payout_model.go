package model

import "github.com/shopspring/decimal"

type PayoutRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"required,max=50"`
}

type PayoutStatusUpdate struct {
	PayoutID string `json:"payoutId" validate:"required"`
	Status   string `json:"status" validate:"required,oneof=completed failed"`
	Reason   string `json:"reason,omitempty"`
}
