package converter

import (
	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
)

func TransactionToEvent(userID string, tx *entity.Transaction) *model.TransactionEvent {
	return &model.TransactionEvent{
		ID:            tx.TransactionID,
		UserID:        userID,
		Amount:        tx.Amount,
		Type:          string(tx.Type),
		BalanceBefore: tx.BalanceBefore,
		BalanceAfter:  tx.BalanceAfter,
		Reason:        tx.Reason,
		Status:        string(tx.Status),
		PaymentMethod: string(tx.PaymentMethod),
		RideID:        tx.RideID,
		PayoutID:      tx.PayoutID,
		AffectsWallet: tx.AffectsWallet,
		Reference:     tx.Reference,
		Timestamp:     tx.Timestamp,
	}
}

func TransactionToResult(tx *entity.Transaction) model.SettlementResult {
	result := model.SettlementResult{
		Success:       tx.Status != entity.StatusFailed,
		TransactionID: tx.TransactionID,
		RideID:        tx.RideID,
		Amount:        tx.Amount.Abs(),
		Method:        tx.PaymentMethod,
		Status:        tx.Status,
		Timestamp:     tx.Timestamp,
		Provider:      tx.Provider,
	}
	switch tx.PaymentMethod {
	case entity.MethodCard:
		result.AuthorizationCode = tx.Reference
	default:
		result.Reference = tx.Reference
	}
	if tx.AffectsWallet {
		balance := tx.BalanceAfter
		result.Balance = &balance
	}
	return result
}
