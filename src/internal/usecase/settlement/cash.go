package settlement

import (
	"context"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/model/converter"
	"wallet-engine/src/pkg/eventbus"
)

// CashStrategy records the fare as awaiting collection by the driver. It
// never completes on its own.
type CashStrategy struct {
	Ledger Recorder
	Bus    *eventbus.Bus
}

func NewCashStrategy(ledger Recorder, bus *eventbus.Bus) *CashStrategy {
	return &CashStrategy{Ledger: ledger, Bus: bus}
}

func (s *CashStrategy) Type() entity.PaymentMethodType {
	return entity.MethodCash
}

func (s *CashStrategy) Settle(ctx context.Context, req Request) (model.SettlementResult, error) {
	tx, err := s.Ledger.Record(ctx, entity.Transaction{
		TransactionID: req.TransactionID,
		Amount:        req.Ride.Fare.Neg(),
		Reason:        rideReason(req.Ride.RideID) + " (cash)",
		Status:        entity.StatusPendingCollection,
		PaymentMethod: entity.MethodCash,
		RideID:        req.Ride.RideID,
	})
	if err != nil {
		return model.SettlementResult{}, err
	}

	s.Bus.Emit(model.CashPaymentPending{
		TransactionID: tx.TransactionID,
		RideID:        tx.RideID,
		DriverID:      req.Ride.DriverID,
		Amount:        req.Ride.Fare,
	})

	result := converter.TransactionToResult(&tx)
	result.Message = "Please pay the driver in cash"
	return result, nil
}
