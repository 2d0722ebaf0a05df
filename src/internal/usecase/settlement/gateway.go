package settlement

import (
	"context"
	"fmt"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/model/converter"
	"wallet-engine/src/pkg/log"
)

// GatewayStrategy settles through an external provider (mobile money or
// card). The transaction stays processing until the gateway reports back.
type GatewayStrategy struct {
	method  entity.PaymentMethodType
	Ledger  Recorder
	Gateway Gateway
	Log     log.Log
}

func NewMobileMoneyStrategy(ledger Recorder, gateway Gateway, logger log.Log) *GatewayStrategy {
	return &GatewayStrategy{method: entity.MethodMobileMoney, Ledger: ledger, Gateway: gateway, Log: logger}
}

func NewCardStrategy(ledger Recorder, gateway Gateway, logger log.Log) *GatewayStrategy {
	return &GatewayStrategy{method: entity.MethodCard, Ledger: ledger, Gateway: gateway, Log: logger}
}

func (s *GatewayStrategy) Type() entity.PaymentMethodType {
	return s.method
}

func (s *GatewayStrategy) Settle(ctx context.Context, req Request) (model.SettlementResult, error) {
	provider := req.Method.Provider
	if req.Ride.Provider != "" {
		provider = req.Ride.Provider
	}
	phone := req.Method.PhoneNumber
	if req.Ride.PhoneNumber != "" {
		phone = req.Ride.PhoneNumber
	}

	tx, err := s.Ledger.Record(ctx, entity.Transaction{
		TransactionID: req.TransactionID,
		Amount:        req.Ride.Fare.Neg(),
		Reason:        rideReason(req.Ride.RideID),
		Status:        entity.StatusProcessing,
		PaymentMethod: s.method,
		Provider:      provider,
		RideID:        req.Ride.RideID,
	})
	if err != nil {
		return model.SettlementResult{}, err
	}

	_, err = s.Gateway.Submit(ctx, model.SettlementRequest{
		TransactionID: tx.TransactionID,
		RideID:        tx.RideID,
		Method:        s.method,
		Amount:        req.Ride.Fare,
		Provider:      provider,
		PhoneNumber:   phone,
		MethodID:      req.Method.ID,
	})
	if err != nil {
		s.Log.Error("settlement", fmt.Sprintf("gateway rejected submission: %v", err), string(s.method), tx.TransactionID)
		if _, _, terr := s.Ledger.Transition(ctx, tx.TransactionID, entity.StatusFailed, "", err.Error()); terr != nil {
			s.Log.Error("settlement", fmt.Sprintf("failed to mark transaction failed: %v", terr), string(s.method), tx.TransactionID)
		}
		return model.SettlementResult{}, model.WrapError(model.KindSettlementRejected, err, "%s settlement rejected", s.method)
	}

	result := converter.TransactionToResult(&tx)
	result.Message = "Payment is being processed"
	return result, nil
}
