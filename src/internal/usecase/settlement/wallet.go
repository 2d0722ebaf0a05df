package settlement

import (
	"context"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/model/converter"
	"wallet-engine/src/internal/repository"
)

type WalletStrategy struct {
	Wallet WalletDebiter
}

func NewWalletStrategy(wallet WalletDebiter) *WalletStrategy {
	return &WalletStrategy{Wallet: wallet}
}

func (s *WalletStrategy) Type() entity.PaymentMethodType {
	return entity.MethodWallet
}

func (s *WalletStrategy) Settle(ctx context.Context, req Request) (model.SettlementResult, error) {
	tx, err := s.Wallet.Apply(ctx, repository.BalanceMutation{
		Amount:        req.Ride.Fare.Neg(),
		Reason:        rideReason(req.Ride.RideID),
		TransactionID: req.TransactionID,
		PaymentMethod: entity.MethodWallet,
		RideID:        req.Ride.RideID,
	})
	if err != nil {
		return model.SettlementResult{}, err
	}
	return converter.TransactionToResult(&tx), nil
}
