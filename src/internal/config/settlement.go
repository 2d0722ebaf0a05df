package config

import (
	gatewaySettlement "wallet-engine/src/internal/gateway/settlement"
	"wallet-engine/src/pkg/log"

	"github.com/spf13/viper"
)

func NewSettlementGateway(viper *viper.Viper, log log.Log) *gatewaySettlement.SimulatedGateway {
	return gatewaySettlement.NewSimulatedGateway(gatewaySettlement.Config{
		MobileMoneyDelay: viper.GetDuration("settlement.mobile_money.delay"),
		CardDelay:        viper.GetDuration("settlement.card.delay"),
	}, log)
}
