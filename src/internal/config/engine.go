package config

import (
	"wallet-engine/src/internal/repository"
	"wallet-engine/src/internal/usecase"
	"wallet-engine/src/internal/usecase/settlement"
	"wallet-engine/src/pkg/eventbus"
	"wallet-engine/src/pkg/kvstore"
	"wallet-engine/src/pkg/log"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type EngineConfig struct {
	Log       log.Log
	Validate  *validator.Validate
	Config    *viper.Viper
	Store     kvstore.Store
	Channel   usecase.RealtimeChannel
	Remote    usecase.RemoteLedger
	Gateway   usecase.SettlementGateway
	Scheduler usecase.PayoutScheduler
}

func NewWalletEngine(config *EngineConfig) *usecase.WalletEngine {
	bus := eventbus.New(config.Log)

	// setup repositories
	ledger := repository.NewLedgerRepository(config.Store, config.Log, config.Config.GetString("wallet.currency"))
	queue := repository.NewOfflineQueueRepository(config.Store, config.Log)
	methods := repository.NewPaymentMethodRepository(config.Store)
	payouts := repository.NewPayoutRepository(config.Store)
	syncState := repository.NewSyncStateRepository(config.Store)

	// setup use cases
	wallet := usecase.NewWalletUseCase(config.Log, config.Validate, ledger, queue, bus, config.Channel, config.Remote)
	paymentMethods := usecase.NewPaymentMethodUseCase(config.Log, config.Validate, config.Config, methods, ledger, bus)
	payments := usecase.NewPaymentUseCase(config.Log, config.Validate, ledger, paymentMethods, bus, config.Channel,
		settlement.NewWalletStrategy(wallet),
		settlement.NewCashStrategy(ledger, bus),
		settlement.NewMobileMoneyStrategy(ledger, config.Gateway, config.Log),
		settlement.NewCardStrategy(ledger, config.Gateway, config.Log),
	)
	payoutUseCase := usecase.NewPayoutUseCase(config.Log, config.Validate, config.Config, wallet, ledger, payouts, config.Scheduler, bus)
	syncUseCase := usecase.NewSyncUseCase(config.Log, config.Config, ledger, queue, syncState, wallet, config.Remote, config.Channel, bus)

	return usecase.NewWalletEngine(usecase.EngineDeps{
		Log:            config.Log,
		Bus:            bus,
		Ledger:         ledger,
		Queue:          queue,
		Methods:        methods,
		PayoutStore:    payouts,
		Wallet:         wallet,
		PaymentMethods: paymentMethods,
		Payments:       payments,
		Payouts:        payoutUseCase,
		Sync:           syncUseCase,
		Channel:        config.Channel,
		Gateway:        config.Gateway,
	})
}
