package config

import (
	"context"
	"fmt"

	"wallet-engine/src/internal/delivery/http"
	"wallet-engine/src/internal/delivery/http/middleware"
	"wallet-engine/src/internal/delivery/http/route"
	"wallet-engine/src/internal/delivery/worker"
	"wallet-engine/src/internal/gateway/realtime"
	"wallet-engine/src/internal/gateway/scheduler"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/usecase"
	"wallet-engine/src/pkg/kvstore"
	"wallet-engine/src/pkg/log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/spf13/viper"
)

const inboundBuffer = 64

type BootstrapConfig struct {
	App       *fiber.App
	Log       log.Log
	Validate  *validator.Validate
	Config    *viper.Viper
	Store     kvstore.Store
	Channel   *realtime.Channel
	Remote    usecase.RemoteLedger
	Gateway   usecase.SettlementGateway
	Scheduler usecase.PayoutScheduler
	Async     *asynq.ServeMux
}

func Bootstrap(config *BootstrapConfig) *usecase.WalletEngine {
	engine := NewWalletEngine(&EngineConfig{
		Log:       config.Log,
		Validate:  config.Validate,
		Config:    config.Config,
		Store:     config.Store,
		Channel:   config.Channel,
		Remote:    config.Remote,
		Gateway:   config.Gateway,
		Scheduler: config.Scheduler,
	})

	// payout completion
	if timer, ok := config.Scheduler.(*scheduler.TimerScheduler); ok {
		timer.SetHandler(func(ctx context.Context, userID, payoutID string) error {
			if owner := engine.UserID(); owner != userID {
				return model.NewError(model.KindInvalidState, "payout %s belongs to %s, wallet is %s", payoutID, userID, owner)
			}
			_, err := engine.CompletePayout(ctx, payoutID)
			return err
		})
	}
	if config.Async != nil {
		payoutWorker := worker.NewPayoutWorker(engine, config.Log)
		config.Async.HandleFunc(scheduler.TypePayoutComplete, payoutWorker.HandleCompletePayout)
	}

	// real-time channel; handlers run in order off the reader goroutine so
	// a sync started here can still receive its acknowledgments
	inbound := make(chan func(), inboundBuffer)
	go func() {
		for handle := range inbound {
			handle()
		}
	}()
	config.Channel.OnMessage(func(msg model.InboundMessage) {
		inbound <- func() {
			if err := engine.HandleInbound(context.Background(), msg); err != nil {
				config.Log.Error("bootstrap", fmt.Sprintf("failed to handle %s: %v", msg.Event, err), "OnMessage", string(msg.Data))
			}
		}
	})
	config.Channel.OnConnectionChange(func(connected bool) {
		inbound <- func() {
			engine.HandleConnectionChange(context.Background(), connected)
		}
	})

	// setup controller
	walletController := http.NewWalletController(engine, config.Log)
	paymentController := http.NewPaymentController(engine, config.Log)
	payoutController := http.NewPayoutController(engine, config.Log)
	syncController := http.NewSyncController(engine, config.Log)
	// setup middleware
	authMiddleware := middleware.VerifyBearer(config.Config, engine.UserID)
	webhookMiddleware := middleware.VerifyWebhookSignature(config.Config)
	routeConfig := route.RouteConfig{
		App:               config.App,
		WalletController:  walletController,
		PaymentController: paymentController,
		PayoutController:  payoutController,
		SyncController:    syncController,
		AuthMiddleware:    authMiddleware,
		WebhookMiddleware: webhookMiddleware,
	}
	routeConfig.Setup()
	return engine
}
