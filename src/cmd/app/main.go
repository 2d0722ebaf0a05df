package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-engine/src/internal/config"
	"wallet-engine/src/pkg/log"

	"github.com/hibiken/asynq"
)

func main() {
	viperConfig := config.NewViper()
	log.InitLogger(viperConfig)
	logger := log.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := config.NewStore(ctx, viperConfig, logger)
	if err != nil {
		logger.Error("main", fmt.Sprintf("Failed to open store: %v", err), "main", "")
		os.Exit(1)
	}
	channel := config.NewRealtimeChannel(viperConfig, logger)
	remote, closeRemote, err := config.NewRemoteLedger(ctx, viperConfig, logger, channel)
	if err != nil {
		logger.Error("main", fmt.Sprintf("Failed to set up remote ledger: %v", err), "main", "")
		os.Exit(1)
	}
	gateway := config.NewSettlementGateway(viperConfig, logger)
	payoutScheduler, stopScheduler := config.NewPayoutScheduler(viperConfig, logger)

	var asynqServer *asynq.Server
	var mux *asynq.ServeMux
	if viperConfig.GetString("scheduler.driver") == "asynq" {
		asynqServer = config.NewAsynqServer(viperConfig, logger)
		mux = asynq.NewServeMux()
	}

	validate := config.NewValidator(viperConfig)
	app := config.NewFiber(viperConfig)
	engine := config.Bootstrap(&config.BootstrapConfig{
		App:       app,
		Log:       logger,
		Validate:  validate,
		Config:    viperConfig,
		Store:     store,
		Channel:   channel,
		Remote:    remote,
		Gateway:   gateway,
		Scheduler: payoutScheduler,
		Async:     mux,
	})

	if err := engine.Initialize(ctx, viperConfig.GetString("wallet.user_id")); err != nil {
		logger.Error("main", fmt.Sprintf("Failed to initialize wallet: %v", err), "main", "")
		os.Exit(1)
	}
	// the channel outlives the signal context so Cleanup can run a final sync
	channel.Start(context.Background())
	if asynqServer != nil {
		if err := asynqServer.Start(mux); err != nil {
			logger.Error("main", fmt.Sprintf("Failed to start asynq server: %v", err), "main", "")
			os.Exit(1)
		}
	}

	go func() {
		webPort := viperConfig.GetInt("web.port")
		if err := app.Listen(fmt.Sprintf(":%d", webPort)); err != nil {
			logger.Error("main", fmt.Sprintf("Failed to start server: %v", err), "main", "")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("main", "Server wallet-engine is shutting down...", "graceful", "")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("main", fmt.Sprintf("Error during shutdown: %v", err), "graceful", "")
	}
	if asynqServer != nil {
		asynqServer.Shutdown()
	}
	if err := engine.Cleanup(shutdownCtx); err != nil {
		logger.Error("main", fmt.Sprintf("Error during wallet cleanup: %v", err), "graceful", "")
	}
	stopScheduler()
	gateway.Close()
	_ = channel.Close()
	if err := closeRemote(); err != nil {
		logger.Error("main", fmt.Sprintf("Error closing remote ledger: %v", err), "graceful", "")
	}
	if err := store.Close(); err != nil {
		logger.Error("main", fmt.Sprintf("Error closing store: %v", err), "graceful", "")
	}

	logger.Info("main", fmt.Sprintf("Server %s stopped", viperConfig.GetString("app.name")), "graceful", "")
}
