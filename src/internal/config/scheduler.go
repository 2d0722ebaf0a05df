package config

import (
	"wallet-engine/src/internal/gateway/scheduler"
	"wallet-engine/src/internal/usecase"
	"wallet-engine/src/pkg/log"

	"github.com/spf13/viper"
)

// NewPayoutScheduler builds the scheduler selected by scheduler.driver. The
// returned function stops it.
func NewPayoutScheduler(viper *viper.Viper, log log.Log) (usecase.PayoutScheduler, func()) {
	if viper.GetString("scheduler.driver") == "asynq" {
		client := NewAsynqClient(viper)
		return scheduler.NewAsynqScheduler(client, viper.GetString("scheduler.asynq.queue"), log), func() {
			_ = client.Close()
		}
	}
	timer := scheduler.NewTimerScheduler(log)
	return timer, timer.Stop
}
