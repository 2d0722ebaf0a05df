package config

import (
	"wallet-engine/src/internal/gateway/scheduler"
	"wallet-engine/src/pkg/log"

	"github.com/hibiken/asynq"
	"github.com/spf13/viper"
)

func NewAsynqRedisOpt(v *viper.Viper) asynq.RedisClientOpt {
	cfg := NewRedisConfig(v)
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

func NewAsynqClient(v *viper.Viper) *asynq.Client {
	return asynq.NewClient(NewAsynqRedisOpt(v))
}

func NewAsynqServer(v *viper.Viper, logger log.Log) *asynq.Server {
	queue := v.GetString("scheduler.asynq.queue")
	if queue == "" {
		queue = scheduler.DefaultQueue
	}
	concurrency := v.GetInt("scheduler.asynq.concurrency")
	if concurrency <= 0 {
		concurrency = 1
	}
	return asynq.NewServer(NewAsynqRedisOpt(v), asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      logger.Logger,
	})
}
