package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// NewViper reads an optional config.yaml and .env, then lets environment
// variables override every key (WALLET_USER_ID for wallet.user_id).
func NewViper() *viper.Viper {
	_ = godotenv.Load()

	config := viper.New()
	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")
	config.AddConfigPath("./config")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()
	SetDefaults(config)

	if err := config.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(err)
		}
	}
	return config
}

func SetDefaults(config *viper.Viper) {
	config.SetDefault("app.name", "WALLET_ENGINE")
	config.SetDefault("log.level", "INFO")
	config.SetDefault("web.port", 8080)

	config.SetDefault("wallet.user_id", "")
	config.SetDefault("wallet.currency", "KES")
	config.SetDefault("payout.minimum", "1000")
	config.SetDefault("payout.completion_delay", "24h")

	config.SetDefault("sync.interval", "30s")
	config.SetDefault("sync.max_attempts", 10)
	config.SetDefault("sync.backoff.initial", "1s")
	config.SetDefault("sync.backoff.max", "5m")

	config.SetDefault("store.driver", "memory")
	config.SetDefault("store.sqlite.path", "wallet.db")

	config.SetDefault("redis.host", "127.0.0.1")
	config.SetDefault("redis.port", "6379")
	config.SetDefault("redis.password", "")
	config.SetDefault("redis.db", 0)
	config.SetDefault("redis.tls", false)
	config.SetDefault("redis.use_cluster", false)
	config.SetDefault("redis.cluster.node", "")
	config.SetDefault("redis.cluster.password", "")

	config.SetDefault("realtime.url", "ws://127.0.0.1:3000/ws")
	config.SetDefault("realtime.token", "")
	config.SetDefault("realtime.reconnect.min", "1s")
	config.SetDefault("realtime.reconnect.max", "30s")

	config.SetDefault("settlement.mobile_money.delay", "3s")
	config.SetDefault("settlement.card.delay", "2s")
	config.SetDefault("settlement.mobile_money.providers", []string{"mpesa", "airtel"})
	config.SetDefault("settlement.webhook_secret", "")

	config.SetDefault("remote_ledger.driver", "channel")
	config.SetDefault("remote_ledger.dsn", "")
	config.SetDefault("remote_ledger.topic", "wallet-transactions")
	config.SetDefault("remote_ledger.ack_timeout", "5s")

	config.SetDefault("kafka.bootstrap.servers", "127.0.0.1:9092")
	config.SetDefault("kafka.username", "")
	config.SetDefault("kafka.password", "")
	config.SetDefault("kafka.cacert", "")
	config.SetDefault("kafka.app.name", "wallet-engine")
	config.SetDefault("kafka.producer.enabled", false)

	config.SetDefault("scheduler.driver", "timer")
	config.SetDefault("scheduler.asynq.queue", "payouts")
	config.SetDefault("scheduler.asynq.concurrency", 2)

	config.SetDefault("card.fingerprint_key", "wallet-engine")
	config.SetDefault("auth.jwt_secret", "")
}
