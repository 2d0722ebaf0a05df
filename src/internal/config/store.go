package config

import (
	"context"
	"fmt"

	"wallet-engine/src/pkg/kvstore"
	"wallet-engine/src/pkg/log"

	"github.com/spf13/viper"
)

// NewStore opens the durable store selected by store.driver
// (memory, redis or sqlite).
func NewStore(ctx context.Context, viper *viper.Viper, log log.Log) (kvstore.Store, error) {
	driver := viper.GetString("store.driver")
	switch driver {
	case "", "memory":
		log.Info("store-config", "using in-memory store, state is lost on restart", "store", "")
		return kvstore.NewMemoryStore(), nil
	case "redis":
		client, err := NewRedis(ctx, viper)
		if err != nil {
			return nil, err
		}
		return kvstore.NewRedisStore(client), nil
	case "sqlite":
		return kvstore.OpenSQLite(viper.GetString("store.sqlite.path"))
	default:
		return nil, fmt.Errorf("unknown store.driver %q", driver)
	}
}
