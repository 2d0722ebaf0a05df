package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient connects to a single node or a cluster depending on cfg and
// verifies the connection with a PING.
func NewClient(ctx context.Context, cfg CfgRedis) (redis.UniversalClient, error) {
	var client redis.UniversalClient
	if !cfg.UseCluster {
		single := cfg.single()
		client = redis.NewClient(&redis.Options{
			Addr:         cfg.Addr(),
			Password:     single.Password,
			DB:           single.DB,
			TLSConfig:    tlsConfig(single.EnableTLS),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			MaxRetries:   2,
		})
	} else {
		cluster := cfg.cluster()
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cluster.Hosts,
			Username:     cluster.Username,
			Password:     cluster.Password,
			TLSConfig:    tlsConfig(cluster.EnableTLS),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
	}

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cannot connect to redis: %w", err)
	}
	return client, nil
}

func tlsConfig(enabled bool) *tls.Config {
	if !enabled {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}
