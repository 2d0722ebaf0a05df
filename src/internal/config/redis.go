package config

import (
	"context"

	redisModule "wallet-engine/src/pkg/redis"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

func NewRedisConfig(viper *viper.Viper) redisModule.CfgRedis {
	return redisModule.CfgRedis{
		UseCluster:           viper.GetBool("redis.use_cluster"),
		EnableTLS:            viper.GetBool("redis.tls"),
		RedisHost:            viper.GetString("redis.host"),
		RedisPort:            viper.GetString("redis.port"),
		RedisPassword:        viper.GetString("redis.password"),
		RedisDB:              viper.GetInt("redis.db"),
		RedisClusterNode:     viper.GetString("redis.cluster.node"),
		RedisClusterPassword: viper.GetString("redis.cluster.password"),
	}
}

func NewRedis(ctx context.Context, viper *viper.Viper) (redis.UniversalClient, error) {
	return redisModule.NewClient(ctx, NewRedisConfig(viper))
}
