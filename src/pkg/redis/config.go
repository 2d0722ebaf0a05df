package redis

import (
	"fmt"
	"strings"

	"wallet-engine/src/pkg/utils"
)

type CfgRedis struct {
	UseCluster           bool
	EnableTLS            bool
	RedisHost            string
	RedisPort            string
	RedisPassword        string
	RedisDB              int
	RedisClusterNode     string
	RedisClusterPassword string
}

type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	EnableTLS bool
}

type RedisClusterConfig struct {
	Hosts     []string
	Username  string
	Password  string
	EnableTLS bool
}

func (c CfgRedis) single() RedisConfig {
	return RedisConfig{
		Host:      fmt.Sprintf("%v", c.RedisHost),
		Port:      fmt.Sprintf("%v", c.RedisPort),
		Password:  c.RedisPassword,
		DB:        utils.ConvertInt(c.RedisDB),
		EnableTLS: c.EnableTLS,
	}
}

func (c CfgRedis) cluster() RedisClusterConfig {
	var hosts []string
	for _, h := range strings.Split(c.RedisClusterNode, ";") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return RedisClusterConfig{
		Hosts:     hosts,
		Password:  c.RedisClusterPassword,
		EnableTLS: c.EnableTLS,
	}
}

// Addr is the host:port of the single-node deployment.
func (c CfgRedis) Addr() string {
	cfg := c.single()
	return fmt.Sprintf("%s:%v", cfg.Host, cfg.Port)
}
