package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientSingleNode(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), CfgRedis{
		RedisHost: mr.Host(),
		RedisPort: mr.Port(),
	})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addrHost, addrPort := mr.Host(), mr.Port()
	mr.Close()

	_, err := NewClient(context.Background(), CfgRedis{RedisHost: addrHost, RedisPort: addrPort})
	assert.Error(t, err)
}

func TestClusterHostsSkipBlanks(t *testing.T) {
	cfg := CfgRedis{RedisClusterNode: "10.0.0.1:6379; ;10.0.0.2:6379;"}
	assert.Equal(t, []string{"10.0.0.1:6379", "10.0.0.2:6379"}, cfg.cluster().Hosts)
}
