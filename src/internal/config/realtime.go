package config

import (
	"net/http"

	"wallet-engine/src/internal/gateway/realtime"
	"wallet-engine/src/pkg/log"

	"github.com/spf13/viper"
)

func NewRealtimeChannel(viper *viper.Viper, log log.Log) *realtime.Channel {
	header := http.Header{}
	if token := viper.GetString("realtime.token"); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return realtime.NewChannel(realtime.Config{
		URL:          viper.GetString("realtime.url"),
		Header:       header,
		ReconnectMin: viper.GetDuration("realtime.reconnect.min"),
		ReconnectMax: viper.GetDuration("realtime.reconnect.max"),
	}, log)
}
