package config

import (
	kafkaPkg "wallet-engine/src/pkg/kafka"
	"wallet-engine/src/pkg/log"

	"github.com/spf13/viper"
)

func NewKafkaConfig(viper *viper.Viper) kafkaPkg.KafkaConfig {
	configKafka := kafkaPkg.Cfg{
		KafkaUrl:      viper.GetString("kafka.bootstrap.servers"),
		KafkaUsername: viper.GetString("kafka.username"),
		KafkaPassword: viper.GetString("kafka.password"),
		KafkaCaCert:   viper.GetString("kafka.cacert"),
		AppName:       viper.GetString("kafka.app.name"),
	}
	return kafkaPkg.InitKafkaConfig(configKafka)
}

// NewKafkaProducer returns nil when kafka.producer.enabled is false.
func NewKafkaProducer(config *viper.Viper, log log.Log) (kafkaPkg.Producer, error) {
	if !config.GetBool("kafka.producer.enabled") {
		log.Info("kafka-config", "Kafka producer is disabled in configuration", "kafka", "")
		return nil, nil
	}
	return kafkaPkg.NewProducer(NewKafkaConfig(config), log)
}
