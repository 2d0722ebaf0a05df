package kafka

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"wallet-engine/src/pkg/log"

	"github.com/IBM/sarama"
)

type Producer interface {
	Publish(message *sarama.ProducerMessage) error
	Close() error
}

type KafkaConfig struct {
	Username      string
	Password      string
	Address       string
	SaslMechanism string
	AppName       string
	KafkaCaCert   string
}

type Cfg struct {
	KafkaUrl      string
	KafkaUsername string
	KafkaPassword string
	KafkaCaCert   string
	AppName       string
}

func InitKafkaConfig(cfg Cfg) KafkaConfig {
	return KafkaConfig{
		Address:       cfg.KafkaUrl,
		Username:      cfg.KafkaUsername,
		Password:      cfg.KafkaPassword,
		AppName:       cfg.AppName,
		KafkaCaCert:   cfg.KafkaCaCert,
		SaslMechanism: sarama.SASLTypePlaintext,
	}
}

func decodeKey(secret string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func (kc KafkaConfig) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(kc.Address, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// GetSaramaConfig returns a producer configuration where a successful send
// means every in-sync replica has the record, and retries cannot duplicate it.
func (kc KafkaConfig) GetSaramaConfig() (*sarama.Config, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = kc.AppName
	cfg.Version = sarama.V2_8_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 500 * time.Millisecond
	cfg.Net.MaxOpenRequests = 1
	cfg.Net.DialTimeout = 5 * time.Second
	cfg.Metadata.Retry.Backoff = 200 * time.Millisecond

	if kc.Username != "" {
		cfg.Net.SASL.Enable = true
		cfg.Net.SASL.Mechanism = sarama.SASLMechanism(kc.SaslMechanism)
		cfg.Net.SASL.User = kc.Username
		cfg.Net.SASL.Password = kc.Password
		cfg.Net.TLS.Enable = true
		if kc.KafkaCaCert != "" {
			ca, err := decodeKey(kc.KafkaCaCert)
			if err != nil {
				return nil, fmt.Errorf("decode kafka ca cert: %w", err)
			}
			tlsCfg, err := tlsConfigFromPEM(ca)
			if err != nil {
				return nil, err
			}
			cfg.Net.TLS.Config = tlsCfg
		}
	}
	return cfg, nil
}

type syncProducer struct {
	producer sarama.SyncProducer
	log      log.Log
}

func NewProducer(kc KafkaConfig, logger log.Log) (Producer, error) {
	cfg, err := kc.GetSaramaConfig()
	if err != nil {
		return nil, err
	}
	p, err := sarama.NewSyncProducer(kc.Brokers(), cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewProducerFromSync(p, logger), nil
}

// NewProducerFromSync wraps an existing sarama producer.
func NewProducerFromSync(p sarama.SyncProducer, logger log.Log) Producer {
	return &syncProducer{producer: p, log: logger}
}

func (p *syncProducer) Publish(message *sarama.ProducerMessage) error {
	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		p.log.Error("kafka-producer", fmt.Sprintf("failed to deliver message: %v", err), message.Topic, "")
		return err
	}
	p.log.Info("kafka-producer", "message delivered", message.Topic, fmt.Sprintf("partition=%d offset=%d", partition, offset))
	return nil
}

func (p *syncProducer) Close() error {
	return p.producer.Close()
}
