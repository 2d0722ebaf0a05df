package config

import (
	"context"
	"errors"
	"fmt"

	"wallet-engine/src/internal/gateway/messaging"
	"wallet-engine/src/internal/gateway/realtime"
	"wallet-engine/src/internal/repository"
	"wallet-engine/src/internal/usecase"
	"wallet-engine/src/pkg/log"

	"github.com/spf13/viper"
)

var _ usecase.DeltaSource = (*repository.RemoteLedgerRepository)(nil)

// NewRemoteLedger builds the remote ledger selected by remote_ledger.driver
// and returns the function that releases its resources.
func NewRemoteLedger(ctx context.Context, viper *viper.Viper, log log.Log, channel *realtime.Channel) (usecase.RemoteLedger, func() error, error) {
	noop := func() error { return nil }

	driver := viper.GetString("remote_ledger.driver")
	switch driver {
	case "kafka":
		producer, err := NewKafkaProducer(viper, log)
		if err != nil {
			return nil, noop, err
		}
		if producer == nil {
			return nil, noop, errors.New("remote_ledger.driver is kafka but kafka.producer.enabled is false")
		}
		return messaging.NewLedgerProducer(producer, viper.GetString("remote_ledger.topic"), log), producer.Close, nil
	case "sql":
		db, err := NewDatabase(viper, log)
		if err != nil {
			return nil, noop, err
		}
		ledger := repository.NewRemoteLedgerRepository(db)
		if err := ledger.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return ledger, db.Close, nil
	case "", "channel":
		return realtime.NewLedgerPublisher(channel, viper.GetDuration("remote_ledger.ack_timeout")), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown remote_ledger.driver %q", driver)
	}
}
