package messaging

import (
	"context"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/model/converter"
	"wallet-engine/src/pkg/kafka"
	"wallet-engine/src/pkg/log"
)

const DefaultLedgerTopic = "wallet-transactions"

// LedgerProducer records transactions on the remote ledger topic. A
// returned nil means every in-sync replica acknowledged the record; the
// consumer deduplicates by message key.
type LedgerProducer struct {
	Producer[*model.TransactionEvent]
}

func NewLedgerProducer(producer kafka.Producer, topic string, log log.Log) *LedgerProducer {
	if topic == "" {
		topic = DefaultLedgerTopic
	}
	return &LedgerProducer{
		Producer: Producer[*model.TransactionEvent]{
			Producer: producer,
			Topic:    topic,
			Log:      log,
		},
	}
}

func (p *LedgerProducer) Record(ctx context.Context, userID string, tx entity.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Send(converter.TransactionToEvent(userID, &tx))
}
