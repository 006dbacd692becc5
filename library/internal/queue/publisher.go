package queue

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/librarydesk/library-service/library/internal/model"
	cb "github.com/librarydesk/library-service/pkg/circuit_breaker"
)

const (
	breakerWindow   = 20
	breakerTimeout  = 30 * time.Second
	breakerFailures = 0.5
	breakerRecovery = 3
)

// HistoryPublisher sends committed history records to Kafka keyed by event
// uid. Calls go through a circuit breaker so a dead broker does not slow the
// loan desk down.
type HistoryPublisher struct {
	producer sarama.SyncProducer
	topic    string
	cb       cb.CircuitBreaker
	log      *zap.Logger
}

func NewHistoryPublisher(producer sarama.SyncProducer, topic string, log *zap.Logger) *HistoryPublisher {
	return &HistoryPublisher{
		producer: producer,
		topic:    topic,
		cb:       cb.New(breakerWindow, breakerTimeout, breakerFailures, breakerRecovery),
		log:      log.Named("publisher"),
	}
}

func (p *HistoryPublisher) Publish(ctx context.Context, rec model.HistoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := jsoniter.ConfigFastest.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal history record")
	}
	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(rec.EventUid),
		Value:     sarama.ByteEncoder(data),
		Timestamp: rec.OccurredAt,
		Headers: []sarama.RecordHeader{
			{Key: []byte("action"), Value: []byte(rec.Action)},
		},
	}
	return p.cb.Call(func() error {
		partition, offset, err := p.producer.SendMessage(msg)
		if err != nil {
			return errors.Wrapf(err, "send %s", rec.EventUid)
		}
		p.log.Debug("history published",
			zap.String("eventUid", rec.EventUid),
			zap.Int32("partition", partition),
			zap.Int64("offset", offset))
		return nil
	})
}

func (p *HistoryPublisher) State() cb.Status {
	return p.cb.State()
}

func (p *HistoryPublisher) Close() error {
	return p.producer.Close()
}
