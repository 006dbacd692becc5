package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/librarydesk/library-service/library/internal/model"
	"github.com/librarydesk/library-service/library/internal/queue"
	cb "github.com/librarydesk/library-service/pkg/circuit_breaker"
	"github.com/librarydesk/library-service/pkg/kafka"
)

func record() model.HistoryRecord {
	return model.HistoryRecord{
		EventUid:   "5f0c6c7e-6d2b-4d0a-9f43-2f3b7c1e8a11",
		Action:     model.ActionBorrow,
		LoanID:     1,
		CopyID:     2,
		MemberID:   3,
		AdminID:    "admin",
		Detail:     "copy LIB-1 lent to member 87654321 for 7 days",
		OccurredAt: time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
	}
}

func TestHistoryPublisher_Publish(t *testing.T) {
	t.Parallel()
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer func() { require.NoError(t, producer.Close()) }()

	rec := record()
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got model.HistoryRecord
		if err := jsoniter.ConfigFastest.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.EventUid != rec.EventUid || got.Action != rec.Action || got.LoanID != rec.LoanID {
			return errors.Errorf("unexpected payload %s", val)
		}
		return nil
	})

	p := queue.NewHistoryPublisher(producer, kafka.HistoryTopic, zap.NewNop())
	require.NoError(t, p.Publish(context.Background(), rec))
	require.Equal(t, cb.Closed, p.State())
}

func TestHistoryPublisher_BreakerOpensOnBrokerFailure(t *testing.T) {
	t.Parallel()
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	for i := 0; i < 10; i++ {
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	}

	p := queue.NewHistoryPublisher(producer, kafka.HistoryTopic, zap.NewNop())
	for i := 0; i < 10; i++ {
		err := p.Publish(context.Background(), record())
		require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	}
	require.Equal(t, cb.Open, p.State())

	// the open breaker short-circuits without touching the producer
	err := p.Publish(context.Background(), record())
	require.ErrorIs(t, err, cb.ErrOpenCB)
}
