package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/librarydesk/library-service/library/internal/model"
	"github.com/librarydesk/library-service/library/internal/repository"
)

// Publisher forwards committed history records to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, rec model.HistoryRecord) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, model.HistoryRecord) error { return nil }

// record stores one history row inside tx. The row commits or rolls back
// together with the mutation it describes.
func (s *Service) record(ctx context.Context, tx repository.Tx, action model.Action, loan model.Loan, at time.Time, detail string) (model.HistoryRecord, error) {
	return tx.InsertHistory(ctx, model.HistoryRecord{
		EventUid:   uuid.NewString(),
		Action:     action,
		LoanID:     loan.ID,
		CopyID:     loan.CopyID,
		MemberID:   loan.MemberID,
		AdminID:    loan.AdminID,
		Detail:     detail,
		OccurredAt: at,
	})
}

// publish is best effort: the history row is already committed.
func (s *Service) publish(ctx context.Context, rec model.HistoryRecord) {
	if err := s.publisher.Publish(ctx, rec); err != nil {
		s.log.Warn("publish history",
			zap.String("eventUid", rec.EventUid),
			zap.String("action", string(rec.Action)),
			zap.Int64("loanId", rec.LoanID),
			zap.Error(err))
	}
}
