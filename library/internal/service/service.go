package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/librarydesk/library-service/library/internal/errs"
	"github.com/librarydesk/library-service/library/internal/model"
	libraryRepo "github.com/librarydesk/library-service/library/internal/repository"
)

type Service struct {
	log       *zap.Logger
	repo      libraryRepo.Repository
	locks     *copyLocks
	undo      *UndoLog
	publisher Publisher
	metrics   *metrics

	now func() time.Time
	loc *time.Location
	reg prometheus.Registerer
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the zone whose calendar days loan periods are counted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Service) {
		s.reg = reg
	}
}

func NewService(repo libraryRepo.Repository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:       log.Named("service"),
		repo:      repo,
		locks:     newCopyLocks(),
		undo:      NewUndoLog(),
		publisher: noopPublisher{},
		now:       time.Now,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(s.reg)
	return s
}

// clock is the current instant in the service location, truncated to what
// postgres keeps so stored and returned values compare equal.
func (s *Service) clock() time.Time {
	return s.now().In(s.loc).Truncate(time.Microsecond)
}

// UndoDepth reports how many operations can still be undone.
func (s *Service) UndoDepth() int {
	return s.undo.Len()
}

// retryConflict runs fn again once when it failed on a storage-level
// serialization or lock conflict.
func (s *Service) retryConflict(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if !errors.Is(err, errs.ErrConcurrencyConflict) || ctx.Err() != nil {
		return err
	}
	s.log.Debug("retry after conflict", zap.String("op", op), zap.Error(err))
	return fn()
}

// views derives loan state at now and fills copy codes, reading each copy once.
func (s *Service) views(ctx context.Context, loans []model.Loan, now time.Time) ([]model.LoanView, error) {
	codes := make(map[int64]string)
	out := make([]model.LoanView, 0, len(loans))
	for _, l := range loans {
		code, ok := codes[l.CopyID]
		if !ok {
			cp, err := s.repo.GetCopy(ctx, l.CopyID)
			if err != nil {
				return nil, err
			}
			code = cp.Code
			codes[l.CopyID] = code
		}
		out = append(out, s.view(l, code, now))
	}
	return out, nil
}

func (s *Service) view(l model.Loan, copyCode string, now time.Time) model.LoanView {
	v := model.NewLoanView(l, now)
	v.CopyCode = copyCode
	return v
}
