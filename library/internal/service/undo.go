package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/librarydesk/library-service/library/internal/errs"
	"github.com/librarydesk/library-service/library/internal/model"
	"github.com/librarydesk/library-service/library/internal/repository"
)

var errUndoTopChanged = errors.New("undo log top changed")

// UndoLog is an in-memory LIFO of reversible loan operations. Every entry gets
// a ticket so a caller can peek, take the copy lock and then pop only if the
// top is still the entry it looked at.
type UndoLog struct {
	mu      sync.Mutex
	entries []undoItem
	next    uint64
}

type undoItem struct {
	ticket uint64
	entry  model.UndoEntry
}

func NewUndoLog() *UndoLog {
	return &UndoLog{}
}

func (u *UndoLog) Push(e model.UndoEntry) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.next++
	u.entries = append(u.entries, undoItem{ticket: u.next, entry: e})
}

func (u *UndoLog) Peek() (model.UndoEntry, uint64, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.entries) == 0 {
		return model.UndoEntry{}, 0, false
	}
	top := u.entries[len(u.entries)-1]
	return top.entry, top.ticket, true
}

// PopIf runs fn on the top entry while holding the log, provided the top still
// carries ticket. The entry is removed when fn succeeds or when it rejects the
// entry for good (see undoRejected). Any other failure keeps it on the log.
func (u *UndoLog) PopIf(ticket uint64, fn func(model.UndoEntry) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := len(u.entries)
	if n == 0 || u.entries[n-1].ticket != ticket {
		return errUndoTopChanged
	}
	err := fn(u.entries[n-1].entry)
	if err != nil && !undoRejected(err) {
		return err
	}
	u.entries[n-1] = undoItem{}
	u.entries = u.entries[:n-1]
	return err
}

// undoRejected reports whether err means the inverse can never be applied,
// so the entry must leave the log instead of blocking older ones.
func undoRejected(err error) bool {
	return errors.Is(err, errs.ErrCopyRetired) ||
		errors.Is(err, errs.ErrCopyUnavailable) ||
		errors.Is(err, errs.ErrUndoStale)
}

func (u *UndoLog) IsEmpty() bool {
	return u.Len() == 0
}

func (u *UndoLog) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.entries)
}

// Undo reverts the most recent loan operation still on the log. Storage is
// left untouched on failure. An entry whose inverse no longer applies is
// dropped with the error, so the next call reaches the older entries.
func (s *Service) Undo(ctx context.Context) (res model.UndoResult, err error) {
	defer func() { s.metrics.observe(opUndo, err) }()
	err = s.retryConflict(ctx, opUndo, func() error {
		var err error
		res, err = s.undoTop(ctx)
		return err
	})
	if err != nil {
		return model.UndoResult{}, err
	}
	return res, nil
}

func (s *Service) undoTop(ctx context.Context) (model.UndoResult, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.UndoResult{}, err
		}
		entry, ticket, ok := s.undo.Peek()
		if !ok {
			return model.UndoResult{}, errs.ErrNothingToUndo
		}

		var (
			res model.UndoResult
			rec model.HistoryRecord
		)
		unlock := s.locks.Lock(entry.Loan.CopyID)
		err := s.undo.PopIf(ticket, func(e model.UndoEntry) error {
			var err error
			res, rec, err = s.revert(ctx, e)
			return err
		})
		unlock()
		if errors.Is(err, errUndoTopChanged) {
			continue
		}
		if undoRejected(err) {
			s.metrics.undoDepth.Set(float64(s.undo.Len()))
			s.log.Warn("undo entry discarded",
				zap.Stringer("kind", entry.Kind),
				zap.Int64("loanId", entry.Loan.ID),
				zap.Error(err))
			return model.UndoResult{}, err
		}
		if err != nil {
			s.log.Warn("undo failed",
				zap.Stringer("kind", entry.Kind),
				zap.Int64("loanId", entry.Loan.ID),
				zap.Error(err))
			return model.UndoResult{}, err
		}
		s.metrics.undoDepth.Set(float64(s.undo.Len()))
		s.log.Info("undo", zap.String("action", string(res.Action)), zap.Int64("loanId", res.Loan.ID))
		s.publish(ctx, rec)
		return res, nil
	}
}

// revert applies the inverse of e in one transaction.
func (s *Service) revert(ctx context.Context, e model.UndoEntry) (model.UndoResult, model.HistoryRecord, error) {
	var (
		res model.UndoResult
		rec model.HistoryRecord
	)
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		loan, err := tx.LoanForUpdate(ctx, e.Loan.ID)
		if err != nil {
			return err
		}
		cp, err := tx.CopyForUpdate(ctx, loan.CopyID)
		if err != nil {
			return err
		}
		now := s.clock()

		switch e.Kind {
		case model.UndoCreated:
			if !loan.IsActive() {
				return errors.Wrapf(errs.ErrUndoStale, "loan %d is no longer active", loan.ID)
			}
			if err := tx.VoidLoan(ctx, loan.ID, now); err != nil {
				return err
			}
			if err := tx.SetCopyAvailable(ctx, cp.ID, true); err != nil {
				return err
			}
			loan.VoidedAt = &now
			res.Action = model.ActionUndoBorrow
			rec, err = s.record(ctx, tx, res.Action, loan, now,
				fmt.Sprintf("loan of copy %s undone", cp.Code))
			if err != nil {
				return err
			}
		case model.UndoReturned:
			if loan.ReturnedAt == nil || loan.VoidedAt != nil {
				return errors.Wrapf(errs.ErrUndoStale, "loan %d is not returned", loan.ID)
			}
			if cp.Retired() {
				return errors.Wrapf(errs.ErrCopyRetired, "copy %q", cp.Code)
			}
			switch _, err := tx.ActiveLoanByCopy(ctx, cp.ID); {
			case err == nil:
				return errors.Wrapf(errs.ErrCopyUnavailable, "copy %q was lent again", cp.Code)
			case !errors.Is(err, errs.ErrNotFound):
				return err
			}
			if err := tx.SetLoanReturned(ctx, loan.ID, nil); err != nil {
				return err
			}
			if err := tx.SetCopyAvailable(ctx, cp.ID, false); err != nil {
				return err
			}
			loan.ReturnedAt = nil
			res.Action = model.ActionUndoReturn
			rec, err = s.record(ctx, tx, res.Action, loan, now,
				fmt.Sprintf("return of copy %s undone", cp.Code))
			if err != nil {
				return err
			}
		default:
			return errors.Errorf("unknown undo entry kind %d", e.Kind)
		}
		res.Loan = s.view(loan, cp.Code, now)
		return nil
	})
	return res, rec, err
}
