package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/librarydesk/library-service/library/internal/errs"
	"github.com/librarydesk/library-service/library/internal/model"
	"github.com/librarydesk/library-service/library/internal/repository"
)

// CreateLoan lends a copy to a member for req.LoanDays days. The copy is
// marked unavailable, the loan is pushed on the undo log and a BORROW record
// is written, all or nothing.
func (s *Service) CreateLoan(ctx context.Context, req model.CreateLoanRequest) (view model.LoanView, err error) {
	defer func() { s.metrics.observe(opCreateLoan, err) }()

	copyCode := strings.TrimSpace(req.CopyCode)
	membershipID := strings.TrimSpace(req.MembershipID)
	if copyCode == "" || membershipID == "" {
		return model.LoanView{}, errors.Wrap(errs.ErrInvalidParameter, "copy code and membership id are required")
	}
	if !model.ValidLoanDays(req.LoanDays) {
		return model.LoanView{}, errors.Wrapf(errs.ErrInvalidParameter,
			"loan days must be between %d and %d, got %d", model.MinLoanDays, model.MaxLoanDays, req.LoanDays)
	}

	cp, err := s.repo.GetCopyByCode(ctx, copyCode)
	if err != nil {
		return model.LoanView{}, err
	}
	unlock := s.locks.Lock(cp.ID)
	defer unlock()

	var (
		loan model.Loan
		rec  model.HistoryRecord
	)
	err = s.retryConflict(ctx, opCreateLoan, func() error {
		return s.repo.WithTx(ctx, func(tx repository.Tx) error {
			cur, err := tx.CopyForUpdate(ctx, cp.ID)
			if err != nil {
				return err
			}
			if cur.Retired() {
				return errors.Wrapf(errs.ErrCopyRetired, "copy %q", cur.Code)
			}
			if !cur.Available {
				return errors.Wrapf(errs.ErrCopyUnavailable, "copy %q is on loan", cur.Code)
			}
			member, err := tx.MemberByMembershipID(ctx, membershipID)
			if err != nil {
				return err
			}

			now := s.clock()
			loan, err = tx.InsertLoan(ctx, model.Loan{
				CopyID:   cur.ID,
				MemberID: member.ID,
				AdminID:  strings.TrimSpace(req.AdminID),
				IssuedAt: now,
				DueAt:    model.DueDate(now, req.LoanDays),
			})
			if err != nil {
				return err
			}
			if err := tx.SetCopyAvailable(ctx, cur.ID, false); err != nil {
				return err
			}
			rec, err = s.record(ctx, tx, model.ActionBorrow, loan, now,
				fmt.Sprintf("copy %s lent to member %s for %d days", cur.Code, member.MembershipID, req.LoanDays))
			return err
		})
	})
	if err != nil {
		return model.LoanView{}, err
	}
	s.undo.Push(model.Created(loan))
	s.metrics.undoDepth.Set(float64(s.undo.Len()))
	unlock()

	s.log.Info("loan created",
		zap.Int64("loanId", loan.ID),
		zap.String("copy", cp.Code),
		zap.String("member", membershipID),
		zap.Time("dueAt", loan.DueAt))
	s.publish(ctx, rec)
	return s.view(loan, cp.Code, loan.IssuedAt), nil
}

// ReturnLoan closes an active loan and makes its copy available again.
func (s *Service) ReturnLoan(ctx context.Context, loanID int64) (view model.LoanView, err error) {
	defer func() { s.metrics.observe(opReturnLoan, err) }()

	l, err := s.repo.GetLoan(ctx, loanID)
	if err != nil {
		return model.LoanView{}, err
	}
	unlock := s.locks.Lock(l.CopyID)
	defer unlock()

	var (
		loan     model.Loan
		copyCode string
		rec      model.HistoryRecord
	)
	err = s.retryConflict(ctx, opReturnLoan, func() error {
		return s.repo.WithTx(ctx, func(tx repository.Tx) error {
			cur, err := tx.LoanForUpdate(ctx, loanID)
			if err != nil {
				return err
			}
			if cur.VoidedAt != nil {
				return errors.Wrapf(errs.ErrNotFound, "loan %d was undone", loanID)
			}
			if cur.IsReturned() {
				return errors.Wrapf(errs.ErrAlreadyReturned, "loan %d", loanID)
			}
			cp, err := tx.CopyForUpdate(ctx, cur.CopyID)
			if err != nil {
				return err
			}

			now := s.clock()
			if err := tx.SetLoanReturned(ctx, cur.ID, &now); err != nil {
				return err
			}
			if err := tx.SetCopyAvailable(ctx, cp.ID, true); err != nil {
				return err
			}
			cur.ReturnedAt = &now
			loan, copyCode = cur, cp.Code
			rec, err = s.record(ctx, tx, model.ActionReturn, loan, now, fmt.Sprintf("copy %s returned", cp.Code))
			return err
		})
	})
	if err != nil {
		return model.LoanView{}, err
	}
	s.undo.Push(model.Returned(loan))
	s.metrics.undoDepth.Set(float64(s.undo.Len()))
	unlock()

	s.log.Info("loan returned", zap.Int64("loanId", loan.ID), zap.String("copy", copyCode))
	s.publish(ctx, rec)
	return s.view(loan, copyCode, *loan.ReturnedAt), nil
}

func (s *Service) GetLoan(ctx context.Context, loanID int64) (model.LoanView, error) {
	l, err := s.repo.GetLoan(ctx, loanID)
	if err != nil {
		return model.LoanView{}, err
	}
	cp, err := s.repo.GetCopy(ctx, l.CopyID)
	if err != nil {
		return model.LoanView{}, err
	}
	return s.view(l, cp.Code, s.clock()), nil
}

// ListLoans lists loans matching filter. Overdue listings are evaluated at the
// current instant.
func (s *Service) ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.LoanView, error) {
	now := s.clock()
	filter.Now = now
	loans, err := s.repo.ListLoans(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, loans, now)
}

// LoanHistory returns the audit records of a loan, oldest first.
func (s *Service) LoanHistory(ctx context.Context, loanID int64) ([]model.HistoryRecord, error) {
	if _, err := s.repo.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, loanID)
}
