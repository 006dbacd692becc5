package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/librarydesk/library-service/library/internal/errs"
	"github.com/librarydesk/library-service/library/internal/model"
	"github.com/librarydesk/library-service/library/internal/repository"
)

const maxCopiesPerRequest = 100

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	book := model.Book{
		Code:   strings.TrimSpace(req.Code),
		Title:  strings.TrimSpace(req.Title),
		Author: strings.TrimSpace(req.Author),
	}
	if book.Code == "" || book.Title == "" || book.Author == "" {
		return model.Book{}, errors.Wrap(errs.ErrInvalidParameter, "code, title and author are required")
	}
	return s.repo.CreateBook(ctx, book)
}

func (s *Service) GetBook(ctx context.Context, id int64) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *Service) ListBooks(ctx context.Context) ([]model.Book, error) {
	return s.repo.ListBooks(ctx)
}

// AddCopies registers count new copies of a book, coded after the book.
func (s *Service) AddCopies(ctx context.Context, bookID int64, count int) ([]model.Copy, error) {
	if count < 1 || count > maxCopiesPerRequest {
		return nil, errors.Wrapf(errs.ErrInvalidParameter, "count must be between 1 and %d", maxCopiesPerRequest)
	}
	copies, err := s.repo.AddCopies(ctx, bookID, count, s.clock())
	if err != nil {
		return nil, err
	}
	s.log.Info("copies added", zap.Int64("bookId", bookID), zap.Int("count", len(copies)))
	return copies, nil
}

func (s *Service) GetCopy(ctx context.Context, code string) (model.Copy, error) {
	if strings.TrimSpace(code) == "" {
		return model.Copy{}, errors.Wrap(errs.ErrInvalidParameter, "copy code is required")
	}
	return s.repo.GetCopyByCode(ctx, code)
}

// ListCopies lists a book's copies by sequence. availableOnly keeps those that
// can be lent right now.
func (s *Service) ListCopies(ctx context.Context, bookID int64, availableOnly bool) ([]model.Copy, error) {
	if _, err := s.repo.GetBook(ctx, bookID); err != nil {
		return nil, err
	}
	return s.repo.ListCopies(ctx, bookID, availableOnly)
}

// RetireCopy takes a copy out of circulation for good. A copy on loan has to
// be returned first.
func (s *Service) RetireCopy(ctx context.Context, code string) (model.Copy, error) {
	cp, err := s.GetCopy(ctx, code)
	if err != nil {
		return model.Copy{}, err
	}
	unlock := s.locks.Lock(cp.ID)
	defer unlock()

	err = s.retryConflict(ctx, "retire_copy", func() error {
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
			at := s.clock()
			if err := tx.RetireCopy(ctx, cur.ID, at); err != nil {
				return err
			}
			cur.RetiredAt = &at
			cp = cur
			return nil
		})
	})
	if err != nil {
		return model.Copy{}, err
	}
	s.log.Info("copy retired", zap.String("code", cp.Code))
	return cp, nil
}
