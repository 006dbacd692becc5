package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/librarydesk/library-service/library/internal/model"
)

// Stats gathers the dashboard counters concurrently. Voided loans are not
// counted anywhere.
func (s *Service) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	now := s.clock()

	gg, ctx := errgroup.WithContext(ctx)
	count := func(dst *int, fn func(context.Context) (int, error)) {
		gg.Go(func() error {
			n, err := fn(ctx)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	loans := func(state model.LoanState) func(context.Context) (int, error) {
		return func(ctx context.Context) (int, error) {
			return s.repo.CountLoans(ctx, model.LoanFilter{State: state, Now: now})
		}
	}

	count(&st.Books, s.repo.CountBooks)
	count(&st.Copies, s.repo.CountCopies)
	count(&st.Members, s.repo.CountMembers)
	count(&st.LoansIssued, loans(model.LoanStateAny))
	count(&st.LoansActive, loans(model.LoanStateActive))
	count(&st.LoansReturned, loans(model.LoanStateReturned))
	count(&st.LoansOverdue, loans(model.LoanStateOverdue))

	if err := gg.Wait(); err != nil {
		return model.Stats{}, err
	}
	return st, nil
}
