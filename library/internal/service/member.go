package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/librarydesk/library-service/library/internal/errs"
	"github.com/librarydesk/library-service/library/internal/model"
)

func (s *Service) CreateMember(ctx context.Context, req model.CreateMemberRequest) (model.Member, error) {
	m := model.Member{
		MembershipID: strings.TrimSpace(req.MembershipID),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Address:      strings.TrimSpace(req.Address),
	}
	if m.MembershipID == "" || m.FirstName == "" || m.LastName == "" {
		return model.Member{}, errors.Wrap(errs.ErrInvalidParameter, "membership id, first and last name are required")
	}
	return s.repo.CreateMember(ctx, m)
}

func (s *Service) GetMember(ctx context.Context, membershipID string) (model.Member, error) {
	if strings.TrimSpace(membershipID) == "" {
		return model.Member{}, errors.Wrap(errs.ErrInvalidParameter, "membership id is required")
	}
	return s.repo.GetMember(ctx, membershipID)
}

func (s *Service) ListMembers(ctx context.Context) ([]model.Member, error) {
	return s.repo.ListMembers(ctx)
}

// ListMemberLoans lists a member's loans, newest first.
func (s *Service) ListMemberLoans(ctx context.Context, membershipID string, activeOnly bool) ([]model.LoanView, error) {
	m, err := s.GetMember(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	filter := model.LoanFilter{MemberID: m.ID}
	if activeOnly {
		filter.State = model.LoanStateActive
	}
	return s.ListLoans(ctx, filter)
}
