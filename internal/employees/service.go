package employees

import (
	"context"
	"fmt"

	"github.com/assetverse/assetverse/internal/shared"
)

// Service wraps team affiliation rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Roster lists the HR manager's current team.
func (s *Service) Roster(ctx context.Context, hrID int64, q shared.ListQuery) (*RosterResponse, error) {
	members, total, err := s.repo.ListMembers(ctx, hrID, q)
	if err != nil {
		return nil, err
	}
	return rosterResponse(members, total, q), nil
}

// Unaffiliated lists employees available for recruitment.
func (s *Service) Unaffiliated(ctx context.Context, q shared.ListQuery) (*RosterResponse, error) {
	members, total, err := s.repo.ListUnaffiliated(ctx, q)
	if err != nil {
		return nil, err
	}
	return rosterResponse(members, total, q), nil
}

// AddMember claims an unaffiliated employee for the team. The package member
// limit is enforced inside the claim itself, so concurrent adds cannot
// overfill the team between a count and the write.
func (s *Service) AddMember(ctx context.Context, hrID, employeeID int64) error {
	limit, err := s.repo.MemberLimit(ctx, hrID)
	if err != nil {
		return fmt.Errorf("resolve member limit: %w", err)
	}
	return s.repo.Affiliate(ctx, employeeID, hrID, limit)
}

// RemoveMember drops an employee from the team. The account survives; only
// the affiliation goes away.
func (s *Service) RemoveMember(ctx context.Context, hrID, employeeID int64) error {
	return s.repo.Unaffiliate(ctx, employeeID, hrID)
}

// MyTeam resolves the team an employee belongs to.
func (s *Service) MyTeam(ctx context.Context, employeeID int64) (*Team, []Member, error) {
	team, err := s.repo.TeamOf(ctx, employeeID)
	if err != nil {
		return nil, nil, err
	}
	members, _, err := s.repo.ListMembers(ctx, team.HRID, shared.ListQuery{PerPage: 100})
	if err != nil {
		return nil, nil, err
	}
	if members == nil {
		members = []Member{}
	}
	return team, members, nil
}

func rosterResponse(members []Member, total int, q shared.ListQuery) *RosterResponse {
	if members == nil {
		members = []Member{}
	}
	return &RosterResponse{
		Members:    members,
		Pagination: shared.NewPagination(q.Page, q.Limit(), total),
	}
}
