// Package dashboard aggregates the landing numbers for both role surfaces.
// Each summary fans its reads out concurrently; a summary is read-only and
// any failing leg fails the whole response.
package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/assetverse/assetverse/internal/assets"
	"github.com/assetverse/assetverse/internal/requests"
	"github.com/assetverse/assetverse/internal/shared"
)

// pendingPreview caps how many pending requests ride along with the counts.
const pendingPreview = 5

// AssetSource reads the asset catalog.
type AssetSource interface {
	List(ctx context.Context, hrID int64, q shared.ListQuery) ([]assets.Asset, int, error)
}

// RequestSource reads the request ledger.
type RequestSource interface {
	ListForHR(ctx context.Context, hrID int64, pendingOnly bool, q shared.ListQuery) ([]requests.Request, int, error)
	ListForEmployee(ctx context.Context, requesterID int64, q shared.ListQuery) ([]requests.Request, int, error)
	Monthly(ctx context.Context, requesterID int64, from, until time.Time) ([]requests.Request, error)
}

// TeamSource reads team occupancy.
type TeamSource interface {
	CountMembers(ctx context.Context, hrID int64) (int, error)
	MemberLimit(ctx context.Context, hrID int64) (int, error)
}

// HRSummary is the manager landing payload.
type HRSummary struct {
	AssetCount      int                `json:"asset_count"`
	PendingCount    int                `json:"pending_count"`
	PendingRequests []requests.Request `json:"pending_requests"`
	TeamMembers     int                `json:"team_members"`
	MemberLimit     int                `json:"member_limit"`
}

// EmployeeSummary is the employee landing payload.
type EmployeeSummary struct {
	PendingRequests []requests.Request `json:"pending_requests"`
	MonthlyRequests []requests.Request `json:"monthly_requests"`
}

// Service aggregates dashboard reads.
type Service struct {
	assets   AssetSource
	requests RequestSource
	team     TeamSource
}

// NewService constructs a new Service.
func NewService(assetSource AssetSource, requestSource RequestSource, teamSource TeamSource) *Service {
	return &Service{assets: assetSource, requests: requestSource, team: teamSource}
}

// HR collects the manager's landing numbers in parallel.
func (s *Service) HR(ctx context.Context, hrID int64) (*HRSummary, error) {
	var summary HRSummary
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, total, err := s.assets.List(ctx, hrID, shared.ListQuery{PerPage: 1})
		summary.AssetCount = total
		return err
	})
	g.Go(func() error {
		items, total, err := s.requests.ListForHR(ctx, hrID, true, shared.ListQuery{PerPage: pendingPreview})
		if items == nil {
			items = []requests.Request{}
		}
		summary.PendingRequests = items
		summary.PendingCount = total
		return err
	})
	g.Go(func() error {
		count, err := s.team.CountMembers(ctx, hrID)
		summary.TeamMembers = count
		return err
	})
	g.Go(func() error {
		limit, err := s.team.MemberLimit(ctx, hrID)
		summary.MemberLimit = limit
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Employee collects the employee's landing lists in parallel.
func (s *Service) Employee(ctx context.Context, employeeID int64) (*EmployeeSummary, error) {
	var summary EmployeeSummary
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, _, err := s.requests.ListForEmployee(ctx, employeeID,
			shared.ListQuery{Filter: string(requests.StatusPending), PerPage: 100})
		if items == nil {
			items = []requests.Request{}
		}
		summary.PendingRequests = items
		return err
	})
	g.Go(func() error {
		from, until := monthWindow(time.Now().UTC())
		items, err := s.requests.Monthly(ctx, employeeID, from, until)
		if items == nil {
			items = []requests.Request{}
		}
		summary.MonthlyRequests = items
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &summary, nil
}

// monthWindow returns [first of the month, first of the next month).
func monthWindow(now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
