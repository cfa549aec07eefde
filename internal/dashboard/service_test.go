package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assetverse/assetverse/internal/assets"
	"github.com/assetverse/assetverse/internal/requests"
	"github.com/assetverse/assetverse/internal/shared"
)

type stubSources struct {
	assetTotal   int
	pending      []requests.Request
	pendingTotal int
	monthly      []requests.Request
	members      int
	limit        int
	teamErr      error
}

func (s *stubSources) List(_ context.Context, _ int64, _ shared.ListQuery) ([]assets.Asset, int, error) {
	return nil, s.assetTotal, nil
}

func (s *stubSources) ListForHR(_ context.Context, _ int64, pendingOnly bool, _ shared.ListQuery) ([]requests.Request, int, error) {
	if !pendingOnly {
		return nil, 0, errors.New("dashboard must only read pending requests")
	}
	return s.pending, s.pendingTotal, nil
}

func (s *stubSources) ListForEmployee(_ context.Context, _ int64, q shared.ListQuery) ([]requests.Request, int, error) {
	if q.Filter != string(requests.StatusPending) {
		return nil, 0, errors.New("employee dashboard must filter to pending")
	}
	return s.pending, len(s.pending), nil
}

func (s *stubSources) Monthly(_ context.Context, _ int64, from, until time.Time) ([]requests.Request, error) {
	now := time.Now().UTC()
	if from.Day() != 1 || !until.Equal(from.AddDate(0, 1, 0)) || from.Month() != now.Month() {
		return nil, errors.New("monthly window must span the current month")
	}
	return s.monthly, nil
}

func (s *stubSources) CountMembers(context.Context, int64) (int, error) {
	return s.members, s.teamErr
}

func (s *stubSources) MemberLimit(context.Context, int64) (int, error) {
	return s.limit, s.teamErr
}

func TestHRSummaryAggregates(t *testing.T) {
	src := &stubSources{
		assetTotal:   12,
		pending:      []requests.Request{{ID: 1, Status: requests.StatusPending}},
		pendingTotal: 7,
		members:      3,
		limit:        5,
	}
	svc := NewService(src, src, src)

	summary, err := svc.HR(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 12, summary.AssetCount)
	require.Equal(t, 7, summary.PendingCount)
	require.Len(t, summary.PendingRequests, 1)
	require.Equal(t, 3, summary.TeamMembers)
	require.Equal(t, 5, summary.MemberLimit)
}

func TestHRSummaryFailsWhenALegFails(t *testing.T) {
	src := &stubSources{teamErr: errors.New("connection reset")}
	svc := NewService(src, src, src)

	_, err := svc.HR(context.Background(), 10)
	require.Error(t, err)
}

func TestEmployeeSummaryScopes(t *testing.T) {
	src := &stubSources{
		pending: []requests.Request{{ID: 2, Status: requests.StatusPending}},
		monthly: []requests.Request{{ID: 2}, {ID: 3}},
	}
	svc := NewService(src, src, src)

	summary, err := svc.Employee(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, summary.PendingRequests, 1)
	require.Len(t, summary.MonthlyRequests, 2)
}

func TestEmployeeSummaryNeverNil(t *testing.T) {
	src := &stubSources{}
	svc := NewService(src, src, src)

	summary, err := svc.Employee(context.Background(), 20)
	require.NoError(t, err)
	require.NotNil(t, summary.PendingRequests)
	require.NotNil(t, summary.MonthlyRequests)
}
