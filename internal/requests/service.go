package requests

import (
	"context"
	"fmt"
	"time"

	"github.com/assetverse/assetverse/internal/assets"
	"github.com/assetverse/assetverse/internal/querycache"
	"github.com/assetverse/assetverse/internal/shared"
)

var assetListPrefix = querycache.Key("assets", "list")

// Service wraps the request lifecycle rules.
type Service struct {
	repo   Repository
	assets assets.Repository
	cache  *querycache.Cache
}

// NewService constructs a new Service.
func NewService(repo Repository, assetRepo assets.Repository, cache *querycache.Cache) *Service {
	return &Service{repo: repo, assets: assetRepo, cache: cache}
}

// Create files a pending request against an in-stock asset. The approving
// HR manager is the asset's owner.
func (s *Service) Create(ctx context.Context, requesterID int64, req CreateRequest) (*Request, error) {
	asset, err := s.assets.Get(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	if !asset.Available() {
		return nil, ErrOutOfStock
	}

	id, err := s.repo.Create(ctx, asset.ID, requesterID, asset.HRID, req.Note)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// ListForEmployee returns the requester's own history.
func (s *Service) ListForEmployee(ctx context.Context, requesterID int64, q shared.ListQuery) (*ListResponse, error) {
	items, total, err := s.repo.ListForEmployee(ctx, requesterID, q)
	if err != nil {
		return nil, err
	}
	return listResponse(items, total, q), nil
}

// ListForHR returns the requests addressed to the HR manager's team,
// optionally narrowed to pending ones.
func (s *Service) ListForHR(ctx context.Context, hrID int64, pendingOnly bool, q shared.ListQuery) (*ListResponse, error) {
	items, total, err := s.repo.ListForHR(ctx, hrID, pendingOnly, q)
	if err != nil {
		return nil, err
	}
	return listResponse(items, total, q), nil
}

// Monthly returns the requester's requests filed in the current calendar
// month, newest first.
func (s *Service) Monthly(ctx context.Context, requesterID int64) ([]Request, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 1, 0)

	items, err := s.repo.Monthly(ctx, requesterID, from, until)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Request{}
	}
	return items, nil
}

// Approve grants a pending request and decrements the asset's stock.
func (s *Service) Approve(ctx context.Context, id, hrID int64) error {
	if err := s.repo.Approve(ctx, id, hrID); err != nil {
		return err
	}
	s.cache.InvalidatePrefix(ctx, assetListPrefix)
	return nil
}

// Reject declines a pending request. Stock is untouched.
func (s *Service) Reject(ctx context.Context, id, hrID int64) error {
	return s.repo.Reject(ctx, id, hrID)
}

// Return puts a returnable asset back into stock.
func (s *Service) Return(ctx context.Context, id, requesterID int64) error {
	if err := s.repo.Return(ctx, id, requesterID); err != nil {
		return err
	}
	s.cache.InvalidatePrefix(ctx, assetListPrefix)
	return nil
}

// Cancel withdraws the requester's own pending request.
func (s *Service) Cancel(ctx context.Context, id, requesterID int64) error {
	return s.repo.Cancel(ctx, id, requesterID)
}

func listResponse(items []Request, total int, q shared.ListQuery) *ListResponse {
	if items == nil {
		items = []Request{}
	}
	return &ListResponse{
		Requests:   items,
		Pagination: shared.NewPagination(q.Page, q.Limit(), total),
	}
}
