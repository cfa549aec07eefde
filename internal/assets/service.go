package assets

import (
	"context"
	"fmt"
	"strconv"

	"github.com/assetverse/assetverse/internal/querycache"
	"github.com/assetverse/assetverse/internal/shared"
)

// listKeyPrefix is the logical query identity shared by all catalog pages.
var listKeyPrefix = querycache.Key("assets", "list")

// Service wraps asset business rules.
type Service struct {
	repo  Repository
	cache *querycache.Cache
}

// NewService constructs a new Service.
func NewService(repo Repository, cache *querycache.Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// List serves the asset catalog through the query cache. The cache key
// includes the full query state so distinct pages and filters never collide.
func (s *Service) List(ctx context.Context, hrID int64, q shared.ListQuery) (*ListResponse, error) {
	key := querycache.Key("assets", "list",
		"hr="+strconv.FormatInt(hrID, 10),
		"page="+strconv.Itoa(q.Page),
		"per="+strconv.Itoa(q.Limit()),
		"search="+q.Search,
		"sort="+q.Sort,
		"filter="+q.Filter,
	)

	var resp ListResponse
	err := s.cache.Fetch(ctx, key, &resp, func(ctx context.Context) (any, error) {
		items, total, err := s.repo.List(ctx, hrID, q)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []Asset{}
		}
		return &ListResponse{
			Assets:     items,
			Pagination: shared.NewPagination(q.Page, q.Limit(), total),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get fetches one asset.
func (s *Service) Get(ctx context.Context, id int64) (*Asset, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new asset and marks every catalog listing stale so the
// next read reflects it without a manual reload.
func (s *Service) Create(ctx context.Context, hrID int64, req CreateAssetRequest) (*Asset, error) {
	asset := Asset{
		HRID:     hrID,
		Name:     req.Name,
		ImageURL: req.ImageURL,
		Type:     Type(req.Type),
		Quantity: req.Quantity,
	}
	id, err := s.repo.Create(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	asset.ID = id
	s.cache.InvalidatePrefix(ctx, listKeyPrefix)
	return &asset, nil
}

// Update applies the provided fields to an asset owned by hrID.
func (s *Service) Update(ctx context.Context, id, hrID int64, req UpdateAssetRequest) (*Asset, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.HRID != hrID {
		return nil, shared.ErrNotFound
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.ImageURL != nil {
		existing.ImageURL = *req.ImageURL
	}
	if req.Type != nil {
		existing.Type = Type(*req.Type)
	}
	if req.Quantity != nil {
		existing.Quantity = *req.Quantity
	}

	if err := s.repo.Update(ctx, *existing); err != nil {
		return nil, fmt.Errorf("update asset: %w", err)
	}
	s.cache.InvalidatePrefix(ctx, listKeyPrefix)
	return existing, nil
}

// Delete removes an asset owned by hrID.
func (s *Service) Delete(ctx context.Context, id, hrID int64) error {
	if err := s.repo.Delete(ctx, id, hrID); err != nil {
		return err
	}
	s.cache.InvalidatePrefix(ctx, listKeyPrefix)
	return nil
}
