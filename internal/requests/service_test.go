package requests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assetverse/assetverse/internal/assets"
	"github.com/assetverse/assetverse/internal/shared"
)

type memAssets struct {
	byID map[int64]assets.Asset
}

func (m *memAssets) List(context.Context, int64, shared.ListQuery) ([]assets.Asset, int, error) {
	return nil, 0, nil
}

func (m *memAssets) Get(_ context.Context, id int64) (*assets.Asset, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (m *memAssets) Create(_ context.Context, a assets.Asset) (int64, error) {
	m.byID[a.ID] = a
	return a.ID, nil
}

func (m *memAssets) Update(_ context.Context, a assets.Asset) error {
	m.byID[a.ID] = a
	return nil
}

func (m *memAssets) Delete(context.Context, int64, int64) error { return nil }

func (m *memAssets) adjust(id int64, delta int) error {
	a := m.byID[id]
	if a.Quantity+delta < 0 {
		return ErrOutOfStock
	}
	a.Quantity += delta
	m.byID[id] = a
	return nil
}

type memRequests struct {
	byID   map[int64]Request
	nextID int64
	assets *memAssets
}

func (m *memRequests) Create(_ context.Context, assetID, requesterID, hrID int64, note string) (int64, error) {
	id := m.nextID
	m.nextID++
	a := m.assets.byID[assetID]
	m.byID[id] = Request{
		ID: id, AssetID: assetID, AssetName: a.Name, AssetType: a.Type,
		RequesterID: requesterID, HRID: hrID, Note: note,
		Status: StatusPending, RequestDate: time.Now().UTC(),
	}
	return id, nil
}

func (m *memRequests) Get(_ context.Context, id int64) (*Request, error) {
	req, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &req, nil
}

func (m *memRequests) ListForEmployee(_ context.Context, requesterID int64, _ shared.ListQuery) ([]Request, int, error) {
	var out []Request
	for _, req := range m.byID {
		if req.RequesterID == requesterID {
			out = append(out, req)
		}
	}
	return out, len(out), nil
}

func (m *memRequests) ListForHR(_ context.Context, hrID int64, pendingOnly bool, _ shared.ListQuery) ([]Request, int, error) {
	var out []Request
	for _, req := range m.byID {
		if req.HRID != hrID {
			continue
		}
		if pendingOnly && req.Status != StatusPending {
			continue
		}
		out = append(out, req)
	}
	return out, len(out), nil
}

func (m *memRequests) Monthly(_ context.Context, requesterID int64, from, until time.Time) ([]Request, error) {
	var out []Request
	for _, req := range m.byID {
		if req.RequesterID == requesterID && !req.RequestDate.Before(from) && req.RequestDate.Before(until) {
			out = append(out, req)
		}
	}
	return out, nil
}

func (m *memRequests) Approve(_ context.Context, id, hrID int64) error {
	req, ok := m.byID[id]
	if !ok || req.HRID != hrID {
		return shared.ErrNotFound
	}
	if req.Status != StatusPending {
		return ErrNotPending
	}
	if err := m.assets.adjust(req.AssetID, -1); err != nil {
		return err
	}
	now := time.Now().UTC()
	req.Status = StatusApproved
	req.ApprovalDate = &now
	m.byID[id] = req
	return nil
}

func (m *memRequests) Reject(_ context.Context, id, hrID int64) error {
	req, ok := m.byID[id]
	if !ok || req.HRID != hrID {
		return shared.ErrNotFound
	}
	if req.Status != StatusPending {
		return ErrNotPending
	}
	req.Status = StatusRejected
	m.byID[id] = req
	return nil
}

func (m *memRequests) Return(_ context.Context, id, requesterID int64) error {
	req, ok := m.byID[id]
	if !ok || req.RequesterID != requesterID {
		return shared.ErrNotFound
	}
	if req.Status != StatusApproved {
		return ErrNotApproved
	}
	if req.AssetType != assets.TypeReturnable {
		return ErrNotReturnable
	}
	if err := m.assets.adjust(req.AssetID, 1); err != nil {
		return err
	}
	req.Status = StatusReturned
	m.byID[id] = req
	return nil
}

func (m *memRequests) Cancel(_ context.Context, id, requesterID int64) error {
	req, ok := m.byID[id]
	if !ok || req.RequesterID != requesterID {
		return shared.ErrNotFound
	}
	if req.Status != StatusPending {
		return ErrNotPending
	}
	req.Status = StatusCancelled
	m.byID[id] = req
	return nil
}

func newLifecycleService() (*Service, *memAssets, *memRequests) {
	assetRepo := &memAssets{byID: map[int64]assets.Asset{
		1: {ID: 1, HRID: 10, Name: "Laptop", Type: assets.TypeReturnable, Quantity: 1},
		2: {ID: 2, HRID: 10, Name: "Notebook", Type: assets.TypeNonReturnable, Quantity: 5},
		3: {ID: 3, HRID: 10, Name: "Projector", Type: assets.TypeReturnable, Quantity: 0},
	}}
	reqRepo := &memRequests{byID: map[int64]Request{}, nextID: 1, assets: assetRepo}
	return NewService(reqRepo, assetRepo, nil), assetRepo, reqRepo
}

func TestCreateRejectsOutOfStock(t *testing.T) {
	svc, _, _ := newLifecycleService()

	_, err := svc.Create(context.Background(), 42, CreateRequest{AssetID: 3, Note: "need it"})
	require.ErrorIs(t, err, ErrOutOfStock)

	_, err = svc.Create(context.Background(), 42, CreateRequest{AssetID: 99})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestApproveDecrementsStockOnce(t *testing.T) {
	svc, assetRepo, _ := newLifecycleService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 42, CreateRequest{AssetID: 1})
	require.NoError(t, err)
	require.Equal(t, StatusPending, created.Status)
	require.Equal(t, int64(10), created.HRID, "approver is the asset owner")

	require.NoError(t, svc.Approve(ctx, created.ID, 10))
	require.Equal(t, 0, assetRepo.byID[1].Quantity)

	// A second approval of the same request must not touch stock again.
	require.ErrorIs(t, svc.Approve(ctx, created.ID, 10), ErrNotPending)
	require.Equal(t, 0, assetRepo.byID[1].Quantity)
}

func TestReturnRestocksReturnableOnly(t *testing.T) {
	svc, assetRepo, _ := newLifecycleService()
	ctx := context.Background()

	laptop, err := svc.Create(ctx, 42, CreateRequest{AssetID: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, laptop.ID, 10))

	notebook, err := svc.Create(ctx, 42, CreateRequest{AssetID: 2})
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, notebook.ID, 10))

	require.NoError(t, svc.Return(ctx, laptop.ID, 42))
	require.Equal(t, 1, assetRepo.byID[1].Quantity)

	require.ErrorIs(t, svc.Return(ctx, notebook.ID, 42), ErrNotReturnable)
}

func TestCancelOnlyWhilePending(t *testing.T) {
	svc, _, _ := newLifecycleService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 42, CreateRequest{AssetID: 2})
	require.NoError(t, err)

	// A stranger cannot cancel someone else's request.
	require.ErrorIs(t, svc.Cancel(ctx, created.ID, 43), shared.ErrNotFound)

	require.NoError(t, svc.Cancel(ctx, created.ID, 42))
	require.ErrorIs(t, svc.Cancel(ctx, created.ID, 42), ErrNotPending)
}
