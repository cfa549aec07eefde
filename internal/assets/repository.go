package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetverse/assetverse/internal/shared"
)

// sortColumns maps exposed sort keys onto ORDER BY expressions.
var sortColumns = map[string]string{
	"name":       "name ASC",
	"quantity":   "quantity ASC",
	"created_at": "created_at DESC",
}

// Repository defines persistence operations for assets.
type Repository interface {
	List(ctx context.Context, hrID int64, q shared.ListQuery) ([]Asset, int, error)
	Get(ctx context.Context, id int64) (*Asset, error)
	Create(ctx context.Context, asset Asset) (int64, error)
	Update(ctx context.Context, asset Asset) error
	Delete(ctx context.Context, id, hrID int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns one page of assets plus the unpaged total. hrID zero lists
// the whole catalog; the filter selects an asset type or availability.
func (r *PGRepository) List(ctx context.Context, hrID int64, q shared.ListQuery) ([]Asset, int, error) {
	where := []string{"TRUE"}
	args := []any{}

	if hrID > 0 {
		args = append(args, hrID)
		where = append(where, fmt.Sprintf("hr_id = $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	switch q.Filter {
	case "available":
		where = append(where, "quantity > 0")
	case "out-of-stock":
		where = append(where, "quantity = 0")
	case string(TypeReturnable), string(TypeNonReturnable):
		args = append(args, q.Filter)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assets WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("assets: count: %w", err)
	}

	order, ok := sortColumns[q.Sort]
	if !ok {
		order = sortColumns["created_at"]
	}
	args = append(args, q.Limit(), q.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, hr_id, name, image_url, type, quantity, created_at, updated_at
		 FROM assets WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		clause, order, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("assets: list: %w", err)
	}
	defer rows.Close()

	var items []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.HRID, &a.Name, &a.ImageURL, &a.Type,
			&a.Quantity, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("assets: scan: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("assets: rows: %w", err)
	}
	return items, total, nil
}

// Get fetches one asset.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Asset, error) {
	var a Asset
	err := r.pool.QueryRow(ctx,
		`SELECT id, hr_id, name, image_url, type, quantity, created_at, updated_at
		 FROM assets WHERE id = $1`, id).
		Scan(&a.ID, &a.HRID, &a.Name, &a.ImageURL, &a.Type, &a.Quantity, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("assets: get: %w", err)
	}
	return &a, nil
}

// Create inserts a new asset.
func (r *PGRepository) Create(ctx context.Context, asset Asset) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO assets (hr_id, name, image_url, type, quantity)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		asset.HRID, asset.Name, asset.ImageURL, string(asset.Type), asset.Quantity,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("assets: create: %w", err)
	}
	return id, nil
}

// Update rewrites the mutable fields, scoped to the owning HR account.
func (r *PGRepository) Update(ctx context.Context, asset Asset) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE assets SET name = $3, image_url = $4, type = $5, quantity = $6, updated_at = NOW()
		WHERE id = $1 AND hr_id = $2`,
		asset.ID, asset.HRID, asset.Name, asset.ImageURL, string(asset.Type), asset.Quantity)
	if err != nil {
		return fmt.Errorf("assets: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an asset, scoped to the owning HR account.
func (r *PGRepository) Delete(ctx context.Context, id, hrID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1 AND hr_id = $2`, id, hrID)
	if err != nil {
		return fmt.Errorf("assets: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
