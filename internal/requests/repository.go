package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetverse/assetverse/internal/platform/db"
	"github.com/assetverse/assetverse/internal/shared"
)

var sortColumns = map[string]string{
	"request_date": "r.request_date DESC",
	"asset_name":   "a.name ASC",
	"status":       "r.status ASC",
}

// Repository defines persistence operations for asset requests.
type Repository interface {
	Create(ctx context.Context, assetID, requesterID, hrID int64, note string) (int64, error)
	Get(ctx context.Context, id int64) (*Request, error)
	ListForEmployee(ctx context.Context, requesterID int64, q shared.ListQuery) ([]Request, int, error)
	ListForHR(ctx context.Context, hrID int64, pendingOnly bool, q shared.ListQuery) ([]Request, int, error)
	Monthly(ctx context.Context, requesterID int64, from, until time.Time) ([]Request, error)
	Approve(ctx context.Context, id, hrID int64) error
	Reject(ctx context.Context, id, hrID int64) error
	Return(ctx context.Context, id, requesterID int64) error
	Cancel(ctx context.Context, id, requesterID int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectColumns = `
	r.id, r.asset_id, a.name, a.type,
	r.requester_id, u.display_name, u.email,
	r.hr_id, r.note, r.status, r.request_date, r.approval_date`

const fromClause = `
	FROM asset_requests r
	JOIN assets a ON a.id = r.asset_id
	JOIN accounts u ON u.id = r.requester_id`

func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(
		&req.ID, &req.AssetID, &req.AssetName, &req.AssetType,
		&req.RequesterID, &req.RequesterName, &req.RequesterEmail,
		&req.HRID, &req.Note, &req.Status, &req.RequestDate, &req.ApprovalDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("requests: scan: %w", err)
	}
	return &req, nil
}

func (r *PGRepository) Create(ctx context.Context, assetID, requesterID, hrID int64, note string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO asset_requests (asset_id, requester_id, hr_id, note, status, request_date)
		VALUES ($1, $2, $3, $4, 'pending', now())
		RETURNING id`,
		assetID, requesterID, hrID, note,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("requests: insert: %w", err)
	}
	return id, nil
}

func (r *PGRepository) Get(ctx context.Context, id int64) (*Request, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT"+selectColumns+fromClause+" WHERE r.id = $1", id)
	return scanRequest(row)
}

func (r *PGRepository) ListForEmployee(ctx context.Context, requesterID int64, q shared.ListQuery) ([]Request, int, error) {
	where := []string{"r.requester_id = $1"}
	args := []any{requesterID}

	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = append(where, fmt.Sprintf("a.name ILIKE $%d", len(args)))
	}
	switch q.Filter {
	case "pending", "approved", "rejected", "returned", "cancelled":
		args = append(args, q.Filter)
		where = append(where, fmt.Sprintf("r.status = $%d", len(args)))
	case "returnable", "non-returnable":
		args = append(args, q.Filter)
		where = append(where, fmt.Sprintf("a.type = $%d", len(args)))
	}

	return r.list(ctx, where, args, q)
}

func (r *PGRepository) ListForHR(ctx context.Context, hrID int64, pendingOnly bool, q shared.ListQuery) ([]Request, int, error) {
	where := []string{"r.hr_id = $1"}
	args := []any{hrID}

	if pendingOnly {
		where = append(where, "r.status = 'pending'")
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = append(where, fmt.Sprintf("(a.name ILIKE $%d OR u.display_name ILIKE $%d OR u.email ILIKE $%d)",
			len(args), len(args), len(args)))
	}

	return r.list(ctx, where, args, q)
}

func (r *PGRepository) list(ctx context.Context, where []string, args []any, q shared.ListQuery) ([]Request, int, error) {
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*)"+fromClause+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("requests: count: %w", err)
	}

	order, ok := sortColumns[q.Sort]
	if !ok {
		order = sortColumns["request_date"]
	}
	args = append(args, q.Limit(), q.Offset())
	query := fmt.Sprintf("SELECT%s%s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		selectColumns, fromClause, clause, order, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("requests: list: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *req)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) Monthly(ctx context.Context, requesterID int64, from, until time.Time) ([]Request, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT"+selectColumns+fromClause+`
		WHERE r.requester_id = $1 AND r.request_date >= $2 AND r.request_date < $3
		ORDER BY r.request_date DESC`,
		requesterID, from, until)
	if err != nil {
		return nil, fmt.Errorf("requests: monthly: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

// Approve moves a pending request to approved and takes one unit out of
// the asset's stock, atomically.
func (r *PGRepository) Approve(ctx context.Context, id, hrID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var assetID int64
		var status Status
		err := tx.QueryRow(ctx, `
			SELECT asset_id, status FROM asset_requests
			WHERE id = $1 AND hr_id = $2
			FOR UPDATE`,
			id, hrID,
		).Scan(&assetID, &status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return fmt.Errorf("requests: lock: %w", err)
		}
		if status != StatusPending {
			return ErrNotPending
		}

		tag, err := tx.Exec(ctx, `
			UPDATE assets SET quantity = quantity - 1, updated_at = now()
			WHERE id = $1 AND quantity >= 1`,
			assetID)
		if err != nil {
			return fmt.Errorf("requests: decrement stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrOutOfStock
		}

		_, err = tx.Exec(ctx, `
			UPDATE asset_requests SET status = 'approved', approval_date = now()
			WHERE id = $1`,
			id)
		if err != nil {
			return fmt.Errorf("requests: approve: %w", err)
		}
		return nil
	})
}

func (r *PGRepository) Reject(ctx context.Context, id, hrID int64) error {
	return r.transition(ctx, id, `
		UPDATE asset_requests SET status = 'rejected'
		WHERE id = $1 AND hr_id = $2 AND status = 'pending'`,
		"SELECT 1 FROM asset_requests WHERE id = $1 AND hr_id = $2",
		ErrNotPending, hrID)
}

// Return moves an approved request for a returnable asset back to stock.
func (r *PGRepository) Return(ctx context.Context, id, requesterID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var assetID int64
		var status Status
		var assetType string
		err := tx.QueryRow(ctx, `
			SELECT r.asset_id, r.status, a.type
			FROM asset_requests r
			JOIN assets a ON a.id = r.asset_id
			WHERE r.id = $1 AND r.requester_id = $2
			FOR UPDATE OF r`,
			id, requesterID,
		).Scan(&assetID, &status, &assetType)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return fmt.Errorf("requests: lock: %w", err)
		}
		if status != StatusApproved {
			return ErrNotApproved
		}
		if assetType != "returnable" {
			return ErrNotReturnable
		}

		if _, err := tx.Exec(ctx, `
			UPDATE assets SET quantity = quantity + 1, updated_at = now()
			WHERE id = $1`,
			assetID); err != nil {
			return fmt.Errorf("requests: restock: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE asset_requests SET status = 'returned'
			WHERE id = $1`,
			id); err != nil {
			return fmt.Errorf("requests: return: %w", err)
		}
		return nil
	})
}

func (r *PGRepository) Cancel(ctx context.Context, id, requesterID int64) error {
	return r.transition(ctx, id, `
		UPDATE asset_requests SET status = 'cancelled'
		WHERE id = $1 AND requester_id = $2 AND status = 'pending'`,
		"SELECT 1 FROM asset_requests WHERE id = $1 AND requester_id = $2",
		ErrNotPending, requesterID)
}

// transition applies a guarded status update; when no row changes it probes
// whether the request exists at all to tell not-found from a wrong state.
func (r *PGRepository) transition(ctx context.Context, id int64, update, probe string, stateErr error, ownerID int64) error {
	tag, err := r.pool.Exec(ctx, update, id, ownerID)
	if err != nil {
		return fmt.Errorf("requests: transition: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var one int
	err = r.pool.QueryRow(ctx, probe, id, ownerID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("requests: probe: %w", err)
	}
	return stateErr
}
