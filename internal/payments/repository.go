package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetverse/assetverse/internal/shared"
)

// Repository defines persistence operations for packages and payments.
type Repository interface {
	ListPackages(ctx context.Context) ([]Package, error)
	GetPackage(ctx context.Context, id int64) (*Package, error)
	CreatePayment(ctx context.Context, p Payment) (int64, error)
	FindBySession(ctx context.Context, sessionID string) (*Payment, error)
	MarkPaid(ctx context.Context, sessionID string) error
	ListPayments(ctx context.Context, hrID int64, q shared.ListQuery) ([]Payment, int, error)
	ListPending(ctx context.Context, olderThan time.Time) ([]Payment, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) ListPackages(ctx context.Context) ([]Package, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, member_limit, price, currency, description
		FROM packages ORDER BY price ASC`)
	if err != nil {
		return nil, fmt.Errorf("payments: list packages: %w", err)
	}
	defer rows.Close()

	var out []Package
	for rows.Next() {
		var p Package
		if err := rows.Scan(&p.ID, &p.Name, &p.MemberLimit, &p.Price, &p.Currency, &p.Description); err != nil {
			return nil, fmt.Errorf("payments: scan package: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetPackage(ctx context.Context, id int64) (*Package, error) {
	var p Package
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, member_limit, price, currency, description
		FROM packages WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.MemberLimit, &p.Price, &p.Currency, &p.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("payments: get package: %w", err)
	}
	return &p, nil
}

func (r *PGRepository) CreatePayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payments (hr_id, package_id, amount, currency, session_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id`,
		p.HRID, p.PackageID, p.Amount, p.Currency, p.SessionID, p.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("payments: insert: %w", err)
	}
	return id, nil
}

func (r *PGRepository) FindBySession(ctx context.Context, sessionID string) (*Payment, error) {
	var p Payment
	err := r.pool.QueryRow(ctx, `
		SELECT pay.id, pay.hr_id, pay.package_id, pkg.name, pay.amount, pay.currency,
			pay.session_id, pay.status, pay.created_at, pay.settled_at
		FROM payments pay
		JOIN packages pkg ON pkg.id = pay.package_id
		WHERE pay.session_id = $1`,
		sessionID,
	).Scan(&p.ID, &p.HRID, &p.PackageID, &p.PackageName, &p.Amount, &p.Currency,
		&p.SessionID, &p.Status, &p.CreatedAt, &p.SettledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("payments: find by session: %w", err)
	}
	return &p, nil
}

// MarkPaid settles a pending payment. The status guard makes repeated
// confirmations of one session idempotent at the row level.
func (r *PGRepository) MarkPaid(ctx context.Context, sessionID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments SET status = 'paid', settled_at = now()
		WHERE session_id = $1 AND status = 'pending'`,
		sessionID)
	if err != nil {
		return fmt.Errorf("payments: mark paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyRecorded
	}
	return nil
}

// ListPending returns in-flight payments created before the cutoff, for
// reconciliation against the provider.
func (r *PGRepository) ListPending(ctx context.Context, olderThan time.Time) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pay.id, pay.hr_id, pay.package_id, pkg.name, pay.amount, pay.currency,
			pay.session_id, pay.status, pay.created_at, pay.settled_at
		FROM payments pay
		JOIN packages pkg ON pkg.id = pay.package_id
		WHERE pay.status = 'pending' AND pay.created_at < $1
		ORDER BY pay.created_at ASC`,
		olderThan)
	if err != nil {
		return nil, fmt.Errorf("payments: list pending: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.HRID, &p.PackageID, &p.PackageName, &p.Amount, &p.Currency,
			&p.SessionID, &p.Status, &p.CreatedAt, &p.SettledAt); err != nil {
			return nil, fmt.Errorf("payments: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepository) ListPayments(ctx context.Context, hrID int64, q shared.ListQuery) ([]Payment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		"SELECT count(*) FROM payments WHERE hr_id = $1", hrID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("payments: count: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT pay.id, pay.hr_id, pay.package_id, pkg.name, pay.amount, pay.currency,
			pay.session_id, pay.status, pay.created_at, pay.settled_at
		FROM payments pay
		JOIN packages pkg ON pkg.id = pay.package_id
		WHERE pay.hr_id = $1
		ORDER BY pay.created_at DESC
		LIMIT $2 OFFSET $3`,
		hrID, q.Limit(), q.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("payments: list: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.HRID, &p.PackageID, &p.PackageName, &p.Amount, &p.Currency,
			&p.SessionID, &p.Status, &p.CreatedAt, &p.SettledAt); err != nil {
			return nil, 0, fmt.Errorf("payments: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
