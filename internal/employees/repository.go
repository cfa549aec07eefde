package employees

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetverse/assetverse/internal/platform/db"
	"github.com/assetverse/assetverse/internal/shared"
)

// defaultMemberLimit applies to HR accounts that have not purchased a
// package yet.
const defaultMemberLimit = 5

// Repository defines persistence operations for team affiliation. Teams
// live on the accounts table as a nullable team pointer; packages bound
// their size.
type Repository interface {
	ListMembers(ctx context.Context, hrID int64, q shared.ListQuery) ([]Member, int, error)
	ListUnaffiliated(ctx context.Context, q shared.ListQuery) ([]Member, int, error)
	CountMembers(ctx context.Context, hrID int64) (int, error)
	MemberLimit(ctx context.Context, hrID int64) (int, error)
	Affiliate(ctx context.Context, employeeID, hrID int64, limit int) error
	Unaffiliate(ctx context.Context, employeeID, hrID int64) error
	TeamOf(ctx context.Context, employeeID int64) (*Team, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) ListMembers(ctx context.Context, hrID int64, q shared.ListQuery) ([]Member, int, error) {
	where := []string{"role = 'employee'", "team_hr_id = $1"}
	args := []any{hrID}
	return r.listAccounts(ctx, where, args, q)
}

func (r *PGRepository) ListUnaffiliated(ctx context.Context, q shared.ListQuery) ([]Member, int, error) {
	where := []string{"role = 'employee'", "team_hr_id IS NULL"}
	return r.listAccounts(ctx, where, nil, q)
}

func (r *PGRepository) listAccounts(ctx context.Context, where []string, args []any, q shared.ListQuery) ([]Member, int, error) {
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = append(where, fmt.Sprintf("(display_name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	clause := " FROM accounts WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*)"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("employees: count: %w", err)
	}

	args = append(args, q.Limit(), q.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		"SELECT id, display_name, email, photo_url, date_of_birth, created_at%s ORDER BY display_name ASC LIMIT $%d OFFSET $%d",
		clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("employees: list: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.PhotoURL, &m.DateOfBirth, &m.JoinedAt); err != nil {
			return nil, 0, fmt.Errorf("employees: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) CountMembers(ctx context.Context, hrID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		"SELECT count(*) FROM accounts WHERE role = 'employee' AND team_hr_id = $1", hrID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("employees: count members: %w", err)
	}
	return n, nil
}

func (r *PGRepository) MemberLimit(ctx context.Context, hrID int64) (int, error) {
	var limit *int
	err := r.pool.QueryRow(ctx, `
		SELECT p.member_limit
		FROM accounts h
		LEFT JOIN packages p ON p.id = h.package_id
		WHERE h.id = $1 AND h.role = 'hr'`,
		hrID).Scan(&limit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, fmt.Errorf("employees: member limit: %w", err)
	}
	if limit == nil {
		return defaultMemberLimit, nil
	}
	return *limit, nil
}

// Affiliate claims an unaffiliated employee for the team. Claims for one
// team serialize on the locked manager row, so the member count is checked
// against the limit in the same transaction that writes the affiliation and
// concurrent adds can never overfill the team. The IS NULL guard on the
// employee row makes concurrent claims for one employee settle on exactly
// one winner.
func (r *PGRepository) Affiliate(ctx context.Context, employeeID, hrID int64, limit int) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var one int
		err := tx.QueryRow(ctx,
			"SELECT 1 FROM accounts WHERE id = $1 AND role = 'hr' FOR UPDATE",
			hrID).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("employees: lock manager: %w", err)
		}

		var count int
		err = tx.QueryRow(ctx,
			"SELECT count(*) FROM accounts WHERE role = 'employee' AND team_hr_id = $1",
			hrID).Scan(&count)
		if err != nil {
			return fmt.Errorf("employees: count members: %w", err)
		}
		if count >= limit {
			return ErrTeamFull
		}

		tag, err := tx.Exec(ctx, `
			UPDATE accounts SET team_hr_id = $2, updated_at = now()
			WHERE id = $1 AND role = 'employee' AND team_hr_id IS NULL`,
			employeeID, hrID)
		if err != nil {
			return fmt.Errorf("employees: affiliate: %w", err)
		}
		if tag.RowsAffected() > 0 {
			return nil
		}

		var taken bool
		err = tx.QueryRow(ctx,
			"SELECT team_hr_id IS NOT NULL FROM accounts WHERE id = $1 AND role = 'employee'",
			employeeID).Scan(&taken)
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("employees: affiliate probe: %w", err)
		}
		if taken {
			return ErrAlreadyAffiliated
		}
		return shared.ErrNotFound
	})
}

func (r *PGRepository) Unaffiliate(ctx context.Context, employeeID, hrID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET team_hr_id = NULL, updated_at = now()
		WHERE id = $1 AND team_hr_id = $2`,
		employeeID, hrID)
	if err != nil {
		return fmt.Errorf("employees: unaffiliate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) TeamOf(ctx context.Context, employeeID int64) (*Team, error) {
	var team Team
	var limit *int
	err := r.pool.QueryRow(ctx, `
		SELECT h.id, h.display_name, h.company_name, h.company_logo, p.member_limit,
			(SELECT count(*) FROM accounts m WHERE m.team_hr_id = h.id AND m.role = 'employee')
		FROM accounts e
		JOIN accounts h ON h.id = e.team_hr_id
		LEFT JOIN packages p ON p.id = h.package_id
		WHERE e.id = $1`,
		employeeID,
	).Scan(&team.HRID, &team.HRName, &team.CompanyName, &team.CompanyLogo, &limit, &team.MemberCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoTeam
		}
		return nil, fmt.Errorf("employees: team of: %w", err)
	}
	team.MemberLimit = defaultMemberLimit
	if limit != nil {
		team.MemberLimit = *limit
	}
	return &team, nil
}
