package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetverse/assetverse/internal/platform/db"
	"github.com/assetverse/assetverse/internal/shared"
)

// Repository defines persistence operations for accounts.
type Repository interface {
	Create(ctx context.Context, account Account) (int64, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	RoleByEmail(ctx context.Context, email string) (string, error)
	UpdateProfile(ctx context.Context, id int64, displayName, photoURL string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdatePackage(ctx context.Context, id, packageID int64) error
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id, email, password_hash, display_name, photo_url, role,
	company_name, company_logo, package_id, team_hr_id, date_of_birth,
	is_active, created_at, updated_at`

// Create inserts a new account, mapping unique violations to ErrEmailTaken.
func (r *PGRepository) Create(ctx context.Context, account Account) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, display_name, photo_url, role,
			company_name, company_logo, package_id, team_hr_id, date_of_birth, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		RETURNING id`,
		account.Email, account.PasswordHash, account.DisplayName, account.PhotoURL,
		string(account.Role), account.CompanyName, account.CompanyLogo,
		account.PackageID, account.TeamHRID, account.DateOfBirth,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, shared.ErrEmailTaken
		}
		return 0, fmt.Errorf("accounts: create: %w", err)
	}
	return id, nil
}

// FindByEmail fetches an account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
}

// FindByID fetches an account by ID.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// RoleByEmail fetches the raw role value for an email.
func (r *PGRepository) RoleByEmail(ctx context.Context, email string) (string, error) {
	var role *string
	err := r.pool.QueryRow(ctx,
		`SELECT role FROM accounts WHERE email = $1 AND is_active`, email).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", fmt.Errorf("accounts: role by email: %w", err)
	}
	if role == nil {
		return "", nil
	}
	return *role, nil
}

// UpdateProfile rewrites the display fields.
func (r *PGRepository) UpdateProfile(ctx context.Context, id int64, displayName, photoURL string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET display_name = $2, photo_url = $3, updated_at = NOW()
		WHERE id = $1`, id, displayName, photoURL)
	if err != nil {
		return fmt.Errorf("accounts: update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored credential hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("accounts: update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdatePackage moves an HR account to a new subscription package.
func (r *PGRepository) UpdatePackage(ctx context.Context, id, packageID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET package_id = $2, updated_at = NOW()
		WHERE id = $1 AND role = 'hr'`, id, packageID)
	if err != nil {
		return fmt.Errorf("accounts: update package: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an account. Used by the registration pipeline's
// compensation step, so a missing row is not an error.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("accounts: delete: %w", err)
	}
	return nil
}

func (r *PGRepository) scanOne(row pgx.Row) (*Account, error) {
	var (
		account Account
		role    *string
	)
	err := row.Scan(
		&account.ID, &account.Email, &account.PasswordHash, &account.DisplayName,
		&account.PhotoURL, &role, &account.CompanyName, &account.CompanyLogo,
		&account.PackageID, &account.TeamHRID, &account.DateOfBirth,
		&account.IsActive, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("accounts: scan: %w", err)
	}
	if role != nil {
		account.Role = Role(*role)
	}
	return &account, nil
}

var _ Repository = (*PGRepository)(nil)
