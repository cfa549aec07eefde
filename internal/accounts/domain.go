package accounts

import (
	"errors"
	"fmt"
	"time"
)

// Role is the backend-resolved authorization category. It is re-derived on
// every gated request and never trusted from the client.
type Role string

const (
	RoleHR       Role = "hr"
	RoleEmployee Role = "employee"
)

// ErrRoleUnresolved marks an account whose role is absent or carries an
// unexpected value. Such an account is not yet authorized; it never falls
// back to a default role.
var ErrRoleUnresolved = errors.New("accounts: role unresolved")

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleHR:
		return RoleHR, nil
	case RoleEmployee:
		return RoleEmployee, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrRoleUnresolved, raw)
	}
}

// Account represents a registered identity, HR manager or employee.
type Account struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	DisplayName  string     `json:"display_name"`
	PhotoURL     string     `json:"photo_url"`
	Role         Role       `json:"role"`
	CompanyName  string     `json:"company_name,omitempty"`
	CompanyLogo  string     `json:"company_logo,omitempty"`
	PackageID    *int64     `json:"package_id,omitempty"`
	TeamHRID     *int64     `json:"team_hr_id,omitempty"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
