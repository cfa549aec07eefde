package accounts

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Service wraps account business rules, including role resolution for the
// access gate.
type Service struct {
	repo  Repository
	title cases.Caser
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, title: cases.Title(language.English, cases.NoLower)}
}

// ResolveRole looks the role up by email. It distinguishes three outcomes:
// a resolved role, ErrRoleUnresolved (account exists but is not yet
// authorized), and a lookup failure that the caller must treat as pending
// rather than as a denial.
func (s *Service) ResolveRole(ctx context.Context, email string) (Role, error) {
	raw, err := s.repo.RoleByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	role, err := ParseRole(raw)
	if err != nil {
		return "", ErrRoleUnresolved
	}
	return role, nil
}

// Get fetches an account by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Account, error) {
	return s.repo.FindByID(ctx, id)
}

// GetByEmail fetches an account by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// UpdateProfile normalizes and persists the display fields.
func (s *Service) UpdateProfile(ctx context.Context, id int64, displayName, photoURL string) error {
	name := s.NormalizeName(displayName)
	if name == "" {
		return fmt.Errorf("accounts: empty display name")
	}
	return s.repo.UpdateProfile(ctx, id, name, photoURL)
}

// NormalizeName collapses whitespace and title-cases a display name.
func (s *Service) NormalizeName(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return s.title.String(strings.Join(fields, " "))
}
