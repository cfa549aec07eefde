// Package employees manages team affiliation: which employees belong to
// which HR manager's team, bounded by the manager's package member limit.
package employees

import (
	"errors"
	"time"

	"github.com/assetverse/assetverse/internal/shared"
)

// Affiliation errors surfaced to handlers.
var (
	ErrTeamFull          = errors.New("team member limit reached")
	ErrAlreadyAffiliated = errors.New("employee already belongs to a team")
	ErrNoTeam            = errors.New("employee is not affiliated with a team")
)

// Member is one employee on a team roster.
type Member struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	PhotoURL    string     `json:"photo_url,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`
}

// Team describes the roster an employee belongs to.
type Team struct {
	HRID        int64  `json:"hr_id"`
	HRName      string `json:"hr_name"`
	CompanyName string `json:"company_name"`
	CompanyLogo string `json:"company_logo,omitempty"`
	MemberCount int    `json:"member_count"`
	MemberLimit int    `json:"member_limit"`
}

// RosterResponse is a paginated team listing.
type RosterResponse struct {
	Members    []Member          `json:"members"`
	Pagination shared.Pagination `json:"pagination"`
}
