package assets

import "time"

// Type classifies whether an asset comes back after use.
type Type string

const (
	TypeReturnable    Type = "returnable"
	TypeNonReturnable Type = "non-returnable"
)

// Asset is a registered company asset available for request.
type Asset struct {
	ID        int64     `json:"id"`
	HRID      int64     `json:"hr_id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url"`
	Type      Type      `json:"type"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Available reports whether the asset can currently be requested.
func (a Asset) Available() bool { return a.Quantity > 0 }
