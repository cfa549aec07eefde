// Package payments covers subscription packages and the checkout flow that
// upgrades an HR manager's package.
package payments

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assetverse/assetverse/internal/shared"
)

// Payment state errors surfaced to handlers.
var (
	ErrNotSettled      = errors.New("checkout session is not settled")
	ErrAlreadyRecorded = errors.New("payment already recorded")
)

// Package is a purchasable subscription tier. The member limit bounds team
// size; the price is what checkout charges.
type Package struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	MemberLimit int             `json:"member_limit"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"`
}

// Payment records one settled or in-flight checkout.
type Payment struct {
	ID          int64           `json:"id"`
	HRID        int64           `json:"hr_id"`
	PackageID   int64           `json:"package_id"`
	PackageName string          `json:"package_name"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	SessionID   string          `json:"session_id"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	SettledAt   *time.Time      `json:"settled_at,omitempty"`
}

// Payment lifecycle states.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// HistoryResponse is a paginated payment listing.
type HistoryResponse struct {
	Payments   []Payment         `json:"payments"`
	Pagination shared.Pagination `json:"pagination"`
}

// CheckoutResponse hands the hosted checkout URL back to the client.
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}
