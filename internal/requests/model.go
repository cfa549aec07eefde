// Package requests implements the asset request lifecycle: an employee
// files a request, the owning HR manager approves or rejects it, and
// returnable assets eventually flow back into stock.
package requests

import (
	"errors"
	"time"

	"github.com/assetverse/assetverse/internal/assets"
)

// Status enumerates the request lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusReturned  Status = "returned"
	StatusCancelled Status = "cancelled"
)

// Lifecycle errors surfaced to handlers.
var (
	ErrNotPending    = errors.New("request is not pending")
	ErrNotApproved   = errors.New("request is not approved")
	ErrNotReturnable = errors.New("asset is not returnable")
	ErrOutOfStock    = errors.New("asset is out of stock")
)

// Request is one employee asset request together with the joined asset and
// requester attributes the listings display.
type Request struct {
	ID             int64       `json:"id"`
	AssetID        int64       `json:"asset_id"`
	AssetName      string      `json:"asset_name"`
	AssetType      assets.Type `json:"asset_type"`
	RequesterID    int64       `json:"requester_id"`
	RequesterName  string      `json:"requester_name"`
	RequesterEmail string      `json:"requester_email"`
	HRID           int64       `json:"hr_id"`
	Note           string      `json:"note,omitempty"`
	Status         Status      `json:"status"`
	RequestDate    time.Time   `json:"request_date"`
	ApprovalDate   *time.Time  `json:"approval_date,omitempty"`
}
