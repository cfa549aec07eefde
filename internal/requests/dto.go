package requests

import "github.com/assetverse/assetverse/internal/shared"

// CreateRequest is the payload for filing a new asset request.
type CreateRequest struct {
	AssetID int64  `json:"asset_id" validate:"required,gt=0"`
	Note    string `json:"note" validate:"max=500"`
}

// ListResponse is a paginated request listing.
type ListResponse struct {
	Requests   []Request         `json:"requests"`
	Pagination shared.Pagination `json:"pagination"`
}
