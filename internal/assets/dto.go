package assets

import "github.com/assetverse/assetverse/internal/shared"

type CreateAssetRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=200"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
	Type     string `json:"type" validate:"required,oneof=returnable non-returnable"`
	Quantity int    `json:"quantity" validate:"required,gte=1"`
}

type UpdateAssetRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url"`
	Type     *string `json:"type,omitempty" validate:"omitempty,oneof=returnable non-returnable"`
	Quantity *int    `json:"quantity,omitempty" validate:"omitempty,gte=0"`
}

type ListResponse struct {
	Assets     []Asset           `json:"assets"`
	Pagination shared.Pagination `json:"pagination"`
}
