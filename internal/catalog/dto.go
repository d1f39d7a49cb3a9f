package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ProductDTO is the product payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Sold        int             `json:"sold"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductListResult is one page of products.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Quantity    int
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Quantity    *int
}

func toDTO(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Sold:        p.Sold,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
