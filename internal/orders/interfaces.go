package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for the order ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Order], error)
	// Transition writes columns of order only while its stored status still
	// equals from. It reports false when another writer moved the order first.
	Transition(ctx context.Context, order *models.Order, from enums.OrderStatus, columns ...string) (bool, error)
}

// ListFilter narrows order listings. A nil UserID lists every order.
type ListFilter struct {
	UserID *uuid.UUID
}

// StockAdjuster moves units back into the catalog when an order is cancelled.
type StockAdjuster interface {
	ApplyStockDeltas(ctx context.Context, tx *gorm.DB, deltas []catalog.StockDelta) error
}
