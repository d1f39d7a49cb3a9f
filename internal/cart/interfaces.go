package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service
// and the checkout orchestrator.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	SaveTotals(ctx context.Context, cart *models.Cart) error
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	Delete(ctx context.Context, id, userID uuid.UUID) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type couponLoader interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
}
