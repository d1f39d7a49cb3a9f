package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const couponRejectedMessage = "coupon is invalid or expired"

// Service exposes the shopper cart operations. Every mutation recomputes the
// derived totals in the same transaction.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*CartDTO, error)
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
	coupons  couponLoader
	now      func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLoader, coupons couponLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon loader required")
	}
	return &service{repo: repo, tx: tx, products: products, coupons: coupons, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, mapCartErr(err)
	}
	dto := ToDTO(cart)
	return &dto, nil
}

// AddItem creates the cart on first use. The same product and color bumps the
// existing line; anything else appends a line at the product's current price.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	product, err := s.products.FindByID(ctx, input.ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	color := normalizeColor(input.Color)

	return s.mutate(ctx, userID, true, func(repo CartRepository, cart *models.Cart) error {
		for i := range cart.Items {
			item := &cart.Items[i]
			if item.ProductID == product.ID && sameColor(item.Color, color) {
				item.Quantity++
				return repo.UpdateItemQuantity(ctx, item.ID, item.Quantity)
			}
		}
		item := models.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  1,
			Color:     color,
			UnitPrice: product.Price,
		}
		if err := repo.CreateItem(ctx, &item); err != nil {
			return err
		}
		cart.Items = append(cart.Items, item)
		return nil
	})
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return s.mutate(ctx, userID, false, func(repo CartRepository, cart *models.Cart) error {
		idx := findItem(cart, itemID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		cart.Items[idx].Quantity = quantity
		return repo.UpdateItemQuantity(ctx, itemID, quantity)
	})
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, userID, false, func(repo CartRepository, cart *models.Cart) error {
		idx := findItem(cart, itemID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		if err := repo.DeleteItem(ctx, itemID); err != nil {
			return err
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return nil
	})
}

// Clear deletes the user's cart. Clearing a missing cart is not an error.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.repo.FindByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if _, err := s.repo.Delete(ctx, cart.ID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart")
	}
	return nil
}

func (s *service) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*CartDTO, error) {
	coupon, err := s.coupons.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, couponRejectedMessage)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	if err := pricing.ValidateCoupon(pricing.CouponFromModel(coupon), s.now()); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, couponRejectedMessage)
	}
	return s.mutate(ctx, userID, false, func(_ CartRepository, cart *models.Cart) error {
		cart.CouponCode = &coupon.Code
		return nil
	})
}

// mutate loads (or, when create is set, lazily creates) the user's cart inside
// a transaction, applies fn, then recomputes and persists the totals.
func (s *service) mutate(ctx context.Context, userID uuid.UUID, create bool, fn func(CartRepository, *models.Cart) error) (*CartDTO, error) {
	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindByUser(ctx, userID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound) && create:
			cart, err = repo.Create(ctx, &models.Cart{UserID: userID})
			if err != nil {
				return err
			}
		case err != nil:
			return err
		}

		if err := fn(repo, cart); err != nil {
			return err
		}
		if err := s.recompute(ctx, cart); err != nil {
			return err
		}
		if err := repo.SaveTotals(ctx, cart); err != nil {
			return err
		}
		result = cart
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, mapCartErr(err)
	}
	dto := ToDTO(result)
	return &dto, nil
}

// recompute derives subtotal and discounted total. A coupon that expired or
// disappeared since it was applied is dropped from the cart.
func (s *service) recompute(ctx context.Context, cart *models.Cart) error {
	cart.Subtotal = pricing.Subtotal(pricing.LinesFromCart(cart.Items))
	cart.DiscountedTotal = nil
	if cart.CouponCode == nil {
		return nil
	}

	coupon, err := s.coupons.FindByCode(ctx, *cart.CouponCode)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	quote := pricing.Price(pricing.LinesFromCart(cart.Items), pricing.CouponFromModel(coupon), s.now())
	if !quote.CouponApplied {
		cart.CouponCode = nil
		return nil
	}
	total := quote.Total
	cart.DiscountedTotal = &total
	return nil
}

func mapCartErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cart operation failed")
}

func findItem(cart *models.Cart, itemID uuid.UUID) int {
	for i, item := range cart.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

func normalizeColor(color *string) *string {
	if color == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*color)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sameColor(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return strings.EqualFold(*a, *b)
}
