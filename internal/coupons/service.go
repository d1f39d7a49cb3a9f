package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const uniqueCodeConstraint = "ux_coupons_code"

// CouponDTO is the coupon payload returned to admins.
type CouponDTO struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discount"`
	ExpiresAt       time.Time `json:"expire"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CreateCouponInput holds the validated payload to create a coupon.
type CreateCouponInput struct {
	Code            string
	DiscountPercent int
	ExpiresAt       time.Time
}

// Service manages discount coupons.
type Service interface {
	Create(ctx context.Context, input CreateCouponInput) (*CouponDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error)
	List(ctx context.Context) ([]CouponDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
	now  func() time.Time
}

// NewService constructs a coupon service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// NormalizeCode upper-cases and trims a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) Create(ctx context.Context, input CreateCouponInput) (*CouponDTO, error) {
	code := NormalizeCode(input.Code)
	switch {
	case code == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	case input.DiscountPercent < 1 || input.DiscountPercent > 100:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount must be between 1 and 100")
	case !input.ExpiresAt.After(s.now()):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry must be in the future")
	}

	coupon, err := s.repo.Create(ctx, &models.Coupon{
		Code:            code,
		DiscountPercent: input.DiscountPercent,
		ExpiresAt:       input.ExpiresAt.UTC(),
	})
	if err != nil {
		if pkgerrors.IsUniqueViolation(err, uniqueCodeConstraint) {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "coupon %s already exists", code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create coupon")
	}
	dto := s.toDTO(coupon)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	dto := s.toDTO(coupon)
	return &dto, nil
}

func (s *service) List(ctx context.Context) ([]CouponDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list coupons")
	}
	out := make([]CouponDTO, 0, len(rows))
	for i := range rows {
		out = append(out, s.toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete coupon")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return nil
}

func (s *service) toDTO(c *models.Coupon) CouponDTO {
	return CouponDTO{
		ID:              c.ID,
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent,
		ExpiresAt:       c.ExpiresAt,
		Active:          c.IsActive(s.now()),
		CreatedAt:       c.CreatedAt,
	}
}
