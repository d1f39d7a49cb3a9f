package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service exposes catalog management and read operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, params pagination.Params) (*ProductListResult, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a catalog service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	product := &models.Product{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price.Round(2),
		Quantity:    input.Quantity,
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	dto := toDTO(created)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	applyUpdate(product, input)
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	dto := toDTO(updated)
	return &dto, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(product)
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, params pagination.Params) (*ProductListResult, error) {
	page, err := s.repo.List(ctx, params)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	out := &ProductListResult{Products: make([]ProductDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Products = append(out.Products, toDTO(&page.Items[i]))
	}
	return out, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

func applyUpdate(product *models.Product, input UpdateProductInput) {
	if input.Title != nil {
		product.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		product.Price = input.Price.Round(2)
	}
	if input.Quantity != nil {
		product.Quantity = *input.Quantity
	}
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Title == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	case p.Price.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be >= 0")
	case p.Quantity < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be >= 0")
	}
	return nil
}
