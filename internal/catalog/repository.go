package catalog

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// StockDelta moves units between a product's quantity and sold counters.
// Negative values sell stock; positive values restock it.
type StockDelta struct {
	ProductID uuid.UUID
	Delta     int
}

// ShortageDetails is attached to INSUFFICIENT_STOCK errors.
type ShortageDetails struct {
	ProductID uuid.UUID `json:"productId"`
	Title     string    `json:"title"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// Repository persists products and their stock counters.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads a product.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update saves every column of an existing product row.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// List returns one newest-first page of products.
func (r *Repository) List(ctx context.Context, params pagination.Params) (pagination.Page[models.Product], error) {
	q, err := pagination.Apply(r.db.WithContext(ctx).Model(&models.Product{}), params)
	if err != nil {
		return pagination.Page[models.Product]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var rows []models.Product
	if err := q.Find(&rows).Error; err != nil {
		return pagination.Page[models.Product]{}, err
	}
	return pagination.Finish(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

// ApplyStockDeltas adjusts stock for every delta inside tx.
// Sales are conditional on enough quantity being available; the first product
// that can not cover its sale fails with INSUFFICIENT_STOCK and the caller is
// expected to roll tx back. Deltas for the same product are merged and applied
// in id order so concurrent checkouts lock rows consistently.
func (r *Repository) ApplyStockDeltas(ctx context.Context, tx *gorm.DB, deltas []StockDelta) error {
	for _, d := range mergeDeltas(deltas) {
		switch {
		case d.Delta < 0:
			if err := sell(ctx, tx, d.ProductID, -d.Delta); err != nil {
				return err
			}
		case d.Delta > 0:
			if err := restock(ctx, tx, d.ProductID, d.Delta); err != nil {
				return err
			}
		}
	}
	return nil
}

func sell(ctx context.Context, tx *gorm.DB, productID uuid.UUID, units int) error {
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", productID, units).
		Updates(map[string]any{
			"quantity": gorm.Expr("quantity - ?", units),
			"sold":     gorm.Expr("sold + ?", units),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var product models.Product
	err := tx.WithContext(ctx).Select("id", "title", "quantity").First(&product, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", productID)
	}
	if err != nil {
		return err
	}
	return pkgerrors.Newf(pkgerrors.CodeInsufficientStock, "insufficient stock for %q", product.Title).
		WithDetails(ShortageDetails{
			ProductID: product.ID,
			Title:     product.Title,
			Requested: units,
			Available: product.Quantity,
		})
}

// restock skips products that no longer exist.
func restock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, units int) error {
	return tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"quantity": gorm.Expr("quantity + ?", units),
			"sold":     gorm.Expr("CASE WHEN sold >= ? THEN sold - ? ELSE 0 END", units, units),
		}).Error
}

func mergeDeltas(deltas []StockDelta) []StockDelta {
	totals := make(map[uuid.UUID]int, len(deltas))
	for _, d := range deltas {
		totals[d.ProductID] += d.Delta
	}
	merged := make([]StockDelta, 0, len(totals))
	for id, delta := range totals {
		if delta != 0 {
			merged = append(merged, StockDelta{ProductID: id, Delta: delta})
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ProductID.String() < merged[j].ProductID.String()
	})
	return merged
}
