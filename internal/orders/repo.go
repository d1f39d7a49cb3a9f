package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Order], error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	q, err := pagination.Apply(q, params)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var rows []models.Order
	if err := q.Find(&rows).Error; err != nil {
		return pagination.Page[models.Order]{}, err
	}
	return pagination.Finish(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

func (r *repository) Transition(ctx context.Context, order *models.Order, from enums.OrderStatus, columns ...string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(order).
		Where("status = ?", from).
		Select(append(columns, "updated_at")).
		Updates(order)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
