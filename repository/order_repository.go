package repository

import (
	"context"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRepository is the read side of committed orders; orders are only
// written through CheckoutStore.
type OrderRepository interface {
	FindByUserID(ctx context.Context, userID int64, page, limit int) ([]models.Order, int64, error)
	FindByCheckoutID(ctx context.Context, checkoutID uuid.UUID) ([]models.Order, error)
}

type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByUserID returns one page of the user's orders, newest first.
func (r *GormOrderRepository) FindByUserID(ctx context.Context, userID int64, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("telegram_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC, id DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *GormOrderRepository) FindByCheckoutID(ctx context.Context, checkoutID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		Order("id ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
