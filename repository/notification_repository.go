package repository

import (
	"context"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	SaveLog(ctx context.Context, log *models.NotificationLog) error
	FindByCheckoutID(ctx context.Context, checkoutID uuid.UUID) ([]models.NotificationLog, error)
}

type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) SaveLog(ctx context.Context, log *models.NotificationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *GormNotificationRepository) FindByCheckoutID(ctx context.Context, checkoutID uuid.UUID) ([]models.NotificationLog, error) {
	var logs []models.NotificationLog
	err := r.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
