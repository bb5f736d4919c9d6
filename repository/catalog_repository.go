package repository

import (
	"context"
	"errors"

	"github.com/ehson1111/chocoberry-bot/models"
	"gorm.io/gorm"
)

// CatalogRepository is the read side of the product catalog.
type CatalogRepository interface {
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
}

type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// GetProduct returns ErrProductNotFound when id is unknown.
func (r *GormCatalogRepository) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}
