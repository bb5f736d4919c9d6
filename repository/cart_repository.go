package repository

import (
	"context"

	"github.com/ehson1111/chocoberry-bot/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository stores per-user cart lines. Callers serialize mutations for
// a user; the unique (telegram_id, product_id) index backs that up.
type CartRepository interface {
	List(ctx context.Context, userID int64) ([]models.CartLine, error)
	AddOrIncrement(ctx context.Context, userID int64, productID uint, qty int) error
	SetQuantity(ctx context.Context, userID int64, productID uint, qty int) error
	Remove(ctx context.Context, userID int64, productID uint) error
	Clear(ctx context.Context, userID int64) error
}

type GormCartRepository struct {
	db *gorm.DB
}

func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// List returns the lines in insertion order.
func (r *GormCartRepository) List(ctx context.Context, userID int64) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("telegram_id = ? AND quantity > 0", userID).
		Order("id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// AddOrIncrement inserts the line or adds qty to the existing quantity.
func (r *GormCartRepository) AddOrIncrement(ctx context.Context, userID int64, productID uint, qty int) error {
	line := models.CartLine{TelegramID: userID, ProductID: productID, Quantity: qty}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "telegram_id"}, {Name: "product_id"}},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "quantity"}, Value: gorm.Expr("cart_lines.quantity + EXCLUDED.quantity")},
				{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("EXCLUDED.updated_at")},
			},
		}).
		Create(&line).Error
}

// SetQuantity overwrites the quantity; qty <= 0 deletes the line.
func (r *GormCartRepository) SetQuantity(ctx context.Context, userID int64, productID uint, qty int) error {
	if qty <= 0 {
		return r.Remove(ctx, userID, productID)
	}
	line := models.CartLine{TelegramID: userID, ProductID: productID, Quantity: qty}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "telegram_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(&line).Error
}

func (r *GormCartRepository) Remove(ctx context.Context, userID int64, productID uint) error {
	return r.db.WithContext(ctx).
		Where("telegram_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartLine{}).Error
}

func (r *GormCartRepository) Clear(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("telegram_id = ?", userID).
		Delete(&models.CartLine{}).Error
}
