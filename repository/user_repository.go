package repository

import (
	"context"
	"errors"

	"github.com/ehson1111/chocoberry-bot/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository stores chat users and their delivery profiles.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, profile *models.UserProfile) error
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Upsert creates the user or refreshes the names reported by the chat client.
func (r *GormUserRepository) Upsert(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "telegram_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "updated_at"}),
		}).
		Create(user).Error
}

// GetUser returns (nil, nil) for an unknown user.
func (r *GormUserRepository) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetProfile returns (nil, nil) when the user never saved a profile.
func (r *GormUserRepository) GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", userID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *GormUserRepository) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "telegram_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"phone_number", "address", "updated_at"}),
		}).
		Create(profile).Error
}
