package services

import (
	"context"
	"strings"
	"sync"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/ehson1111/chocoberry-bot/repository"
	"go.uber.org/zap"
)

// ProfileService owns chat users and the delivery details checkout needs.
type ProfileService interface {
	// Register records the user on first contact (and when their names
	// change) and opens a zero cashback account.
	Register(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	HasCompleteProfile(ctx context.Context, userID int64) (bool, error)
	GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest) (*models.UserProfile, error)
}

type profileService struct {
	users  repository.UserRepository
	ledger repository.CashbackRepository
	logger *zap.Logger

	// userID -> names last written, so repeat requests skip the upsert.
	known sync.Map
}

func NewProfileService(users repository.UserRepository, ledger repository.CashbackRepository, logger *zap.Logger) ProfileService {
	return &profileService{users: users, ledger: ledger, logger: logger}
}

func (s *profileService) Register(ctx context.Context, user *models.User) error {
	if user.TelegramID <= 0 {
		return ErrInvalidUser
	}
	fingerprint := user.Username + "\x00" + user.FirstName + "\x00" + user.LastName
	if prev, ok := s.known.Load(user.TelegramID); ok && prev.(string) == fingerprint {
		return nil
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return err
	}
	if _, err := s.ledger.Balance(ctx, user.TelegramID); err != nil {
		return err
	}
	s.known.Store(user.TelegramID, fingerprint)
	s.logger.Debug("user registered", zap.Int64("user_id", user.TelegramID))
	return nil
}

func (s *profileService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.GetUser(ctx, userID)
}

func (s *profileService) HasCompleteProfile(ctx context.Context, userID int64) (bool, error) {
	p, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	return p.IsComplete(), nil
}

// GetProfile returns an empty profile for users who never saved one.
func (s *profileService) GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	p, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &models.UserProfile{TelegramID: userID}, nil
	}
	return p, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest) (*models.UserProfile, error) {
	p := &models.UserProfile{
		TelegramID:  userID,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Address:     strings.TrimSpace(req.Address),
	}
	if err := s.users.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("profile updated", zap.Int64("user_id", userID))
	return p, nil
}
