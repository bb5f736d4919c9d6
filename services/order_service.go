package services

import (
	"context"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/ehson1111/chocoberry-bot/repository"
	"go.uber.org/zap"
)

type OrderService interface {
	History(ctx context.Context, userID int64, page, limit int) (*models.OrderHistory, error)
}

type orderService struct {
	repo   repository.OrderRepository
	logger *zap.Logger
}

func NewOrderService(repo repository.OrderRepository, logger *zap.Logger) OrderService {
	return &orderService{repo: repo, logger: logger}
}

// History lists the user's orders newest first.
func (s *orderService) History(ctx context.Context, userID int64, page, limit int) (*models.OrderHistory, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	orders, total, err := s.repo.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		s.logger.Error("failed to load order history", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	items := make([]models.OrderHistoryItem, 0, len(orders))
	for _, o := range orders {
		items = append(items, models.OrderHistoryItem{
			ID:            o.ID,
			CheckoutID:    o.CheckoutID,
			ProductName:   o.ProductName,
			Quantity:      o.Quantity,
			Total:         o.Total,
			PaymentMethod: o.PaymentMethod,
			CreatedAt:     o.CreatedAt,
		})
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	return &models.OrderHistory{
		Orders: items,
		Meta: models.MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  totalPages,
			HasMore:     int64(page) < totalPages,
		},
	}, nil
}
