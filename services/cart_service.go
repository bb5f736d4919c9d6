package services

import (
	"context"
	"errors"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/ehson1111/chocoberry-bot/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService mutates carts under the per-user lock and prices them for
// display.
type CartService interface {
	View(ctx context.Context, userID int64) (*models.CartView, error)
	// Add is AddOrIncrement: a new line or qty more of an existing one.
	Add(ctx context.Context, userID int64, productID uint, qty int) (*models.CartView, error)
	// Adjust changes the quantity by delta; reaching zero removes the line.
	Adjust(ctx context.Context, userID int64, productID uint, delta int) (*models.CartView, error)
	SetQuantity(ctx context.Context, userID int64, productID uint, qty int) (*models.CartView, error)
	Remove(ctx context.Context, userID int64, productID uint) (*models.CartView, error)
	Clear(ctx context.Context, userID int64) error
}

type cartService struct {
	carts   repository.CartRepository
	catalog Catalog
	ledger  repository.CashbackRepository
	locker  *UserLocker
	logger  *zap.Logger
}

func NewCartService(carts repository.CartRepository, catalog Catalog, ledger repository.CashbackRepository, locker *UserLocker, logger *zap.Logger) CartService {
	return &cartService{
		carts:   carts,
		catalog: catalog,
		ledger:  ledger,
		locker:  locker,
		logger:  logger,
	}
}

func (s *cartService) View(ctx context.Context, userID int64) (*models.CartView, error) {
	lines, err := s.carts.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, userID, lines)
}

func (s *cartService) Add(ctx context.Context, userID int64, productID uint, qty int) (*models.CartView, error) {
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, ErrInvalidQuantity
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, func() error {
		return s.carts.AddOrIncrement(ctx, userID, productID, qty)
	})
}

func (s *cartService) Adjust(ctx context.Context, userID int64, productID uint, delta int) (*models.CartView, error) {
	return s.mutate(ctx, userID, func() error {
		lines, err := s.carts.List(ctx, userID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if line.ProductID == productID {
				return s.carts.SetQuantity(ctx, userID, productID, line.Quantity+delta)
			}
		}
		if delta > 0 {
			if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
				return err
			}
			return s.carts.AddOrIncrement(ctx, userID, productID, delta)
		}
		return nil
	})
}

func (s *cartService) SetQuantity(ctx context.Context, userID int64, productID uint, qty int) (*models.CartView, error) {
	if qty > 0 {
		if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, userID, func() error {
		return s.carts.SetQuantity(ctx, userID, productID, qty)
	})
}

func (s *cartService) Remove(ctx context.Context, userID int64, productID uint) (*models.CartView, error) {
	return s.mutate(ctx, userID, func() error {
		return s.carts.Remove(ctx, userID, productID)
	})
}

func (s *cartService) Clear(ctx context.Context, userID int64) error {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()
	return s.carts.Clear(ctx, userID)
}

// mutate runs fn under the user's lock and renders the cart it leaves behind.
func (s *cartService) mutate(ctx context.Context, userID int64, fn func() error) (*models.CartView, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := fn(); err != nil {
		return nil, err
	}
	lines, err := s.carts.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, userID, lines)
}

func (s *cartService) render(ctx context.Context, userID int64, lines []models.CartLine) (*models.CartView, error) {
	view := &models.CartView{Items: make([]models.CartItemView, 0, len(lines)), Total: decimal.Zero}

	for _, line := range lines {
		p, err := s.catalog.GetProduct(ctx, line.ProductID)
		if errors.Is(err, ErrProductNotFound) {
			s.logger.Warn("cart line references missing product",
				zap.Int64("user_id", userID),
				zap.Uint("product_id", line.ProductID),
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		lineTotal := models.Money(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		view.Items = append(view.Items, models.CartItemView{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  line.Quantity,
			LineTotal: lineTotal,
		})
		view.Total = view.Total.Add(lineTotal)
	}

	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	view.CashbackBalance = balance
	return view, nil
}
