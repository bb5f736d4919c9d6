package services

import (
	"context"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/ehson1111/chocoberry-bot/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService exposes the cashback ledger outside of checkout (balance
// queries and manual adjustments).
type LedgerService interface {
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	ReserveAndDebit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Overview(ctx context.Context, userID int64, limit int) (*models.CashbackBalanceView, error)
}

type ledgerService struct {
	repo   repository.CashbackRepository
	locker *UserLocker
	logger *zap.Logger
}

func NewLedgerService(repo repository.CashbackRepository, locker *UserLocker, logger *zap.Logger) LedgerService {
	return &ledgerService{repo: repo, locker: locker, logger: logger}
}

func (s *ledgerService) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return s.repo.Balance(ctx, userID)
}

// ReserveAndDebit takes min(amount, balance) and returns what was taken.
func (s *ledgerService) ReserveAndDebit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	defer unlock()

	debited, err := s.repo.Debit(ctx, userID, models.Money(amount), nil)
	if err != nil {
		return decimal.Zero, err
	}
	s.logger.Info("cashback debited",
		zap.Int64("user_id", userID),
		zap.String("requested", amount.StringFixed(2)),
		zap.String("debited", debited.StringFixed(2)),
	)
	return debited, nil
}

func (s *ledgerService) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	defer unlock()

	balance, err := s.repo.Credit(ctx, userID, models.Money(amount), nil)
	if err != nil {
		return decimal.Zero, err
	}
	s.logger.Info("cashback credited",
		zap.Int64("user_id", userID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("balance", balance.StringFixed(2)),
	)
	return balance, nil
}

func (s *ledgerService) Overview(ctx context.Context, userID int64, limit int) (*models.CashbackBalanceView, error) {
	balance, err := s.repo.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.Entries(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return &models.CashbackBalanceView{Balance: balance, Entries: entries}, nil
}
