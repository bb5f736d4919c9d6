package repository

import (
	"context"
	"fmt"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CashbackRepository is the cashback ledger. Every mutation locks the
// account row and journals a CashbackEntry in the same transaction.
type CashbackRepository interface {
	// Balance creates a zero account on first use.
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	// Debit takes min(amount, balance) and returns what was actually taken.
	Debit(ctx context.Context, userID int64, amount decimal.Decimal, checkoutID *uuid.UUID) (decimal.Decimal, error)
	// Credit adds amount and returns the new balance.
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, checkoutID *uuid.UUID) (decimal.Decimal, error)
	Entries(ctx context.Context, userID int64, limit int) ([]models.CashbackEntry, error)
}

type GormCashbackRepository struct {
	db *gorm.DB
}

func NewGormCashbackRepository(db *gorm.DB) *GormCashbackRepository {
	return &GormCashbackRepository{db: db}
}

func (r *GormCashbackRepository) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	db := r.db.WithContext(ctx)
	if err := ensureAccount(db, userID); err != nil {
		return decimal.Zero, err
	}
	var acct models.CashbackAccount
	if err := db.Where("telegram_id = ?", userID).First(&acct).Error; err != nil {
		return decimal.Zero, err
	}
	return acct.Balance, nil
}

func (r *GormCashbackRepository) Debit(ctx context.Context, userID int64, amount decimal.Decimal, checkoutID *uuid.UUID) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	var debited decimal.Decimal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := lockAccount(tx, userID)
		if err != nil {
			return err
		}
		debited = decimal.Min(models.Money(amount), acct.Balance)
		if !debited.IsPositive() {
			return nil
		}
		_, err = applyEntry(tx, acct, models.EntryDebit, debited, checkoutID)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return debited, nil
}

func (r *GormCashbackRepository) Credit(ctx context.Context, userID int64, amount decimal.Decimal, checkoutID *uuid.UUID) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	var balance decimal.Decimal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := lockAccount(tx, userID)
		if err != nil {
			return err
		}
		balance = acct.Balance
		if !amount.IsPositive() {
			return nil
		}
		balance, err = applyEntry(tx, acct, models.EntryCredit, models.Money(amount), checkoutID)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Entries returns the newest journal entries first.
func (r *GormCashbackRepository) Entries(ctx context.Context, userID int64, limit int) ([]models.CashbackEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var entries []models.CashbackEntry
	err := r.db.WithContext(ctx).
		Where("telegram_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func ensureAccount(tx *gorm.DB, userID int64) error {
	acct := models.CashbackAccount{TelegramID: userID, Balance: decimal.Zero}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&acct).Error; err != nil {
		return fmt.Errorf("ensure cashback account: %w", err)
	}
	return nil
}

// lockAccount must run inside a transaction; the row stays locked until it ends.
func lockAccount(tx *gorm.DB, userID int64) (*models.CashbackAccount, error) {
	if err := ensureAccount(tx, userID); err != nil {
		return nil, err
	}
	var acct models.CashbackAccount
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("telegram_id = ?", userID).
		First(&acct).Error; err != nil {
		return nil, fmt.Errorf("lock cashback account: %w", err)
	}
	return &acct, nil
}

// applyEntry moves acct's balance by amount and journals it. A debit larger
// than the balance fails with ErrLedgerUnderflow.
func applyEntry(tx *gorm.DB, acct *models.CashbackAccount, kind models.EntryKind, amount decimal.Decimal, checkoutID *uuid.UUID) (decimal.Decimal, error) {
	next := acct.Balance.Add(amount)
	if kind == models.EntryDebit {
		if amount.GreaterThan(acct.Balance) {
			return acct.Balance, ErrLedgerUnderflow
		}
		next = acct.Balance.Sub(amount)
	}

	if err := tx.Model(&models.CashbackAccount{}).
		Where("telegram_id = ?", acct.TelegramID).
		Update("balance", next).Error; err != nil {
		return acct.Balance, fmt.Errorf("update cashback balance: %w", err)
	}

	entry := models.CashbackEntry{
		TelegramID:   acct.TelegramID,
		CheckoutID:   checkoutID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: next,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return acct.Balance, fmt.Errorf("journal cashback %s: %w", kind, err)
	}

	acct.Balance = next
	return next, nil
}
