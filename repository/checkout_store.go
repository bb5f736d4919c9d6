package repository

import (
	"context"
	"fmt"

	"github.com/ehson1111/chocoberry-bot/models"
	"gorm.io/gorm"
)

// CheckoutStore applies a commit plan atomically: cashback debit, orders,
// cashback credit and cart clear succeed or fail together.
type CheckoutStore interface {
	Commit(ctx context.Context, plan *models.CommitPlan) (*models.CommitOutcome, error)
}

type GormCheckoutStore struct {
	db *gorm.DB
}

func NewGormCheckoutStore(db *gorm.DB) *GormCheckoutStore {
	return &GormCheckoutStore{db: db}
}

// Commit is idempotent per checkout id: if orders for plan.CheckoutID already
// exist nothing is written and the stored orders are returned.
func (s *GormCheckoutStore) Commit(ctx context.Context, plan *models.CommitPlan) (*models.CommitOutcome, error) {
	outcome := &models.CommitOutcome{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := lockAccount(tx, plan.TelegramID)
		if err != nil {
			return err
		}

		var existing []models.Order
		if err := tx.Where("checkout_id = ?", plan.CheckoutID).Order("id ASC").Find(&existing).Error; err != nil {
			return fmt.Errorf("check prior commit: %w", err)
		}
		if len(existing) > 0 {
			outcome.AlreadyCommitted = true
			outcome.Orders = existing
			outcome.BalanceAfter = acct.Balance
			return nil
		}

		checkoutID := plan.CheckoutID
		if plan.Debit.IsPositive() {
			if _, err := applyEntry(tx, acct, models.EntryDebit, plan.Debit, &checkoutID); err != nil {
				return err
			}
		}

		orders := make([]models.Order, len(plan.Orders))
		copy(orders, plan.Orders)
		if len(orders) > 0 {
			if err := tx.Omit("Product").Create(&orders).Error; err != nil {
				return fmt.Errorf("insert orders: %w", err)
			}
		}

		if plan.Credit.IsPositive() {
			if _, err := applyEntry(tx, acct, models.EntryCredit, plan.Credit, &checkoutID); err != nil {
				return err
			}
		}

		if plan.ClearCart {
			if err := tx.Where("telegram_id = ?", plan.TelegramID).Delete(&models.CartLine{}).Error; err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		}

		outcome.Orders = orders
		outcome.BalanceAfter = acct.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}
