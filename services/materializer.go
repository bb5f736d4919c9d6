package services

import (
	"fmt"
	"time"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/shopspring/decimal"
)

// Materialize turns a session that has a payment method into the orders,
// ledger movements and cart clear that committing it must write. It performs
// no I/O and rejects sessions whose money does not balance.
func Materialize(s *models.CheckoutSession, now time.Time) (*models.CommitPlan, error) {
	if s.PaymentMethod == "" {
		return nil, fmt.Errorf("checkout %s has no payment method", s.ID)
	}
	if len(s.Lines) == 0 {
		return nil, fmt.Errorf("checkout %s has no lines", s.ID)
	}

	sum := decimal.Zero
	orders := make([]models.Order, 0, len(s.Lines))
	for _, line := range s.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("checkout %s: product %d has quantity %d", s.ID, line.ProductID, line.Quantity)
		}
		if !line.LineTotal.Equal(models.Money(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))) {
			return nil, fmt.Errorf("checkout %s: product %d line total does not match price", s.ID, line.ProductID)
		}
		sum = sum.Add(line.LineTotal)
		orders = append(orders, models.Order{
			CheckoutID:    s.ID,
			TelegramID:    s.TelegramID,
			ProductID:     line.ProductID,
			ProductName:   line.Name,
			UnitPrice:     line.UnitPrice,
			Quantity:      line.Quantity,
			Total:         line.LineTotal,
			PaymentMethod: s.PaymentMethod,
			CreatedAt:     now,
		})
	}

	if !sum.Equal(s.PreDiscountTotal) {
		return nil, fmt.Errorf("checkout %s: lines sum to %s, total is %s", s.ID, sum, s.PreDiscountTotal)
	}
	if s.CashbackApplied.IsNegative() || s.CashbackApplied.GreaterThan(s.MaxRedeemable()) {
		return nil, fmt.Errorf("checkout %s: cashback %s outside [0, %s]", s.ID, s.CashbackApplied, s.MaxRedeemable())
	}

	return &models.CommitPlan{
		CheckoutID:    s.ID,
		TelegramID:    s.TelegramID,
		Orders:        orders,
		Debit:         s.CashbackApplied,
		Credit:        models.EarnedCashback(s.FinalTotal()),
		ClearCart:     true,
		PaymentMethod: s.PaymentMethod,
		CommittedAt:   now,
	}, nil
}
