package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashbackRate is the share of the amount paid that is returned as cashback.
var CashbackRate = decimal.RequireFromString("0.05")

// MoneyPlaces is the number of fractional digits every stored amount keeps.
const MoneyPlaces = 2

// Money rounds d half away from zero to MoneyPlaces digits.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// EarnedCashback is the rebate on amountPaid.
func EarnedCashback(amountPaid decimal.Decimal) decimal.Decimal {
	return Money(amountPaid.Mul(CashbackRate))
}

// CashbackAccount is a user's stored-value balance. It is created with a zero
// balance the first time it is needed and never goes negative.
type CashbackAccount struct {
	TelegramID int64           `gorm:"primaryKey;autoIncrement:false" json:"telegram_id"`
	Balance    decimal.Decimal `gorm:"type:numeric(12,2);not null;check:balance >= 0" json:"balance"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type EntryKind string

const (
	EntryDebit  EntryKind = "debit"
	EntryCredit EntryKind = "credit"
)

// CashbackEntry journals every balance change. At most one entry of each
// kind exists per checkout.
type CashbackEntry struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	TelegramID   int64           `gorm:"not null;index" json:"telegram_id"`
	CheckoutID   *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_cashback_entry_checkout_kind" json:"checkout_id,omitempty"`
	Kind         EntryKind       `gorm:"type:varchar(10);not null;uniqueIndex:idx_cashback_entry_checkout_kind" json:"kind"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"balance_after"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// CashbackBalanceView is the response of GET /cashback.
type CashbackBalanceView struct {
	Balance decimal.Decimal `json:"balance"`
	Entries []CashbackEntry `json:"entries,omitempty"`
}
