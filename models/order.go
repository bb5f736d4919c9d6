package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is one committed line of a checkout. Orders are written once by the
// commit and never updated. The (checkout_id, product_id) index makes a
// repeated commit of the same checkout fail instead of duplicating rows.
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CheckoutID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_checkout_product" json:"checkout_id"`
	TelegramID    int64           `gorm:"not null;index" json:"telegram_id"`
	ProductID     uint            `gorm:"not null;uniqueIndex:idx_order_checkout_product" json:"product_id"`
	Product       *Product        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ProductName   string          `gorm:"type:varchar(255);not null" json:"product_name"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	Total         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(10);not null" json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CommitPlan is everything a checkout commit writes, computed up front from
// the frozen session so that persistence is a single atomic step.
type CommitPlan struct {
	CheckoutID    uuid.UUID
	TelegramID    int64
	Orders        []Order
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	ClearCart     bool
	PaymentMethod PaymentMethod
	CommittedAt   time.Time
}

// CommitOutcome is what the store reports after applying a plan.
type CommitOutcome struct {
	Orders           []Order
	BalanceAfter     decimal.Decimal
	AlreadyCommitted bool
}

// OrderHistoryItem is one row of GET /orders.
type OrderHistoryItem struct {
	ID            uint            `json:"id"`
	CheckoutID    uuid.UUID       `json:"checkout_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

type OrderHistory struct {
	Orders []OrderHistoryItem `json:"orders"`
	Meta   MetaData           `json:"meta"`
}

// OrderCommittedEvent is published to the order events topic after a commit.
type OrderCommittedEvent struct {
	Event           string           `json:"event"`
	CheckoutID      string           `json:"checkout_id"`
	TelegramID      int64            `json:"telegram_id"`
	Items           []OrderEventItem `json:"items"`
	PreDiscount     decimal.Decimal  `json:"pre_discount_total"`
	CashbackApplied decimal.Decimal  `json:"cashback_applied"`
	FinalTotal      decimal.Decimal  `json:"final_total"`
	CashbackEarned  decimal.Decimal  `json:"cashback_earned"`
	PaymentMethod   PaymentMethod    `json:"payment_method"`
	Timestamp       time.Time        `json:"timestamp"`
}

type OrderEventItem struct {
	ProductID uint            `json:"product_id"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}
