package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product in a user's cart. Quantity is always positive; a
// line whose quantity would reach zero is deleted instead. ID orders lines by
// insertion.
type CartLine struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TelegramID int64     `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"telegram_id"`
	ProductID  uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Product    *Product  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Quantity   int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CartItemView is a cart line priced at the current catalog price.
type CartItemView struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartView struct {
	Items           []CartItemView  `json:"items"`
	Total           decimal.Decimal `json:"total"`
	CashbackBalance decimal.Decimal `json:"cashback_balance"`
}

type AddCartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"omitempty,min=1,max=1000"`
}

type SetQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,max=1000"`
}
