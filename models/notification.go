package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChannelTelegram = "telegram"
	ChannelSNS      = "sns"
	ChannelLog      = "log"

	StatusSent   = "sent"
	StatusFailed = "failed"
	StatusQueued = "queued"
)

// NotificationLog records every attempt to deliver a staff order summary.
type NotificationLog struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	CheckoutID uuid.UUID `json:"checkout_id" gorm:"type:uuid;not null;index"`
	TelegramID int64     `json:"telegram_id" gorm:"not null;index"`
	Channel    string    `json:"channel" gorm:"type:varchar(20);not null"`
	Status     string    `json:"status" gorm:"type:varchar(20);not null"`
	MessageID  string    `json:"message_id,omitempty" gorm:"type:varchar(128)"`
	Error      string    `json:"error,omitempty" gorm:"type:text"`
	Attempt    int       `json:"attempt" gorm:"not null;default:1"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// NotificationRetry is the queued form of a failed staff notification.
type NotificationRetry struct {
	CheckoutID uuid.UUID `json:"checkout_id"`
	TelegramID int64     `json:"telegram_id"`
	Text       string    `json:"text"`
	Attempt    int       `json:"attempt"`
}
