package models

import (
	"strings"
	"time"
)

// User is a chat user keyed by their Telegram id.
type User struct {
	TelegramID int64     `gorm:"primaryKey;autoIncrement:false" json:"telegram_id"`
	Username   string    `gorm:"type:varchar(64)" json:"username,omitempty"`
	FirstName  string    `gorm:"type:varchar(128)" json:"first_name,omitempty"`
	LastName   string    `gorm:"type:varchar(128)" json:"last_name,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DisplayName is the first and last name, or the username when both are empty.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// UserProfile holds the delivery details required before checkout.
type UserProfile struct {
	TelegramID  int64     `gorm:"primaryKey;autoIncrement:false" json:"telegram_id"`
	PhoneNumber string    `gorm:"type:varchar(32)" json:"phone_number"`
	Address     string    `gorm:"type:text" json:"address"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *UserProfile) IsComplete() bool {
	return p != nil && strings.TrimSpace(p.PhoneNumber) != "" && strings.TrimSpace(p.Address) != ""
}

// UpdateProfileRequest is the payload of PUT /profile.
type UpdateProfileRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,min=5,max=32"`
	Address     string `json:"address" binding:"required,min=3,max=500"`
}
