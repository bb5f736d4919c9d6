package sender

import (
	"context"
	"time"
)

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// StaffSender delivers a rendered order summary to fulfillment staff.
type StaffSender interface {
	Send(ctx context.Context, text string) (SendResult, error)
	Channel() string
}
