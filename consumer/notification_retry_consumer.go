package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ehson1111/chocoberry-bot/models"
	awspkg "github.com/ehson1111/chocoberry-bot/pkg/aws"
	"go.uber.org/zap"
)

// Redeliverer resends a queued staff notification.
type Redeliverer interface {
	Redeliver(ctx context.Context, retry models.NotificationRetry) error
}

// NotificationRetryConsumer drains the notification retry queue.
type NotificationRetryConsumer struct {
	queue    *awspkg.SQSQueue
	notifier Redeliverer
	logger   *zap.Logger
}

func NewNotificationRetryConsumer(queue *awspkg.SQSQueue, notifier Redeliverer, logger *zap.Logger) *NotificationRetryConsumer {
	return &NotificationRetryConsumer{queue: queue, notifier: notifier, logger: logger}
}

// Start blocks until ctx is cancelled.
func (c *NotificationRetryConsumer) Start(ctx context.Context) {
	c.logger.Info("notification retry consumer started")
	if err := c.queue.StartPolling(ctx, c.Handle); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("notification retry consumer stopped", zap.Error(err))
	}
}

// Handle processes one queue message. Unparseable bodies are dropped.
func (c *NotificationRetryConsumer) Handle(ctx context.Context, body string) error {
	var retry models.NotificationRetry
	if err := json.Unmarshal([]byte(body), &retry); err != nil {
		c.logger.Error("dropping malformed notification retry", zap.Error(err))
		return nil
	}
	if retry.Text == "" {
		c.logger.Error("dropping empty notification retry", zap.String("checkout_id", retry.CheckoutID.String()))
		return nil
	}
	return c.notifier.Redeliver(ctx, retry)
}
