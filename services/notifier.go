package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ehson1111/chocoberry-bot/models"
	awspkg "github.com/ehson1111/chocoberry-bot/pkg/aws"
	"github.com/ehson1111/chocoberry-bot/repository"
	"github.com/ehson1111/chocoberry-bot/sender"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxNotifyAttempts bounds queued redelivery of one staff notification.
const MaxNotifyAttempts = 5

// RetryQueue holds failed notifications for later redelivery.
type RetryQueue interface {
	SendMessage(ctx context.Context, body string, delay time.Duration) error
}

// EventPublisher announces committed orders to downstream consumers.
type EventPublisher interface {
	PublishOrderCommitted(ctx context.Context, event models.OrderCommittedEvent) error
}

// Notification is one committed checkout to announce.
type Notification struct {
	CheckoutID uuid.UUID
	TelegramID int64
	Text       string
	Event      *models.OrderCommittedEvent
}

// Dispatcher sends notifications without blocking the caller.
type Dispatcher interface {
	Dispatch(n Notification) <-chan error
}

// OrderNotifier delivers staff summaries in the background. A failed
// delivery is journaled, queued for redelivery when a queue is configured,
// and reported on the channel returned by Dispatch. It never touches the
// committed order.
type OrderNotifier struct {
	sender  sender.StaffSender
	logs    repository.NotificationRepository
	retries RetryQueue
	events  EventPublisher
	metrics *awspkg.MetricsClient
	timeout time.Duration
	logger  *zap.Logger

	wg sync.WaitGroup
}

// NewOrderNotifier builds a notifier. retries and events may be nil.
func NewOrderNotifier(
	s sender.StaffSender,
	logs repository.NotificationRepository,
	retries RetryQueue,
	events EventPublisher,
	metrics *awspkg.MetricsClient,
	timeout time.Duration,
	logger *zap.Logger,
) *OrderNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OrderNotifier{
		sender:  s,
		logs:    logs,
		retries: retries,
		events:  events,
		metrics: metrics,
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch returns immediately. The channel yields nil or a
// *NotificationDeliveryError once and is then closed. The order event is
// published after the delivery outcome is reported, on its own deadline.
func (n *OrderNotifier) Dispatch(note Notification) <-chan error {
	done := make(chan error, 1)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer close(done)

		sendCtx, cancel := context.WithTimeout(context.Background(), n.timeout)
		err := n.deliver(sendCtx, note.CheckoutID, note.TelegramID, note.Text, 1)
		cancel()

		if err != nil {
			n.enqueue(models.NotificationRetry{
				CheckoutID: note.CheckoutID,
				TelegramID: note.TelegramID,
				Text:       note.Text,
				Attempt:    1,
			})
			done <- &NotificationDeliveryError{CheckoutID: note.CheckoutID, Err: err}
		} else {
			done <- nil
		}

		n.publish(note)
	}()

	return done
}

func (n *OrderNotifier) publish(note Notification) {
	if note.Event == nil || n.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	if err := n.events.PublishOrderCommitted(ctx, *note.Event); err != nil {
		n.logger.Warn("order event not published",
			zap.String("checkout_id", note.CheckoutID.String()),
			zap.Error(err),
		)
	}
}

// Redeliver handles a queued retry. It only fails when the retry itself
// cannot be re-queued, so the queue redelivers the message.
func (n *OrderNotifier) Redeliver(ctx context.Context, retry models.NotificationRetry) error {
	attempt := retry.Attempt + 1

	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.deliver(sendCtx, retry.CheckoutID, retry.TelegramID, retry.Text, attempt); err == nil {
		return nil
	}
	if attempt >= MaxNotifyAttempts {
		n.logger.Error("staff notification abandoned",
			zap.String("checkout_id", retry.CheckoutID.String()),
			zap.Int("attempts", attempt),
		)
		return nil
	}

	retry.Attempt = attempt
	if !n.enqueue(retry) {
		return fmt.Errorf("requeue notification for checkout %s", retry.CheckoutID)
	}
	return nil
}

// Wait blocks until in-flight dispatches finish or ctx is done.
func (n *OrderNotifier) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *OrderNotifier) deliver(ctx context.Context, checkoutID uuid.UUID, telegramID int64, text string, attempt int) error {
	res, err := n.sender.Send(ctx, text)

	entry := &models.NotificationLog{
		CheckoutID: checkoutID,
		TelegramID: telegramID,
		Channel:    n.sender.Channel(),
		Status:     models.StatusSent,
		MessageID:  res.MessageID,
		Attempt:    attempt,
	}
	if err != nil {
		entry.Status = models.StatusFailed
		entry.Error = err.Error()
		n.logger.Warn("staff notification failed",
			zap.String("checkout_id", checkoutID.String()),
			zap.String("channel", entry.Channel),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		n.record(awspkg.MetricNotificationFailures)
	} else {
		n.logger.Info("staff notification sent",
			zap.String("checkout_id", checkoutID.String()),
			zap.String("channel", entry.Channel),
			zap.String("message_id", res.MessageID),
			zap.Int("attempt", attempt),
		)
		n.record(awspkg.MetricNotificationsSent)
	}

	n.journal(entry)
	return err
}

// enqueue and journal run on their own deadline: the send that failed may
// have used up the delivery context.
func (n *OrderNotifier) enqueue(retry models.NotificationRetry) bool {
	if n.retries == nil {
		return false
	}
	body, err := json.Marshal(retry)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	delay := time.Duration(retry.Attempt*retry.Attempt) * 30 * time.Second
	if err := n.retries.SendMessage(ctx, string(body), delay); err != nil {
		n.logger.Error("failed to queue notification retry",
			zap.String("checkout_id", retry.CheckoutID.String()),
			zap.Error(err),
		)
		return false
	}

	n.journal(&models.NotificationLog{
		CheckoutID: retry.CheckoutID,
		TelegramID: retry.TelegramID,
		Channel:    n.sender.Channel(),
		Status:     models.StatusQueued,
		Attempt:    retry.Attempt,
	})
	return true
}

func (n *OrderNotifier) journal(entry *models.NotificationLog) {
	if n.logs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	if err := n.logs.SaveLog(ctx, entry); err != nil {
		n.logger.Error("failed to save notification log",
			zap.String("checkout_id", entry.CheckoutID.String()),
			zap.String("status", entry.Status),
			zap.Error(err),
		)
	}
}

func (n *OrderNotifier) record(metric string) {
	if !n.metrics.IsEnabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = n.metrics.RecordCount(ctx, metric, nil)
}
