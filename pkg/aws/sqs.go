package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// MessageHandler processes one message body. A non-nil error leaves the
// message on the queue so it becomes visible again after the visibility timeout.
type MessageHandler func(ctx context.Context, body string) error

// SQSQueue sends to and long-polls a single SQS queue.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
	logger   *zap.Logger
}

func NewSQSQueue(cfg sdkaws.Config, queueURL string, logger *zap.Logger) *SQSQueue {
	return &SQSQueue{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
		logger:   logger,
	}
}

// SendMessage enqueues body, optionally delayed by up to 15 minutes.
func (q *SQSQueue) SendMessage(ctx context.Context, body string, delay time.Duration) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    sdkaws.String(q.queueURL),
		MessageBody: sdkaws.String(body),
	}
	if delay > 0 {
		if delay > 15*time.Minute {
			delay = 15 * time.Minute
		}
		input.DelaySeconds = int32(delay / time.Second)
	}

	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// StartPolling runs until ctx is cancelled.
func (q *SQSQueue) StartPolling(ctx context.Context, handler MessageHandler) error {
	q.logger.Info("SQS polling started", zap.String("queue", q.queueURL))

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("SQS polling stopped", zap.String("queue", q.queueURL))
			return ctx.Err()
		default:
			if err := q.pollOnce(ctx, handler); err != nil && ctx.Err() == nil {
				q.logger.Error("SQS poll failed", zap.Error(err))
				time.Sleep(5 * time.Second)
			}
		}
	}
}

func (q *SQSQueue) pollOnce(ctx context.Context, handler MessageHandler) error {
	result, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            sdkaws.String(q.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   60,
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, msg := range result.Messages {
		if msg.Body == nil {
			continue
		}

		if err := handler(ctx, *msg.Body); err != nil {
			q.logger.Warn("message handler failed, leaving message for redelivery",
				zap.String("message_id", sdkaws.ToString(msg.MessageId)),
				zap.Error(err),
			)
			continue
		}

		if _, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      sdkaws.String(q.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			q.logger.Error("failed to delete SQS message", zap.Error(err))
		}
	}

	return nil
}
