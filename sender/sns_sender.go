package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/ehson1111/chocoberry-bot/models"
	awspkg "github.com/ehson1111/chocoberry-bot/pkg/aws"
)

// SNSSender fans the summary out through an SNS topic that staff subscribe to.
type SNSSender struct {
	publisher awspkg.SNSPublisher
	topicArn  string
}

func NewSNSSender(publisher awspkg.SNSPublisher, topicArn string) (*SNSSender, error) {
	if topicArn == "" {
		return nil, fmt.Errorf("STAFF_SNS_TOPIC_ARN not set")
	}
	return &SNSSender{publisher: publisher, topicArn: topicArn}, nil
}

func (s *SNSSender) Channel() string {
	return models.ChannelSNS
}

func (s *SNSSender) Send(ctx context.Context, text string) (SendResult, error) {
	id, err := s.publisher.Publish(ctx, s.topicArn, "New order", []byte(text))
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{MessageID: id, SentAt: time.Now()}, nil
}
