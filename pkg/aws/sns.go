package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSPublisher publishes a message to an SNS topic.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn, subject string, message []byte) (string, error)
}

type SNSClient struct {
	client *sns.Client
}

func NewSNSClient(cfg sdkaws.Config) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg)}
}

// Publish sends message to topicArn and returns the SNS message id.
func (s *SNSClient) Publish(ctx context.Context, topicArn, subject string, message []byte) (string, error) {
	if topicArn == "" {
		return "", fmt.Errorf("empty topicArn")
	}

	input := &sns.PublishInput{
		TopicArn: sdkaws.String(topicArn),
		Message:  sdkaws.String(string(message)),
	}
	if subject != "" {
		input.Subject = sdkaws.String(subject)
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("sns publish failed for topic %s: %w", topicArn, err)
	}
	return sdkaws.ToString(out.MessageId), nil
}
