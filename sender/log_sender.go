package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/ehson1111/chocoberry-bot/models"
	"go.uber.org/zap"
)

// LogSender writes summaries to the application log. Used in development
// when no staff channel is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Channel() string {
	return models.ChannelLog
}

func (s *LogSender) Send(_ context.Context, text string) (SendResult, error) {
	now := time.Now()
	s.logger.Info("staff notification", zap.String("text", text))
	return SendResult{MessageID: fmt.Sprintf("log-%d", now.UnixNano()), SentAt: now}, nil
}
