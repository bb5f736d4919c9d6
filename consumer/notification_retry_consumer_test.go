package consumer_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ehson1111/chocoberry-bot/consumer"
	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRedeliverer struct {
	got []models.NotificationRetry
	err error
}

func (m *mockRedeliverer) Redeliver(_ context.Context, retry models.NotificationRetry) error {
	m.got = append(m.got, retry)
	return m.err
}

func TestHandle_Redelivers(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	r := &mockRedeliverer{}
	c := consumer.NewNotificationRetryConsumer(nil, r, logger)

	retry := models.NotificationRetry{CheckoutID: uuid.New(), TelegramID: 7, Text: "summary", Attempt: 2}
	body, _ := json.Marshal(retry)

	require.NoError(t, c.Handle(context.Background(), string(body)))
	require.Len(t, r.got, 1)
	assert.Equal(t, retry, r.got[0])
}

func TestHandle_PropagatesRedeliveryError(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	r := &mockRedeliverer{err: errors.New("queue down")}
	c := consumer.NewNotificationRetryConsumer(nil, r, logger)

	body, _ := json.Marshal(models.NotificationRetry{CheckoutID: uuid.New(), Text: "x", Attempt: 1})
	assert.Error(t, c.Handle(context.Background(), string(body)))
}

func TestHandle_DropsMalformed(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	r := &mockRedeliverer{}
	c := consumer.NewNotificationRetryConsumer(nil, r, logger)

	assert.NoError(t, c.Handle(context.Background(), "{not json"))
	assert.NoError(t, c.Handle(context.Background(), `{"attempt":1}`))
	assert.Empty(t, r.got)
}
