package sender_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ehson1111/chocoberry-bot/sender"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramSender_Send(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`))
	}))
	defer srv.Close()

	s, err := sender.NewTelegramSender(srv.URL, "TOKEN", "-100123")
	require.NoError(t, err)

	res, err := s.Send(context.Background(), "<b>New order</b>")
	require.NoError(t, err)

	assert.Equal(t, "42", res.MessageID)
	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "-100123", got["chat_id"])
	assert.Equal(t, "<b>New order</b>", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, "telegram", s.Channel())
}

func TestTelegramSender_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Forbidden: bot was kicked"}`))
	}))
	defer srv.Close()

	s, err := sender.NewTelegramSender(srv.URL, "TOKEN", "-100123")
	require.NoError(t, err)

	_, err = s.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestTelegramSender_NotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	s, err := sender.NewTelegramSender(srv.URL, "TOKEN", "-100123")
	require.NoError(t, err)

	_, err = s.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestNewTelegramSender_RequiresConfig(t *testing.T) {
	_, err := sender.NewTelegramSender("", "", "-1")
	assert.Error(t, err)

	_, err = sender.NewTelegramSender("", "TOKEN", "")
	assert.Error(t, err)
}
