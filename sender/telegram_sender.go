package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ehson1111/chocoberry-bot/models"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramSender posts to the staff group chat through the Bot API.
type TelegramSender struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
}

func NewTelegramSender(baseURL, token, chatID string) (*TelegramSender, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	if chatID == "" {
		return nil, fmt.Errorf("STAFF_CHAT_ID not set")
	}
	if baseURL == "" {
		baseURL = defaultTelegramAPI
	}

	return &TelegramSender{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (t *TelegramSender) Channel() string {
	return models.ChannelTelegram
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

func (t *TelegramSender) Send(ctx context.Context, text string) (SendResult, error) {
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return SendResult{}, fmt.Errorf("telegram error %s: %s", resp.Status, string(respBody))
	}

	var out sendMessageResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return SendResult{}, fmt.Errorf("telegram response unreadable: %w", err)
	}
	if !out.OK {
		return SendResult{}, fmt.Errorf("telegram rejected message: %s", out.Description)
	}

	return SendResult{
		MessageID: strconv.FormatInt(out.Result.MessageID, 10),
		SentAt:    time.Now(),
	}, nil
}
