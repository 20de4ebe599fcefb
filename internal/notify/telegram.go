package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/polywatch/polywatch/internal/domain"
)

// TelegramSender broadcasts notifications to a list of chat IDs via the
// Telegram Bot API. Messages are sent with HTML parse mode, matching the
// markup produced by FormatActivity.
type TelegramSender struct {
	token   string
	chatIDs []string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and chat
// IDs. It uses a default HTTP client with a 10-second timeout.
func NewTelegramSender(token string, chatIDs []string) *TelegramSender {
	return &TelegramSender{
		token:   token,
		chatIDs: chatIDs,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the message to every configured chat. A missing bot token fails
// the whole call; an empty chat list succeeds as a no-op. The first per-chat
// failure aborts the broadcast so partial outages surface quickly.
func (t *TelegramSender) Send(ctx context.Context, text string) error {
	if t.token == "" {
		return fmt.Errorf("telegram: bot token %w", domain.ErrNotConfigured)
	}
	if len(t.chatIDs) == 0 {
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	for _, chatID := range t.chatIDs {
		payload := map[string]string{
			"chat_id":    chatID,
			"text":       text,
			"parse_mode": "HTML",
		}

		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("telegram: marshal payload: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("telegram: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			return fmt.Errorf("telegram: send to chat %s: %w", chatID, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			return fmt.Errorf("telegram: chat %s: unexpected status %d: %s", chatID, resp.StatusCode, string(respBody))
		}
		resp.Body.Close()
	}

	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
