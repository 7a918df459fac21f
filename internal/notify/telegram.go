package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTelegramAPIBase = "https://api.telegram.org"

// TelegramNotifier delivers alerts through the Telegram Bot API.
type TelegramNotifier struct {
	client  *http.Client
	apiBase string
	token   string
	chatID  string
}

// NewTelegramNotifier builds a notifier for the given bot token and chat.
// apiBase overrides the Bot API host, mainly for tests; empty uses the
// public endpoint.
func NewTelegramNotifier(token, chatID, apiBase string, timeout time.Duration) (*TelegramNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	if apiBase == "" {
		apiBase = defaultTelegramAPIBase
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TelegramNotifier{
		client:  &http.Client{Timeout: timeout},
		apiBase: strings.TrimRight(apiBase, "/"),
		token:   token,
		chatID:  chatID,
	}, nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (n *TelegramNotifier) Notify(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    n.chatID,
		Text:      RenderMarkdown(alert),
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	var result sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode telegram response (status %s): %w", resp.Status, err)
	}
	if !result.OK {
		return fmt.Errorf("telegram rejected message (status %s): %s", resp.Status, result.Description)
	}
	return nil
}
