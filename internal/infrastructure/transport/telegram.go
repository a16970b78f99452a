// Package transport implements the outbound side of the chat transport: a
// thin adapter that hands reply text to the Telegram Bot API. Inbound
// delivery, formatting, and transport-level retries stay outside the core.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const sendTimeout = 10 * time.Second

// TelegramSender delivers replies to users via sendMessage.
type TelegramSender struct {
	http     *http.Client
	endpoint string
	logger   zerolog.Logger
}

func NewTelegramSender(token string, logger zerolog.Logger) *TelegramSender {
	return &TelegramSender{
		http:     &http.Client{Timeout: sendTimeout},
		endpoint: fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", token),
		logger:   logger,
	}
}

func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(map[string]any{
		"chat_id":    chatID,
		"text":       SanitizeHTML(text),
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send message: telegram returned %d", resp.StatusCode)
	}

	s.logger.Debug().Int64("chat_id", chatID).Int("chars", len(text)).Msg("reply delivered")
	return nil
}
