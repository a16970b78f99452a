// Package notify delivers operator alerts to the admin chat through the
// Telegram Bot API. Delivery is fire-and-forget: a failed alert is logged and
// dropped, never surfaced to the caller.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/postpilot/content-system/internal/core/ports"
)

const sendTimeout = 10 * time.Second

// TelegramNotifier posts formatted alerts to a fixed admin chat.
type TelegramNotifier struct {
	http     *http.Client
	endpoint string
	chatID   int64
	logger   zerolog.Logger
}

// NewTelegramNotifier builds a notifier for the given bot token and admin chat.
func NewTelegramNotifier(token string, adminChatID int64, logger zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		http:     &http.Client{Timeout: sendTimeout},
		endpoint: fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", token),
		chatID:   adminChatID,
		logger:   logger,
	}
}

// Notify formats and sends the alert in the background. The pipeline never
// waits on, or learns about, delivery.
func (n *TelegramNotifier) Notify(ctx context.Context, alert ports.Notification) {
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()

		text := fmt.Sprintf("⚠️ %s\nstage: %s\nuser: %s\n%s",
			alert.Kind, alert.Stage, alert.UserID, alert.Detail)

		if err := n.send(sendCtx, text); err != nil {
			n.logger.Warn().Err(err).Str("kind", string(alert.Kind)).Msg("admin notification dropped")
		}
	}()
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]any{
		"chat_id": n.chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned %d", resp.StatusCode)
	}
	return nil
}

// NopNotifier discards all alerts. Used when admin notifications are disabled.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, ports.Notification) {}
