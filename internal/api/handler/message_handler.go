package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/postpilot/content-system/internal/core/ports"
)

// MessageQueue accepts inbound messages for ordered asynchronous processing.
type MessageQueue interface {
	Enqueue(msg ports.InboundMessage)
}

// MessageHandler receives chat transport webhooks and hands them to the
// dispatcher. Replies are delivered out-of-band through the outbound
// transport, so the webhook itself only acknowledges receipt.
type MessageHandler struct {
	queue MessageQueue
}

func NewMessageHandler(queue MessageQueue) *MessageHandler {
	return &MessageHandler{queue: queue}
}

type inboundMessageRequest struct {
	ChatID    int64  `json:"chat_id" validate:"required"`
	Text      string `json:"text"`
	FirstName string `json:"first_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type inboundMessageResponse struct {
	Status string `json:"status"`
}

// Receive handles POST /v1/messages.
func (h *MessageHandler) Receive(c echo.Context) error {
	var req inboundMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.queue.Enqueue(ports.InboundMessage{
		ChatID:    req.ChatID,
		Text:      req.Text,
		FirstName: req.FirstName,
		Username:  req.Username,
	})

	return c.JSON(http.StatusAccepted, inboundMessageResponse{Status: "queued"})
}
