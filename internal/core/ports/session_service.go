package ports

import (
	"context"

	"github.com/postpilot/content-system/internal/core/domain"
)

// InboundMessage is one message received from the chat transport.
type InboundMessage struct {
	ChatID    int64
	Text      string
	FirstName string
	Username  string
}

// SessionService drives the per-user finite-state interaction flow. It is the
// only entry point that may start a pipeline run; operations attempted outside
// their legal session state are rejected with domain.ErrInvalidState before
// any remote call is made.
type SessionService interface {
	// HandleMessage routes one inbound message according to the user's current
	// session state and delivers the reply through the Transport.
	HandleMessage(ctx context.Context, msg InboundMessage) error

	// DeliverDailyPrompt sends the day's reminder to one Idle user and moves
	// them to AwaitingAnswer.
	DeliverDailyPrompt(ctx context.Context, user *domain.User, entry *domain.ContentEntry) error

	// Suspend and Renew manage the subscription gate.
	Suspend(ctx context.Context, userID string) error
	Renew(ctx context.Context, userID string) error
}
