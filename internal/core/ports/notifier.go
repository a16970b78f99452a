package ports

import (
	"context"

	"github.com/postpilot/content-system/internal/core/domain"
)

// NotificationKind distinguishes operator alert categories.
type NotificationKind string

const (
	NotifyPipelineTimeout NotificationKind = "pipeline_timeout"
	NotifyPipelineError   NotificationKind = "pipeline_error"
)

// Notification is an operator-visible event raised by the pipeline.
type Notification struct {
	Kind   NotificationKind
	Stage  domain.Stage
	UserID string
	Detail string
}

// NotificationSink delivers fire-and-forget operator alerts. Implementations
// must never let a delivery failure affect the pipeline outcome.
type NotificationSink interface {
	Notify(ctx context.Context, n Notification)
}

// Transport delivers outbound replies to the chat transport. Formatting and
// delivery retries are the transport's concern, not ours.
type Transport interface {
	Send(ctx context.Context, chatID int64, text string) error
}
