package ports

import (
	"context"

	"github.com/postpilot/content-system/internal/core/domain"
)

// ContentCatalog is the read-only lookup of per-day topic/question templates.
// Lookup returns domain.ErrContentNotFound for days without an active entry;
// that is a configuration gap, not a runtime fault.
type ContentCatalog interface {
	Lookup(ctx context.Context, dayOfMonth int) (*domain.ContentEntry, error)

	// ActiveDay returns the operator-pinned content day, if any. Used to test
	// specific days without waiting for the calendar.
	ActiveDay(ctx context.Context) (int, bool, error)
	SetActiveDay(ctx context.Context, dayOfMonth int) error
	ClearActiveDay(ctx context.Context) error
}
