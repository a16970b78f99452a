package ports

import (
	"context"
	"time"

	"github.com/postpilot/content-system/internal/core/domain"
)

// PostRepository persists the append-only generated post history.
type PostRepository interface {
	Insert(ctx context.Context, p *domain.PostRecord) error
	// ListWeek returns the user's posts for the week starting at weekStart,
	// newest first.
	ListWeek(ctx context.Context, userID string, weekStart time.Time) ([]*domain.PostRecord, error)
}
