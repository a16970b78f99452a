package ports

import (
	"context"
	"time"

	"github.com/postpilot/content-system/internal/core/domain"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByChatID(ctx context.Context, chatID int64) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// TransitionState moves the user from one session state to another as a
	// compare-and-set: the update only applies while the user is still in the
	// `from` state. Returns domain.ErrInvalidState when the user has moved on.
	TransitionState(ctx context.Context, userID string, from, to domain.SessionState) error

	SetEmail(ctx context.Context, userID string, email string) error
	SetNiche(ctx context.Context, userID string, niche string) error
	SetSubscription(ctx context.Context, userID string, until time.Time) error

	// SetPendingPrompt stores the delivered prompt context consumed by the
	// next answer; ClearPendingPrompt removes it after a successful run.
	SetPendingPrompt(ctx context.Context, userID, contentID, topic, question string) error
	ClearPendingPrompt(ctx context.Context, userID string) error

	// ListForDailyPrompt returns active users currently in the Idle state.
	ListForDailyPrompt(ctx context.Context) ([]*domain.User, error)
	// ListExpired returns active users whose subscription lapsed before now.
	ListExpired(ctx context.Context, now time.Time) ([]*domain.User, error)
}

// EmailAllowList is the registration gate: only pre-approved emails may sign up.
type EmailAllowList interface {
	Contains(ctx context.Context, email string) (bool, error)
}
