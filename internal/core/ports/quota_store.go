package ports

import (
	"context"

	"github.com/postpilot/content-system/internal/core/domain"
)

// QuotaStore owns the per-user weekly counter. All three operations are
// atomic per user: callers never read-modify-write quota fields themselves.
type QuotaStore interface {
	// TryReserve rolls the counter over to the current week if the stored
	// anchor is stale, then performs a conditional increment. The check and
	// the increment are one indivisible operation: concurrent calls for the
	// same user can never both succeed from posts_this_week == limit-1.
	TryReserve(ctx context.Context, userID string) (domain.QuotaDecision, error)

	// Release returns a granted-but-uncommitted reservation. It decrements by
	// one, never below zero, and must be called on every failed exit path.
	Release(ctx context.Context, userID string) error

	// Commit finalises a reservation after a successful run and returns the
	// user's quota standing for the reply message.
	Commit(ctx context.Context, userID string) (domain.QuotaDecision, error)
}
