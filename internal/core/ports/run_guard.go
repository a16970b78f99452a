package ports

import (
	"context"
	"time"
)

// RunGuard enforces the single in-flight generation run per user. Acquire is
// first-wins; a second answer submitted while a run holds the guard is
// rejected, not queued. The TTL bounds how long a crashed run can block a user.
type RunGuard interface {
	Acquire(ctx context.Context, userID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, userID string) error
}
