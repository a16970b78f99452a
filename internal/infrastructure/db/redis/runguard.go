package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunGuard enforces the single in-flight generation run per user with a
// first-wins SET NX. The TTL caps how long a crashed run can keep a user
// locked out; a clean run releases the key on exit.
// Key format: genrun:<user_id>
type RunGuard struct {
	client *redis.Client
}

// NewRunGuard creates a RunGuard wrapping the given Redis client.
func NewRunGuard(client *redis.Client) *RunGuard {
	return &RunGuard{client: client}
}

// Acquire attempts to take the per-user run slot. Returns false when another
// run already holds it.
func (g *RunGuard) Acquire(ctx context.Context, userID string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(userID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("run guard acquire: %w", err)
	}
	return ok, nil
}

// Release frees the run slot. Releasing an unheld slot is a no-op.
func (g *RunGuard) Release(ctx context.Context, userID string) error {
	if err := g.client.Del(ctx, g.key(userID)).Err(); err != nil {
		return fmt.Errorf("run guard release: %w", err)
	}
	return nil
}

func (g *RunGuard) key(userID string) string {
	return fmt.Sprintf("genrun:%s", userID)
}
