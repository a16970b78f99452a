package ports

import (
	"context"

	"github.com/postpilot/content-system/internal/core/domain"
)

// RunResult is returned by a successful pipeline run.
type RunResult struct {
	Content      string
	Niche        string // niche actually used (may be the fallback label)
	AdaptedTopic string // topic actually used (verbatim on adaptation fallback)
	// Degraded lists the stages that fell back instead of completing.
	Degraded []domain.Stage
}

// GenerationPipeline orchestrates the three remote generation stages with
// per-stage timeout, retry, and fallback semantics.
type GenerationPipeline interface {
	// Run executes niche detection (skipped when req.Niche is set), topic
	// adaptation, and post generation in order. A post-stage failure is
	// terminal; the other stages degrade per their fallbacks.
	Run(ctx context.Context, req domain.GenerationRequest) (*RunResult, error)

	// DetectNiche runs only the niche stage, used during onboarding. The
	// fallback label is returned when retries are exhausted.
	DetectNiche(ctx context.Context, userID, description string) (string, error)

	// AdaptTopic runs only the topic stage, used when building the daily
	// prompt. The verbatim topic is returned on fallback.
	AdaptTopic(ctx context.Context, userID, topic, niche string) (string, error)
}
