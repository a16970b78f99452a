package ports

import "context"

// PostPrompt carries the inputs of the final generation stage.
type PostPrompt struct {
	Niche    string
	Topic    string
	Question string
	Answer   string
}

// StageClient talks to the three remote generation endpoints. Each call is a
// single request/response exchange; implementations return *domain.StageError
// so the pipeline can apply its retry/fallback policy. Callers bound each call
// with a per-stage deadline on ctx.
type StageClient interface {
	DetectNiche(ctx context.Context, description string) (string, error)
	AdaptTopic(ctx context.Context, topic, niche string) (string, error)
	GeneratePost(ctx context.Context, prompt PostPrompt) (string, error)
}
