package domain

import "fmt"

// Stage identifies one remote generation call within the pipeline.
type Stage string

const (
	StageNiche Stage = "niche"
	StageTopic Stage = "topic"
	StagePost  Stage = "post"
)

// RunState tracks the progress of a single pipeline run.
type RunState string

const (
	RunPending    RunState = "pending"
	RunNicheStage RunState = "niche_stage"
	RunTopicStage RunState = "topic_stage"
	RunPostStage  RunState = "post_stage"
)

// StageErrorKind classifies a stage failure and drives the retry policy.
type StageErrorKind string

const (
	// StageTimeout means the per-stage deadline fired. Retried once.
	StageTimeout StageErrorKind = "timeout"
	// StageTransient covers connection errors and 5xx responses. Retried once.
	StageTransient StageErrorKind = "transient"
	// StageFatal covers 4xx responses and malformed payloads. Never retried.
	StageFatal StageErrorKind = "fatal"
)

// StageError is a classified failure of one remote generation stage.
type StageError struct {
	Stage Stage
	Kind  StageErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Retryable reports whether the failure warrants one more attempt.
func (e *StageError) Retryable() bool {
	return e.Kind == StageTimeout || e.Kind == StageTransient
}

// NewStageError wraps err as a classified stage failure.
func NewStageError(stage Stage, kind StageErrorKind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// FallbackNiche is the generic label used when niche detection exhausts its
// retries. The run degrades instead of failing.
const FallbackNiche = "general"

// GenerationRequest is the ephemeral value object carried through one pipeline
// run. It has no persisted identity.
type GenerationRequest struct {
	UserID string
	ChatID int64
	Niche  string
	Topic  string
	// TopicAdapted marks Topic as already adapted for the user's niche at
	// prompt-delivery time. The run reuses it instead of adapting twice,
	// which would generate the post against a topic the user never saw.
	TopicAdapted bool
	Question     string
	Answer       string
}
