package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/postpilot/content-system/internal/core/domain"
	"github.com/postpilot/content-system/internal/core/ports"
)

// StagePolicy is the per-stage timeout/retry budget. Behaviour is data, not
// control flow: all three stages run through the same executor.
type StagePolicy struct {
	Timeout time.Duration
	Retries int
}

// DefaultStagePolicy bounds each remote call at 30s with a single retry.
var DefaultStagePolicy = StagePolicy{Timeout: 30 * time.Second, Retries: 1}

type PipelineService struct {
	stages ports.StageClient
	users  ports.UserRepository
	sink   ports.NotificationSink
	policy StagePolicy
	logger zerolog.Logger
}

func NewPipelineService(
	stages ports.StageClient,
	users ports.UserRepository,
	sink ports.NotificationSink,
	policy StagePolicy,
	logger zerolog.Logger,
) *PipelineService {
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultStagePolicy.Timeout
	}
	if policy.Retries < 0 {
		policy.Retries = DefaultStagePolicy.Retries
	}
	return &PipelineService{stages: stages, users: users, sink: sink, policy: policy, logger: logger}
}

// Run executes the three generation stages in order. Niche detection is
// skipped when the request already carries a niche; the topic stage falls back
// to the verbatim topic; a post-stage failure is terminal.
func (s *PipelineService) Run(ctx context.Context, req domain.GenerationRequest) (*ports.RunResult, error) {
	result := &ports.RunResult{}
	state := domain.RunPending

	// --- Niche stage (skipped once detected) ---
	state = domain.RunNicheStage
	niche := req.Niche
	if niche == "" {
		out, err := s.callStage(ctx, domain.StageNiche, func(c context.Context) (string, error) {
			return s.stages.DetectNiche(c, req.Answer)
		})
		if err != nil {
			if aborted(ctx) {
				return nil, s.fail(ctx, state, req.UserID, err)
			}
			s.degrade(ctx, domain.StageNiche, req.UserID, err)
			niche = domain.FallbackNiche
			result.Degraded = append(result.Degraded, domain.StageNiche)
		} else {
			niche = out
			if err := s.users.SetNiche(ctx, req.UserID, niche); err != nil {
				s.logger.Warn().Str("user_id", req.UserID).Err(err).Msg("failed to cache detected niche")
			}
		}
	}
	result.Niche = niche

	// --- Topic stage (skipped when the prompt delivered an adapted topic) ---
	state = domain.RunTopicStage
	adapted := req.Topic
	if !req.TopicAdapted {
		out, err := s.callStage(ctx, domain.StageTopic, func(c context.Context) (string, error) {
			return s.stages.AdaptTopic(c, req.Topic, niche)
		})
		if err != nil {
			if aborted(ctx) {
				return nil, s.fail(ctx, state, req.UserID, err)
			}
			s.degrade(ctx, domain.StageTopic, req.UserID, err)
			result.Degraded = append(result.Degraded, domain.StageTopic)
		} else {
			adapted = out
		}
	}
	result.AdaptedTopic = adapted

	// --- Post stage (no fallback: failure is terminal) ---
	state = domain.RunPostStage
	content, err := s.callStage(ctx, domain.StagePost, func(c context.Context) (string, error) {
		return s.stages.GeneratePost(c, ports.PostPrompt{
			Niche:    niche,
			Topic:    adapted,
			Question: req.Question,
			Answer:   req.Answer,
		})
	})
	if err != nil {
		return nil, s.fail(ctx, state, req.UserID, err)
	}

	result.Content = content
	s.logger.Info().
		Str("user_id", req.UserID).
		Str("niche", niche).
		Int("degraded_stages", len(result.Degraded)).
		Msg("pipeline run succeeded")
	return result, nil
}

// DetectNiche runs only the niche stage during onboarding. The detected niche
// is cached on the user; on fallback the generic label is returned without
// being persisted, so detection is attempted again next time.
func (s *PipelineService) DetectNiche(ctx context.Context, userID, description string) (string, error) {
	out, err := s.callStage(ctx, domain.StageNiche, func(c context.Context) (string, error) {
		return s.stages.DetectNiche(c, description)
	})
	if err != nil {
		if aborted(ctx) {
			return "", err
		}
		s.degrade(ctx, domain.StageNiche, userID, err)
		return domain.FallbackNiche, nil
	}

	if err := s.users.SetNiche(ctx, userID, out); err != nil {
		return "", fmt.Errorf("cache niche: %w", err)
	}
	return out, nil
}

// AdaptTopic runs only the topic stage. The verbatim topic is returned when
// retries are exhausted.
func (s *PipelineService) AdaptTopic(ctx context.Context, userID, topic, niche string) (string, error) {
	out, err := s.callStage(ctx, domain.StageTopic, func(c context.Context) (string, error) {
		return s.stages.AdaptTopic(c, topic, niche)
	})
	if err != nil {
		if aborted(ctx) {
			return "", err
		}
		s.degrade(ctx, domain.StageTopic, userID, err)
		return topic, nil
	}
	return out, nil
}

// callStage invokes one remote stage under the per-stage deadline, retrying
// once on timeout or transient failure. A cancelled parent context stops the
// run at the stage boundary instead of retrying.
func (s *PipelineService) callStage(
	ctx context.Context,
	stage domain.Stage,
	fn func(context.Context) (string, error),
) (string, error) {
	var lastErr *domain.StageError
	for attempt := 0; attempt <= s.policy.Retries; attempt++ {
		stageCtx, cancel := context.WithTimeout(ctx, s.policy.Timeout)
		out, err := fn(stageCtx)
		cancel()
		if err == nil {
			return out, nil
		}

		var se *domain.StageError
		if !errors.As(err, &se) {
			se = domain.NewStageError(stage, domain.StageFatal, err)
		}
		lastErr = se

		s.logger.Warn().
			Str("stage", string(stage)).
			Str("kind", string(se.Kind)).
			Int("attempt", attempt+1).
			Err(se.Err).
			Msg("stage call failed")

		if !se.Retryable() || aborted(ctx) {
			break
		}
	}
	return "", lastErr
}

// degrade reports a stage falling back to its degraded substitute.
func (s *PipelineService) degrade(ctx context.Context, stage domain.Stage, userID string, err error) {
	s.logger.Warn().Str("stage", string(stage)).Str("user_id", userID).Err(err).Msg("stage degraded to fallback")
	s.sink.Notify(context.WithoutCancel(ctx), notification(stage, userID, err))
}

// fail reports a terminal pipeline failure and returns the error unchanged.
func (s *PipelineService) fail(ctx context.Context, state domain.RunState, userID string, err error) error {
	s.logger.Error().Str("run_state", string(state)).Str("user_id", userID).Err(err).Msg("pipeline run failed")
	s.sink.Notify(context.WithoutCancel(ctx), notification(stageOf(state), userID, err))
	return err
}

func notification(stage domain.Stage, userID string, err error) ports.Notification {
	kind := ports.NotifyPipelineError
	var se *domain.StageError
	if errors.As(err, &se) && se.Kind == domain.StageTimeout {
		kind = ports.NotifyPipelineTimeout
	}
	return ports.Notification{Kind: kind, Stage: stage, UserID: userID, Detail: err.Error()}
}

func stageOf(state domain.RunState) domain.Stage {
	switch state {
	case domain.RunTopicStage:
		return domain.StageTopic
	case domain.RunPostStage:
		return domain.StagePost
	default:
		return domain.StageNiche
	}
}

// aborted reports whether the run's parent context was cancelled, which
// happens on shutdown or session suspension.
func aborted(ctx context.Context) bool {
	return ctx.Err() != nil
}
