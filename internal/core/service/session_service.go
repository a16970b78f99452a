package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/postpilot/content-system/internal/core/domain"
	"github.com/postpilot/content-system/internal/core/ports"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// runGuardTTL bounds how long a crashed run can keep a user locked out.
const runGuardTTL = 5 * time.Minute

// defaultSubscriptionTerm is granted on renewal.
const defaultSubscriptionTerm = 30 * 24 * time.Hour

type SessionService struct {
	users     ports.UserRepository
	allowList ports.EmailAllowList
	catalog   ports.ContentCatalog
	quota     ports.QuotaStore
	posts     ports.PostRepository
	pipeline  ports.GenerationPipeline
	guard     ports.RunGuard
	transport ports.Transport
	now       func() time.Time
	logger    zerolog.Logger
}

func NewSessionService(
	users ports.UserRepository,
	allowList ports.EmailAllowList,
	catalog ports.ContentCatalog,
	quota ports.QuotaStore,
	posts ports.PostRepository,
	pipeline ports.GenerationPipeline,
	guard ports.RunGuard,
	transport ports.Transport,
	logger zerolog.Logger,
) *SessionService {
	return &SessionService{
		users:     users,
		allowList: allowList,
		catalog:   catalog,
		quota:     quota,
		posts:     posts,
		pipeline:  pipeline,
		guard:     guard,
		transport: transport,
		now:       time.Now,
		logger:    logger,
	}
}

// HandleMessage routes one inbound message by the user's session state.
// Unknown chat IDs start registration.
func (s *SessionService) HandleMessage(ctx context.Context, msg ports.InboundMessage) error {
	user, err := s.users.FindByChatID(ctx, msg.ChatID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return s.startRegistration(ctx, msg)
	}
	if err != nil {
		return fmt.Errorf("handle message: %w", err)
	}

	switch user.State {
	case domain.StateWaitingEmail:
		return s.handleEmail(ctx, user, msg.Text)
	case domain.StateWaitingNiche:
		return s.handleNicheDescription(ctx, user, msg.Text)
	case domain.StateIdle:
		return s.handleIdle(ctx, user, msg.Text)
	case domain.StateAwaitingAnswer:
		return s.handleAnswer(ctx, user, msg.Text)
	case domain.StateGenerating:
		// A run is in flight; the reservation is already held. Reject, don't queue.
		return s.reply(ctx, user.ChatID, msgGenerating)
	case domain.StateSuspended:
		return s.reply(ctx, user.ChatID, msgSuspended)
	default:
		return fmt.Errorf("handle message: %w: %s", domain.ErrInvalidState, user.State)
	}
}

func (s *SessionService) startRegistration(ctx context.Context, msg ports.InboundMessage) error {
	now := s.now().UTC()
	_, err := s.users.Create(ctx, &domain.User{
		ChatID:       msg.ChatID,
		FirstName:    msg.FirstName,
		Username:     msg.Username,
		State:        domain.StateWaitingEmail,
		Active:       true,
		RegisteredAt: now,
		UpdatedAt:    now,
	})
	if err != nil && !errors.Is(err, domain.ErrUserExists) {
		return fmt.Errorf("start registration: %w", err)
	}
	s.logger.Info().Int64("chat_id", msg.ChatID).Msg("registration started")
	return s.reply(ctx, msg.ChatID, msgWelcome)
}

// handleEmail validates the address against the allow list. Invalid input is a
// no-op: the user stays in WaitingEmail and gets an error reply.
func (s *SessionService) handleEmail(ctx context.Context, user *domain.User, text string) error {
	email := strings.ToLower(strings.TrimSpace(text))
	if !emailRe.MatchString(email) {
		return s.reply(ctx, user.ChatID, msgEmailInvalid)
	}

	ok, err := s.allowList.Contains(ctx, email)
	if err != nil {
		return fmt.Errorf("allow list lookup: %w", err)
	}
	if !ok {
		s.logger.Info().Int64("chat_id", user.ChatID).Msg("email rejected by allow list")
		return s.reply(ctx, user.ChatID, msgEmailNotAllowed)
	}

	if err := s.users.SetEmail(ctx, user.ID, email); err != nil {
		return fmt.Errorf("store email: %w", err)
	}
	if err := s.users.TransitionState(ctx, user.ID, domain.StateWaitingEmail, domain.StateWaitingNiche); err != nil {
		return fmt.Errorf("email accepted: %w", err)
	}
	return s.reply(ctx, user.ChatID, msgAskNiche)
}

// handleNicheDescription runs the niche detection stage. Detection falling
// back to the generic label still completes onboarding.
func (s *SessionService) handleNicheDescription(ctx context.Context, user *domain.User, text string) error {
	niche, err := s.pipeline.DetectNiche(ctx, user.ID, text)
	if err != nil {
		return fmt.Errorf("detect niche: %w", err)
	}
	if err := s.users.TransitionState(ctx, user.ID, domain.StateWaitingNiche, domain.StateIdle); err != nil {
		return fmt.Errorf("niche received: %w", err)
	}
	return s.reply(ctx, user.ChatID, msgNicheDetected(niche))
}

// handleIdle serves the on-demand topic request; anything else gets the menu.
func (s *SessionService) handleIdle(ctx context.Context, user *domain.User, text string) error {
	cmd := strings.ToLower(strings.TrimSpace(text))
	if cmd != "topic" && cmd != "/topic" {
		return s.reply(ctx, user.ChatID, msgIdleHelp)
	}

	entry, err := s.todaysContent(ctx)
	if errors.Is(err, domain.ErrContentNotFound) {
		s.logger.Warn().Msg("no active content entry for today")
		return s.reply(ctx, user.ChatID, msgNoContentToday)
	}
	if err != nil {
		return fmt.Errorf("topic request: %w", err)
	}
	return s.DeliverDailyPrompt(ctx, user, entry)
}

// DeliverDailyPrompt adapts the day's topic for the user's niche, stores the
// prompt context, and moves the user from Idle to AwaitingAnswer.
func (s *SessionService) DeliverDailyPrompt(ctx context.Context, user *domain.User, entry *domain.ContentEntry) error {
	niche := user.Niche
	if niche == "" {
		niche = domain.FallbackNiche
	}
	adapted, err := s.pipeline.AdaptTopic(ctx, user.ID, entry.Topic, niche)
	if err != nil {
		return fmt.Errorf("deliver prompt: %w", err)
	}

	if err := s.users.SetPendingPrompt(ctx, user.ID, entry.ID, adapted, entry.Question); err != nil {
		return fmt.Errorf("deliver prompt: %w", err)
	}
	if err := s.users.TransitionState(ctx, user.ID, domain.StateIdle, domain.StateAwaitingAnswer); err != nil {
		return fmt.Errorf("deliver prompt: %w", err)
	}
	return s.reply(ctx, user.ChatID, msgDailyPrompt(adapted, entry.Question))
}

// handleAnswer is the quota-gated entry into the generation pipeline. The run
// guard is taken before the reservation so a rejected duplicate never creates
// a second reservation; every failure path after TryReserve releases it.
func (s *SessionService) handleAnswer(ctx context.Context, user *domain.User, answer string) error {
	if !validAnswer(answer) {
		return s.reply(ctx, user.ChatID, msgAnswerInvalid)
	}

	locked, err := s.guard.Acquire(ctx, user.ID, runGuardTTL)
	if err != nil {
		return fmt.Errorf("acquire run guard: %w", err)
	}
	if !locked {
		return s.reply(ctx, user.ChatID, msgGenerating)
	}
	// Release operations must survive shutdown-triggered cancellation.
	cleanupCtx := context.WithoutCancel(ctx)
	defer func() {
		if err := s.guard.Release(cleanupCtx, user.ID); err != nil {
			s.logger.Warn().Str("user_id", user.ID).Err(err).Msg("failed to release run guard")
		}
	}()

	decision, err := s.quota.TryReserve(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("reserve quota: %w", err)
	}
	if !decision.Granted {
		if err := s.users.TransitionState(ctx, user.ID, domain.StateAwaitingAnswer, domain.StateIdle); err != nil {
			return fmt.Errorf("quota denied: %w", err)
		}
		s.logger.Info().Str("user_id", user.ID).Int("generated", decision.Generated).Msg("weekly quota exceeded")
		return s.reply(ctx, user.ChatID, msgQuotaExceeded(decision.Generated, decision.Limit))
	}

	if err := s.users.TransitionState(ctx, user.ID, domain.StateAwaitingAnswer, domain.StateGenerating); err != nil {
		s.releaseQuota(cleanupCtx, user.ID)
		return fmt.Errorf("start generation: %w", err)
	}

	// PendingTopic was adapted when the prompt was delivered; the run must
	// reuse it so the post targets the topic the user answered.
	result, err := s.pipeline.Run(ctx, domain.GenerationRequest{
		UserID:       user.ID,
		ChatID:       user.ChatID,
		Niche:        user.Niche,
		Topic:        user.PendingTopic,
		TopicAdapted: user.PendingTopic != "",
		Question:     user.PendingQuestion,
		Answer:       answer,
	})
	if err != nil {
		s.releaseQuota(cleanupCtx, user.ID)
		if terr := s.users.TransitionState(cleanupCtx, user.ID, domain.StateGenerating, domain.StateAwaitingAnswer); terr != nil {
			s.logger.Warn().Str("user_id", user.ID).Err(terr).Msg("failed to return user to awaiting_answer")
		}
		return s.reply(cleanupCtx, user.ChatID, msgGenerationFailed)
	}

	record := &domain.PostRecord{
		UserID:           user.ID,
		ContentID:        user.PendingContentID,
		AdaptedTopic:     result.AdaptedTopic,
		Question:         user.PendingQuestion,
		Answer:           answer,
		GeneratedContent: result.Content,
		WeekStart:        domain.WeekAnchor(s.now()),
		CreatedAt:        s.now().UTC(),
	}
	if err := s.posts.Insert(ctx, record); err != nil {
		// No PostRecord means no committed quota: undo the reservation.
		s.releaseQuota(cleanupCtx, user.ID)
		if terr := s.users.TransitionState(cleanupCtx, user.ID, domain.StateGenerating, domain.StateAwaitingAnswer); terr != nil {
			s.logger.Warn().Str("user_id", user.ID).Err(terr).Msg("failed to return user to awaiting_answer")
		}
		s.logger.Error().Str("user_id", user.ID).Err(err).Msg("failed to persist generated post")
		return s.reply(cleanupCtx, user.ChatID, msgGenerationFailed)
	}

	committed, err := s.quota.Commit(ctx, user.ID)
	if err != nil {
		// The increment is already durable; commit only stamps bookkeeping.
		s.logger.Warn().Str("user_id", user.ID).Err(err).Msg("quota commit failed after post write")
		committed = decision
	}

	if err := s.users.ClearPendingPrompt(ctx, user.ID); err != nil {
		s.logger.Warn().Str("user_id", user.ID).Err(err).Msg("failed to clear pending prompt")
	}
	if err := s.users.TransitionState(ctx, user.ID, domain.StateGenerating, domain.StateIdle); err != nil {
		return fmt.Errorf("finish generation: %w", err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Int("posts_this_week", committed.Generated).
		Msg("post generated")
	return s.reply(ctx, user.ChatID, msgPostReady(result.Content, committed.Remaining()))
}

// Suspend moves a user to Suspended from any state that allows it and drops
// the pending prompt. Users mid-generation are left alone; the failing run's
// cleanup will return them to a suspendable state.
func (s *SessionService) Suspend(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("suspend: %w", err)
	}
	if !user.State.CanTransitionTo(domain.StateSuspended) {
		return fmt.Errorf("suspend: %w: %s", domain.ErrInvalidState, user.State)
	}
	if err := s.users.TransitionState(ctx, userID, user.State, domain.StateSuspended); err != nil {
		return fmt.Errorf("suspend: %w", err)
	}
	if err := s.users.ClearPendingPrompt(ctx, userID); err != nil {
		s.logger.Warn().Str("user_id", userID).Err(err).Msg("failed to clear pending prompt")
	}
	return s.reply(ctx, user.ChatID, msgSuspended)
}

// Renew reactivates a suspended user and extends their subscription.
func (s *SessionService) Renew(ctx context.Context, userID string) error {
	if err := s.users.TransitionState(ctx, userID, domain.StateSuspended, domain.StateIdle); err != nil {
		return fmt.Errorf("renew: %w", err)
	}
	if err := s.users.SetSubscription(ctx, userID, s.now().UTC().Add(defaultSubscriptionTerm)); err != nil {
		return fmt.Errorf("renew: %w", err)
	}
	return nil
}

// todaysContent resolves the active content day (operator override first,
// calendar day otherwise) and looks up its entry.
func (s *SessionService) todaysContent(ctx context.Context) (*domain.ContentEntry, error) {
	day, pinned, err := s.catalog.ActiveDay(ctx)
	if err != nil {
		return nil, err
	}
	if !pinned {
		day = s.now().Day()
	}
	return s.catalog.Lookup(ctx, day)
}

func (s *SessionService) releaseQuota(ctx context.Context, userID string) {
	if err := s.quota.Release(ctx, userID); err != nil {
		s.logger.Error().Str("user_id", userID).Err(err).Msg("failed to release quota reservation")
	}
}

func (s *SessionService) reply(ctx context.Context, chatID int64, text string) error {
	if err := s.transport.Send(ctx, chatID, text); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// validAnswer rejects empty answers and low-effort spam where fewer than half
// of the words are unique.
func validAnswer(answer string) bool {
	words := strings.Fields(answer)
	if len(words) == 0 {
		return false
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}
	return len(unique)*2 >= len(words)
}
