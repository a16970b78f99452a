package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/postpilot/content-system/internal/core/domain"
	"github.com/postpilot/content-system/internal/core/ports"
)

// sendSpacing throttles prompt delivery to stay under transport rate limits.
const sendSpacing = 100 * time.Millisecond

// SchedulerService fires once per day at the configured UTC time: it sweeps
// expired subscriptions, then delivers the daily prompt to every Idle user.
// Scheduled delivery always uses the real calendar day; the operator-pinned
// test day only affects on-demand topic requests.
type SchedulerService struct {
	users    ports.UserRepository
	catalog  ports.ContentCatalog
	sessions ports.SessionService
	hour     int
	minute   int
	now      func() time.Time
	logger   zerolog.Logger
}

func NewSchedulerService(
	users ports.UserRepository,
	catalog ports.ContentCatalog,
	sessions ports.SessionService,
	hour, minute int,
	logger zerolog.Logger,
) *SchedulerService {
	return &SchedulerService{
		users:    users,
		catalog:  catalog,
		sessions: sessions,
		hour:     hour,
		minute:   minute,
		now:      time.Now,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, firing the daily tick at the configured time.
func (s *SchedulerService) Run(ctx context.Context) {
	s.logger.Info().Int("hour", s.hour).Int("minute", s.minute).Msg("daily scheduler started")
	for {
		timer := time.NewTimer(s.untilNextFire())
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("daily scheduler stopped")
			return
		case <-timer.C:
			s.tick(ctx)
		}
	}
}

func (s *SchedulerService) tick(ctx context.Context) {
	s.sweepExpired(ctx)
	s.deliverPrompts(ctx)
}

// deliverPrompts sends the day's reminder to every active Idle user.
// Per-user failures are logged and skipped; one bad chat must not block the rest.
func (s *SchedulerService) deliverPrompts(ctx context.Context) {
	entry, err := s.catalog.Lookup(ctx, s.now().Day())
	if errors.Is(err, domain.ErrContentNotFound) {
		s.logger.Warn().Int("day", s.now().Day()).Msg("no content entry for today, skipping daily prompts")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load daily content")
		return
	}

	users, err := s.users.ListForDailyPrompt(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users for daily prompt")
		return
	}

	sent, failed := 0, 0
	for _, user := range users {
		if ctx.Err() != nil {
			return
		}
		if err := s.sessions.DeliverDailyPrompt(ctx, user, entry); err != nil {
			failed++
			s.logger.Warn().Str("user_id", user.ID).Err(err).Msg("daily prompt delivery failed")
		} else {
			sent++
		}
		time.Sleep(sendSpacing)
	}
	s.logger.Info().Int("sent", sent).Int("failed", failed).Msg("daily prompt round complete")
}

// sweepExpired suspends users whose subscription lapsed.
func (s *SchedulerService) sweepExpired(ctx context.Context) {
	expired, err := s.users.ListExpired(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list expired subscriptions")
		return
	}
	for _, user := range expired {
		if err := s.sessions.Suspend(ctx, user.ID); err != nil {
			// Mid-generation users are picked up on the next sweep.
			s.logger.Warn().Str("user_id", user.ID).Err(err).Msg("failed to suspend expired user")
		}
	}
	if len(expired) > 0 {
		s.logger.Info().Int("count", len(expired)).Msg("expired subscriptions swept")
	}
}

// untilNextFire computes the wait until the next HH:MM UTC occurrence.
func (s *SchedulerService) untilNextFire() time.Duration {
	now := s.now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
