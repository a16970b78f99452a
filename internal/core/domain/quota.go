package domain

import (
	"errors"
	"time"
)

var ErrQuotaNotReserved = errors.New("no quota reservation to release")

// WeekAnchor returns the Monday 00:00 UTC of the ISO week containing t.
// It identifies which weekly quota bucket a counter belongs to and is
// idempotent: WeekAnchor(WeekAnchor(t)) == WeekAnchor(t).
func WeekAnchor(t time.Time) time.Time {
	t = t.UTC()
	// time.Weekday puts Sunday at 0; shift so Monday is 0.
	offset := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -offset)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// QuotaDecision is the outcome of a reservation attempt.
type QuotaDecision struct {
	Granted   bool
	Generated int // posts counted against the current week, after the decision
	Limit     int
}

// Remaining returns how many posts the user may still generate this week.
func (d QuotaDecision) Remaining() int {
	if d.Limit < d.Generated {
		return 0
	}
	return d.Limit - d.Generated
}
