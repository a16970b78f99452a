package domain

import "testing"

func TestCanTransitionTo_AllowedPaths(t *testing.T) {
	allowed := []struct {
		from, to SessionState
	}{
		{StateWaitingEmail, StateWaitingNiche},
		{StateWaitingNiche, StateIdle},
		{StateIdle, StateAwaitingAnswer},
		{StateIdle, StateSuspended},
		{StateAwaitingAnswer, StateGenerating},
		{StateAwaitingAnswer, StateIdle},
		{StateAwaitingAnswer, StateSuspended},
		{StateGenerating, StateIdle},
		{StateGenerating, StateAwaitingAnswer},
		{StateSuspended, StateIdle},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s → %s must be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransitionTo_ForbiddenPaths(t *testing.T) {
	forbidden := []struct {
		from, to SessionState
	}{
		{StateWaitingEmail, StateIdle}, // cannot skip onboarding
		{StateWaitingEmail, StateGenerating},
		{StateIdle, StateGenerating}, // generation only starts from an answer
		{StateGenerating, StateSuspended}, // mid-run users are left alone
		{StateSuspended, StateAwaitingAnswer}, // renewal lands on Idle
		{StateSuspended, StateGenerating},
		{StateIdle, StateWaitingEmail}, // no going back
	}
	for _, tc := range forbidden {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s → %s must be rejected", tc.from, tc.to)
		}
	}
}

func TestCanTransitionTo_SelfLoopRejected(t *testing.T) {
	states := []SessionState{
		StateWaitingEmail, StateWaitingNiche, StateIdle,
		StateAwaitingAnswer, StateGenerating, StateSuspended,
	}
	for _, s := range states {
		if s.CanTransitionTo(s) {
			t.Errorf("%s → %s self-transition must be rejected", s, s)
		}
	}
}
