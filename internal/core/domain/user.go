package domain

import (
	"errors"
	"time"
)

// SessionState represents a user's position in the onboarding/interaction flow.
type SessionState string

const (
	StateWaitingEmail   SessionState = "waiting_email"
	StateWaitingNiche   SessionState = "waiting_niche_description"
	StateIdle           SessionState = "idle"
	StateAwaitingAnswer SessionState = "awaiting_answer"
	StateGenerating     SessionState = "generating"
	StateSuspended      SessionState = "suspended"
)

// validTransitions defines the allowed session state machine transitions.
// Suspension is reachable from Idle and AwaitingAnswer; renewal always lands
// back on Idle. A failed generation run returns the user to AwaitingAnswer.
var validTransitions = map[SessionState][]SessionState{
	StateWaitingEmail:   {StateWaitingNiche},
	StateWaitingNiche:   {StateIdle},
	StateIdle:           {StateAwaitingAnswer, StateSuspended},
	StateAwaitingAnswer: {StateGenerating, StateIdle, StateSuspended},
	StateGenerating:     {StateIdle, StateAwaitingAnswer},
	StateSuspended:      {StateIdle},
}

var ErrInvalidState = errors.New("operation not allowed in current session state")
var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already registered")

// CanTransitionTo reports whether a transition from the current state to next is valid.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// User is the core aggregate: identity, session state, detected niche, and the
// denormalised weekly quota counter. The quota fields are only ever mutated
// through the QuotaStore's atomic operations.
type User struct {
	ID            string       `json:"id" bson:"_id,omitempty"`
	ChatID        int64        `json:"chat_id" bson:"chat_id"`
	Email         string       `json:"email" bson:"email"`
	FirstName     string       `json:"first_name,omitempty" bson:"first_name,omitempty"`
	Username      string       `json:"username,omitempty" bson:"username,omitempty"`
	State         SessionState `json:"state" bson:"state"`
	Niche         string       `json:"niche,omitempty" bson:"niche,omitempty"`
	// Pending prompt: the adapted topic and question delivered with the last
	// daily prompt, consumed by the answer that follows it.
	PendingContentID string    `json:"pending_content_id,omitempty" bson:"pending_content_id,omitempty"`
	PendingTopic     string    `json:"pending_topic,omitempty" bson:"pending_topic,omitempty"`
	PendingQuestion  string    `json:"pending_question,omitempty" bson:"pending_question,omitempty"`

	PostsThisWeek int          `json:"posts_this_week" bson:"posts_this_week"`
	WeekAnchor    time.Time    `json:"week_anchor" bson:"week_anchor"`
	Active        bool         `json:"is_active" bson:"is_active"`
	SubscribedTo  time.Time    `json:"subscribed_to,omitempty" bson:"subscribed_to,omitempty"`
	LastPostAt    time.Time    `json:"last_post_at,omitempty" bson:"last_post_at,omitempty"`
	RegisteredAt  time.Time    `json:"registered_at" bson:"registered_at"`
	UpdatedAt     time.Time    `json:"updated_at" bson:"updated_at"`
}
