package domain

import (
	"errors"
	"time"
)

var ErrContentNotFound = errors.New("no active content for day")

// ContentEntry is the immutable per-day template: the topic and question the
// daily prompt is built from. At most one active entry exists per day of month.
type ContentEntry struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	DayOfMonth   int       `json:"day_of_month" bson:"day_of_month"`
	Topic        string    `json:"topic" bson:"topic"`
	Question     string    `json:"question" bson:"question"`
	ReminderText string    `json:"reminder_text" bson:"reminder_text"`
	Active       bool      `json:"is_active" bson:"is_active"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// PostRecord is the append-only history entry written exactly once per
// successful pipeline run. Never mutated or deleted.
type PostRecord struct {
	ID               string    `json:"id" bson:"_id,omitempty"`
	UserID           string    `json:"user_id" bson:"user_id"`
	ContentID        string    `json:"content_id,omitempty" bson:"content_id,omitempty"`
	AdaptedTopic     string    `json:"adapted_topic" bson:"adapted_topic"`
	Question         string    `json:"question" bson:"question"`
	Answer           string    `json:"answer" bson:"answer"`
	GeneratedContent string    `json:"generated_content" bson:"generated_content"`
	WeekStart        time.Time `json:"week_start_date" bson:"week_start_date"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}
