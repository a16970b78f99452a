package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/postpilot/content-system/internal/core/domain"
)

const (
	collectionContent  = "daily_content"
	collectionSettings = "settings"

	settingActiveDay = "active_reminder_day"
)

// ContentRepository implements the read-only content catalog plus the
// operator-pinned test day stored in the settings collection.
type ContentRepository struct {
	content  *mongo.Collection
	settings *mongo.Collection
}

func NewContentRepository(db *mongo.Database) *ContentRepository {
	return &ContentRepository{
		content:  db.Collection(collectionContent),
		settings: db.Collection(collectionSettings),
	}
}

type contentDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	DayOfMonth   int                `bson:"day_of_month"`
	Topic        string             `bson:"topic"`
	Question     string             `bson:"question"`
	ReminderText string             `bson:"reminder_text,omitempty"`
	Active       bool               `bson:"is_active"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func (r *ContentRepository) Lookup(ctx context.Context, dayOfMonth int) (*domain.ContentEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc contentDoc
	err := r.content.FindOne(ctx, bson.M{"day_of_month": dayOfMonth, "is_active": true}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrContentNotFound
		}
		return nil, fmt.Errorf("lookup content: %w", err)
	}

	return &domain.ContentEntry{
		ID:           doc.ID.Hex(),
		DayOfMonth:   doc.DayOfMonth,
		Topic:        doc.Topic,
		Question:     doc.Question,
		ReminderText: doc.ReminderText,
		Active:       doc.Active,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

type settingDoc struct {
	Key   string `bson:"_id"`
	Value int    `bson:"value"`
}

func (r *ContentRepository) ActiveDay(ctx context.Context) (int, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc settingDoc
	err := r.settings.FindOne(ctx, bson.M{"_id": settingActiveDay}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read active day: %w", err)
	}
	return doc.Value, true, nil
}

func (r *ContentRepository) SetActiveDay(ctx context.Context, dayOfMonth int) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.settings.UpdateOne(ctx,
		bson.M{"_id": settingActiveDay},
		bson.M{"$set": bson.M{"value": dayOfMonth}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set active day: %w", err)
	}
	return nil
}

func (r *ContentRepository) ClearActiveDay(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.settings.DeleteOne(ctx, bson.M{"_id": settingActiveDay}); err != nil {
		return fmt.Errorf("clear active day: %w", err)
	}
	return nil
}

// EnsureIndexes enforces at most one active entry per day of month.
func (r *ContentRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.content.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "day_of_month", Value: 1}, {Key: "is_active", Value: 1}},
		Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"is_active": true}),
	})
	return err
}
