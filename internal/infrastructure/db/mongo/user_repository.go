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

const collectionUsers = "users"

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type userDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	ChatID           int64              `bson:"chat_id"`
	Email            string             `bson:"email,omitempty"`
	FirstName        string             `bson:"first_name,omitempty"`
	Username         string             `bson:"username,omitempty"`
	State            string             `bson:"state"`
	Niche            string             `bson:"niche,omitempty"`
	PendingContentID string             `bson:"pending_content_id,omitempty"`
	PendingTopic     string             `bson:"pending_topic,omitempty"`
	PendingQuestion  string             `bson:"pending_question,omitempty"`
	PostsThisWeek    int                `bson:"posts_this_week"`
	WeekAnchor       time.Time          `bson:"week_anchor"`
	Active           bool               `bson:"is_active"`
	SubscribedTo     time.Time          `bson:"subscribed_to,omitempty"`
	LastPostAt       time.Time          `bson:"last_post_at,omitempty"`
	RegisteredAt     time.Time          `bson:"registered_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:               d.ID.Hex(),
		ChatID:           d.ChatID,
		Email:            d.Email,
		FirstName:        d.FirstName,
		Username:         d.Username,
		State:            domain.SessionState(d.State),
		Niche:            d.Niche,
		PendingContentID: d.PendingContentID,
		PendingTopic:     d.PendingTopic,
		PendingQuestion:  d.PendingQuestion,
		PostsThisWeek:    d.PostsThisWeek,
		WeekAnchor:       d.WeekAnchor,
		Active:           d.Active,
		SubscribedTo:     d.SubscribedTo,
		LastPostAt:       d.LastPostAt,
		RegisteredAt:     d.RegisteredAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := userDoc{
		ChatID:       u.ChatID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		Username:     u.Username,
		State:        string(u.State),
		WeekAnchor:   domain.WeekAnchor(u.RegisteredAt),
		Active:       u.Active,
		SubscribedTo: u.SubscribedTo,
		RegisteredAt: u.RegisteredAt,
		UpdatedAt:    u.UpdatedAt,
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return r.FindByChatID(ctx, u.ChatID)
}

func (r *UserRepository) FindByChatID(ctx context.Context, chatID int64) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.col.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by chat id: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	var doc userDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

// TransitionState applies the state change only while the user is still in
// `from`, making the transition a compare-and-set at the document level.
func (r *UserRepository) TransitionState(ctx context.Context, userID string, from, to domain.SessionState) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "state": string(from)},
		bson.M{"$set": bson.M{"state": string(to), "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("transition state: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("transition %s -> %s: %w", from, to, domain.ErrInvalidState)
	}
	return nil
}

func (r *UserRepository) SetEmail(ctx context.Context, userID string, email string) error {
	return r.setFields(ctx, userID, bson.M{"email": email})
}

func (r *UserRepository) SetNiche(ctx context.Context, userID string, niche string) error {
	return r.setFields(ctx, userID, bson.M{"niche": niche})
}

func (r *UserRepository) SetSubscription(ctx context.Context, userID string, until time.Time) error {
	return r.setFields(ctx, userID, bson.M{"subscribed_to": until.UTC()})
}

func (r *UserRepository) SetPendingPrompt(ctx context.Context, userID, contentID, topic, question string) error {
	return r.setFields(ctx, userID, bson.M{
		"pending_content_id": contentID,
		"pending_topic":      topic,
		"pending_question":   question,
	})
}

func (r *UserRepository) ClearPendingPrompt(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	_, err = r.col.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$unset": bson.M{"pending_content_id": "", "pending_topic": "", "pending_question": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("clear pending prompt: %w", err)
	}
	return nil
}

func (r *UserRepository) ListForDailyPrompt(ctx context.Context) ([]*domain.User, error) {
	return r.list(ctx, bson.M{"is_active": true, "state": string(domain.StateIdle)})
}

func (r *UserRepository) ListExpired(ctx context.Context, now time.Time) ([]*domain.User, error) {
	return r.list(ctx, bson.M{
		"is_active":     true,
		"state":         bson.M{"$nin": bson.A{string(domain.StateSuspended), string(domain.StateWaitingEmail)}},
		"subscribed_to": bson.M{"$gt": time.Time{}, "$lt": now.UTC()},
	})
}

func (r *UserRepository) list(ctx context.Context, filter bson.M) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var users []*domain.User
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, doc.toDomain())
	}
	return users, cur.Err()
}

func (r *UserRepository) setFields(ctx context.Context, userID string, fields bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	fields["updated_at"] = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// EnsureIndexes creates the indexes the session and quota paths rely on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "state", Value: 1}}},
		{Keys: bson.D{{Key: "subscribed_to", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
