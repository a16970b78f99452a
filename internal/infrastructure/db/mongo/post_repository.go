package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/postpilot/content-system/internal/api/metrics"
	"github.com/postpilot/content-system/internal/core/domain"
)

const collectionPosts = "generated_posts"

// PostRepository persists the append-only generated post history.
type PostRepository struct {
	col *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{col: db.Collection(collectionPosts)}
}

type postDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	UserID           string             `bson:"user_id"`
	ContentID        string             `bson:"content_id,omitempty"`
	AdaptedTopic     string             `bson:"adapted_topic"`
	Question         string             `bson:"question"`
	Answer           string             `bson:"answer"`
	GeneratedContent string             `bson:"generated_content"`
	WeekStart        time.Time          `bson:"week_start_date"`
	CreatedAt        time.Time          `bson:"created_at"`
}

func (r *PostRepository) Insert(ctx context.Context, p *domain.PostRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := postDoc{
		UserID:           p.UserID,
		ContentID:        p.ContentID,
		AdaptedTopic:     p.AdaptedTopic,
		Question:         p.Question,
		Answer:           p.Answer,
		GeneratedContent: p.GeneratedContent,
		WeekStart:        p.WeekStart,
		CreatedAt:        p.CreatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	metrics.PostsGeneratedTotal.Inc()
	return nil
}

func (r *PostRepository) ListWeek(ctx context.Context, userID string, weekStart time.Time) ([]*domain.PostRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx,
		bson.M{"user_id": userID, "week_start_date": weekStart},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer cur.Close(ctx)

	var posts []*domain.PostRecord
	for cur.Next(ctx) {
		var doc postDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode post: %w", err)
		}
		posts = append(posts, &domain.PostRecord{
			ID:               doc.ID.Hex(),
			UserID:           doc.UserID,
			ContentID:        doc.ContentID,
			AdaptedTopic:     doc.AdaptedTopic,
			Question:         doc.Question,
			Answer:           doc.Answer,
			GeneratedContent: doc.GeneratedContent,
			WeekStart:        doc.WeekStart,
			CreatedAt:        doc.CreatedAt,
		})
	}
	return posts, cur.Err()
}

// EnsureIndexes supports the weekly history view.
func (r *PostRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "week_start_date", Value: 1}},
	})
	return err
}
