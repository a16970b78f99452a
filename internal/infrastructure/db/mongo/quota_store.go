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

	"github.com/postpilot/content-system/internal/api/metrics"
	"github.com/postpilot/content-system/internal/core/domain"
)

// QuotaStore implements the atomic weekly counter over the users collection.
// Rollover and reservation are each a single server-side conditional update,
// so concurrent reservations for one user serialize on the document: two calls
// can never both pass the posts_this_week < limit check.
type QuotaStore struct {
	col   *mongo.Collection
	limit int
	now   func() time.Time
}

func NewQuotaStore(db *mongo.Database, weeklyLimit int) *QuotaStore {
	if weeklyLimit <= 0 {
		weeklyLimit = 10
	}
	return &QuotaStore{col: db.Collection(collectionUsers), limit: weeklyLimit, now: time.Now}
}

// TryReserve lazily rolls the counter over to the current week, then performs
// the conditional increment. No background sweep is needed: the first touch
// after a week boundary resets the counter.
func (q *QuotaStore) TryReserve(ctx context.Context, userID string) (domain.QuotaDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.QuotaDecision{}, domain.ErrUserNotFound
	}

	anchor := domain.WeekAnchor(q.now())

	// Step 1: lazy rollover. Matches only when the stored anchor predates the
	// current week; a no-match means the record is already current.
	_, err = q.col.UpdateOne(ctx,
		bson.M{"_id": oid, "week_anchor": bson.M{"$lt": anchor}},
		bson.M{"$set": bson.M{"week_anchor": anchor, "posts_this_week": 0}},
	)
	if err != nil {
		return domain.QuotaDecision{}, fmt.Errorf("quota rollover: %w", err)
	}

	// Step 2: check-and-increment as one server-side operation.
	after := options.After
	var doc userDoc
	err = q.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "week_anchor": anchor, "posts_this_week": bson.M{"$lt": q.limit}},
		bson.M{"$inc": bson.M{"posts_this_week": 1}, "$set": bson.M{"updated_at": q.now().UTC()}},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after},
	).Decode(&doc)
	if err == nil {
		metrics.QuotaDecisionsTotal.WithLabelValues("granted").Inc()
		return domain.QuotaDecision{Granted: true, Generated: doc.PostsThisWeek, Limit: q.limit}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return domain.QuotaDecision{}, fmt.Errorf("quota reserve: %w", err)
	}

	// Denied, or the user does not exist. Read back for the counts.
	if err := q.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.QuotaDecision{}, domain.ErrUserNotFound
		}
		return domain.QuotaDecision{}, fmt.Errorf("quota read: %w", err)
	}
	metrics.QuotaDecisionsTotal.WithLabelValues("denied").Inc()
	return domain.QuotaDecision{Granted: false, Generated: doc.PostsThisWeek, Limit: q.limit}, nil
}

// Release undoes a granted reservation after a failed run. The guard clause
// keeps the counter from ever dropping below zero.
func (q *QuotaStore) Release(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	res, err := q.col.UpdateOne(ctx,
		bson.M{"_id": oid, "posts_this_week": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"posts_this_week": -1}, "$set": bson.M{"updated_at": q.now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("quota release: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrQuotaNotReserved
	}
	metrics.QuotaReleasesTotal.Inc()
	return nil
}

// Commit finalises a reservation: the increment is already durable, so commit
// only stamps last_post_at and reports the user's standing.
func (q *QuotaStore) Commit(ctx context.Context, userID string) (domain.QuotaDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.QuotaDecision{}, domain.ErrUserNotFound
	}

	after := options.After
	var doc userDoc
	err = q.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"last_post_at": q.now().UTC()}},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after},
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.QuotaDecision{}, domain.ErrUserNotFound
		}
		return domain.QuotaDecision{}, fmt.Errorf("quota commit: %w", err)
	}
	return domain.QuotaDecision{Granted: true, Generated: doc.PostsThisWeek, Limit: q.limit}, nil
}
