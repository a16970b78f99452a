package mongo

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const collectionAllowedEmails = "allowed_emails"

// AllowListRepository checks registration emails against the pre-approved set.
type AllowListRepository struct {
	col *mongo.Collection
}

func NewAllowListRepository(db *mongo.Database) *AllowListRepository {
	return &AllowListRepository{col: db.Collection(collectionAllowedEmails)}
}

func (r *AllowListRepository) Contains(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"email": strings.ToLower(email)})
	if err != nil {
		return false, fmt.Errorf("allow list lookup: %w", err)
	}
	return n > 0, nil
}
