package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sheherjaano/backend/internal/apperror"
	"github.com/sheherjaano/backend/internal/model"
	"github.com/sheherjaano/backend/internal/repository"
)

// ContributionRepo implements repository.ContributionRepository.
type ContributionRepo struct {
	coll *mongo.Collection
}

// compile-time check that *ContributionRepo implements the interface
var _ repository.ContributionRepository = (*ContributionRepo)(nil)

// Create inserts a contribution, minting its ID and defaulting the status to
// pending. Status is never transitioned here — moderation lives elsewhere.
func (r *ContributionRepo) Create(ctx context.Context, c *model.Contribution) error {
	now := time.Now().UTC()
	c.ID = xid.New().String()
	if c.Status == "" {
		c.Status = model.StatusPending
	}
	if c.Images == nil {
		c.Images = []string{}
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("mongo: inserting contribution for place %s: %w", c.PlaceID, err)
	}
	return nil
}

// GetByID retrieves one contribution. Returns apperror.ErrNotFound if absent.
func (r *ContributionRepo) GetByID(ctx context.Context, id string) (*model.Contribution, error) {
	var c model.Contribution
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperror.NotFound("contribution", id)
		}
		return nil, fmt.Errorf("mongo: getting contribution %s: %w", id, err)
	}
	return &c, nil
}

// ListByPlace returns the contributions attached to one place, oldest first.
// The type filter matters: place IDs are only unique within a collection, so
// a contribution is addressed by (placeId, type) together.
func (r *ContributionRepo) ListByPlace(ctx context.Context, kind model.Kind, placeID string) ([]model.Contribution, error) {
	filter := bson.D{
		{Key: "placeId", Value: placeID},
		{Key: "type", Value: kind},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing contributions for %s %s: %w", kind, placeID, err)
	}

	out := []model.Contribution{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo: decoding contributions: %w", err)
	}
	return out, nil
}

// ListByUser returns the contributions a user has made, newest first.
func (r *ContributionRepo) ListByUser(ctx context.Context, userID string) ([]model.Contribution, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.D{{Key: "userId", Value: userID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing contributions for user %s: %w", userID, err)
	}

	out := []model.Contribution{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo: decoding contributions: %w", err)
	}
	return out, nil
}

// CountByUser counts the contributions a user has made.
func (r *ContributionRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "userId", Value: userID}})
	if err != nil {
		return 0, fmt.Errorf("mongo: counting contributions for user %s: %w", userID, err)
	}
	return n, nil
}

// Delete removes exactly one contribution. Returns apperror.ErrNotFound if
// nothing matched.
func (r *ContributionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("mongo: deleting contribution %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("contribution", id)
	}
	return nil
}
