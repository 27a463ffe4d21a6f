package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sheherjaano/backend/internal/apperror"
	"github.com/sheherjaano/backend/internal/model"
	"github.com/sheherjaano/backend/internal/repository"
)

// PlaceRepo implements repository.PlaceRepository over the five
// kind-specific collections.
type PlaceRepo struct {
	colls map[model.Kind]*mongo.Collection
}

// compile-time check that *PlaceRepo implements repository.PlaceRepository
var _ repository.PlaceRepository = (*PlaceRepo)(nil)

func (r *PlaceRepo) coll(kind model.Kind) (*mongo.Collection, error) {
	coll, ok := r.colls[kind]
	if !ok {
		return nil, apperror.ValidationFailed("kind", fmt.Sprintf("unknown place kind %q", kind))
	}
	return coll, nil
}

// Create inserts a new master place record.
//
// The repository owns ID generation (xid strings as _id) and timestamps —
// callers hand in a Place with business fields only and read the minted ID
// back off the struct.
//
// DUPLICATE DETECTION:
// We rely on the unique (nameLower, city, state) index rather than trusting
// the pre-insert lookup. mongo.IsDuplicateKeyError recognises the server's
// E11000 error; we translate it to apperror.ErrConflict so the service can
// fall back to the contribution branch without knowing anything about Mongo.
func (r *PlaceRepo) Create(ctx context.Context, kind model.Kind, place *model.Place) error {
	coll, err := r.coll(kind)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	place.ID = xid.New().String()
	place.NameLower = strings.ToLower(strings.TrimSpace(place.Name))
	place.CreatedAt = now
	place.UpdatedAt = now
	if place.Images == nil {
		place.Images = []string{}
	}
	if place.Geometry.Type == "" {
		place.Geometry = model.NewGeoPoint(nil)
	}

	if _, err := coll.InsertOne(ctx, place); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict(kind.Collection(),
				fmt.Sprintf("%q already exists in %s, %s", place.Name, place.City, place.State))
		}
		return fmt.Errorf("mongo: inserting %s %q: %w", kind, place.Name, err)
	}

	return nil
}

// FindByName resolves the case-insensitive (name, city, state) match the
// submission workflow branches on.
//
// Matching on nameLower gives exact case-insensitive equality and uses the
// compound index — a ^name$ regex with the "i" option would scan. Ties
// (legacy duplicates created before the unique index existed) resolve to the
// earliest-created record.
func (r *PlaceRepo) FindByName(ctx context.Context, kind model.Kind, name, city, state string) (*model.Place, error) {
	coll, err := r.coll(kind)
	if err != nil {
		return nil, err
	}

	filter := bson.D{
		{Key: "nameLower", Value: strings.ToLower(strings.TrimSpace(name))},
		{Key: "city", Value: city},
		{Key: "state", Value: state},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	var place model.Place
	if err := coll.FindOne(ctx, filter, opts).Decode(&place); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperror.NotFound(kind.Collection(), name)
		}
		return nil, fmt.Errorf("mongo: finding %s %q: %w", kind, name, err)
	}

	return &place, nil
}

// GetByID retrieves one place record. Returns apperror.ErrNotFound if absent.
func (r *PlaceRepo) GetByID(ctx context.Context, kind model.Kind, id string) (*model.Place, error) {
	coll, err := r.coll(kind)
	if err != nil {
		return nil, err
	}

	var place model.Place
	if err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&place); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperror.NotFound(kind.Collection(), id)
		}
		return nil, fmt.Errorf("mongo: getting %s %s: %w", kind, id, err)
	}

	return &place, nil
}

// List returns places of one kind, optionally filtered by state and/or city,
// newest first.
func (r *PlaceRepo) List(ctx context.Context, kind model.Kind, filter repository.PlaceFilter) ([]model.Place, error) {
	coll, err := r.coll(kind)
	if err != nil {
		return nil, err
	}

	query := bson.D{}
	if filter.State != "" {
		query = append(query, bson.E{Key: "state", Value: filter.State})
	}
	if filter.City != "" {
		query = append(query, bson.E{Key: "city", Value: filter.City})
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing %s: %w", kind, err)
	}

	places := []model.Place{}
	if err := cursor.All(ctx, &places); err != nil {
		return nil, fmt.Errorf("mongo: decoding %s list: %w", kind, err)
	}
	return places, nil
}

// ListByUser returns every place of one kind created by the given user.
func (r *PlaceRepo) ListByUser(ctx context.Context, kind model.Kind, userID string) ([]model.Place, error) {
	coll, err := r.coll(kind)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, bson.D{{Key: "user", Value: userID}})
	if err != nil {
		return nil, fmt.Errorf("mongo: listing %s for user %s: %w", kind, userID, err)
	}

	places := []model.Place{}
	if err := cursor.All(ctx, &places); err != nil {
		return nil, fmt.Errorf("mongo: decoding %s list: %w", kind, err)
	}
	return places, nil
}

// CountByUser counts the places of one kind created by the given user.
func (r *PlaceRepo) CountByUser(ctx context.Context, kind model.Kind, userID string) (int64, error) {
	coll, err := r.coll(kind)
	if err != nil {
		return 0, err
	}

	n, err := coll.CountDocuments(ctx, bson.D{{Key: "user", Value: userID}})
	if err != nil {
		return 0, fmt.Errorf("mongo: counting %s for user %s: %w", kind, userID, err)
	}
	return n, nil
}

// Delete removes exactly one place record. Returns apperror.ErrNotFound if
// nothing matched. Contributions pointing at the deleted place are left in
// place — there is deliberately no cascade on this path.
func (r *PlaceRepo) Delete(ctx context.Context, kind model.Kind, id string) error {
	coll, err := r.coll(kind)
	if err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("mongo: deleting %s %s: %w", kind, id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound(kind.Collection(), id)
	}
	return nil
}
