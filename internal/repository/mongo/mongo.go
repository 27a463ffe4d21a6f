// Package mongo implements the repository interfaces on MongoDB.
//
// WHY MONGODB?
// The data here is document-shaped: five place collections whose records carry
// different kind-specific fields, a contributions collection with an open
// suggestedChanges bag, and GeoJSON points that want a 2dsphere index. A
// document store expresses all of that natively — no join tables, no schema
// migration for a new optional field.
//
// DRIVER OVERVIEW (go.mongodb.org/mongo-driver):
//   - mongo.Client      — a connection pool (like sql.DB, NOT one connection)
//   - mongo.Collection  — handle for one collection, safe for concurrent use
//   - bson.D / bson.M   — ordered / unordered document literals for filters
//   - cursor.All        — decodes every result row into a slice
//
// The pattern is always:
//  1. mongo.Connect(ctx, options.Client().ApplyURI(uri)) → client
//  2. client.Database(name).Collection(name)             → collection handle
//  3. collection.FindOne / InsertOne / UpdateOne ...     → run operations
//  4. result.Decode(&doc) or cursor.All(ctx, &docs)      → read results
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sheherjaano/backend/internal/model"
)

// DB owns the mongo client and exposes one repository per entity.
//
// WHY THREE REPOSITORY TYPES INSTEAD OF METHODS ON DB?
// The repository interfaces all declare Create/GetByID/Delete — a single
// receiver type cannot implement three same-named methods with different
// signatures. Splitting per entity also mirrors how the service layer
// consumes them: each service receives only the repositories it needs.
type DB struct {
	client *mongo.Client
	logger *slog.Logger

	Places        *PlaceRepo
	Contributions *ContributionRepo
	Users         *UserRepo
}

// New connects to MongoDB, pings it, and prepares collection handles and
// indexes. The ctx bounds the connection attempt — pass one with a timeout.
//
// uri examples:
//   - "mongodb://localhost:27017"        → local development
//   - "mongodb+srv://...mongodb.net/..." → Atlas cluster
func New(ctx context.Context, uri, database string, logger *slog.Logger) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}

	// Connect() does not actually dial — Ping() forces a round trip so a bad
	// URI fails here at startup instead of on the first query.
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	dbh := client.Database(database)

	placeColls := make(map[model.Kind]*mongo.Collection, len(model.Kinds()))
	for _, kind := range model.Kinds() {
		placeColls[kind] = dbh.Collection(kind.Collection())
	}

	db := &DB{
		client:        client,
		logger:        logger,
		Places:        &PlaceRepo{colls: placeColls},
		Contributions: &ContributionRepo{coll: dbh.Collection("contributions")},
		Users:         &UserRepo{coll: dbh.Collection("users")},
	}

	if err := db.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	logger.Info("connected to MongoDB", slog.String("database", database))
	return db, nil
}

// ensureIndexes creates the indexes the workflow relies on. CreateMany is
// idempotent — existing identical indexes are left alone.
//
// The unique compound index (nameLower, city, state) on each place collection
// is what makes the new-vs-existing decision safe: two concurrent submissions
// of the same new place cannot both insert a master record. Whoever loses the
// race gets a duplicate-key error and is rerouted to the contribution branch.
func (db *DB) ensureIndexes(ctx context.Context) error {
	for kind, coll := range db.Places.colls {
		_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "nameLower", Value: 1},
					{Key: "city", Value: 1},
					{Key: "state", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "city", Value: 1}}},
			{Keys: bson.D{{Key: "geometry", Value: "2dsphere"}}},
		})
		if err != nil {
			return fmt.Errorf("mongo: creating %s indexes: %w", kind.Collection(), err)
		}
	}

	_, err := db.Contributions.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "placeId", Value: 1}, {Key: "type", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: creating contribution indexes: %w", err)
	}

	_, err = db.Users.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("mongo: creating user indexes: %w", err)
	}

	return nil
}

// Close disconnects from MongoDB, flushing any buffered operations.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnecting: %w", err)
	}
	db.logger.Info("disconnected from MongoDB")
	return nil
}
