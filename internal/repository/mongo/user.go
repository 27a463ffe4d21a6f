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

// UserRepo implements repository.UserRepository.
type UserRepo struct {
	coll *mongo.Collection
}

// compile-time check that *UserRepo implements repository.UserRepository
var _ repository.UserRepository = (*UserRepo)(nil)

// Create inserts a new user with role "user" and a zero content counter.
// Duplicate email or username surfaces as apperror.ErrConflict — the unique
// indexes catch the race two concurrent registrations would otherwise win
// together.
func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("user", "email or username already registered")
		}
		return fmt.Errorf("mongo: inserting user %q: %w", user.Username, err)
	}
	return nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.D, what string) (*model.User, error) {
	var u model.User
	if err := r.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperror.NotFound("user", what)
		}
		return nil, fmt.Errorf("mongo: finding user by %s: %w", what, err)
	}
	return &u, nil
}

// GetByID retrieves a user by internal ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}}, id)
}

// GetByEmail retrieves a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}}, email)
}

// GetByUsername retrieves a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "username", Value: username}}, username)
}

// GetByRefreshToken retrieves the user holding the given refresh token.
// Used by the refresh rotation and logout flows.
func (r *UserRepo) GetByRefreshToken(ctx context.Context, token string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "refreshToken", Value: token}}, "refresh token")
}

// UpsertGitHub inserts or updates a user keyed by their GitHub ID.
//
// First OAuth login → insert with a fresh internal ID. Subsequent logins →
// refresh username/email/avatar in case they changed on GitHub, keeping the
// existing internal ID, role and content counter.
func (r *UserRepo) UpsertGitHub(ctx context.Context, user *model.User) error {
	var existing model.User
	err := r.coll.FindOne(ctx, bson.D{{Key: "githubId", Value: user.GitHubID}}).Decode(&existing)
	if err != nil && err != mongo.ErrNoDocuments {
		return fmt.Errorf("mongo: looking up user by githubId %d: %w", user.GitHubID, err)
	}

	now := time.Now().UTC()
	if err == nil {
		// Known account — refresh the mutable profile fields.
		user.ID = existing.ID
		user.Role = existing.Role
		user.ContentCount = existing.ContentCount
		user.CreatedAt = existing.CreatedAt
		user.UpdatedAt = now

		_, err := r.coll.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: existing.ID}},
			bson.D{{Key: "$set", Value: bson.D{
				{Key: "username", Value: user.Username},
				{Key: "email", Value: user.Email},
				{Key: "avatarUrl", Value: user.AvatarURL},
				{Key: "updatedAt", Value: now},
			}}},
		)
		if err != nil {
			return fmt.Errorf("mongo: updating user %s: %w", existing.ID, err)
		}
		return nil
	}

	user.ID = xid.New().String()
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("mongo: inserting user (githubId=%d): %w", user.GitHubID, err)
	}
	return nil
}

// SetRefreshToken stores (or clears, with "") the user's refresh token.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "refreshToken", Value: token},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("mongo: setting refresh token for user %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// AdjustContentCount atomically adds delta to the user's owned-content
// counter and returns the new total.
//
// FindOneAndUpdate with ReturnDocument(After) makes the increment and the
// read a single server-side operation — two concurrent submissions by the
// same user observe distinct totals (1 and 2), never the same value. That
// property is what the promotion logic keys off.
func (r *UserRepo) AdjustContentCount(ctx context.Context, id string, delta int64) (int64, error) {
	filter := bson.D{{Key: "_id", Value: id}}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "contentCount", Value: delta}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var u model.User
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, apperror.NotFound("user", id)
		}
		return 0, fmt.Errorf("mongo: adjusting content count for user %s: %w", id, err)
	}
	return u.ContentCount, nil
}

// PromoteIfFirst flips role user→contributor only when the counter sits at
// exactly 1. The condition lives in the filter, so the flip is atomic: if a
// concurrent request already promoted (or another item landed and the counter
// moved past 1), the filter matches nothing and we report false.
func (r *UserRepo) PromoteIfFirst(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: id},
			{Key: "role", Value: model.RoleUser},
			{Key: "contentCount", Value: 1},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "role", Value: model.RoleContributor},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return false, fmt.Errorf("mongo: promoting user %s: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}

// DemoteIfEmpty flips role contributor→user only when the counter sits at
// exactly 0. Same conditional-update trick as PromoteIfFirst.
func (r *UserRepo) DemoteIfEmpty(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: id},
			{Key: "role", Value: model.RoleContributor},
			{Key: "contentCount", Value: 0},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "role", Value: model.RoleUser},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return false, fmt.Errorf("mongo: demoting user %s: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}
