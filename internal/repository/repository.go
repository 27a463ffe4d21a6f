// Package repository declares the storage interfaces the service layer
// depends on. The concrete MongoDB implementation lives in repository/mongo;
// tests inject in-memory mocks. The service layer never imports the mongo
// package — it programs against these interfaces only.
package repository

import (
	"context"

	"github.com/sheherjaano/backend/internal/model"
)

// PlaceFilter narrows place listings. Zero values mean "no filter".
type PlaceFilter struct {
	State string
	City  string
}

// ContentTally holds the per-collection owned-content counts for one user:
// their contributions plus the places they created across all five kinds.
type ContentTally struct {
	Contributions int64
	Places        map[model.Kind]int64
}

// Total sums all six counts.
func (t ContentTally) Total() int64 {
	total := t.Contributions
	for _, n := range t.Places {
		total += n
	}
	return total
}

// PlaceRepository accesses the five kind-specific place collections. Every
// method takes the kind explicitly; the implementation maps it to a
// collection.
type PlaceRepository interface {
	// Create inserts a new master place record, minting its ID and
	// timestamps. Returns an error wrapping apperror.ErrConflict when a
	// place with the same (name, city, state) already exists — the unique
	// index is the authoritative duplicate check, not the pre-insert lookup.
	Create(ctx context.Context, kind model.Kind, place *model.Place) error

	// FindByName looks up a place by case-insensitive exact name within a
	// (city, state) partition. Should more than one match exist, the
	// earliest-created record wins. Returns apperror.ErrNotFound when absent.
	FindByName(ctx context.Context, kind model.Kind, name, city, state string) (*model.Place, error)

	GetByID(ctx context.Context, kind model.Kind, id string) (*model.Place, error)
	List(ctx context.Context, kind model.Kind, filter PlaceFilter) ([]model.Place, error)
	ListByUser(ctx context.Context, kind model.Kind, userID string) ([]model.Place, error)
	CountByUser(ctx context.Context, kind model.Kind, userID string) (int64, error)
	Delete(ctx context.Context, kind model.Kind, id string) error
}

// ContributionRepository accesses the contributions collection.
type ContributionRepository interface {
	Create(ctx context.Context, c *model.Contribution) error
	GetByID(ctx context.Context, id string) (*model.Contribution, error)
	ListByPlace(ctx context.Context, kind model.Kind, placeID string) ([]model.Contribution, error)
	ListByUser(ctx context.Context, userID string) ([]model.Contribution, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// UserRepository accesses the users collection.
//
// The three role methods implement the promotion/downgrade state machine as
// conditional single-document updates, so concurrent submissions or deletions
// by the same user can never double-fire a transition.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByRefreshToken(ctx context.Context, token string) (*model.User, error)

	// UpsertGitHub creates or refreshes an account keyed by GitHub user ID.
	UpsertGitHub(ctx context.Context, user *model.User) error

	// SetRefreshToken stores (or clears, with "") the user's refresh token.
	SetRefreshToken(ctx context.Context, id, token string) error

	// AdjustContentCount atomically adds delta to the user's owned-content
	// counter and returns the new total.
	AdjustContentCount(ctx context.Context, id string, delta int64) (int64, error)

	// PromoteIfFirst flips role user→contributor only if the counter sits at
	// exactly 1. Reports whether the transition fired.
	PromoteIfFirst(ctx context.Context, id string) (bool, error)

	// DemoteIfEmpty flips role contributor→user only if the counter sits at
	// exactly 0. Reports whether the transition fired.
	DemoteIfEmpty(ctx context.Context, id string) (bool, error)
}
