// Package service — place submission business logic.
//
// PlaceService owns the contribution workflow, the heart of the platform:
// a logged-in user submits a place of one of five kinds, and the system
// decides whether that submission becomes a brand-new master record or a
// contribution attached to an existing one. Nobody ever gets told "this
// place already exists, go away" — duplicate knowledge is welcomed and
// folded in.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sheherjaano/backend/internal/apperror"
	"github.com/sheherjaano/backend/internal/auth"
	"github.com/sheherjaano/backend/internal/geocode"
	"github.com/sheherjaano/backend/internal/model"
	"github.com/sheherjaano/backend/internal/repository"
)

// PlaceService handles place submission, listing, and detail reads.
type PlaceService struct {
	places        repository.PlaceRepository
	contributions repository.ContributionRepository
	users         repository.UserRepository
	geocoder      geocode.Resolver
	tokens        *auth.TokenService
	logger        *slog.Logger
}

// NewPlaceService creates a PlaceService with all required dependencies.
func NewPlaceService(
	places repository.PlaceRepository,
	contributions repository.ContributionRepository,
	users repository.UserRepository,
	geocoder geocode.Resolver,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *PlaceService {
	return &PlaceService{
		places:        places,
		contributions: contributions,
		users:         users,
		geocoder:      geocoder,
		tokens:        tokens,
		logger:        logger,
	}
}

// SubmitInput carries everything a submission form can say. Only the fields
// relevant to the submitted kind are read; the rest stay zero.
type SubmitInput struct {
	Kind model.Kind

	Name     string
	Category string

	State   string
	City    string
	Address string

	// Manual coordinates — when both are set they beat geocoding outright.
	Latitude  *float64
	Longitude *float64

	Description   string
	Images        []string
	VideoLink     string
	InstagramLink string

	// Spot details (famous + hidden)
	OpeningHours string
	EntryFee     string
	BestTime     string

	// History details
	Era                string
	BuiltBy            string
	YearBuilt          string
	HistoryDescription string

	// Handicraft details
	PriceRange   string
	LocalMarkets []model.Market

	// Food details — at least one venue is required for food submissions.
	Places []model.FoodPlace
}

// SubmitResult is what a submission produces.
//
// Exactly one of Place/Contribution describes the new document: Place is
// always populated (the master record, new or pre-existing), Contribution
// only when the submission attached to an existing place. NewRole and
// AccessToken are set only when this submission promoted the submitter.
type SubmitResult struct {
	Place        *model.Place
	Contribution *model.Contribution
	IsNewPlace   bool
	NewRole      string
	AccessToken  string
}

// Submit runs the whole contribution workflow for one submission.
//
// WORKFLOW:
//  1. Validate the input for the submitted kind
//  2. Look up an existing place by case-insensitive (name, city, state)
//  3. Found → create a Contribution attached to it (branch A)
//     Absent → geocode and create a new master Place (branch B)
//  4. Either way the submitter now owns one more content item: bump their
//     counter, and if this was their very first item, promote them to
//     contributor and mint a fresh access token carrying the new role
//
// THE DUPLICATE RACE:
// Two users can submit the same new place at once; both lookups miss. The
// unique (nameLower, city, state) index decides the winner: the loser's
// insert comes back as a conflict, and we re-resolve the place and fall back
// to branch A. Neither submission fails.
func (s *PlaceService) Submit(ctx context.Context, userID string, in SubmitInput) (*SubmitResult, error) {
	if err := validateSubmission(in); err != nil {
		return nil, err
	}

	existing, err := s.places.FindByName(ctx, in.Kind, in.Name, in.City, in.State)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/place: resolving %s %q: %w", in.Kind, in.Name, err)
	}

	result := &SubmitResult{}

	if existing == nil {
		place := s.buildPlace(ctx, userID, in)
		err := s.places.Create(ctx, in.Kind, place)
		switch {
		case err == nil:
			result.Place = place
			result.IsNewPlace = true
		case errors.Is(err, apperror.ErrConflict):
			// Lost the insert race — someone else just created this place.
			// Re-resolve it and attach a contribution instead.
			existing, err = s.places.FindByName(ctx, in.Kind, in.Name, in.City, in.State)
			if err != nil {
				return nil, fmt.Errorf("service/place: re-resolving %s %q after conflict: %w", in.Kind, in.Name, err)
			}
		default:
			return nil, fmt.Errorf("service/place: creating %s %q: %w", in.Kind, in.Name, err)
		}
	}

	if existing != nil {
		contribution := s.buildContribution(ctx, userID, existing, in)
		if err := s.contributions.Create(ctx, contribution); err != nil {
			return nil, fmt.Errorf("service/place: attaching contribution to %s %s: %w", in.Kind, existing.ID, err)
		}
		result.Place = existing
		result.Contribution = contribution
	}

	s.logger.Info("submission accepted",
		slog.String("userID", userID),
		slog.String("kind", string(in.Kind)),
		slog.String("placeID", result.Place.ID),
		slog.Bool("isNewPlace", result.IsNewPlace),
	)

	if err := s.recordOwnership(ctx, userID, result); err != nil {
		return nil, err
	}

	return result, nil
}

// recordOwnership bumps the submitter's content counter and fires the
// promotion when this was their first item.
//
// The document (place or contribution) is already persisted at this point —
// a failure here loses the role bump, not the content. That ordering is
// deliberate: content must never disappear because a counter update failed.
func (s *PlaceService) recordOwnership(ctx context.Context, userID string, result *SubmitResult) error {
	total, err := s.users.AdjustContentCount(ctx, userID, 1)
	if err != nil {
		return fmt.Errorf("service/place: counting content for user %s: %w", userID, err)
	}
	if total != 1 {
		return nil
	}

	promoted, err := s.users.PromoteIfFirst(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/place: promoting user %s: %w", userID, err)
	}
	if !promoted {
		// Counter says 1 but the conditional update didn't fire — the user
		// was already a contributor (or admin). Nothing to announce.
		return nil
	}

	s.logger.Info("user promoted to contributor", slog.String("userID", userID))

	token, err := s.tokens.GenerateAccess(userID, model.RoleContributor)
	if err != nil {
		return fmt.Errorf("service/place: minting contributor token for user %s: %w", userID, err)
	}

	result.NewRole = model.RoleContributor
	result.AccessToken = token
	return nil
}

// validateSubmission checks the kind-independent requirements plus the one
// kind-specific rule (food needs at least one venue).
func validateSubmission(in SubmitInput) error {
	if !in.Kind.Valid() {
		return apperror.ValidationFailed("kind", fmt.Sprintf("unknown place kind %q", in.Kind))
	}
	if strings.TrimSpace(in.Name) == "" {
		return apperror.ValidationFailed("name", "name is required")
	}
	if strings.TrimSpace(in.City) == "" {
		return apperror.ValidationFailed("city", "city is required")
	}
	if strings.TrimSpace(in.State) == "" {
		return apperror.ValidationFailed("state", "state is required")
	}
	if in.Kind == model.KindFood && len(in.Places) == 0 {
		return apperror.ValidationFailed("places", "a food submission needs at least one place serving it")
	}
	return nil
}

// buildPlace assembles the master record for branch B, including the
// kind-specific geocoding quirks.
func (s *PlaceService) buildPlace(ctx context.Context, userID string, in SubmitInput) *model.Place {
	place := &model.Place{
		Name:          strings.TrimSpace(in.Name),
		Category:      in.Category,
		State:         in.State,
		City:          in.City,
		Address:       in.Address,
		Description:   in.Description,
		Images:        in.Images,
		VideoLink:     in.VideoLink,
		InstagramLink: in.InstagramLink,
		UserID:        userID,
	}

	switch in.Kind {
	case model.KindFamousSpot, model.KindHiddenSpot:
		place.OpeningHours = in.OpeningHours
		place.EntryFee = in.EntryFee
		place.BestTime = in.BestTime
		place.Geometry = s.resolvePoint(ctx, geocode.Query{
			Name: in.Name, Address: in.Address, City: in.City, State: in.State,
			Latitude: in.Latitude, Longitude: in.Longitude,
		})

	case model.KindHistory:
		place.Era = in.Era
		place.BuiltBy = in.BuiltBy
		place.YearBuilt = in.YearBuilt
		place.HistoryDescription = in.HistoryDescription
		place.Geometry = s.resolvePoint(ctx, geocode.Query{
			Name: in.Name, Address: in.Address, City: in.City, State: in.State,
			Latitude: in.Latitude, Longitude: in.Longitude,
		})

	case model.KindHandicraft:
		place.PriceRange = in.PriceRange
		place.LocalMarkets = in.LocalMarkets
		// A craft has no address of its own — it is located where it is sold,
		// so the first local market's address anchors the point. With no
		// markets the craft degrades to the city centroid.
		addr := in.Address
		if addr == "" && len(in.LocalMarkets) > 0 {
			addr = in.LocalMarkets[0].Address
		}
		place.Geometry = s.resolvePoint(ctx, geocode.Query{
			Address: addr, City: in.City, State: in.State,
			Latitude: in.Latitude, Longitude: in.Longitude,
		})

	case model.KindFood:
		place.Places = s.geocodeFoodPlaces(ctx, in.City, in.State, in.Places)
		// The dish itself anchors to the city — the venue list carries the
		// precise points.
		place.Geometry = s.resolvePoint(ctx, geocode.Query{
			City: in.City, State: in.State,
			Latitude: in.Latitude, Longitude: in.Longitude,
		})
	}

	return place
}

// buildContribution assembles the branch-A document: the submitter's content
// plus a bag of kind-specific suggested field edits for the moderation UI.
// Only fields the submitter actually filled in land in the bag.
func (s *PlaceService) buildContribution(ctx context.Context, userID string, place *model.Place, in SubmitInput) *model.Contribution {
	c := &model.Contribution{
		PlaceID:       place.ID,
		UserID:        userID,
		Type:          in.Kind,
		Content:       in.Description,
		Images:        in.Images,
		VideoLink:     in.VideoLink,
		InstagramLink: in.InstagramLink,
	}

	changes := map[string]any{}
	put := func(key, value string) {
		if value != "" {
			changes[key] = value
		}
	}

	switch in.Kind {
	case model.KindFamousSpot, model.KindHiddenSpot:
		put("openingHours", in.OpeningHours)
		put("entryFee", in.EntryFee)
		put("bestTime", in.BestTime)
		put("address", in.Address)

	case model.KindHistory:
		put("era", in.Era)
		put("builtBy", in.BuiltBy)
		put("yearBuilt", in.YearBuilt)

	case model.KindHandicraft:
		put("priceRange", in.PriceRange)
		if len(in.LocalMarkets) > 0 {
			changes["localMarkets"] = in.LocalMarkets
		}

	case model.KindFood:
		put("category", in.Category)
		if len(in.Places) > 0 {
			// Suggested venues are geocoded too — the moderation UI shows
			// them on a map exactly like accepted ones.
			changes["places"] = s.geocodeFoodPlaces(ctx, in.City, in.State, in.Places)
		}
	}

	if len(changes) > 0 {
		c.SuggestedChanges = changes
	}
	return c
}

// geocodeFoodPlaces resolves a point for every submitted venue. Manual
// coordinates on a venue win; otherwise its own name and address feed the
// geocoder.
func (s *PlaceService) geocodeFoodPlaces(ctx context.Context, city, state string, venues []model.FoodPlace) []model.FoodPlace {
	out := make([]model.FoodPlace, len(venues))
	for i, v := range venues {
		v.Geometry = s.resolvePoint(ctx, geocode.Query{
			Name: v.PlaceName, Address: v.Address, City: city, State: state,
			Latitude: v.Latitude, Longitude: v.Longitude,
		})
		v.Latitude, v.Longitude = nil, nil
		out[i] = v
	}
	return out
}

func (s *PlaceService) resolvePoint(ctx context.Context, q geocode.Query) model.GeoPoint {
	return model.NewGeoPoint(s.geocoder.Resolve(ctx, q))
}

// ContributionWithUser is a contribution joined with its author's public
// profile, as embedded in place detail responses.
type ContributionWithUser struct {
	model.Contribution
	User *model.PublicProfile `json:"user,omitempty"`
}

// PlaceDetail is one place joined with its owner and its contributions.
type PlaceDetail struct {
	Place         *model.Place           `json:"place"`
	Owner         *model.PublicProfile   `json:"owner,omitempty"`
	Contributions []ContributionWithUser `json:"contributions"`
}

// List returns places of one kind, optionally narrowed by state and city.
func (s *PlaceService) List(ctx context.Context, kind model.Kind, filter repository.PlaceFilter) ([]model.Place, error) {
	if !kind.Valid() {
		return nil, apperror.ValidationFailed("kind", fmt.Sprintf("unknown place kind %q", kind))
	}
	places, err := s.places.List(ctx, kind, filter)
	if err != nil {
		return nil, fmt.Errorf("service/place: listing %s: %w", kind, err)
	}
	return places, nil
}

// Get returns one place with its contributions, each joined with the
// author's public profile. A contribution whose author has since deleted
// their account is still returned, just without a profile.
func (s *PlaceService) Get(ctx context.Context, kind model.Kind, id string) (*PlaceDetail, error) {
	if !kind.Valid() {
		return nil, apperror.ValidationFailed("kind", fmt.Sprintf("unknown place kind %q", kind))
	}

	place, err := s.places.GetByID(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("service/place: getting %s %s: %w", kind, id, err)
	}

	contributions, err := s.contributions.ListByPlace(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("service/place: listing contributions for %s %s: %w", kind, id, err)
	}

	detail := &PlaceDetail{
		Place:         place,
		Owner:         s.profileOf(ctx, place.UserID),
		Contributions: make([]ContributionWithUser, len(contributions)),
	}
	for i, c := range contributions {
		detail.Contributions[i] = ContributionWithUser{
			Contribution: c,
			User:         s.profileOf(ctx, c.UserID),
		}
	}

	return detail, nil
}

// profileOf fetches a user's public profile, tolerating deleted accounts.
func (s *PlaceService) profileOf(ctx context.Context, userID string) *model.PublicProfile {
	if userID == "" {
		return nil
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("joining user profile failed",
				slog.String("userID", userID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	p := user.Public()
	return &p
}
