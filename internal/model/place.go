// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Kind discriminates the five place collections.
//
// WHY A NAMED STRING TYPE?
// A plain string would work, but a named type lets the compiler catch mistakes:
// you can't accidentally pass a city name where a Kind is expected. The string
// values themselves are the wire values used in Contribution.Type and in the
// delete endpoint's "model" query parameter, so they must stay stable.
type Kind string

const (
	KindFamousSpot Kind = "famousSpot"
	KindHiddenSpot Kind = "hidden-spot"
	KindFood       Kind = "food"
	KindHandicraft Kind = "handicraft"
	KindHistory    Kind = "history"
)

// Kinds lists every place kind in a fixed order. Used when fanning out
// per-collection queries (dashboard listing, owned-content counts).
func Kinds() []Kind {
	return []Kind{KindFamousSpot, KindHiddenSpot, KindFood, KindHandicraft, KindHistory}
}

// Valid reports whether k is one of the five known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindFamousSpot, KindHiddenSpot, KindFood, KindHandicraft, KindHistory:
		return true
	}
	return false
}

// Collection returns the MongoDB collection name for this kind.
func (k Kind) Collection() string {
	switch k {
	case KindFamousSpot:
		return "famousspots"
	case KindHiddenSpot:
		return "hiddenspots"
	case KindFood:
		return "famousfoods"
	case KindHandicraft:
		return "handicrafts"
	case KindHistory:
		return "histories"
	}
	return ""
}

// Label returns the human-readable name shown in dashboard listings
// ("Famous Spot", "Hidden Spot", ...).
func (k Kind) Label() string {
	switch k {
	case KindFamousSpot:
		return "Famous Spot"
	case KindHiddenSpot:
		return "Hidden Spot"
	case KindFood:
		return "Food"
	case KindHandicraft:
		return "Handicraft"
	case KindHistory:
		return "History"
	}
	return string(k)
}

// GeoPoint is a GeoJSON point as MongoDB expects it for 2dsphere indexes.
// Coordinates are [longitude, latitude] — note the order, it trips everyone up.
// An unresolved location is stored as [0, 0].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a Point from a [longitude, latitude] pair.
func NewGeoPoint(coords []float64) GeoPoint {
	if len(coords) != 2 {
		coords = []float64{0, 0}
	}
	return GeoPoint{Type: "Point", Coordinates: coords}
}

// FoodPlace is a sub-place of a famous food: one venue where the dish is
// served. A food record must carry at least one (store-level validation).
type FoodPlace struct {
	PlaceName   string   `bson:"placeName" json:"placeName"`
	Address     string   `bson:"address" json:"address"`
	Price       string   `bson:"price,omitempty" json:"price,omitempty"`
	SpecialNote string   `bson:"specialNote,omitempty" json:"specialNote,omitempty"`
	Geometry    GeoPoint `bson:"geometry" json:"geometry"`
	// Manual coordinates supplied by the submitter; take precedence over
	// geocoding when present. Not persisted — consumed during submission.
	Latitude  *float64 `bson:"-" json:"latitude,omitempty"`
	Longitude *float64 `bson:"-" json:"longitude,omitempty"`
}

// Market is a local market where a handicraft can be bought.
type Market struct {
	Name    string `bson:"name,omitempty" json:"name,omitempty"`
	Address string `bson:"address,omitempty" json:"address,omitempty"`
}

// Place is one record in a kind-specific collection (famous spot, hidden spot,
// famous food, handicraft, or history).
//
// WHY ONE STRUCT FOR FIVE KINDS?
// The five collections share their essential shape — identity, location,
// content, rating aggregate, ownership, moderation flag — and differ only in a
// handful of kind-specific detail fields. One struct with omitempty on the
// kind-specific fields keeps each collection's documents lean while the
// submission workflow stays a single code path instead of five near-identical
// copies. The kind itself is implied by which collection the document lives
// in, so it is not stored.
//
// Name is the kind-specific display name (spot name, food name, craft name,
// place name). NameLower backs the unique compound index
// (nameLower, city, state) that makes the new-vs-existing decision safe under
// concurrent submissions: whoever loses the insert race gets a duplicate-key
// conflict and falls back to the contribution branch.
type Place struct {
	ID       string `bson:"_id,omitempty" json:"id"`
	Name     string `bson:"name" json:"name"`
	Category string `bson:"category,omitempty" json:"category,omitempty"`

	// Location
	State    string   `bson:"state" json:"state"`
	City     string   `bson:"city" json:"city"`
	Address  string   `bson:"address,omitempty" json:"address,omitempty"`
	Geometry GeoPoint `bson:"geometry" json:"geometry"`

	// Content
	Description   string   `bson:"description,omitempty" json:"description,omitempty"`
	Images        []string `bson:"images" json:"images"`
	VideoLink     string   `bson:"videoLink,omitempty" json:"videoLink,omitempty"`
	InstagramLink string   `bson:"instagramLink,omitempty" json:"instagramLink,omitempty"`

	// Spot details (famous + hidden spots)
	OpeningHours string `bson:"openingHours,omitempty" json:"openingHours,omitempty"`
	EntryFee     string `bson:"entryFee,omitempty" json:"entryFee,omitempty"`
	BestTime     string `bson:"bestTime,omitempty" json:"bestTime,omitempty"`

	// History details
	Era                string `bson:"era,omitempty" json:"era,omitempty"`
	BuiltBy            string `bson:"builtBy,omitempty" json:"builtBy,omitempty"`
	YearBuilt          string `bson:"yearBuilt,omitempty" json:"yearBuilt,omitempty"`
	HistoryDescription string `bson:"historyDescription,omitempty" json:"historyDescription,omitempty"`

	// Handicraft details
	PriceRange   string   `bson:"priceRange,omitempty" json:"priceRange,omitempty"`
	LocalMarkets []Market `bson:"localMarkets,omitempty" json:"localMarkets,omitempty"`

	// Food details
	Places []FoodPlace `bson:"places,omitempty" json:"places,omitempty"`

	// Rating aggregate — mutated only by the rating subsystem, defaults to 0.
	Rating       float64 `bson:"rating" json:"rating"`
	TotalRatings int     `bson:"totalRatings" json:"totalRatings"`

	// Ownership: the user who created this master record.
	UserID string `bson:"user" json:"user"`

	// Moderation flag — display-time concern, never checked on submission.
	IsApproved bool `bson:"isApproved" json:"isApproved"`

	// NameLower is maintained by the repository; clients never set it.
	NameLower string `bson:"nameLower" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
