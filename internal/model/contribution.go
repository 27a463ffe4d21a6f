package model

import "time"

// Contribution statuses. A contribution starts as pending; the moderation
// feature that would move it to approved/rejected lives outside this server,
// so nothing here ever transitions the field.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Contribution is a suggestion attached to an existing place record: when a
// submission matches a place that already exists, the submitter's content and
// media land here instead of creating a duplicate master record.
//
// SuggestedChanges is an open bag of kind-specific field edits (opening hours
// for spots, era/builtBy/yearBuilt for history, and so on). It is write-only
// from this server's perspective — stored for the moderation UI to display,
// never applied to the parent place automatically.
type Contribution struct {
	ID            string         `bson:"_id,omitempty" json:"id"`
	PlaceID       string         `bson:"placeId" json:"placeId"`
	UserID        string         `bson:"userId" json:"userId"`
	Type          Kind           `bson:"type" json:"type"`
	Content       string         `bson:"content,omitempty" json:"content,omitempty"`
	Images        []string       `bson:"images" json:"images"`
	VideoLink     string         `bson:"videoLink,omitempty" json:"videoLink,omitempty"`
	InstagramLink string         `bson:"instagramLink,omitempty" json:"instagramLink,omitempty"`
	Status        string         `bson:"status" json:"status"`
	SuggestedChanges map[string]any `bson:"suggestedChanges,omitempty" json:"suggestedChanges,omitempty"`
	CreatedAt     time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time      `bson:"updatedAt" json:"updatedAt"`
}
