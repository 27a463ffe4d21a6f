package model

import "time"

// User roles. A user becomes a contributor when their first owned content
// item (place or contribution) lands, and drops back to a plain user when
// their last one is deleted. Admin exists in the data but no code path here
// assigns or checks it.
const (
	RoleUser        = "user"
	RoleContributor = "contributor"
	RoleAdmin       = "admin"
)

// User represents a registered account.
//
// Identity comes from either email+password registration or GitHub OAuth.
// We mint our own internal string ID (xid) in both cases rather than tying
// primary keys to an email address or a third party's numbering scheme.
//
// WHY ContentCount?
// The contributor role is a derived fact: "owns at least one content item".
// Deriving it by counting six collections on every submission is racy — two
// concurrent requests can both observe the same count. ContentCount is the
// fix: it is $inc'd atomically alongside every owned create/delete, and the
// role transitions key off the returned value. The six-collection count still
// exists as a read path (dashboard), but never drives a role change.
//
// PasswordHash and RefreshToken are never serialized to JSON. The refresh
// token is stored so it can be rotated and revoked server-side (logout
// deletes it, refresh replaces it).
type User struct {
	ID           string `bson:"_id,omitempty" json:"id"`
	Username     string `bson:"username" json:"username"`
	Email        string `bson:"email" json:"email"`
	PasswordHash string `bson:"password,omitempty" json:"-"`
	Role         string `bson:"role" json:"role"`
	ContentCount int64  `bson:"contentCount" json:"-"`
	RefreshToken string `bson:"refreshToken,omitempty" json:"-"`

	// GitHub OAuth identity — zero values when the account was created via
	// email registration.
	GitHubID  int64  `bson:"githubId,omitempty" json:"-"`
	AvatarURL string `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PublicProfile is the subset of a user embedded in responses that join
// contributor details onto places and contributions.
type PublicProfile struct {
	ID        string `bson:"_id" json:"id"`
	Username  string `bson:"username" json:"username"`
	Email     string `bson:"email" json:"email"`
	Role      string `bson:"role" json:"role"`
	AvatarURL string `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
}

// Public returns the embeddable view of this user.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
	}
}
