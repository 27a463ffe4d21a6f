// Package auth provides token issuance, password hashing, and the HTTP
// middleware that authenticates API requests.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User registers with email/password (or signs in via GitHub OAuth)
// 2. Server issues a short-lived access token carrying the user ID and role,
//    plus a long-lived refresh token set as an HttpOnly cookie and persisted
//    on the user record
// 3. API calls send "Authorization: Bearer <access token>"; middleware
//    validates it and stores the caller's Identity in the request context
// 4. When the access token expires, the client hits the refresh endpoint,
//    which rotates the refresh token and returns a fresh access token
//
// WHY THE ROLE TRAVELS IN THE TOKEN:
// Ownership checks always use the user ID, but the frontend renders
// differently for contributors, and the promotion workflow mints a fresh
// access token the moment a user's first content item lands so the client
// learns its new role without another round trip. The role claim is a
// snapshot — after a demotion an old token keeps saying "contributor" until
// it expires, which is one reason the access lifetime is kept short.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "sheherjaano"

// Token lifetimes. The access window is deliberately tight — it bounds how
// long a stale role claim can circulate after a promotion or demotion.
const (
	AccessTokenTTL  = 60 * time.Second
	RefreshTokenTTL = 24 * time.Hour
)

// Identity is what a validated access token proves: who is calling, and what
// role the token was minted with.
type Identity struct {
	UserID string
	Role   string
}

// TokenService creates and validates the two token types.
//
// Access and refresh tokens are signed with separate HMAC secrets, so a
// leaked access secret cannot be used to forge refresh tokens (which have a
// much longer lifetime).
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
}

// NewTokenService creates a TokenService with the given secrets.
// Each should be at least 32 bytes of random data in production.
// Example: ACCESS_TOKEN_SECRET=$(openssl rand -hex 32)
func NewTokenService(accessSecret, refreshSecret string) (*TokenService, error) {
	if len(accessSecret) < 16 || len(refreshSecret) < 16 {
		return nil, errors.New("auth: token secrets must be at least 16 characters")
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}, nil
}

// accessClaims is the access-token payload: the registered claims ("sub"
// carries the user ID) plus our role claim.
type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// refreshClaims carries only the registered claims — a refresh token proves
// identity, not role. The role is re-read from the database on refresh.
type refreshClaims struct {
	jwt.RegisteredClaims
}

// GenerateAccess creates and signs an access token for the given user and
// role. Called on login, on refresh, and again on promotion.
//
// Signing algorithm: HS256 (HMAC-SHA256)
// - Symmetric: same key for signing and verifying
// - Fast and simple — good for single-server deployments
func (s *TokenService) GenerateAccess(userID, role string) (string, error) {
	return s.generateAccess(userID, role, AccessTokenTTL)
}

// generateAccess is the TTL-parameterised worker behind GenerateAccess.
// Tests use it directly to mint already-expired tokens.
func (s *TokenService) generateAccess(userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := accessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("auth: signing access token: %w", err)
	}

	return signed, nil
}

// GenerateRefresh creates and signs a refresh token for the given user.
func (s *TokenService) GenerateRefresh(userID string) (string, error) {
	now := time.Now()

	c := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTokenTTL)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("auth: signing refresh token: %w", err)
	}

	return signed, nil
}

// ValidateAccess parses and verifies an access token, returning the Identity
// it proves.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// ALGORITHM CONFUSION ATTACK:
// Without checking the algorithm, an attacker could send a token signed with
// "none" and the library might accept it. Passing jwt.WithValidMethods prevents this.
func (s *TokenService) ValidateAccess(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&accessClaims{},
		func(token *jwt.Token) (any, error) {
			// Reject tokens that aren't signed with HS256
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.accessSecret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		// Translate jwt library errors into cleaner messages
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("auth: token expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("auth: token has no subject")
	}

	return Identity{UserID: c.Subject, Role: c.Role}, nil
}

// ValidateRefresh parses and verifies a refresh token, returning the user ID.
//
// The caller must additionally compare the token against the one persisted on
// the user record: a signed-but-rotated-out token is no longer acceptable.
func (s *TokenService) ValidateRefresh(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&refreshClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.refreshSecret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: refresh token expired")
		}
		return "", fmt.Errorf("auth: invalid refresh token: %w", err)
	}

	c, ok := token.Claims.(*refreshClaims)
	if !ok || !token.Valid || c.Subject == "" {
		return "", fmt.Errorf("auth: invalid refresh token claims")
	}

	return c.Subject, nil
}
