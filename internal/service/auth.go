// Package service — authentication business logic.
//
// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)
//
// KEY RESPONSIBILITIES:
//   - Register/login with email+password, bcrypt-verified
//   - Orchestrate the GitHub OAuth callback: upsert the user, issue tokens
//   - Rotate refresh tokens and revoke them on logout
//   - Encapsulate all auth rules in one place, away from HTTP concerns
//
// REFRESH TOKEN ROTATION:
// Every successful login/refresh stores the newly issued refresh token on the
// user record and thereby invalidates the previous one. A refresh token that
// validates cryptographically but no longer matches the stored value is
// rejected — it was either rotated out or revoked by logout.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sheherjaano/backend/internal/apperror"
	"github.com/sheherjaano/backend/internal/auth"
	"github.com/sheherjaano/backend/internal/model"
	"github.com/sheherjaano/backend/internal/repository"
)

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → generate/validate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is returned by authentication operations. It bundles the user
// record and both issued tokens so the handler can set the refresh cookie and
// respond in one step.
type AuthResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// Register creates a new email/password account and logs it in.
//
// A duplicate email or username surfaces as apperror.ErrConflict straight
// from the repository's unique indexes — there is no pre-check lookup, so two
// concurrent registrations with the same email can't both win.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if len(password) < 6 {
		return nil, apperror.ValidationFailed("password", "password must be at least 6 characters")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: registering %q: %w", email, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issueTokens(ctx, user)
}

// Login authenticates an email/password pair.
//
// Both a missing account and a wrong password come back as the same
// apperror.ErrUnauthorized — the response must not reveal which of the two it
// was, or it becomes an account enumeration oracle.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", email, err)
	}

	if user.PasswordHash == "" {
		// OAuth-only account — it has no password to check against.
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.issueTokens(ctx, user)
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
// After the handler exchanges the GitHub code for a GitHubUser profile, it
// calls this method to:
//
//  1. Upsert the user (create on first login, refresh profile on later ones)
//  2. Issue the usual access/refresh token pair
//
// WHY UPSERT (not insert + check conflict)?
// GitHub's OAuth guarantees the GitHub ID is stable and unique, so we can
// always upsert on (githubId). First login → insert; subsequent logins →
// update the email/avatar in case the user changed them on GitHub.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	// Build the user model from GitHub profile data.
	// The repository's upsert fills in ID, role, and timestamps.
	user := &model.User{
		GitHubID:  ghUser.ID,
		Username:  ghUser.Login,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
	}

	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token: validates it, checks it is still the one
// stored on the user record, and issues a fresh access/refresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, apperror.Unauthorized("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("service/auth: refreshing for user %s: %w", userID, err)
	}

	// The signature alone isn't enough — a rotated-out or revoked token still
	// verifies cryptographically. It must match the stored value exactly.
	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return nil, apperror.Unauthorized("refresh token has been revoked")
	}

	return s.issueTokens(ctx, user)
}

// Logout revokes the given refresh token.
//
// An unknown token is not an error: logging out twice, or after the token was
// already rotated away, should behave exactly like a successful logout.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	user, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("service/auth: resolving refresh token: %w", err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, ""); err != nil {
		return fmt.Errorf("service/auth: revoking refresh token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged out", slog.String("userID", user.ID))
	return nil
}

// GetUserByID returns the user for the given internal ID.
//
// Used by the /api/auth/me handler to look up the full user record after the
// middleware validates the access token.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

// issueTokens generates the access/refresh pair for user and persists the
// refresh token, rotating out whatever was stored before.
func (s *AuthService) issueTokens(ctx context.Context, user *model.User) (*AuthResult, error) {
	access, err := s.tokens.GenerateAccess(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating access token for user %s: %w", user.ID, err)
	}

	refresh, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating refresh token for user %s: %w", user.ID, err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, fmt.Errorf("service/auth: storing refresh token for user %s: %w", user.ID, err)
	}
	user.RefreshToken = refresh

	return &AuthResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
