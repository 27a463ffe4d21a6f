package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sheherjaano/backend/internal/auth"
	"github.com/sheherjaano/backend/internal/model"
	"github.com/sheherjaano/backend/internal/service"
)

// refreshCookieName is the HttpOnly cookie carrying the refresh token.
// Scoped to the auth endpoints so it never travels with ordinary API calls.
const refreshCookieName = "refreshToken"

// AuthHandler manages registration, login, token refresh, and the GitHub
// OAuth flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister / HandleLogin → email+password flows
//   - HandleRefresh  → rotate the refresh cookie, mint a new access token
//   - HandleLogout   → revoke the refresh token and clear the cookie
//   - HandleMe       → return the currently logged-in user's profile
//   - HandleGitHubLogin / HandleGitHubCallback → OAuth sign-in
//
// Handlers own the HTTP shape only — cookies, status codes, JSON bodies.
// All the rules live in service.AuthService.
type AuthHandler struct {
	authService *service.AuthService
	github      *auth.GitHubProvider
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil when OAuth
// credentials aren't configured; the OAuth routes then answer 404.
func NewAuthHandler(authService *service.AuthService, github *auth.GitHubProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		github:      github,
		logger:      logger,
	}
}

// authResponse is the success body shared by register, login, refresh, and
// the OAuth callback.
type authResponse struct {
	Success     bool                `json:"success"`
	User        model.PublicProfile `json:"user"`
	AccessToken string              `json:"accessToken"`
}

// setRefreshCookie stores the refresh token where only the auth endpoints
// will see it.
//
// HttpOnly = JavaScript cannot read this cookie (XSS protection).
// SameSite=Lax = sent on top-level navigations but not cross-site POSTs.
// Secure should be true in production (HTTPS only); false keeps local dev working.
func setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/api/auth",
		MaxAge:   int(auth.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) respondAuthenticated(w http.ResponseWriter, status int, result *service.AuthResult) {
	setRefreshCookie(w, result.RefreshToken)
	writeJSON(w, status, authResponse{
		Success:     true,
		User:        result.User.Public(),
		AccessToken: result.AccessToken,
	})
}

// HandleRegister creates a new email/password account.
//
// HTTP: POST /api/auth/register
// Body: {"username": "...", "email": "...", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	result, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.respondAuthenticated(w, http.StatusCreated, result)
}

// HandleLogin authenticates an email/password pair.
//
// HTTP: POST /api/auth/login
// Body: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.respondAuthenticated(w, http.StatusOK, result)
}

// HandleRefresh rotates the refresh token and returns a fresh access token.
//
// HTTP: GET /api/auth/refresh
// Auth: refresh cookie (no Authorization header — the access token may well
// be expired, that's the whole point)
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "no refresh token"})
		return
	}

	result, err := h.authService.Refresh(r.Context(), cookie.Value)
	if err != nil {
		clearRefreshCookie(w)
		writeError(w, err)
		return
	}

	h.respondAuthenticated(w, http.StatusOK, result)
}

// HandleLogout revokes the refresh token and clears the cookie.
//
// HTTP: POST /api/auth/logout
//
// WHY POST AND NOT GET?
// Logout is a state-changing operation. Using GET would be vulnerable to
// CSRF and to browsers pre-fetching the URL. POST ensures intentional action.
//
// The access token remains technically valid until it expires (60s), but the
// refresh token is revoked server-side, so the session cannot be extended.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, err)
			return
		}
	}

	clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "logged out"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/auth/me
// Auth: Required (RequireAuth middleware sets the identity in context)
//
// This is how the frontend re-derives the role after a promotion or
// demotion instead of trusting a possibly stale token claim.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Should never happen on a RequireAuth-protected route, but be safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		h.logger.Error("HandleMe: user lookup failed", slog.String("userID", id.UserID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user.Public()})
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /api/auth/github/login
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string and store it in a short-lived cookie.
// When GitHub calls back, HandleGitHubCallback verifies the state matches.
// This proves the callback was initiated by this server, not a CSRF attacker.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.NotFound(w, r)
		return
	}

	// Generate a random, unguessable state value
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /api/auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Upsert the user and issue the token pair
//  4. Set the refresh cookie and respond
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.NotFound(w, r)
		return
	}

	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid OAuth state"})
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid OAuth state"})
		return
	}

	// Clear the state cookie — it's single-use
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	// User may have denied authorization on GitHub's side
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "GitHub authorization was denied"})
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "missing OAuth code"})
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "internal_error", Message: "authentication failed"})
		return
	}

	// --- Step 3: Upsert and issue tokens ---
	result, err := h.authService.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	h.respondAuthenticated(w, http.StatusOK, result)
}
