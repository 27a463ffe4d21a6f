package handler

// Handler tests exercise the full HTTP surface — routing, auth middleware,
// status codes, JSON shapes — over in-memory repositories. The business
// rules themselves are covered in the service package; here we care that
// the HTTP layer translates them faithfully.

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sheherjaano/backend/internal/apperror"
	"github.com/sheherjaano/backend/internal/auth"
	"github.com/sheherjaano/backend/internal/geocode"
	"github.com/sheherjaano/backend/internal/model"
	"github.com/sheherjaano/backend/internal/repository"
	"github.com/sheherjaano/backend/internal/service"
)

// =========================================================================
// In-memory repositories (just enough for the HTTP tests)
// =========================================================================

type memUsers struct {
	users  map[string]*model.User
	nextID int
}

func (m *memUsers) Create(ctx context.Context, u *model.User) error {
	for _, e := range m.users {
		if e.Email == u.Email || e.Username == u.Username {
			return apperror.Conflict("user", "email or username already registered")
		}
	}
	m.nextID++
	u.ID = fmt.Sprintf("user-%d", m.nextID)
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	c := *u
	m.users[u.ID] = &c
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *memUsers) GetByRefreshToken(ctx context.Context, token string) (*model.User, error) {
	for _, u := range m.users {
		if u.RefreshToken != "" && u.RefreshToken == token {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", "refresh token")
}

func (m *memUsers) UpsertGitHub(ctx context.Context, u *model.User) error {
	for _, e := range m.users {
		if e.GitHubID == u.GitHubID {
			e.Username, e.Email, e.AvatarURL = u.Username, u.Email, u.AvatarURL
			*u = *e
			return nil
		}
	}
	return m.Create(ctx, u)
}

func (m *memUsers) SetRefreshToken(ctx context.Context, id, token string) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.RefreshToken = token
	return nil
}

func (m *memUsers) AdjustContentCount(ctx context.Context, id string, delta int64) (int64, error) {
	u, ok := m.users[id]
	if !ok {
		return 0, apperror.NotFound("user", id)
	}
	u.ContentCount += delta
	return u.ContentCount, nil
}

func (m *memUsers) PromoteIfFirst(ctx context.Context, id string) (bool, error) {
	u := m.users[id]
	if u != nil && u.Role == model.RoleUser && u.ContentCount == 1 {
		u.Role = model.RoleContributor
		return true, nil
	}
	return false, nil
}

func (m *memUsers) DemoteIfEmpty(ctx context.Context, id string) (bool, error) {
	u := m.users[id]
	if u != nil && u.Role == model.RoleContributor && u.ContentCount == 0 {
		u.Role = model.RoleUser
		return true, nil
	}
	return false, nil
}

type memPlaces struct {
	places map[model.Kind]map[string]*model.Place
	nextID int
}

func (m *memPlaces) Create(ctx context.Context, kind model.Kind, p *model.Place) error {
	lower := strings.ToLower(strings.TrimSpace(p.Name))
	for _, e := range m.places[kind] {
		if e.NameLower == lower && e.City == p.City && e.State == p.State {
			return apperror.Conflict(kind.Collection(), "already exists")
		}
	}
	m.nextID++
	p.ID = fmt.Sprintf("place-%d", m.nextID)
	p.NameLower = lower
	p.CreatedAt = time.Now()
	c := *p
	m.places[kind][p.ID] = &c
	return nil
}

func (m *memPlaces) FindByName(ctx context.Context, kind model.Kind, name, city, state string) (*model.Place, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, p := range m.places[kind] {
		if p.NameLower == lower && p.City == city && p.State == state {
			c := *p
			return &c, nil
		}
	}
	return nil, apperror.NotFound(kind.Collection(), name)
}

func (m *memPlaces) GetByID(ctx context.Context, kind model.Kind, id string) (*model.Place, error) {
	if p, ok := m.places[kind][id]; ok {
		c := *p
		return &c, nil
	}
	return nil, apperror.NotFound(kind.Collection(), id)
}

func (m *memPlaces) List(ctx context.Context, kind model.Kind, f repository.PlaceFilter) ([]model.Place, error) {
	out := []model.Place{}
	for _, p := range m.places[kind] {
		if (f.State == "" || p.State == f.State) && (f.City == "" || p.City == f.City) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memPlaces) ListByUser(ctx context.Context, kind model.Kind, userID string) ([]model.Place, error) {
	out := []model.Place{}
	for _, p := range m.places[kind] {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPlaces) CountByUser(ctx context.Context, kind model.Kind, userID string) (int64, error) {
	ps, _ := m.ListByUser(ctx, kind, userID)
	return int64(len(ps)), nil
}

func (m *memPlaces) Delete(ctx context.Context, kind model.Kind, id string) error {
	if _, ok := m.places[kind][id]; !ok {
		return apperror.NotFound(kind.Collection(), id)
	}
	delete(m.places[kind], id)
	return nil
}

type memContributions struct {
	contributions map[string]*model.Contribution
	nextID        int
}

func (m *memContributions) Create(ctx context.Context, c *model.Contribution) error {
	m.nextID++
	c.ID = fmt.Sprintf("contribution-%d", m.nextID)
	if c.Status == "" {
		c.Status = model.StatusPending
	}
	c.CreatedAt = time.Now()
	cp := *c
	m.contributions[c.ID] = &cp
	return nil
}

func (m *memContributions) GetByID(ctx context.Context, id string) (*model.Contribution, error) {
	if c, ok := m.contributions[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, apperror.NotFound("contribution", id)
}

func (m *memContributions) ListByPlace(ctx context.Context, kind model.Kind, placeID string) ([]model.Contribution, error) {
	out := []model.Contribution{}
	for _, c := range m.contributions {
		if c.PlaceID == placeID && c.Type == kind {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memContributions) ListByUser(ctx context.Context, userID string) ([]model.Contribution, error) {
	out := []model.Contribution{}
	for _, c := range m.contributions {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memContributions) CountByUser(ctx context.Context, userID string) (int64, error) {
	cs, _ := m.ListByUser(ctx, userID)
	return int64(len(cs)), nil
}

func (m *memContributions) Delete(ctx context.Context, id string) error {
	if _, ok := m.contributions[id]; !ok {
		return apperror.NotFound("contribution", id)
	}
	delete(m.contributions, id)
	return nil
}

type fixedGeocoder struct{}

func (fixedGeocoder) Resolve(ctx context.Context, q geocode.Query) []float64 {
	if q.Latitude != nil && q.Longitude != nil {
		return []float64{*q.Longitude, *q.Latitude}
	}
	return []float64{75.7873, 26.9124}
}

// =========================================================================
// Test server
// =========================================================================

type testEnv struct {
	router        *chi.Mux
	tokens        *auth.TokenService
	users         *memUsers
	places        *memPlaces
	contributions *memContributions
}

// newTestEnv wires the routes exactly the way the server package does, over
// in-memory stores.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tokens, err := auth.NewTokenService(
		"access-secret-at-least-16-chars",
		"refresh-secret-at-least-16-char",
	)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	users := &memUsers{users: map[string]*model.User{}}
	placesRepo := &memPlaces{places: map[model.Kind]map[string]*model.Place{}}
	for _, k := range model.Kinds() {
		placesRepo.places[k] = map[string]*model.Place{}
	}
	contributionsRepo := &memContributions{contributions: map[string]*model.Contribution{}}

	passwords := auth.NewPasswordServiceForTest(4)
	authSvc := service.NewAuthService(users, tokens, passwords, logger)
	placeSvc := service.NewPlaceService(placesRepo, contributionsRepo, users, fixedGeocoder{}, tokens, logger)
	contributionSvc := service.NewContributionService(placesRepo, contributionsRepo, users, logger)

	authH := NewAuthHandler(authSvc, nil, logger)
	placeH := NewPlaceHandler(placeSvc, logger)
	contributionH := NewContributionHandler(contributionSvc, logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authH.HandleRegister)
			r.Post("/login", authH.HandleLogin)
			r.Get("/refresh", authH.HandleRefresh)
			r.Post("/logout", authH.HandleLogout)
			r.With(auth.RequireAuth(tokens)).Get("/me", authH.HandleMe)
		})

		for _, kr := range KindRoutes() {
			kr := kr
			r.Route("/"+kr.Path, func(r chi.Router) {
				r.Get("/", placeH.HandleList(kr.Kind))
				r.Get("/{id}", placeH.HandleGet(kr.Kind))
				r.With(auth.RequireAuth(tokens)).Post("/", placeH.HandleSubmit(kr.Kind))
			})
		}

		r.Route("/contributions", func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/", contributionH.HandleDashboard)
			r.Delete("/{id}", contributionH.HandleDelete)
		})
	})

	return &testEnv{
		router:        r,
		tokens:        tokens,
		users:         users,
		places:        placesRepo,
		contributions: contributionsRepo,
	}
}

// seedUser adds a user directly and returns it with a valid access token.
func (env *testEnv) seedUser(t *testing.T, u model.User) (*model.User, string) {
	t.Helper()
	env.users.nextID++
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", env.users.nextID)
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	env.users.users[u.ID] = &u

	token, err := env.tokens.GenerateAccess(u.ID, u.Role)
	if err != nil {
		t.Fatalf("GenerateAccess: %v", err)
	}
	return &u, token
}

// do runs one request through the router and returns the recorder.
func (env *testEnv) do(method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}
