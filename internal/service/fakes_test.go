package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sheherjaano/backend/internal/apperror"
	"github.com/sheherjaano/backend/internal/geocode"
	"github.com/sheherjaano/backend/internal/model"
	"github.com/sheherjaano/backend/internal/repository"
)

// In-memory fakes for the three repositories. Using fakes (not a mock
// framework) keeps tests dependency-free and easy to read — you can see
// exactly what each fake does.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// =========================================================================
// fakeUserRepo
// =========================================================================

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int

	// set to a non-nil error to simulate a database failure
	createErr error
	adjustErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

// seed adds a user directly, bypassing Create. Returns the stored record.
func (f *fakeUserRepo) seed(u model.User) *model.User {
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", f.nextID)
		f.nextID++
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	f.users[u.ID] = &u
	return &u
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email || u.Username == user.Username {
			return apperror.Conflict("user", "email or username already registered")
		}
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) GetByRefreshToken(ctx context.Context, token string) (*model.User, error) {
	for _, u := range f.users {
		if u.RefreshToken != "" && u.RefreshToken == token {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", "refresh token")
}

func (f *fakeUserRepo) UpsertGitHub(ctx context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.GitHubID == user.GitHubID {
			u.Username = user.Username
			u.Email = user.Email
			u.AvatarURL = user.AvatarURL
			*user = *u
			return nil
		}
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.RefreshToken = token
	return nil
}

func (f *fakeUserRepo) AdjustContentCount(ctx context.Context, id string, delta int64) (int64, error) {
	if f.adjustErr != nil {
		return 0, f.adjustErr
	}
	u, ok := f.users[id]
	if !ok {
		return 0, apperror.NotFound("user", id)
	}
	u.ContentCount += delta
	return u.ContentCount, nil
}

func (f *fakeUserRepo) PromoteIfFirst(ctx context.Context, id string) (bool, error) {
	u, ok := f.users[id]
	if !ok {
		return false, apperror.NotFound("user", id)
	}
	if u.Role == model.RoleUser && u.ContentCount == 1 {
		u.Role = model.RoleContributor
		return true, nil
	}
	return false, nil
}

func (f *fakeUserRepo) DemoteIfEmpty(ctx context.Context, id string) (bool, error) {
	u, ok := f.users[id]
	if !ok {
		return false, apperror.NotFound("user", id)
	}
	if u.Role == model.RoleContributor && u.ContentCount == 0 {
		u.Role = model.RoleUser
		return true, nil
	}
	return false, nil
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

// =========================================================================
// fakePlaceRepo
// =========================================================================

type fakePlaceRepo struct {
	places map[model.Kind]map[string]*model.Place
	nextID int

	// missOnFind makes the next N FindByName calls report not-found even when
	// a matching record exists. This simulates the duplicate race: the
	// pre-insert lookup misses, the unique index then rejects the insert.
	missOnFind int
}

func newFakePlaceRepo() *fakePlaceRepo {
	p := &fakePlaceRepo{places: make(map[model.Kind]map[string]*model.Place), nextID: 1}
	for _, k := range model.Kinds() {
		p.places[k] = make(map[string]*model.Place)
	}
	return p
}

func (f *fakePlaceRepo) seed(kind model.Kind, p model.Place) *model.Place {
	if p.ID == "" {
		p.ID = fmt.Sprintf("place-%d", f.nextID)
		f.nextID++
	}
	p.NameLower = strings.ToLower(strings.TrimSpace(p.Name))
	f.places[kind][p.ID] = &p
	return &p
}

func (f *fakePlaceRepo) Create(ctx context.Context, kind model.Kind, place *model.Place) error {
	nameLower := strings.ToLower(strings.TrimSpace(place.Name))
	for _, p := range f.places[kind] {
		if p.NameLower == nameLower && p.City == place.City && p.State == place.State {
			return apperror.Conflict(kind.Collection(), "already exists")
		}
	}
	place.ID = fmt.Sprintf("place-%d", f.nextID)
	f.nextID++
	place.NameLower = nameLower
	place.CreatedAt = time.Now()
	place.UpdatedAt = place.CreatedAt
	copied := *place
	f.places[kind][place.ID] = &copied
	return nil
}

func (f *fakePlaceRepo) FindByName(ctx context.Context, kind model.Kind, name, city, state string) (*model.Place, error) {
	if f.missOnFind > 0 {
		f.missOnFind--
		return nil, apperror.NotFound(kind.Collection(), name)
	}
	nameLower := strings.ToLower(strings.TrimSpace(name))
	var best *model.Place
	for _, p := range f.places[kind] {
		if p.NameLower == nameLower && p.City == city && p.State == state {
			if best == nil || p.CreatedAt.Before(best.CreatedAt) {
				best = p
			}
		}
	}
	if best == nil {
		return nil, apperror.NotFound(kind.Collection(), name)
	}
	copied := *best
	return &copied, nil
}

func (f *fakePlaceRepo) GetByID(ctx context.Context, kind model.Kind, id string) (*model.Place, error) {
	p, ok := f.places[kind][id]
	if !ok {
		return nil, apperror.NotFound(kind.Collection(), id)
	}
	copied := *p
	return &copied, nil
}

func (f *fakePlaceRepo) List(ctx context.Context, kind model.Kind, filter repository.PlaceFilter) ([]model.Place, error) {
	out := []model.Place{}
	for _, p := range f.places[kind] {
		if filter.State != "" && p.State != filter.State {
			continue
		}
		if filter.City != "" && p.City != filter.City {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakePlaceRepo) ListByUser(ctx context.Context, kind model.Kind, userID string) ([]model.Place, error) {
	out := []model.Place{}
	for _, p := range f.places[kind] {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePlaceRepo) CountByUser(ctx context.Context, kind model.Kind, userID string) (int64, error) {
	places, _ := f.ListByUser(ctx, kind, userID)
	return int64(len(places)), nil
}

func (f *fakePlaceRepo) Delete(ctx context.Context, kind model.Kind, id string) error {
	if _, ok := f.places[kind][id]; !ok {
		return apperror.NotFound(kind.Collection(), id)
	}
	delete(f.places[kind], id)
	return nil
}

var _ repository.PlaceRepository = (*fakePlaceRepo)(nil)

// =========================================================================
// fakeContributionRepo
// =========================================================================

type fakeContributionRepo struct {
	contributions map[string]*model.Contribution
	nextID        int
}

func newFakeContributionRepo() *fakeContributionRepo {
	return &fakeContributionRepo{contributions: make(map[string]*model.Contribution), nextID: 1}
}

func (f *fakeContributionRepo) seed(c model.Contribution) *model.Contribution {
	if c.ID == "" {
		c.ID = fmt.Sprintf("contribution-%d", f.nextID)
		f.nextID++
	}
	f.contributions[c.ID] = &c
	return &c
}

func (f *fakeContributionRepo) Create(ctx context.Context, c *model.Contribution) error {
	c.ID = fmt.Sprintf("contribution-%d", f.nextID)
	f.nextID++
	if c.Status == "" {
		c.Status = model.StatusPending
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	copied := *c
	f.contributions[c.ID] = &copied
	return nil
}

func (f *fakeContributionRepo) GetByID(ctx context.Context, id string) (*model.Contribution, error) {
	c, ok := f.contributions[id]
	if !ok {
		return nil, apperror.NotFound("contribution", id)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeContributionRepo) ListByPlace(ctx context.Context, kind model.Kind, placeID string) ([]model.Contribution, error) {
	out := []model.Contribution{}
	for _, c := range f.contributions {
		if c.PlaceID == placeID && c.Type == kind {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeContributionRepo) ListByUser(ctx context.Context, userID string) ([]model.Contribution, error) {
	out := []model.Contribution{}
	for _, c := range f.contributions {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeContributionRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	cs, _ := f.ListByUser(ctx, userID)
	return int64(len(cs)), nil
}

func (f *fakeContributionRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.contributions[id]; !ok {
		return apperror.NotFound("contribution", id)
	}
	delete(f.contributions, id)
	return nil
}

var _ repository.ContributionRepository = (*fakeContributionRepo)(nil)

// =========================================================================
// stubGeocoder
// =========================================================================

// stubGeocoder records every query and answers with a fixed point (or the
// manual coordinates, mirroring the real resolver's precedence rule).
type stubGeocoder struct {
	coords  []float64
	queries []geocode.Query
}

func (g *stubGeocoder) Resolve(ctx context.Context, q geocode.Query) []float64 {
	g.queries = append(g.queries, q)
	if q.Latitude != nil && q.Longitude != nil {
		return []float64{*q.Longitude, *q.Latitude}
	}
	if g.coords == nil {
		return []float64{0, 0}
	}
	return g.coords
}

var _ geocode.Resolver = (*stubGeocoder)(nil)
