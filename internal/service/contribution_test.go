package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sheherjaano/backend/internal/apperror"
	"github.com/sheherjaano/backend/internal/model"
)

type contributionTestEnv struct {
	svc           *ContributionService
	users         *fakeUserRepo
	places        *fakePlaceRepo
	contributions *fakeContributionRepo
}

func newContributionTestEnv(t *testing.T) *contributionTestEnv {
	t.Helper()
	env := &contributionTestEnv{
		users:         newFakeUserRepo(),
		places:        newFakePlaceRepo(),
		contributions: newFakeContributionRepo(),
	}
	env.svc = NewContributionService(env.places, env.contributions, env.users, testLogger())
	return env
}

// =========================================================================
// Dashboard TESTS
// =========================================================================

func TestDashboard_MergesAllSixCollections(t *testing.T) {
	env := newContributionTestEnv(t)
	user := env.users.seed(model.User{Username: "asha"})
	other := env.users.seed(model.User{Username: "other"})

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	env.places.seed(model.KindFamousSpot, model.Place{
		Name: "Hawa Mahal", City: "Jaipur", State: "Rajasthan",
		UserID: user.ID, CreatedAt: base,
	})
	env.places.seed(model.KindFood, model.Place{
		Name: "Pyaaz Kachori", City: "Jaipur", State: "Rajasthan",
		UserID: user.ID, CreatedAt: base.Add(2 * time.Hour),
	})
	env.contributions.seed(model.Contribution{
		UserID: user.ID, PlaceID: "place-x", Type: model.KindHistory,
		Content: "Built in 1799", Status: model.StatusPending,
		CreatedAt: base.Add(1 * time.Hour),
	})
	// Someone else's content must not leak in
	env.places.seed(model.KindFamousSpot, model.Place{
		Name: "Amber Fort", City: "Jaipur", State: "Rajasthan", UserID: other.ID,
	})

	d, err := env.svc.Dashboard(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}

	if d.Total != 3 {
		t.Errorf("Total = %d, want 3", d.Total)
	}
	if d.Contributions != 1 {
		t.Errorf("Contributions = %d, want 1", d.Contributions)
	}
	if d.Places[model.KindFamousSpot] != 1 || d.Places[model.KindFood] != 1 {
		t.Errorf("Places = %v, want one famousSpot and one food", d.Places)
	}

	if len(d.Items) != 3 {
		t.Fatalf("Items = %d, want 3", len(d.Items))
	}
	// Newest first: food (base+2h), contribution (base+1h), spot (base)
	wantOrder := []string{"Pyaaz Kachori", "Built in 1799", "Hawa Mahal"}
	for i, want := range wantOrder {
		if d.Items[i].Name != want {
			t.Errorf("Items[%d].Name = %q, want %q", i, d.Items[i].Name, want)
		}
	}

	// The contribution item must carry everything the delete endpoint needs
	c := d.Items[1]
	if !c.IsContribution || c.Kind != model.KindHistory || c.Status != model.StatusPending {
		t.Errorf("contribution item = %+v, want IsContribution/history/pending", c)
	}
}

func TestDashboard_EmptyUser(t *testing.T) {
	env := newContributionTestEnv(t)
	user := env.users.seed(model.User{Username: "fresh"})

	d, err := env.svc.Dashboard(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if d.Total != 0 || len(d.Items) != 0 {
		t.Errorf("Dashboard() = %+v, want empty", d)
	}
}

// =========================================================================
// Delete TESTS
// =========================================================================

func TestDelete_OwnPlace(t *testing.T) {
	env := newContributionTestEnv(t)
	user := env.users.seed(model.User{
		Username: "asha", Role: model.RoleContributor, ContentCount: 2,
	})
	place := env.places.seed(model.KindFamousSpot, model.Place{
		Name: "Hawa Mahal", City: "Jaipur", State: "Rajasthan", UserID: user.ID,
	})

	result, err := env.svc.Delete(context.Background(), user.ID, model.KindFamousSpot, place.ID, false)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if result.TotalItems != 1 {
		t.Errorf("TotalItems = %d, want 1", result.TotalItems)
	}
	if result.NewRole != "" {
		t.Errorf("NewRole = %q, want empty — items remain", result.NewRole)
	}
	if _, err := env.places.GetByID(context.Background(), model.KindFamousSpot, place.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("place still retrievable after Delete()")
	}
}

func TestDelete_LastItemDemotesToUser(t *testing.T) {
	env := newContributionTestEnv(t)
	user := env.users.seed(model.User{
		Username: "asha", Role: model.RoleContributor, ContentCount: 1,
	})
	c := env.contributions.seed(model.Contribution{
		UserID: user.ID, PlaceID: "place-x", Type: model.KindFamousSpot,
	})

	result, err := env.svc.Delete(context.Background(), user.ID, "", c.ID, true)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if result.TotalItems != 0 {
		t.Errorf("TotalItems = %d, want 0", result.TotalItems)
	}
	if result.NewRole != model.RoleUser {
		t.Errorf("NewRole = %q, want %q", result.NewRole, model.RoleUser)
	}
	stored, _ := env.users.GetByID(context.Background(), user.ID)
	if stored.Role != model.RoleUser {
		t.Errorf("stored role = %q, want %q", stored.Role, model.RoleUser)
	}
}

func TestDelete_SomeoneElsesContentIsForbidden(t *testing.T) {
	env := newContributionTestEnv(t)
	owner := env.users.seed(model.User{Username: "owner", Role: model.RoleContributor, ContentCount: 1})
	intruder := env.users.seed(model.User{Username: "intruder"})
	place := env.places.seed(model.KindFamousSpot, model.Place{
		Name: "Hawa Mahal", City: "Jaipur", State: "Rajasthan", UserID: owner.ID,
	})

	_, err := env.svc.Delete(context.Background(), intruder.ID, model.KindFamousSpot, place.ID, false)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Delete() error = %v, want ErrForbidden", err)
	}

	// Nothing was deleted, no counter moved
	if _, err := env.places.GetByID(context.Background(), model.KindFamousSpot, place.ID); err != nil {
		t.Error("place was deleted despite the forbidden caller")
	}
	stored, _ := env.users.GetByID(context.Background(), owner.ID)
	if stored.ContentCount != 1 {
		t.Errorf("owner's ContentCount moved to %d", stored.ContentCount)
	}
}

func TestDelete_UnknownItem(t *testing.T) {
	env := newContributionTestEnv(t)
	user := env.users.seed(model.User{Username: "asha"})

	_, err := env.svc.Delete(context.Background(), user.ID, model.KindFamousSpot, "ghost", false)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() place error = %v, want ErrNotFound", err)
	}

	_, err = env.svc.Delete(context.Background(), user.ID, "", "ghost", true)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() contribution error = %v, want ErrNotFound", err)
	}
}

func TestDelete_BadKindForPlaceDelete(t *testing.T) {
	env := newContributionTestEnv(t)
	user := env.users.seed(model.User{Username: "asha"})

	_, err := env.svc.Delete(context.Background(), user.ID, "museum", "some-id", false)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Delete() error = %v, want ErrValidation", err)
	}
}
