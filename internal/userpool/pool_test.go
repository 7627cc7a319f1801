package userpool

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/yourflock/viewlog/internal/catalog"
	"github.com/yourflock/viewlog/internal/model"
)

func equalActivity() ActivityRatios {
	return ActivityRatios{High: 1, Medium: 1, Low: 1}
}

func TestSelect_NewUserInjection_AlwaysInjectsAtRatioOne(t *testing.T) {
	store := catalog.NewMemStore(nil, nil, nil, nil)
	pool := New(store, 10, 1.0, equalActivity(), time.UTC, rand.New(rand.NewSource(1)))

	ts := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	user, err := pool.Select(context.Background(), ts)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if user.State != model.StateNotLoggedIn {
		t.Errorf("new user state = %v, want NOT_LOGGED_IN", user.State)
	}
}

func TestSelect_ReloadsOnDateChange(t *testing.T) {
	users := []model.User{{ID: 1}, {ID: 2}, {ID: 3}}
	store := catalog.NewMemStore(users, nil, nil, nil)
	pool := New(store, 10, 0.0, equalActivity(), time.UTC, rand.New(rand.NewSource(2)))

	day1 := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	if _, err := pool.Select(context.Background(), day1); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if pool.Size() != 3 {
		t.Fatalf("pool size after first load = %d, want 3", pool.Size())
	}

	// Mutate a user's state, then cross a date boundary — the mutation
	// must not survive reload.
	for _, u := range pool.users {
		u.State = model.StateContentPage
	}
	day2 := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	if _, err := pool.Select(context.Background(), day2); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	for _, u := range pool.users {
		if u.State != model.StateNotLoggedIn {
			t.Errorf("user state after reload = %v, want NOT_LOGGED_IN", u.State)
		}
	}
}

func TestSelect_BlockedUserNotReturned(t *testing.T) {
	users := []model.User{{ID: 1}}
	store := catalog.NewMemStore(users, nil, nil, nil)
	pool := New(store, 10, 0.0, equalActivity(), time.UTC, rand.New(rand.NewSource(3)))

	ts := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	user, err := pool.Select(context.Background(), ts)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	blockedUntil := ts.Add(1 * time.Hour)
	user.BlockedUntil = &blockedUntil

	// The only user is now blocked; selection must fall back to
	// new-user creation even though new_user_ratio is 0.
	second, err := pool.Select(context.Background(), ts.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if second.ID == user.ID {
		t.Error("blocked user was selected again")
	}
}

func TestUpdate_EvictsOnUserOut(t *testing.T) {
	users := []model.User{{ID: 1}}
	store := catalog.NewMemStore(users, nil, nil, nil)
	pool := New(store, 10, 0.0, equalActivity(), time.UTC, rand.New(rand.NewSource(4)))

	ts := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	user, err := pool.Select(context.Background(), ts)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	pool.Update(user, model.StateUserOut)
	if pool.Size() != 0 {
		t.Errorf("pool size after eviction = %d, want 0", pool.Size())
	}
}

func TestSelect_EmptyPoolFallsBackToNewUser(t *testing.T) {
	store := catalog.NewMemStore(nil, nil, nil, nil)
	pool := New(store, 10, 0.0, equalActivity(), time.UTC, rand.New(rand.NewSource(5)))

	ts := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	user, err := pool.Select(context.Background(), ts)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if user == nil {
		t.Fatal("expected a user from new-user fallback")
	}
}
