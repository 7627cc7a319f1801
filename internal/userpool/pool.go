// Package userpool implements the bounded daily-active-user population of
// §4.2, grounded on original_source/src/user_selector.py's UserSelector:
// reload on date change, new-user injection at a configured ratio,
// blocked-until filtering, and activity-level assignment by weighted draw.
package userpool

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/yourflock/viewlog/internal/catalog"
	"github.com/yourflock/viewlog/internal/model"
)

// ActivityRatios are the weights used to assign a freshly-loaded user's
// activity level (§3 user_activity.*_ratio, §4.2).
type ActivityRatios struct {
	High   float64
	Medium float64
	Low    float64
}

// Pool holds the current-day set of Users and applies §4.2's selection and
// lifecycle rules.
//
// Invariant: pool size <= DAU + new-user injections within a day. Reload is
// idempotent within the same date. Evicted users never reappear the same
// day.
type Pool struct {
	store        catalog.Store
	dau          int
	newUserRatio float64
	activity     ActivityRatios
	loc          *time.Location
	rng          *rand.Rand

	users       map[int64]*model.User
	loadedDate  time.Time
	hasLoaded   bool
}

// New builds a Pool against store, loading at most dau users per day and
// injecting new users with probability newUserRatio.
func New(store catalog.Store, dau int, newUserRatio float64, activity ActivityRatios, loc *time.Location, rng *rand.Rand) *Pool {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Pool{
		store:        store,
		dau:          dau,
		newUserRatio: newUserRatio,
		activity:     activity,
		loc:          loc,
		rng:          rng,
		users:        make(map[int64]*model.User),
	}
}

// Size returns the current pool size.
func (p *Pool) Size() int { return len(p.users) }

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// reload drops the current set and fetches up to dau active users from the
// catalog, each instantiated NOT_LOGGED_IN with a freshly sampled activity
// level (§4.2).
func (p *Pool) reload(ctx context.Context, ts time.Time) error {
	fetched, err := p.store.GetRandomUsers(ctx, p.dau)
	if err != nil {
		return fmt.Errorf("userpool: reload: %w", err)
	}
	p.users = make(map[int64]*model.User, len(fetched))
	for _, u := range fetched {
		u.State = model.StateNotLoggedIn
		u.HasLoggedInToday = false
		u.ActivityLevel = p.assignActivityLevel()
		user := u
		p.users[user.ID] = &user
	}
	p.loadedDate = ts
	p.hasLoaded = true
	return nil
}

// assignActivityLevel draws HIGH/MEDIUM/LOW via cumulative-weight sampling
// over the configured ratios (§4.2).
func (p *Pool) assignActivityLevel() model.ActivityLevel {
	total := p.activity.High + p.activity.Medium + p.activity.Low
	if total <= 0 {
		return model.ActivityMedium
	}
	r := p.rng.Float64() * total
	if r <= p.activity.High {
		return model.ActivityHigh
	}
	if r <= p.activity.High+p.activity.Medium {
		return model.ActivityMedium
	}
	return model.ActivityLow
}

// createNewUser inserts a new user via the catalog and adds it to the pool
// with state NOT_LOGGED_IN (§4.2).
func (p *Pool) createNewUser(ctx context.Context, ts time.Time) (*model.User, error) {
	id, err := p.store.CreateNewUser(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("userpool: create new user: %w", err)
	}
	user := &model.User{
		ID:            id,
		State:         model.StateNotLoggedIn,
		ActivityLevel: p.assignActivityLevel(),
	}
	p.users[user.ID] = user
	return user, nil
}

// Select returns the (User, state) pair selected for timestamp ts, applying
// reload-on-date-change, new-user injection, and blocked-until filtering
// (§4.2).
func (p *Pool) Select(ctx context.Context, ts time.Time) (*model.User, error) {
	tsLocal := ts.In(p.loc)
	if !p.hasLoaded || !sameDate(p.loadedDate, tsLocal) {
		if err := p.reload(ctx, tsLocal); err != nil {
			return nil, err
		}
	}

	if p.rng.Float64() < p.newUserRatio {
		return p.createNewUser(ctx, tsLocal)
	}

	available := make([]*model.User, 0, len(p.users))
	for _, u := range p.users {
		if !u.IsBlockedAt(ts) {
			available = append(available, u)
		}
	}
	if len(p.users) == 0 || len(available) == 0 {
		return p.createNewUser(ctx, tsLocal)
	}
	return available[p.rng.Intn(len(available))], nil
}

// Update writes the user's next state through to the pool, evicting it when
// next is USER_OUT (§4.2).
func (p *Pool) Update(user *model.User, next model.UserState) {
	if next == model.StateUserOut {
		delete(p.users, user.ID)
		return
	}
	user.State = next
	p.users[user.ID] = user
}
