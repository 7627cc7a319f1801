package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/yourflock/viewlog/internal/model"
)

// MemStore is an in-memory Store, used by package tests across the engine
// in place of a live Postgres connection — mirroring how
// original_source/generator_ver02/src/db_client.py caches its active-user,
// content, and plan lists in memory after one initial load.
type MemStore struct {
	mu       sync.Mutex
	Users    []model.User
	Contents []model.Content
	Episodes map[string][]string
	Plans    []model.SubscriptionPlan
	NextID   int64
	rng      *rand.Rand

	// FailNextCreate, when set, makes the next CreateNewUser call fail —
	// used to exercise the CatalogError path from §4.2's injection-failure
	// behavior.
	FailNextCreate bool
}

// NewMemStore builds a MemStore seeded with users, contents, and plans. Its
// random draws (GetRandomUsers' shuffle, GetRandomContent's weighted pick)
// use an injected rng rather than the global math/rand functions, matching
// every other sampling site in the engine (§9); a nil rng falls back to a
// fixed seed, so draws are reproducible across runs without the caller
// supplying one.
func NewMemStore(users []model.User, contents []model.Content, plans []model.SubscriptionPlan, rng *rand.Rand) *MemStore {
	var maxID int64
	for _, u := range users {
		if u.ID > maxID {
			maxID = u.ID
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &MemStore{
		Users:    append([]model.User(nil), users...),
		Contents: append([]model.Content(nil), contents...),
		Episodes: make(map[string][]string),
		Plans:    plans,
		NextID:   maxID + 1,
		rng:      rng,
	}
}

func (m *MemStore) GetRandomUsers(ctx context.Context, limit int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := limit
	if n > len(m.Users) {
		n = len(m.Users)
	}
	shuffled := append([]model.User(nil), m.Users...)
	m.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n], nil
}

func (m *MemStore) GetRandomContent(ctx context.Context) (model.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Contents) == 0 {
		return model.Content{}, &CatalogError{Op: "get_random_content", Err: fmt.Errorf("no contents")}
	}
	total := 0.0
	for _, c := range m.Contents {
		total += c.Popularity
	}
	r := m.rng.Float64() * total
	acc := 0.0
	for _, c := range m.Contents {
		acc += c.Popularity
		if r <= acc {
			return c, nil
		}
	}
	return m.Contents[len(m.Contents)-1], nil
}

func (m *MemStore) GetContentByID(ctx context.Context, id string) (model.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Contents {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Content{}, &CatalogError{Op: "get_content_by_id", Err: fmt.Errorf("content %q not found", id)}
}

func (m *MemStore) GetEpisodes(ctx context.Context, contentID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Episodes[contentID], nil
}

func (m *MemStore) ListSubscriptionPlans(ctx context.Context) ([]model.SubscriptionPlan, error) {
	return m.Plans, nil
}

func (m *MemStore) CreateNewUser(ctx context.Context, signupDate time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNextCreate {
		m.FailNextCreate = false
		return 0, &CatalogError{Op: "create_new_user", Err: fmt.Errorf("injected failure")}
	}
	id := m.NextID
	m.NextID++
	m.Users = append(m.Users, model.User{ID: id})
	return id, nil
}

func (m *MemStore) SoftDeleteUser(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, u := range m.Users {
		if u.ID == userID {
			m.Users = append(m.Users[:i], m.Users[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemStore) MarkSubscription(ctx context.Context, userID int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, u := range m.Users {
		if u.ID == userID {
			m.Users[i].IsSubscribed = active
			return nil
		}
	}
	return nil
}
