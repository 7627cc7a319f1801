// Package catalog provides the narrow read/write surface against the
// relational store of users, contents, and subscription plans (§6 "Catalog
// read surface"). Per spec.md §1 the relational store itself is out of
// scope; this package only defines the interface the rest of the engine
// depends on and a Postgres-backed implementation of it, grounded on
// original_source/generator_ver02/src/db_client.py's method surface
// (get_random_user(s), get_random_contents, get_content_by_id,
// get_user_subscription_id, insert_new_user, cancel_user_subscription) and
// the teacher's sql.Open/PingContext/pooling idiom
// (services/recommendations/cmd/recommendations/main.go, cmd/seed/main.go).
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"sort"
	"time"

	_ "github.com/lib/pq"

	"github.com/yourflock/viewlog/internal/model"
)

// CatalogError indicates a failed read or write against the catalog (§7).
// At startup this is fatal; during a run it surfaces to the pipeline which
// logs it and drops the current timestamp.
type CatalogError struct {
	Op  string
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog: %s: %v", e.Op, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// Store is the narrow catalog read/write surface the engine depends on (§6).
type Store interface {
	// GetRandomUsers returns up to limit active users, selected at random.
	GetRandomUsers(ctx context.Context, limit int) ([]model.User, error)
	// GetRandomContent returns one content record, weighted by popularity
	// over the cached top-N popular contents.
	GetRandomContent(ctx context.Context) (model.Content, error)
	// GetContentByID returns the content record for id.
	GetContentByID(ctx context.Context, id string) (model.Content, error)
	// GetEpisodes returns the episode ids available for a series content.
	GetEpisodes(ctx context.Context, contentID string) ([]string, error)
	// ListSubscriptionPlans returns all known subscription plans.
	ListSubscriptionPlans(ctx context.Context) ([]model.SubscriptionPlan, error)
	// CreateNewUser inserts a new user with the given signup date and
	// returns its id.
	CreateNewUser(ctx context.Context, signupDate time.Time) (int64, error)
	// SoftDeleteUser marks a user's account as closed.
	SoftDeleteUser(ctx context.Context, userID int64) error
	// MarkSubscription sets the user's subscription flag.
	MarkSubscription(ctx context.Context, userID int64, active bool) error
}

// PostgresStore is a Store backed by a pooled *sql.DB connection to Postgres.
type PostgresStore struct {
	db            *sql.DB
	topPopular    []model.Content
	topPopularAge time.Time
	popCacheTTL   time.Duration
	rng           *rand.Rand
}

// Open connects to Postgres at dsn, verifying reachability with a bounded
// ping, and returns a ready-to-use PostgresStore. Following the teacher's
// connectDB idiom (services/recommendations/cmd/recommendations/main.go):
// pooled connections, PingContext with a timeout. rng drives the weighted
// content draw in GetRandomContent (§9 "explicit injection, no process-wide
// singletons" — matching temporal.Sampler, userpool.Pool, decider.Decider,
// and detailgen.Generator, which all take an injected rng rather than
// reaching for the global math/rand functions); a nil rng falls back to a
// freshly time-seeded one.
func Open(dsn string, rng *rand.Rand) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &CatalogError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, &CatalogError{Op: "ping", Err: err}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &PostgresStore{db: db, popCacheTTL: 5 * time.Minute, rng: rng}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) GetRandomUsers(ctx context.Context, limit int) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, is_subscribed
		FROM users
		WHERE account_status = 'active'
		ORDER BY random()
		LIMIT $1`, limit)
	if err != nil {
		return nil, &CatalogError{Op: "get_random_users", Err: err}
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.IsSubscribed); err != nil {
			return nil, &CatalogError{Op: "get_random_users", Err: err}
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, &CatalogError{Op: "get_random_users", Err: err}
	}
	return users, nil
}

// loadTopPopular refreshes the top-50-by-popularity cache used for weighted
// content sampling (§4.4 "top-N popular contents cached at startup (top 50
// popularity descending)").
func (s *PostgresStore) loadTopPopular(ctx context.Context) error {
	if len(s.topPopular) > 0 && time.Since(s.topPopularAge) < s.popCacheTTL {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT contents_id, contents_type, popularity, number_of_episodes
		FROM contents
		ORDER BY popularity DESC
		LIMIT 50`)
	if err != nil {
		return &CatalogError{Op: "load_top_popular", Err: err}
	}
	defer rows.Close()

	var contents []model.Content
	for rows.Next() {
		var c model.Content
		var typ string
		var episodes sql.NullInt64
		if err := rows.Scan(&c.ID, &typ, &c.Popularity, &episodes); err != nil {
			return &CatalogError{Op: "load_top_popular", Err: err}
		}
		if typ == "tv" {
			c.Type = model.ContentTypeSeries
		} else {
			c.Type = model.ContentTypeSingle
		}
		if episodes.Valid {
			c.EpisodeCount = int(episodes.Int64)
			c.HasEpisodeCount = true
		}
		contents = append(contents, c)
	}
	sort.Slice(contents, func(i, j int) bool { return contents[i].Popularity > contents[j].Popularity })
	s.topPopular = contents
	s.topPopularAge = time.Now()
	return nil
}

func (s *PostgresStore) GetRandomContent(ctx context.Context) (model.Content, error) {
	if err := s.loadTopPopular(ctx); err != nil {
		return model.Content{}, err
	}
	if len(s.topPopular) == 0 {
		return model.Content{}, &CatalogError{Op: "get_random_content", Err: fmt.Errorf("no contents available")}
	}
	total := 0.0
	for _, c := range s.topPopular {
		total += c.Popularity
	}
	r := s.rng.Float64() * total
	acc := 0.0
	for _, c := range s.topPopular {
		acc += c.Popularity
		if r <= acc {
			return c, nil
		}
	}
	return s.topPopular[len(s.topPopular)-1], nil
}

func (s *PostgresStore) GetContentByID(ctx context.Context, id string) (model.Content, error) {
	var c model.Content
	var typ string
	var episodes sql.NullInt64
	row := s.db.QueryRowContext(ctx, `
		SELECT contents_id, contents_type, popularity, number_of_episodes
		FROM contents WHERE contents_id = $1`, id)
	if err := row.Scan(&c.ID, &typ, &c.Popularity, &episodes); err != nil {
		return model.Content{}, &CatalogError{Op: "get_content_by_id", Err: err}
	}
	if typ == "tv" {
		c.Type = model.ContentTypeSeries
	} else {
		c.Type = model.ContentTypeSingle
	}
	if episodes.Valid {
		c.EpisodeCount = int(episodes.Int64)
		c.HasEpisodeCount = true
	}
	return c, nil
}

func (s *PostgresStore) GetEpisodes(ctx context.Context, contentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT episode_id FROM episodes WHERE contents_id = $1 ORDER BY episode_id`, contentID)
	if err != nil {
		return nil, &CatalogError{Op: "get_episodes", Err: err}
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &CatalogError{Op: "get_episodes", Err: err}
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) ListSubscriptionPlans(ctx context.Context) ([]model.SubscriptionPlan, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT plan_id, family FROM subscription_plans`)
	if err != nil {
		return nil, &CatalogError{Op: "list_subscription_plans", Err: err}
	}
	defer rows.Close()
	var plans []model.SubscriptionPlan
	for rows.Next() {
		var p model.SubscriptionPlan
		if err := rows.Scan(&p.ID, &p.Family); err != nil {
			return nil, &CatalogError{Op: "list_subscription_plans", Err: err}
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *PostgresStore) CreateNewUser(ctx context.Context, signupDate time.Time) (int64, error) {
	var id int64
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (signup_date, account_status, is_subscribed)
		VALUES ($1, 'active', false)
		RETURNING user_id`, signupDate)
	if err := row.Scan(&id); err != nil {
		return 0, &CatalogError{Op: "create_new_user", Err: err}
	}
	return id, nil
}

func (s *PostgresStore) SoftDeleteUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET account_status = 'deleted' WHERE user_id = $1`, userID)
	if err != nil {
		return &CatalogError{Op: "soft_delete_user", Err: err}
	}
	return nil
}

func (s *PostgresStore) MarkSubscription(ctx context.Context, userID int64, active bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_subscribed = $1 WHERE user_id = $2`, active, userID)
	if err != nil {
		return &CatalogError{Op: "mark_subscription", Err: err}
	}
	return nil
}
