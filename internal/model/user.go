package model

import "time"

// UserState is a node in the per-user decision state machine (§4.3).
type UserState int

const (
	StateNotLoggedIn UserState = iota
	StateMainPage
	StateContentPage
	StateUserOut
)

func (s UserState) String() string {
	switch s {
	case StateNotLoggedIn:
		return "NOT_LOGGED_IN"
	case StateMainPage:
		return "MAIN_PAGE"
	case StateContentPage:
		return "CONTENT_PAGE"
	case StateUserOut:
		return "USER_OUT"
	default:
		return "UNKNOWN"
	}
}

// ActivityLevel governs the expected watch duration of a user's playback
// patterns (§3, §4.4.1).
type ActivityLevel int

const (
	ActivityHigh ActivityLevel = iota
	ActivityMedium
	ActivityLow
)

func (a ActivityLevel) String() string {
	switch a {
	case ActivityHigh:
		return "HIGH"
	case ActivityMedium:
		return "MEDIUM"
	case ActivityLow:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}

// User is the mutable runtime entity held by the User Pool (§3).
//
// Invariant: ActivityLevel is immutable once assigned. EpisodeID is set only
// when ContentID refers to a series. BlockedUntil gates re-selection while a
// playback pattern occupies the user's simulated wall-clock window.
type User struct {
	ID                int64
	IsSubscribed      bool
	ActivityLevel     ActivityLevel
	State             UserState
	ContentID         string
	HasContent        bool
	EpisodeID         string
	HasEpisode        bool
	SubscriptionPlanID string
	HasSubscriptionPlan bool
	HasLoggedInToday bool
	BlockedUntil     *time.Time
}

// IsBlockedAt reports whether the user may not be selected at ts.
func (u *User) IsBlockedAt(ts time.Time) bool {
	return u.BlockedUntil != nil && u.BlockedUntil.After(ts)
}

// SetContent records the user's current content, clearing any episode.
func (u *User) SetContent(contentID string) {
	u.ContentID = contentID
	u.HasContent = true
	u.EpisodeID = ""
	u.HasEpisode = false
}

// SetEpisode records the user's current episode within their current content.
func (u *User) SetEpisode(episodeID string) {
	u.EpisodeID = episodeID
	u.HasEpisode = true
}

// Content is a read-only record supplied by the catalog (§3).
//
// Invariant: series content has EpisodeCount >= 1; single content has none.
type Content struct {
	ID             string
	Type           ContentType
	Popularity     float64
	EpisodeCount   int
	HasEpisodeCount bool
}

// SubscriptionPlan is a read-only plan record from the catalog.
type SubscriptionPlan struct {
	ID     string
	Family string // "standard", "premium", "family", "mobile_only"
}
