// Package model defines the data types shared across the event generation
// engine: users, content, events, and the tagged-union detail payloads of
// §4.4 and §6 of the specification this engine implements.
package model

import "time"

// EventCategory is the top-level classification of an Event (§6).
type EventCategory int

const (
	CategoryAccess       EventCategory = 1
	CategoryContents     EventCategory = 2
	CategoryReview       EventCategory = 3
	CategorySubscription EventCategory = 4
	CategoryRegister     EventCategory = 5
	CategorySearch       EventCategory = 6
	CategorySupport      EventCategory = 7
)

// String returns the lowercase category name used for metric labels.
func (c EventCategory) String() string {
	switch c {
	case CategoryAccess:
		return "access"
	case CategoryContents:
		return "contents"
	case CategoryReview:
		return "review"
	case CategorySubscription:
		return "subscription"
	case CategoryRegister:
		return "register"
	case CategorySearch:
		return "search"
	case CategorySupport:
		return "support"
	default:
		return "unknown"
	}
}

// EventType is the fine-grained classification of an Event (§6).
type EventType int

const (
	TypeIn       EventType = 1
	TypeOut      EventType = 2
	TypeClick    EventType = 3
	TypeStart    EventType = 4
	TypeStop     EventType = 5
	TypePause    EventType = 6
	TypeResume   EventType = 7
	TypeLikeOn   EventType = 8
	TypeLikeOff  EventType = 9
	TypeReview   EventType = 10
	TypeSearch   EventType = 11
	TypeInquiry  EventType = 12
)

// Platform is the client platform an event was attributed to (§6).
type Platform int

const (
	PlatformAndroid Platform = 1
	PlatformIOS     Platform = 2
	PlatformPC      Platform = 3
	PlatformTV      Platform = 4
)

// ContentType distinguishes episodic content from standalone content (§3, §6).
type ContentType int

const (
	ContentTypeSeries ContentType = 1
	ContentTypeSingle ContentType = 2
)

// TrafficSource is the attributed acquisition channel of a register-in event.
type TrafficSource int

// ReasonType is the category of a register-out event.
type ReasonType int

// InquiryType is the category of a support-inquiry event.
type InquiryType int

const (
	MinTrafficSource TrafficSource = 1
	MaxTrafficSource TrafficSource = 6

	MinReasonType ReasonType = 1
	MaxReasonType ReasonType = 3

	MinInquiryType InquiryType = 1
	MaxInquiryType InquiryType = 4
)

// Detail is the discriminated-union payload of an Event. Its shape depends on
// (EventCategory, EventType); JSON marshaling omits every field that was not
// populated for the given event kind, rather than emitting it as null — see
// Detail.MarshalJSON.
type Detail struct {
	Platform      Platform      `json:"-"`
	HasPlatform   bool          `json:"-"`
	ContentsID    string        `json:"-"`
	HasContentsID bool          `json:"-"`
	ContentsType  ContentType   `json:"-"`
	HasContentsType bool        `json:"-"`
	EpisodeID     string        `json:"-"`
	HasEpisodeID  bool          `json:"-"`
	Rating        float64       `json:"-"`
	HasRating     bool          `json:"-"`
	ReviewText    string        `json:"-"`
	HasReviewText bool          `json:"-"`
	SubscriptionID string       `json:"-"`
	HasSubscriptionID bool      `json:"-"`
	TrafficSource TrafficSource `json:"-"`
	HasTrafficSource bool       `json:"-"`
	ReasonType    ReasonType    `json:"-"`
	HasReasonType bool          `json:"-"`
	ReasonDetail  string        `json:"-"`
	HasReasonDetail bool        `json:"-"`
	SearchTerm    string        `json:"-"`
	HasSearchTerm bool          `json:"-"`
	InquiryType   InquiryType   `json:"-"`
	HasInquiryType bool         `json:"-"`
	InquiryDetail string        `json:"-"`
	HasInquiryDetail bool       `json:"-"`
}

// Event is a single unit of output (§3, §6).
type Event struct {
	Timestamp     time.Time
	UserID        int64
	EventCategory EventCategory
	EventType     EventType
	Detail        Detail
}
