package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const timestampLayout = "2006-01-02 15:04:05"

// MarshalJSON renders the Detail payload with only the fields that were
// populated for this event kind. Never emits a null-valued key (§4.4, §9,
// §8 "the detail object never contains keys with null values").
func (d Detail) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, val interface{}) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		enc, err := json.Marshal(val)
		if err != nil {
			return err
		}
		fmt.Fprintf(&buf, "%q:", key)
		buf.Write(enc)
		return nil
	}

	if d.HasPlatform {
		if err := write("platform", int(d.Platform)); err != nil {
			return nil, err
		}
	}
	if d.HasContentsID {
		if err := write("contents_id", d.ContentsID); err != nil {
			return nil, err
		}
	}
	if d.HasContentsType {
		if err := write("contents_type", int(d.ContentsType)); err != nil {
			return nil, err
		}
	}
	if d.HasEpisodeID {
		if err := write("episode_id", d.EpisodeID); err != nil {
			return nil, err
		}
	}
	if d.HasRating {
		if err := write("rating", d.Rating); err != nil {
			return nil, err
		}
	}
	if d.HasReviewText {
		if err := write("review_text", d.ReviewText); err != nil {
			return nil, err
		}
	}
	if d.HasSubscriptionID {
		if err := write("subscription_id", d.SubscriptionID); err != nil {
			return nil, err
		}
	}
	if d.HasTrafficSource {
		if err := write("traffic_source", int(d.TrafficSource)); err != nil {
			return nil, err
		}
	}
	if d.HasReasonType {
		if err := write("reason_type", int(d.ReasonType)); err != nil {
			return nil, err
		}
	}
	if d.HasReasonDetail {
		if err := write("reason_detail", d.ReasonDetail); err != nil {
			return nil, err
		}
	}
	if d.HasSearchTerm {
		if err := write("search_term", d.SearchTerm); err != nil {
			return nil, err
		}
	}
	if d.HasInquiryType {
		if err := write("inquiry_type", int(d.InquiryType)); err != nil {
			return nil, err
		}
	}
	if d.HasInquiryDetail {
		if err := write("inquiry_detail", d.InquiryDetail); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// eventWire is the JSON-on-the-wire shape of an Event (§6).
type eventWire struct {
	Timestamp     string        `json:"timestamp"`
	UserID        int64         `json:"user_id"`
	EventCategory EventCategory `json:"event_category"`
	EventType     EventType     `json:"event_type"`
	Detail        Detail        `json:"detail"`
}

// MarshalJSON renders an Event in the schema of §6, with the timestamp
// formatted "YYYY-MM-DD HH:MM:SS" in the timestamp's own location.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventWire{
		Timestamp:     e.Timestamp.Format(timestampLayout),
		UserID:        e.UserID,
		EventCategory: e.EventCategory,
		EventType:     e.EventType,
		Detail:        e.Detail,
	})
}
