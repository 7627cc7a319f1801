// Package decider implements the per-user event decision state machine of
// §4.3, grounded on original_source/src/user_controller.py's
// UserEventController: forced access-in as the first event of the day,
// then cumulative-weight sampling over a state-and-subscription-conditional
// transition table.
package decider

import (
	"fmt"
	"math/rand"

	"github.com/yourflock/viewlog/internal/config"
	"github.com/yourflock/viewlog/internal/model"
)

// Kind names the decided event, matching the category-type pairs of §4.3.
type Kind string

const (
	KindAccessIn          Kind = "access-in"
	KindAccessOut         Kind = "access-out"
	KindContentsClick     Kind = "contents-click"
	KindContentsStart     Kind = "contents-start"
	KindContentsLikeOn    Kind = "contents-like_on"
	KindContentsLikeOff   Kind = "contents-like_off"
	KindReviewReview      Kind = "review-review"
	KindSubscriptionStart Kind = "subscription-start"
	KindSubscriptionStop  Kind = "subscription-stop"
	KindRegisterIn        Kind = "register-in"
	KindRegisterOut       Kind = "register-out"
	KindSearchSearch      Kind = "search-search"
	KindSupportInquiry    Kind = "support-inquiry"
)

// CategoryType returns the (category, type) code pair for a Kind (§6).
func (k Kind) CategoryType() (model.EventCategory, model.EventType) {
	switch k {
	case KindAccessIn:
		return model.CategoryAccess, model.TypeIn
	case KindAccessOut:
		return model.CategoryAccess, model.TypeOut
	case KindContentsClick:
		return model.CategoryContents, model.TypeClick
	case KindContentsStart:
		return model.CategoryContents, model.TypeStart
	case KindContentsLikeOn:
		return model.CategoryContents, model.TypeLikeOn
	case KindContentsLikeOff:
		return model.CategoryContents, model.TypeLikeOff
	case KindReviewReview:
		return model.CategoryReview, model.TypeReview
	case KindSubscriptionStart:
		return model.CategorySubscription, model.TypeStart
	case KindSubscriptionStop:
		return model.CategorySubscription, model.TypeStop
	case KindRegisterIn:
		return model.CategoryRegister, model.TypeIn
	case KindRegisterOut:
		return model.CategoryRegister, model.TypeOut
	case KindSearchSearch:
		return model.CategorySearch, model.TypeSearch
	case KindSupportInquiry:
		return model.CategorySupport, model.TypeInquiry
	default:
		return 0, 0
	}
}

// Hints carries the side-effect instructions of §4.3's transition tables.
type Hints struct {
	NeedContent        bool
	ExpandPlayback     bool
	MarkSubscribed     bool
	HasMarkSubscribed  bool
	SoftDelete         bool
	ResetLoggedInToday bool
}

// Decision is the result of one Decide call.
type Decision struct {
	Kind      Kind
	NextState model.UserState
	Hints     Hints
}

// Decider samples the next event kind for a (user, state) pair (§4.3).
type Decider struct {
	transitions config.UserEventTransitions
	rng         *rand.Rand
}

// New builds a Decider from the configured transition tables.
func New(transitions config.UserEventTransitions, rng *rand.Rand) *Decider {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Decider{transitions: transitions, rng: rng}
}

// transitionTable selects the EventWeights table for the user's current
// state and subscription flag.
func (d *Decider) transitionTable(user *model.User) (config.EventWeights, error) {
	var st config.StateTransitions
	switch user.State {
	case model.StateMainPage:
		st = d.transitions.MainPage
	case model.StateContentPage:
		st = d.transitions.ContentPage
	default:
		return config.EventWeights{}, fmt.Errorf("decider: no transition table for state %v", user.State)
	}
	if user.IsSubscribed {
		return st.Subscribed, nil
	}
	return st.NotSubscribed, nil
}

// sampleKind performs cumulative-weight selection over an EventWeights
// table in declared order (§4.3 "sampling uses cumulative-weight selection
// on the declared order; weights are not required to sum to 1").
func (d *Decider) sampleKind(w config.EventWeights) (Kind, error) {
	total := 0.0
	for _, v := range w.Weights {
		total += v
	}
	if total <= 0 || len(w.Keys) == 0 {
		return "", fmt.Errorf("decider: transition table has no positive weight")
	}
	r := d.rng.Float64() * total
	acc := 0.0
	for i, v := range w.Weights {
		acc += v
		if r <= acc {
			return Kind(w.Keys[i]), nil
		}
	}
	return Kind(w.Keys[len(w.Keys)-1]), nil
}

// nextStateAndHints applies §4.3's fixed next-state and side-effect-hint
// tables for each declarable Kind.
func nextStateAndHints(k Kind) (model.UserState, Hints) {
	switch k {
	case KindAccessOut:
		return model.StateUserOut, Hints{ResetLoggedInToday: true}
	case KindContentsClick:
		return model.StateContentPage, Hints{NeedContent: true}
	case KindSubscriptionStop:
		return model.StateMainPage, Hints{MarkSubscribed: false, HasMarkSubscribed: true}
	case KindSubscriptionStart:
		return model.StateMainPage, Hints{MarkSubscribed: true, HasMarkSubscribed: true}
	case KindRegisterOut:
		return model.StateUserOut, Hints{SoftDelete: true}
	case KindSearchSearch:
		return model.StateMainPage, Hints{}
	case KindSupportInquiry:
		return model.StateMainPage, Hints{}
	case KindContentsStart:
		return model.StateMainPage, Hints{ExpandPlayback: true}
	case KindContentsLikeOn, KindContentsLikeOff:
		return model.StateMainPage, Hints{}
	case KindReviewReview:
		return model.StateMainPage, Hints{}
	default:
		return model.StateMainPage, Hints{}
	}
}

// Decide implements the full decision rule of §4.3: forced access-in as the
// first event of the day, otherwise cumulative-weight sampling from the
// state-and-subscription-conditional transition table.
func (d *Decider) Decide(user *model.User) (Decision, error) {
	if !user.HasLoggedInToday {
		user.HasLoggedInToday = true
		return Decision{Kind: KindAccessIn, NextState: model.StateMainPage}, nil
	}

	table, err := d.transitionTable(user)
	if err != nil {
		return Decision{}, err
	}
	kind, err := d.sampleKind(table)
	if err != nil {
		return Decision{}, err
	}
	nextState, hints := nextStateAndHints(kind)
	return Decision{Kind: kind, NextState: nextState, Hints: hints}, nil
}
