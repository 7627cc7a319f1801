package decider

import (
	"math/rand"
	"testing"

	"github.com/yourflock/viewlog/internal/config"
	"github.com/yourflock/viewlog/internal/model"
)

func TestDecide_ForcedAccessInFirstEventOfDay(t *testing.T) {
	d := New(config.UserEventTransitions{}, rand.New(rand.NewSource(1)))
	user := &model.User{ID: 1, IsSubscribed: true, HasLoggedInToday: false}

	decision, err := d.Decide(user)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Kind != KindAccessIn {
		t.Errorf("Kind = %v, want access-in", decision.Kind)
	}
	if decision.NextState != model.StateMainPage {
		t.Errorf("NextState = %v, want MAIN_PAGE", decision.NextState)
	}
	if !user.HasLoggedInToday {
		t.Error("expected HasLoggedInToday to be set true")
	}
}

func TestDecide_SubsequentDecisionsUseTransitionTable(t *testing.T) {
	transitions := config.UserEventTransitions{
		MainPage: config.StateTransitions{
			Subscribed: config.EventWeights{
				Keys:    []string{"search-search"},
				Weights: []float64{1},
			},
		},
	}
	d := New(transitions, rand.New(rand.NewSource(1)))
	user := &model.User{ID: 1, IsSubscribed: true, HasLoggedInToday: true, State: model.StateMainPage}

	decision, err := d.Decide(user)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Kind != KindSearchSearch {
		t.Errorf("Kind = %v, want search-search", decision.Kind)
	}
}

func TestDecide_ContentsClickSetsNeedContentHint(t *testing.T) {
	transitions := config.UserEventTransitions{
		MainPage: config.StateTransitions{
			Subscribed: config.EventWeights{
				Keys:    []string{"contents-click"},
				Weights: []float64{1},
			},
		},
	}
	d := New(transitions, rand.New(rand.NewSource(1)))
	user := &model.User{ID: 1, IsSubscribed: true, HasLoggedInToday: true, State: model.StateMainPage}

	decision, err := d.Decide(user)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if !decision.Hints.NeedContent {
		t.Error("expected NeedContent hint for contents-click")
	}
	if decision.NextState != model.StateContentPage {
		t.Errorf("NextState = %v, want CONTENT_PAGE", decision.NextState)
	}
}

func TestDecide_SubscriptionStopMarksUnsubscribed(t *testing.T) {
	transitions := config.UserEventTransitions{
		MainPage: config.StateTransitions{
			Subscribed: config.EventWeights{
				Keys:    []string{"subscription-stop"},
				Weights: []float64{1},
			},
		},
	}
	d := New(transitions, rand.New(rand.NewSource(1)))
	user := &model.User{ID: 1, IsSubscribed: true, HasLoggedInToday: true, State: model.StateMainPage}

	decision, err := d.Decide(user)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if !decision.Hints.HasMarkSubscribed || decision.Hints.MarkSubscribed {
		t.Error("expected MarkSubscribed=false hint for subscription-stop")
	}
}

func TestDecide_RegisterOutEvictsUser(t *testing.T) {
	transitions := config.UserEventTransitions{
		MainPage: config.StateTransitions{
			Subscribed: config.EventWeights{
				Keys:    []string{"register-out"},
				Weights: []float64{1},
			},
		},
	}
	d := New(transitions, rand.New(rand.NewSource(1)))
	user := &model.User{ID: 1, IsSubscribed: true, HasLoggedInToday: true, State: model.StateMainPage}

	decision, err := d.Decide(user)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.NextState != model.StateUserOut {
		t.Errorf("NextState = %v, want USER_OUT", decision.NextState)
	}
	if !decision.Hints.SoftDelete {
		t.Error("expected SoftDelete hint for register-out")
	}
}

func TestDecide_NoPositiveWeightReturnsError(t *testing.T) {
	d := New(config.UserEventTransitions{}, rand.New(rand.NewSource(1)))
	user := &model.User{ID: 1, HasLoggedInToday: true, State: model.StateMainPage}

	_, err := d.Decide(user)
	if err == nil {
		t.Fatal("expected error for empty transition table")
	}
}

func TestDecide_CumulativeWeightRespectsDistribution(t *testing.T) {
	transitions := config.UserEventTransitions{
		MainPage: config.StateTransitions{
			Subscribed: config.EventWeights{
				Keys:    []string{"search-search", "support-inquiry"},
				Weights: []float64{9, 1},
			},
		},
	}
	d := New(transitions, rand.New(rand.NewSource(123)))
	counts := map[Kind]int{}
	for i := 0; i < 2000; i++ {
		user := &model.User{IsSubscribed: true, HasLoggedInToday: true, State: model.StateMainPage}
		decision, err := d.Decide(user)
		if err != nil {
			t.Fatalf("Decide() error = %v", err)
		}
		counts[decision.Kind]++
	}
	if counts[KindSearchSearch] < counts[KindSupportInquiry]*3 {
		t.Errorf("expected search-search to dominate 9:1, got counts=%v", counts)
	}
}
