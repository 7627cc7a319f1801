package detailgen

import (
	"context"
	"testing"
	"time"

	"github.com/yourflock/viewlog/internal/catalog"
	"github.com/yourflock/viewlog/internal/config"
	"github.com/yourflock/viewlog/internal/decider"
	"github.com/yourflock/viewlog/internal/model"
)

func TestAccessIn_SetsPlatform(t *testing.T) {
	cfg := &config.Config{PlatformRatio: config.PlatformRatio{Android: 1}}
	g := New(catalog.NewMemStore(nil, nil, nil, nil), cfg, nil)
	e := g.AccessIn(time.Now(), 1)
	if !e.Detail.HasPlatform {
		t.Error("expected platform to be set on access-in")
	}
	if e.EventCategory != model.CategoryAccess || e.EventType != model.TypeIn {
		t.Errorf("unexpected category/type: %v/%v", e.EventCategory, e.EventType)
	}
}

func TestReviewReview_RequiresCurrentContent(t *testing.T) {
	cfg := &config.Config{ReviewDetailRatio: 0}
	g := New(catalog.NewMemStore(nil, nil, nil, nil), cfg, nil)
	user := &model.User{ID: 1}
	_, err := g.ReviewReview(time.Now(), user, nil)
	if err != ErrDetailUnavailable {
		t.Errorf("expected ErrDetailUnavailable, got %v", err)
	}
}

func TestReviewReview_RatingInValidSet(t *testing.T) {
	cfg := &config.Config{ReviewDetailRatio: 0}
	g := New(catalog.NewMemStore(nil, nil, nil, nil), cfg, nil)
	user := &model.User{ID: 1}
	user.SetContent("c1")

	valid := map[float64]bool{0.5: true, 1: true, 1.5: true, 2: true, 2.5: true, 3: true, 3.5: true, 4: true, 4.5: true, 5: true}
	for i := 0; i < 50; i++ {
		e, err := g.ReviewReview(time.Now(), user, nil)
		if err != nil {
			t.Fatalf("ReviewReview() error = %v", err)
		}
		if !valid[e.Detail.Rating] {
			t.Errorf("rating %v not in valid set", e.Detail.Rating)
		}
	}
}

func TestContentsLike_RequiresCurrentContent(t *testing.T) {
	cfg := &config.Config{}
	g := New(catalog.NewMemStore(nil, nil, nil, nil), cfg, nil)
	user := &model.User{ID: 1}
	_, err := g.ContentsLike(time.Now(), user, true)
	if err != ErrDetailUnavailable {
		t.Errorf("expected ErrDetailUnavailable, got %v", err)
	}
}

func TestSubscriptionStartThenStop_UsesTrackedPlan(t *testing.T) {
	cfg := &config.Config{SubscriptionTypeRatio: config.SubscriptionTypeRatio{Standard: 1}}
	g := New(catalog.NewMemStore(nil, nil, nil, nil), cfg, nil)
	user := &model.User{ID: 1}

	startEvent := g.SubscriptionStart(time.Now(), user)
	if !startEvent.Detail.HasSubscriptionID {
		t.Fatal("expected subscription_id on subscription-start")
	}
	if !user.HasSubscriptionPlan {
		t.Fatal("expected user.HasSubscriptionPlan after start")
	}

	stopEvent, err := g.SubscriptionStop(context.Background(), time.Now(), user)
	if err != nil {
		t.Fatalf("SubscriptionStop() error = %v", err)
	}
	if stopEvent.Detail.SubscriptionID != startEvent.Detail.SubscriptionID {
		t.Errorf("stop plan %q != start plan %q", stopEvent.Detail.SubscriptionID, startEvent.Detail.SubscriptionID)
	}
}

func TestSubscriptionStop_FallsBackToRandomPlanWhenUntracked(t *testing.T) {
	cfg := &config.Config{}
	plans := []model.SubscriptionPlan{{ID: "7", Family: "premium"}}
	g := New(catalog.NewMemStore(nil, nil, plans, nil), cfg, nil)
	user := &model.User{ID: 1}

	e, err := g.SubscriptionStop(context.Background(), time.Now(), user)
	if err != nil {
		t.Fatalf("SubscriptionStop() error = %v", err)
	}
	if e.Detail.SubscriptionID != "7" {
		t.Errorf("SubscriptionID = %q, want 7", e.Detail.SubscriptionID)
	}
}

func TestRegisterOut_ReasonTypeInRange(t *testing.T) {
	cfg := &config.Config{RegisterOutDetailRatio: 0}
	g := New(catalog.NewMemStore(nil, nil, nil, nil), cfg, nil)
	for i := 0; i < 50; i++ {
		e := g.RegisterOut(time.Now(), 1, nil)
		if e.Detail.ReasonType < model.MinReasonType || e.Detail.ReasonType > model.MaxReasonType {
			t.Errorf("reason_type %v out of range", e.Detail.ReasonType)
		}
	}
}

func TestGenerate_ContentsStartRoutesToExpandPlayback(t *testing.T) {
	cfg := &config.Config{}
	g := New(catalog.NewMemStore(nil, nil, nil, nil), cfg, nil)
	user := &model.User{ID: 1}
	_, err := g.Generate(context.Background(), time.Now(), user, decider.KindContentsStart, nil, nil)
	if err == nil {
		t.Fatal("expected Generate to refuse contents-start (must use ExpandPlayback)")
	}
}

func TestDetail_MarshalJSON_OmitsUnsetFields(t *testing.T) {
	d := model.Detail{Platform: model.PlatformAndroid, HasPlatform: true}
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	got := string(b)
	if got != `{"platform":1}` {
		t.Errorf("MarshalJSON() = %s, want {\"platform\":1}", got)
	}
}
