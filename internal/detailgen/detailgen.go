// Package detailgen fills in the event-specific detail payload for each
// decided event kind (§4.4), grounded on
// original_source/src/log_contents.py's LogContents.generate /
// _generate_contents_pattern for per-kind construction and the playback
// pattern expansion's exact timing formulas.
package detailgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/yourflock/viewlog/internal/catalog"
	"github.com/yourflock/viewlog/internal/config"
	"github.com/yourflock/viewlog/internal/decider"
	"github.com/yourflock/viewlog/internal/model"
)

// ErrDetailUnavailable indicates the decided event references data the user
// does not hold — e.g. a review with no current content (§4.3, §7).
// Swallowed by the pipeline: nothing is emitted for the timestamp.
var ErrDetailUnavailable = errors.New("detailgen: required data unavailable for this event")

// randSource is the subset of *rand.Rand the generator needs. Tests for the
// playback pattern expansion (§4.4.1, §8 scenario 2) substitute a scripted
// fake to reproduce an exact sequence of draws.
type randSource interface {
	Float64() float64
	Intn(n int) int
}

// Generator produces Detail payloads and, for contents-start, the full
// playback pattern expansion (§4.4, §4.4.1).
type Generator struct {
	store catalog.Store
	cfg   *config.Config
	rng   randSource
}

// New builds a Generator against store and cfg.
func New(store catalog.Store, cfg *config.Config, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Generator{store: store, cfg: cfg, rng: rng}
}

// newWithSource builds a Generator against an arbitrary randSource — used
// by tests to inject deterministic draws.
func newWithSource(store catalog.Store, cfg *config.Config, rng randSource) *Generator {
	return &Generator{store: store, cfg: cfg, rng: rng}
}

// ── shared sampling helpers ───────────────────────────────────────────────

// platform samples from platform_ratio (§3, §4.4 "Common choices").
func (g *Generator) platform() model.Platform {
	r := g.cfg.PlatformRatio
	total := r.Android + r.IOS + r.PC + r.TV
	if total <= 0 {
		return model.PlatformAndroid
	}
	roll := g.rng.Float64() * total
	acc := r.Android
	if roll <= acc {
		return model.PlatformAndroid
	}
	acc += r.IOS
	if roll <= acc {
		return model.PlatformIOS
	}
	acc += r.PC
	if roll <= acc {
		return model.PlatformPC
	}
	return model.PlatformTV
}

// selectContent picks a content, honoring the optional featured-content
// weighting of SPEC_FULL's supplemented features before falling back to the
// catalog's top-50-popularity-weighted draw (§4.4).
func (g *Generator) selectContent(ctx context.Context) (model.Content, error) {
	if len(g.cfg.FeaturedContentIDs) > 0 && g.rng.Float64() < g.cfg.FeaturedWeight {
		id := g.cfg.FeaturedContentIDs[g.rng.Intn(len(g.cfg.FeaturedContentIDs))]
		c, err := g.store.GetContentByID(ctx, id)
		if err == nil {
			return c, nil
		}
		// Featured id no longer resolvable — fall through to the general pool.
	}
	return g.store.GetRandomContent(ctx)
}

// episodeID draws a uniform random episode for a series content: the
// catalog's own episode listing if available, else the "ep_NN" format of
// §4.4 over 1..episode_count.
func (g *Generator) episodeID(ctx context.Context, c model.Content) (string, error) {
	if ids, err := g.store.GetEpisodes(ctx, c.ID); err == nil && len(ids) > 0 {
		return ids[g.rng.Intn(len(ids))], nil
	}
	if !c.HasEpisodeCount || c.EpisodeCount < 1 {
		return "", fmt.Errorf("detailgen: series content %q has no episode count", c.ID)
	}
	n := g.rng.Intn(c.EpisodeCount) + 1
	return fmt.Sprintf("ep_%02d", n), nil
}

// rating draws a rating in {0.5, 1.0, ..., 5.0} (§4.4, §8).
func (g *Generator) rating() float64 {
	n := g.rng.Intn(10) + 1 // 1..10
	return float64(n) * 0.5
}

func withProbability(rng randSource, p float64) bool {
	return rng.Float64() < p
}

func pickFromList(rng randSource, list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[rng.Intn(len(list))]
}

// subscriptionID maps subscription_type_ratio to the plan-id ranges of
// §4.4: standard->1..4, premium->5..8, family->9..12, mobile_only->13..16.
func (g *Generator) subscriptionID() string {
	r := g.cfg.SubscriptionTypeRatio
	total := r.Standard + r.Premium + r.Family + r.MobileOnly
	var lo, hi int
	if total <= 0 {
		lo, hi = 1, 4
	} else {
		roll := g.rng.Float64() * total
		acc := r.Standard
		switch {
		case roll <= acc:
			lo, hi = 1, 4
		case roll <= acc+r.Premium:
			lo, hi = 5, 8
		case roll <= acc+r.Premium+r.Family:
			lo, hi = 9, 12
		default:
			lo, hi = 13, 16
		}
	}
	return fmt.Sprintf("%d", lo+g.rng.Intn(hi-lo+1))
}

// ── non-playback event kinds (§4.4) ──────────────────────────────────────

func (g *Generator) AccessIn(ts time.Time, userID int64) model.Event {
	d := model.Detail{Platform: g.platform(), HasPlatform: true}
	return model.Event{Timestamp: ts, UserID: userID, EventCategory: model.CategoryAccess, EventType: model.TypeIn, Detail: d}
}

func (g *Generator) AccessOut(ts time.Time, userID int64) model.Event {
	d := model.Detail{Platform: g.platform(), HasPlatform: true}
	return model.Event{Timestamp: ts, UserID: userID, EventCategory: model.CategoryAccess, EventType: model.TypeOut, Detail: d}
}

// ContentsClick samples a content and sets it on the user as a side effect
// (§4.4 "side-effect: set user's current content").
func (g *Generator) ContentsClick(ctx context.Context, ts time.Time, user *model.User) (model.Event, error) {
	c, err := g.selectContent(ctx)
	if err != nil {
		return model.Event{}, fmt.Errorf("detailgen: contents-click: %w", err)
	}
	user.SetContent(c.ID)
	d := model.Detail{
		Platform: g.platform(), HasPlatform: true,
		ContentsID: c.ID, HasContentsID: true,
		ContentsType: c.Type, HasContentsType: true,
	}
	return model.Event{Timestamp: ts, UserID: user.ID, EventCategory: model.CategoryContents, EventType: model.TypeClick, Detail: d}, nil
}

// ContentsLike builds a like_on/like_off event, requiring the user to hold a
// current content (§4.3, §7 DetailUnavailable).
func (g *Generator) ContentsLike(ts time.Time, user *model.User, on bool) (model.Event, error) {
	if !user.HasContent {
		return model.Event{}, ErrDetailUnavailable
	}
	typ := model.TypeLikeOn
	if !on {
		typ = model.TypeLikeOff
	}
	c, err := g.catalogLookupCurrentContentType(user)
	if err != nil {
		return model.Event{}, err
	}
	d := model.Detail{
		ContentsID: user.ContentID, HasContentsID: true,
		ContentsType: c, HasContentsType: true,
	}
	return model.Event{Timestamp: ts, UserID: user.ID, EventCategory: model.CategoryContents, EventType: typ, Detail: d}, nil
}

func (g *Generator) catalogLookupCurrentContentType(user *model.User) (model.ContentType, error) {
	// The user's current content type was fixed at click/playback time; we
	// look it up again only to keep the detail payload's contents_type
	// accurate if it were ever needed independent of the User struct. The
	// User struct does not cache it, so ask the catalog.
	return g.resolveContentType(user.ContentID)
}

func (g *Generator) resolveContentType(contentID string) (model.ContentType, error) {
	c, err := g.store.GetContentByID(context.Background(), contentID)
	if err != nil {
		return 0, fmt.Errorf("detailgen: resolve content type: %w", err)
	}
	return c.Type, nil
}

// ReviewReview requires a current content (§4.3, §7). review_text is
// present with probability review_detail_ratio (§4.4).
func (g *Generator) ReviewReview(ts time.Time, user *model.User, reviewSentences []string) (model.Event, error) {
	if !user.HasContent {
		return model.Event{}, ErrDetailUnavailable
	}
	d := model.Detail{
		ContentsID: user.ContentID, HasContentsID: true,
		Rating: g.rating(), HasRating: true,
	}
	if withProbability(g.rng, g.cfg.ReviewDetailRatio) {
		if text := pickFromList(g.rng, reviewSentences); text != "" {
			d.ReviewText = text
			d.HasReviewText = true
		}
	}
	return model.Event{Timestamp: ts, UserID: user.ID, EventCategory: model.CategoryReview, EventType: model.TypeReview, Detail: d}, nil
}

// SubscriptionStart samples a plan id from subscription_type_ratio and
// records it on the user for a later subscription-stop (§4.4, Open Question
// decision #2 in SPEC_FULL.md).
func (g *Generator) SubscriptionStart(ts time.Time, user *model.User) model.Event {
	planID := g.subscriptionID()
	user.SubscriptionPlanID = planID
	user.HasSubscriptionPlan = true
	d := model.Detail{SubscriptionID: planID, HasSubscriptionID: true}
	return model.Event{Timestamp: ts, UserID: user.ID, EventCategory: model.CategorySubscription, EventType: model.TypeStart, Detail: d}
}

// SubscriptionStop uses the user's tracked plan id when present, otherwise
// falls back to a random plan from the catalog's plan list (§4.4, §9 Open
// Question #2).
func (g *Generator) SubscriptionStop(ctx context.Context, ts time.Time, user *model.User) (model.Event, error) {
	planID := user.SubscriptionPlanID
	if !user.HasSubscriptionPlan {
		plans, err := g.store.ListSubscriptionPlans(ctx)
		if err != nil {
			return model.Event{}, fmt.Errorf("detailgen: subscription-stop: %w", err)
		}
		if len(plans) > 0 {
			planID = plans[g.rng.Intn(len(plans))].ID
		}
	}
	d := model.Detail{SubscriptionID: planID, HasSubscriptionID: true}
	return model.Event{Timestamp: ts, UserID: user.ID, EventCategory: model.CategorySubscription, EventType: model.TypeStop, Detail: d}, nil
}

func (g *Generator) RegisterIn(ts time.Time, userID int64) model.Event {
	source := model.TrafficSource(int(model.MinTrafficSource) + g.rng.Intn(int(model.MaxTrafficSource-model.MinTrafficSource)+1))
	d := model.Detail{TrafficSource: source, HasTrafficSource: true}
	return model.Event{Timestamp: ts, UserID: userID, EventCategory: model.CategoryRegister, EventType: model.TypeIn, Detail: d}
}

// RegisterOut samples a reason_type uniformly and, with probability
// register_out_detail_ratio, a free-text reason_detail (§4.4).
func (g *Generator) RegisterOut(ts time.Time, userID int64, reasons []string) model.Event {
	reason := model.ReasonType(int(model.MinReasonType) + g.rng.Intn(int(model.MaxReasonType-model.MinReasonType)+1))
	d := model.Detail{ReasonType: reason, HasReasonType: true}
	if withProbability(g.rng, g.cfg.RegisterOutDetailRatio) {
		if text := pickFromList(g.rng, reasons); text != "" {
			d.ReasonDetail = text
			d.HasReasonDetail = true
		}
	}
	return model.Event{Timestamp: ts, UserID: userID, EventCategory: model.CategoryRegister, EventType: model.TypeOut, Detail: d}
}

func (g *Generator) SearchSearch(ts time.Time, userID int64) model.Event {
	term := pickFromList(g.rng, g.cfg.SearchTerms)
	d := model.Detail{SearchTerm: term, HasSearchTerm: true}
	return model.Event{Timestamp: ts, UserID: userID, EventCategory: model.CategorySearch, EventType: model.TypeSearch, Detail: d}
}

func (g *Generator) SupportInquiry(ts time.Time, userID int64) model.Event {
	typ := model.InquiryType(int(model.MinInquiryType) + g.rng.Intn(int(model.MaxInquiryType-model.MinInquiryType)+1))
	detail := pickFromList(g.rng, g.cfg.InquiryList)
	d := model.Detail{InquiryType: typ, HasInquiryType: true}
	if detail != "" {
		d.InquiryDetail = detail
		d.HasInquiryDetail = true
	}
	return model.Event{Timestamp: ts, UserID: userID, EventCategory: model.CategorySupport, EventType: model.TypeInquiry, Detail: d}
}

// errUseExpandPlayback is returned by Generate for a Kind it does not itself
// construct (contents-start goes through ExpandPlayback instead).
var errUseExpandPlayback = errors.New("detailgen: contents-start must be generated via ExpandPlayback")

// Generate dispatches a non-playback decider.Kind to its detail builder.
// contents-start is handled separately by ExpandPlayback since it produces
// multiple events (§4.4).
func (g *Generator) Generate(ctx context.Context, ts time.Time, user *model.User, kind decider.Kind, reviewSentences, registerOutReasons []string) ([]model.Event, error) {
	switch kind {
	case decider.KindAccessIn:
		return []model.Event{g.AccessIn(ts, user.ID)}, nil
	case decider.KindAccessOut:
		return []model.Event{g.AccessOut(ts, user.ID)}, nil
	case decider.KindContentsClick:
		e, err := g.ContentsClick(ctx, ts, user)
		if err != nil {
			return nil, err
		}
		return []model.Event{e}, nil
	case decider.KindContentsLikeOn:
		e, err := g.ContentsLike(ts, user, true)
		if err != nil {
			return nil, err
		}
		return []model.Event{e}, nil
	case decider.KindContentsLikeOff:
		e, err := g.ContentsLike(ts, user, false)
		if err != nil {
			return nil, err
		}
		return []model.Event{e}, nil
	case decider.KindReviewReview:
		e, err := g.ReviewReview(ts, user, reviewSentences)
		if err != nil {
			return nil, err
		}
		return []model.Event{e}, nil
	case decider.KindSubscriptionStart:
		return []model.Event{g.SubscriptionStart(ts, user)}, nil
	case decider.KindSubscriptionStop:
		e, err := g.SubscriptionStop(ctx, ts, user)
		if err != nil {
			return nil, err
		}
		return []model.Event{e}, nil
	case decider.KindRegisterIn:
		return []model.Event{g.RegisterIn(ts, user.ID)}, nil
	case decider.KindRegisterOut:
		return []model.Event{g.RegisterOut(ts, user.ID, registerOutReasons)}, nil
	case decider.KindSearchSearch:
		return []model.Event{g.SearchSearch(ts, user.ID)}, nil
	case decider.KindSupportInquiry:
		return []model.Event{g.SupportInquiry(ts, user.ID)}, nil
	case decider.KindContentsStart:
		return nil, errUseExpandPlayback
	default:
		return nil, fmt.Errorf("detailgen: unknown kind %q", kind)
	}
}
