package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/yourflock/viewlog/internal/decider"
	"github.com/yourflock/viewlog/internal/detailgen"
	"github.com/yourflock/viewlog/internal/metrics"
	"github.com/yourflock/viewlog/internal/model"
)

// step runs one iteration of §4.5's per-timestamp flow: select user,
// decide, generate detail (possibly multiple logs for a playback
// expansion), apply side effects, update pool state, emit to the sink.
func (p *Pipeline) step(ctx context.Context, ts time.Time) Outcome {
	user, err := p.pool.Select(ctx, ts)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{Kind: OutcomeFatal, Err: ctx.Err()}
		}
		p.logger.Warn("catalog error selecting user, dropping timestamp", "err", err)
		metrics.EventsSkipped.WithLabelValues("catalog_error").Inc()
		return Outcome{Kind: OutcomeSkipped, Reason: "catalog_error"}
	}
	metrics.PoolSize.Set(float64(p.pool.Size()))

	decision, err := p.decider.Decide(user)
	if err != nil {
		p.logger.Warn("decider error, dropping timestamp", "user_id", user.ID, "err", err)
		metrics.EventsSkipped.WithLabelValues("decider_error").Inc()
		return Outcome{Kind: OutcomeSkipped, Reason: "decider_error"}
	}

	events, genErr := p.generate(ctx, ts, user, decision.Kind)
	if genErr != nil {
		if errors.Is(genErr, detailgen.ErrDetailUnavailable) {
			metrics.EventsSkipped.WithLabelValues("detail_unavailable").Inc()
			return Outcome{Kind: OutcomeSkipped, Reason: "detail_unavailable"}
		}
		p.logger.Warn("detail generation failed, dropping timestamp", "user_id", user.ID, "kind", decision.Kind, "err", genErr)
		metrics.EventsSkipped.WithLabelValues("catalog_error").Inc()
		return Outcome{Kind: OutcomeSkipped, Reason: "catalog_error"}
	}

	p.applySideEffects(ctx, user, decision.Hints)
	p.pool.Update(user, decision.NextState)

	emitted := 0
	for _, e := range events {
		if err := p.sink.Write(ctx, e); err != nil {
			p.logger.Warn("sink write failed", "err", err)
			continue
		}
		metrics.EventsEmitted.WithLabelValues(e.EventCategory.String()).Inc()
		emitted++
		p.waitForRateLimit(ctx)
	}
	return Outcome{Kind: OutcomeEmitted, Count: emitted}
}

// generate dispatches to ExpandPlayback for contents-start (which produces
// a multi-log playback pattern) or to the Detail Generator's per-kind
// builder otherwise (§4.4).
func (p *Pipeline) generate(ctx context.Context, ts time.Time, user *model.User, kind decider.Kind) ([]model.Event, error) {
	if kind == decider.KindContentsStart {
		return p.gen.ExpandPlayback(ctx, ts, user)
	}
	return p.gen.Generate(ctx, ts, user, kind, p.cfg.ReviewSentences, p.cfg.RegisterOutReasons)
}

// applySideEffects carries out the decider's declared hints (§4.3): reset
// the logged-in-today flag on access-out, write through the subscription
// flag on subscription-start/-stop, and soft-delete on register-out. The
// catalog writes are best-effort (§4.5 "may write through to the catalog");
// a failure is logged but never reverses the in-memory state the Decider
// already used to pick this transition.
func (p *Pipeline) applySideEffects(ctx context.Context, user *model.User, hints decider.Hints) {
	if hints.ResetLoggedInToday {
		user.HasLoggedInToday = false
	}
	if hints.HasMarkSubscribed {
		user.IsSubscribed = hints.MarkSubscribed
		if err := p.store.MarkSubscription(ctx, user.ID, user.IsSubscribed); err != nil {
			p.logger.Warn("best-effort subscription write-through failed", "user_id", user.ID, "err", err)
		}
	}
	if hints.SoftDelete {
		if err := p.store.SoftDeleteUser(ctx, user.ID); err != nil {
			p.logger.Warn("best-effort soft delete failed", "user_id", user.ID, "err", err)
		}
	}
}

// waitForRateLimit blocks until the configured target_mps allows another
// emission (§4.5 "Apply rate limiting via sleep(1/target_mps)... when
// target_mps > 0"). No-op when unthrottled.
func (p *Pipeline) waitForRateLimit(ctx context.Context) {
	if p.limiter == nil {
		return
	}
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return
	}
	metrics.PipelineLag.Observe(time.Since(start).Seconds())
}
