// Package pipeline orchestrates the per-timestamp flow of §4.5: sample
// timestamp → select user → decide → generate → apply side effects →
// update state → emit, in both batch (historical replay) and streaming
// (live) modes. Grounded on spec.md §4.5/§9 (explicit Outcome result type
// instead of exceptions-as-control-flow) with cooperative rate limiting
// idiom borrowed from tomtom215-cartographus's token-bucket use of
// golang.org/x/time/rate.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/yourflock/viewlog/internal/catalog"
	"github.com/yourflock/viewlog/internal/config"
	"github.com/yourflock/viewlog/internal/decider"
	"github.com/yourflock/viewlog/internal/detailgen"
	"github.com/yourflock/viewlog/internal/sink"
	"github.com/yourflock/viewlog/internal/temporal"
	"github.com/yourflock/viewlog/internal/userpool"
)

// progressInterval is how often runBatch logs a progress line (§4.5
// "Periodically log progress").
const progressInterval = 10000

// OutcomeKind classifies the per-iteration result of §9's explicit result
// type: "the pipeline's per-iteration outcome is one of {emitted(n),
// skipped(reason), fatal(err)}".
type OutcomeKind int

const (
	OutcomeEmitted OutcomeKind = iota
	OutcomeSkipped
	OutcomeFatal
)

// Outcome is the result of one Pipeline.step call.
type Outcome struct {
	Kind   OutcomeKind
	Count  int    // number of events emitted, when Kind == OutcomeEmitted
	Reason string // skip reason, when Kind == OutcomeSkipped
	Err    error  // unrecoverable error, when Kind == OutcomeFatal
}

// Pipeline wires the Temporal Sampler, User Pool, Event Decider, Detail
// Generator, and Sink components together per §4.5.
type Pipeline struct {
	cfg     *config.Config
	store   catalog.Store
	pool    *userpool.Pool
	decider *decider.Decider
	gen     *detailgen.Generator
	sampler *temporal.Sampler
	sink    sink.Sink
	limiter *rate.Limiter
	logger  *slog.Logger
	loc     *time.Location
}

// New builds a Pipeline from cfg, wiring its own Sampler/Pool/Decider/
// Generator against store and writing to sk (§9 "explicit injection" — no
// process-wide singletons; every dependency is passed in).
func New(cfg *config.Config, store catalog.Store, sk sink.Sink, logger *slog.Logger) (*Pipeline, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, &config.ConfigError{Field: "timezone", Msg: err.Error()}
	}
	hourRanges, err := cfg.ParsedHourRanges()
	if err != nil {
		return nil, err
	}

	sampler, err := temporal.NewSampler(loc, cfg.DayOfWeekRatio, hourRanges, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return nil, err
	}

	activity := userpool.ActivityRatios{
		High:   cfg.UserActivity.High,
		Medium: cfg.UserActivity.Medium,
		Low:    cfg.UserActivity.Low,
	}
	pool := userpool.New(store, cfg.DAU, cfg.NewUserRatio, activity, loc, rand.New(rand.NewSource(time.Now().UnixNano())))
	dec := decider.New(cfg.UserEventTransitions, rand.New(rand.NewSource(time.Now().UnixNano())))
	gen := detailgen.New(store, cfg, rand.New(rand.NewSource(time.Now().UnixNano())))

	var limiter *rate.Limiter
	if cfg.TargetMPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.TargetMPS), 1)
	}

	return &Pipeline{
		cfg:     cfg,
		store:   store,
		pool:    pool,
		decider: dec,
		gen:     gen,
		sampler: sampler,
		sink:    sk,
		limiter: limiter,
		logger:  logger,
		loc:     loc,
	}, nil
}

// Run dispatches to the batch or streaming loop per cfg.GenerationMode and
// guarantees the sink's close path runs on the way out (§5 "on interrupt
// the pipeline unwinds through the sink's close path so both hour buckets
// flush").
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.closeSink()

	switch p.cfg.GenerationMode {
	case config.ModeBatch:
		return p.runBatch(ctx)
	case config.ModeStreaming:
		return p.runStreaming(ctx)
	default:
		return fmt.Errorf("pipeline: unknown generation mode %q", p.cfg.GenerationMode)
	}
}

func (p *Pipeline) closeSink() {
	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.sink.Close(closeCtx); err != nil {
		p.logger.Error("sink close failed", "err", err)
	}
}

// runBatch implements §4.5's batch-mode loop: for each target month, compute
// N, obtain the sorted timestamp stream, and drive step() over it.
func (p *Pipeline) runBatch(ctx context.Context) error {
	for _, month := range p.cfg.TargetMonths {
		n, err := temporal.TotalLogsForMonth(month, p.loc, p.cfg.DAU, p.cfg.LogsPerUserPerDay)
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		timestamps, err := p.sampler.GenerateTimestamps(month, n)
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		p.logger.Info("batch_started", "month", month, "total", n)

		emitted := 0
		for i, ts := range timestamps {
			if ctx.Err() != nil {
				p.logger.Info("batch_interrupted", "month", month, "processed", i)
				return ctx.Err()
			}
			outcome := p.step(ctx, ts)
			switch outcome.Kind {
			case OutcomeEmitted:
				emitted += outcome.Count
			case OutcomeFatal:
				return outcome.Err
			}
			if (i+1)%progressInterval == 0 {
				p.logger.Info("batch_progress", "month", month, "processed", i+1, "total", n, "emitted", emitted)
			}
		}
		p.logger.Info("batch_completed", "month", month, "emitted", emitted)
	}
	return nil
}

// runStreaming implements §4.5's streaming-mode loop: same per-iteration
// logic as batch, but the timestamp is always "now" and the loop runs until
// ctx is cancelled.
func (p *Pipeline) runStreaming(ctx context.Context) error {
	p.logger.Info("streaming_started")
	for {
		if ctx.Err() != nil {
			p.logger.Info("streaming_stopped", "reason", ctx.Err())
			return nil
		}
		ts := p.sampler.Now()
		outcome := p.step(ctx, ts)
		if outcome.Kind == OutcomeFatal {
			return outcome.Err
		}
	}
}
