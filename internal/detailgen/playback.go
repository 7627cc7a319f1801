package detailgen

import (
	"context"
	"fmt"
	"time"

	"github.com/yourflock/viewlog/internal/model"
)

// Pattern is one of the four canonical playback sequences of §4.4.1.
type Pattern string

const (
	PatternPlayStop                 Pattern = "play_stop"
	PatternPlayPauseStop            Pattern = "play_pause_stop"
	PatternPlayPauseResumeStop      Pattern = "play_pause_resume_stop"
	PatternPlayPauseResumePauseStop Pattern = "play_pause_resume_pause_stop"
)

// uniform draws a float64 in [lo, hi).
func uniform(rng randSource, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// samplePattern draws a Pattern from watch_pattern_probability via
// cumulative-weight selection (§4.4.1 step 1).
func (g *Generator) samplePattern() Pattern {
	p := g.cfg.WatchPatternProbability
	total := p.PlayStop + p.PlayPauseStop + p.PlayPauseResumeStop + p.PlayPauseResumePauseStop
	if total <= 0 {
		return PatternPlayStop
	}
	roll := g.rng.Float64() * total
	acc := p.PlayStop
	if roll <= acc {
		return PatternPlayStop
	}
	acc += p.PlayPauseStop
	if roll <= acc {
		return PatternPlayPauseStop
	}
	acc += p.PlayPauseResumeStop
	if roll <= acc {
		return PatternPlayPauseResumeStop
	}
	return PatternPlayPauseResumePauseStop
}

// watchDuration computes D in minutes for activityLevel: base avg +/-
// integer jitter in [-noise, noise], floored at 1 (§4.4.1 step 2).
func (g *Generator) watchDuration(level model.ActivityLevel) int {
	var profile struct {
		Avg   int
		Noise int
	}
	switch level {
	case model.ActivityHigh:
		profile.Avg, profile.Noise = g.cfg.WatchTime.High.AvgMinutes, g.cfg.WatchTime.High.Noise
	case model.ActivityLow:
		profile.Avg, profile.Noise = g.cfg.WatchTime.Low.AvgMinutes, g.cfg.WatchTime.Low.Noise
	default:
		profile.Avg, profile.Noise = g.cfg.WatchTime.Medium.AvgMinutes, g.cfg.WatchTime.Medium.Noise
	}
	jitter := 0
	if profile.Noise > 0 {
		jitter = g.rng.Intn(2*profile.Noise+1) - profile.Noise
	}
	d := profile.Avg + jitter
	if d < 1 {
		d = 1
	}
	return d
}

// playbackCommon fields carried on every non-terminal and terminal log of a
// pattern expansion (§4.4.1 "All non-terminal logs... carry {platform,
// contents_id, contents_type, episode_id?}; the stop carries the same").
type playbackCommon struct {
	platform     model.Platform
	contentsID   string
	contentsType model.ContentType
	episodeID    string
	hasEpisode   bool
}

func (pc playbackCommon) detail() model.Detail {
	d := model.Detail{
		Platform: pc.platform, HasPlatform: true,
		ContentsID: pc.contentsID, HasContentsID: true,
		ContentsType: pc.contentsType, HasContentsType: true,
	}
	if pc.hasEpisode {
		d.EpisodeID = pc.episodeID
		d.HasEpisodeID = true
	}
	return d
}

// ExpandPlayback implements §4.4.1: resolves content/episode/platform once
// for the whole sequence, then emits the pattern's events with strictly
// increasing timestamps, finally setting the user's blocked-until to the
// stop timestamp.
func (g *Generator) ExpandPlayback(ctx context.Context, t0 time.Time, user *model.User) ([]model.Event, error) {
	pattern := g.samplePattern()
	durationMin := g.watchDuration(user.ActivityLevel)
	duration := time.Duration(durationMin) * time.Minute

	var contentID string
	if user.HasContent {
		contentID = user.ContentID
	} else {
		c, err := g.selectContent(ctx)
		if err != nil {
			return nil, fmt.Errorf("detailgen: expand playback: %w", err)
		}
		contentID = c.ID
		user.SetContent(contentID)
	}
	content, err := g.store.GetContentByID(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("detailgen: expand playback: resolve content: %w", err)
	}

	pc := playbackCommon{platform: g.platform(), contentsID: content.ID, contentsType: content.Type}
	if content.Type == model.ContentTypeSeries {
		epID, err := g.episodeID(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("detailgen: expand playback: %w", err)
		}
		pc.episodeID = epID
		pc.hasEpisode = true
		user.SetEpisode(epID)
	}

	log := func(ts time.Time, typ model.EventType) model.Event {
		return model.Event{Timestamp: ts, UserID: user.ID, EventCategory: model.CategoryContents, EventType: typ, Detail: pc.detail()}
	}

	var events []model.Event
	var stopAt time.Time

	switch pattern {
	case PatternPlayStop:
		stopAt = t0.Add(duration)
		events = []model.Event{
			log(t0, model.TypeStart),
			log(stopAt, model.TypeStop),
		}
	case PatternPlayPauseStop:
		r := uniform(g.rng, 0.3, 0.7)
		pauseAt := t0.Add(time.Duration(r * float64(duration)))
		stopAt = t0.Add(duration)
		events = []model.Event{
			log(t0, model.TypeStart),
			log(pauseAt, model.TypePause),
			log(stopAt, model.TypeStop),
		}
	case PatternPlayPauseResumeStop:
		r := uniform(g.rng, 0.2, 0.4)
		pauseAt := t0.Add(time.Duration(r * float64(duration)))
		waitMin := uniform(g.rng, 1, 5)
		resumeAt := pauseAt.Add(time.Duration(waitMin * float64(time.Minute)))
		remaining := duration - time.Duration(r*float64(duration))
		stopAt = resumeAt.Add(remaining)
		events = []model.Event{
			log(t0, model.TypeStart),
			log(pauseAt, model.TypePause),
			log(resumeAt, model.TypeResume),
			log(stopAt, model.TypeStop),
		}
	case PatternPlayPauseResumePauseStop:
		r1 := uniform(g.rng, 0.15, 0.25)
		pause1At := t0.Add(time.Duration(r1 * float64(duration)))
		wait1Min := uniform(g.rng, 1, 3)
		resumeAt := pause1At.Add(time.Duration(wait1Min * float64(time.Minute)))
		r2 := uniform(g.rng, 0.2, 0.35)
		pause2At := resumeAt.Add(time.Duration(r2 * float64(duration)))
		remaining := duration - time.Duration(r1*float64(duration)) - time.Duration(r2*float64(duration))
		stopAt = pause2At.Add(remaining)
		events = []model.Event{
			log(t0, model.TypeStart),
			log(pause1At, model.TypePause),
			log(resumeAt, model.TypeResume),
			log(pause2At, model.TypePause),
			log(stopAt, model.TypeStop),
		}
	}

	user.BlockedUntil = &stopAt
	return events, nil
}
