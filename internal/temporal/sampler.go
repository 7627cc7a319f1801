// Package temporal implements the weighted day-of-week × hour-of-day
// timestamp sampler (§4.1), grounded on
// original_source/src/log_date_generator.py's LogDateGenerator:
// generate_timestamps builds a weight per (year,month,day,hour) cell as
// day_weight * hour_weight, normalizes, draws N cells with replacement, and
// sorts ascending before filling minute/second uniformly.
package temporal

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/yourflock/viewlog/internal/config"
)

// ConfigError mirrors config.ConfigError for sampler-local validation
// failures (§4.1 "Invalid month string or zero total weight ⇒ ConfigError").
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "temporal: " + e.Msg }

// cell is one (day, hour) slot of the target month with its combined weight.
type cell struct {
	day    time.Time // midnight of the day, in loc
	hour   int
	weight float64
}

// Sampler produces the sorted, weighted timestamp sequence of §4.1.
type Sampler struct {
	loc            *time.Location
	dayOfWeekRatio [7]float64
	hourWeights    [24]float64
	rng            *rand.Rand
}

// NewSampler builds a Sampler from the day-of-week and hour-distribution
// configuration. hourRanges must already be parsed via
// config.Config.ParsedHourRanges.
func NewSampler(loc *time.Location, dayOfWeekRatio [7]float64, hourRanges []config.HourRange, rng *rand.Rand) (*Sampler, error) {
	var hourWeights [24]float64
	for _, r := range hourRanges {
		perHour := r.Weight / float64(r.End-r.Start)
		for h := r.Start; h < r.End; h++ {
			hourWeights[h] += perHour
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Sampler{loc: loc, dayOfWeekRatio: dayOfWeekRatio, hourWeights: hourWeights, rng: rng}, nil
}

// weekdayIndex maps time.Weekday (Sunday=0) to a Monday-first index 0..6,
// matching config's day_of_week_ratio ordering (Mon..Sun).
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// GenerateTimestamps produces n non-decreasing, timezone-aware timestamps
// within the month identified by "YYYY-MM" (§4.1).
func (s *Sampler) GenerateTimestamps(monthStr string, n int) ([]time.Time, error) {
	var year, month int
	if _, err := fmt.Sscanf(monthStr, "%d-%d", &year, &month); err != nil || month < 1 || month > 12 {
		return nil, &ConfigError{Msg: fmt.Sprintf("malformed target month %q", monthStr)}
	}
	firstOfMonth := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	daysInMonth := firstOfMonth.AddDate(0, 1, 0).Add(-time.Hour * 24).Day()

	cells := make([]cell, 0, daysInMonth*24)
	totalWeight := 0.0
	for d := 1; d <= daysInMonth; d++ {
		day := time.Date(year, time.Month(month), d, 0, 0, 0, 0, s.loc)
		dayWeight := s.dayOfWeekRatio[weekdayIndex(day.Weekday())]
		for h := 0; h < 24; h++ {
			w := dayWeight * s.hourWeights[h]
			if w <= 0 {
				continue
			}
			cells = append(cells, cell{day: day, hour: h, weight: w})
			totalWeight += w
		}
	}
	if totalWeight <= 0 {
		return nil, &ConfigError{Msg: "zero total weight across all (day,hour) cells"}
	}

	drawn := make([]time.Time, n)
	for i := 0; i < n; i++ {
		c := s.drawCell(cells, totalWeight)
		minute := s.rng.Intn(60)
		second := s.rng.Intn(60)
		drawn[i] = time.Date(c.day.Year(), c.day.Month(), c.day.Day(), c.hour, minute, second, 0, s.loc)
	}
	sort.Slice(drawn, func(i, j int) bool { return drawn[i].Before(drawn[j]) })
	return drawn, nil
}

// drawCell performs cumulative-weight sampling with replacement, mirroring
// random.choices(cells, weights=weights, k=1) from the original.
func (s *Sampler) drawCell(cells []cell, totalWeight float64) cell {
	r := s.rng.Float64() * totalWeight
	acc := 0.0
	for _, c := range cells {
		acc += c.weight
		if r <= acc {
			return c
		}
	}
	return cells[len(cells)-1]
}

// Now returns the current wall-clock instant in the Sampler's configured
// timezone — the trivial timestamp source for streaming mode (§4.1).
func (s *Sampler) Now() time.Time {
	return time.Now().In(s.loc)
}

// TotalLogsForMonth computes the derived monthly log count
// dau * logsPerUserPerDay * daysInMonth (§3, §4.1).
func TotalLogsForMonth(monthStr string, loc *time.Location, dau int, logsPerUserPerDay float64) (int, error) {
	var year, month int
	if _, err := fmt.Sscanf(monthStr, "%d-%d", &year, &month); err != nil || month < 1 || month > 12 {
		return 0, &ConfigError{Msg: fmt.Sprintf("malformed target month %q", monthStr)}
	}
	firstOfMonth := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	daysInMonth := firstOfMonth.AddDate(0, 1, 0).Add(-time.Hour * 24).Day()
	return int(float64(dau) * logsPerUserPerDay * float64(daysInMonth)), nil
}
