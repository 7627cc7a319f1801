// Package config loads and validates the immutable configuration record
// threaded through the rest of the engine (§3, §9 "explicit injection").
//
// Following yourflock-roost's internal/config.Load convention (a flat struct
// plus a single validating Load entry point), but reading the bulk of the
// engine's nested distributions from a TOML file — spec.md names "a single
// configuration file (TOML-equivalent)" — since flat env vars cannot express
// the day/hour weight tables, transition tables, or watch-time distributions.
// Secrets and deployment-specific overrides (DB DSN, AWS profile, log level)
// still layer in from the environment the way the teacher's services do.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// GenerationMode selects batch replay vs. live streaming (§1, §4.5).
type GenerationMode string

const (
	ModeBatch      GenerationMode = "batch"
	ModeStreaming  GenerationMode = "streaming"
)

// SinkType selects the output backend (§4.6, §3).
type SinkType string

const (
	SinkFile   SinkType = "file"
	SinkObject SinkType = "object"
	SinkStream SinkType = "stream"
)

// ActivityRatios are the relative weights used to assign a user's activity
// level at pool reload (§3 user_activity.*_ratio, §4.2).
type ActivityRatios struct {
	High   float64 `toml:"high_ratio"`
	Medium float64 `toml:"medium_ratio"`
	Low    float64 `toml:"low_ratio"`
}

// WatchTimeProfile is the mean/jitter pair for one activity level's
// playback duration (§3 watch_time.*, §4.4.1 step 2).
type WatchTimeProfile struct {
	AvgMinutes int `toml:"avg_minutes"`
	Noise      int `toml:"noise"`
}

// WatchTimeConfig holds a WatchTimeProfile per activity level.
type WatchTimeConfig struct {
	High   WatchTimeProfile `toml:"high"`
	Medium WatchTimeProfile `toml:"medium"`
	Low    WatchTimeProfile `toml:"low"`
}

// WatchPatternProbability is the weight distribution over the four playback
// pattern shapes of §4.4.1.
type WatchPatternProbability struct {
	PlayStop                  float64 `toml:"play_stop"`
	PlayPauseStop              float64 `toml:"play_pause_stop"`
	PlayPauseResumeStop        float64 `toml:"play_pause_resume_stop"`
	PlayPauseResumePauseStop   float64 `toml:"play_pause_resume_pause_stop"`
}

// PlatformRatio is the weight distribution over client platforms (§3).
type PlatformRatio struct {
	Android float64 `toml:"android"`
	IOS     float64 `toml:"ios"`
	PC      float64 `toml:"pc"`
	TV      float64 `toml:"tv"`
}

// SubscriptionTypeRatio is the weight distribution over plan families (§4.4).
type SubscriptionTypeRatio struct {
	Standard   float64 `toml:"standard"`
	Premium    float64 `toml:"premium"`
	Family     float64 `toml:"family"`
	MobileOnly float64 `toml:"mobile_only"`
}

// EventWeights is an ordered {event-kind -> weight} map for one decider cell
// of the user_event_transitions table (§3, §4.3). Keys are event-kind names
// ("access-out", "contents-click", ...); order is preserved via Keys since Go
// maps do not guarantee iteration order and the decider's cumulative-weight
// sampling must be deterministic given a fixed RNG stream.
type EventWeights struct {
	Keys    []string
	Weights []float64
}

// UnmarshalTOML implements toml.Unmarshaler so an EventWeights table in the
// config file (an ordered list of {event, weight} pairs) decodes in file
// order rather than through Go's unordered map decoding.
func (w *EventWeights) UnmarshalTOML(v interface{}) error {
	raw, ok := v.([]map[string]interface{})
	if !ok {
		// go-toml decodes an array-of-tables as []map[string]interface{};
		// fall back to a plain map when the file uses inline table form.
		m, ok := v.(map[string]interface{})
		if !ok {
			return fmt.Errorf("config: event weights must be an array of {event, weight} tables")
		}
		for k, val := range m {
			f, ferr := toFloat(val)
			if ferr != nil {
				return ferr
			}
			w.Keys = append(w.Keys, k)
			w.Weights = append(w.Weights, f)
		}
		return nil
	}
	for _, row := range raw {
		event, _ := row["event"].(string)
		f, err := toFloat(row["weight"])
		if err != nil {
			return err
		}
		w.Keys = append(w.Keys, event)
		w.Weights = append(w.Weights, f)
	}
	return nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("config: expected numeric weight, got %T", v)
	}
}

// StateTransitions is user_event_transitions[state][subscribed?] (§3, §4.3).
type StateTransitions struct {
	Subscribed    EventWeights `toml:"subscribed"`
	NotSubscribed EventWeights `toml:"not_subscribed"`
}

// UserEventTransitions is the full nested transition table (§3, §4.3).
type UserEventTransitions struct {
	MainPage    StateTransitions `toml:"main_page"`
	ContentPage StateTransitions `toml:"content_page"`
}

// HourRange is one "start-end" key of hour_distribution (§3, §4.1).
type HourRange struct {
	Start  int
	End    int
	Weight float64
}

// Config is the immutable configuration record for one run (§3).
type Config struct {
	TargetMonths      []string       `toml:"target_months"`
	GenerationMode    GenerationMode `toml:"generation_mode"`
	TargetMPS         float64        `toml:"target_mps"`
	Timezone          string         `toml:"timezone"`

	DAU                  int     `toml:"dau"`
	LogsPerUserPerDay    float64 `toml:"logs_per_user_per_day"`
	NewUserRatio         float64 `toml:"new_user_ratio"`

	DayOfWeekRatio [7]float64        `toml:"day_of_week_ratio"`
	HourDistribution map[string]float64 `toml:"hour_distribution"`

	UserActivity ActivityRatios  `toml:"user_activity"`
	WatchTime    WatchTimeConfig `toml:"watch_time"`

	PlatformRatio           PlatformRatio           `toml:"platform_ratio"`
	WatchPatternProbability WatchPatternProbability `toml:"watch_pattern_probability"`

	UserEventTransitions UserEventTransitions `toml:"user_event_transitions"`

	ReviewDetailRatio     float64 `toml:"review_detail_ratio"`
	RegisterOutDetailRatio float64 `toml:"register_out_detail_ratio"`
	SubscriptionTypeRatio SubscriptionTypeRatio `toml:"subscription_type_ratio"`

	SearchTerms  []string `toml:"search_terms"`
	InquiryList  []string `toml:"inquiry_list"`

	// ReviewSentences and RegisterOutReasons are distinct free-text sample
	// pools for review_text and reason_detail, kept apart from InquiryList
	// (the inquiry_detail pool), matching the original's separation of "why
	// a user is leaving" from "what a user is asking support" (SPEC_FULL.md
	// supplemented feature #2).
	ReviewSentences    []string `toml:"review_sentences"`
	RegisterOutReasons []string `toml:"register_out_reasons"`

	FeaturedContentIDs []string `toml:"featured_content_ids"`
	FeaturedWeight     float64  `toml:"featured_weight"`

	SinkType   SinkType `toml:"sink_type"`
	OutputDir  string   `toml:"output_dir"`
	Topic      string   `toml:"topic"`
	Partition  int      `toml:"partition"`

	S3Bucket    string `toml:"s3_bucket"`
	S3KeyPrefix string `toml:"s3_key_prefix"`
	S3Region    string `toml:"s3_region"`

	KinesisStreamName string `toml:"kinesis_stream_name"`
	KinesisRegion     string `toml:"kinesis_region"`
	AWSProfile        string `toml:"aws_profile"`

	// AWSAccessKeyID/AWSAccessKeySecret pin the object/stream sinks to a
	// static credential pair instead of a named profile, for deployments
	// with no shared AWS config file. Both must be set together.
	AWSAccessKeyID     string `toml:"aws_access_key_id"`
	AWSAccessKeySecret string `toml:"aws_access_key_secret"`

	PostgresDSN string `toml:"postgres_dsn"`

	LogFormat string `toml:"log_format"`
	LogLevel  string `toml:"log_level"`

	MetricsAddr string `toml:"metrics_addr"`
}

// ConfigError indicates a fatal, startup-time configuration problem (§7):
// missing required keys, malformed ratios, or an unknown sink type.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Load reads path as TOML, layers environment overrides for
// deployment-specific secrets, and validates the result. A malformed file or
// a failed validation returns a *ConfigError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "path", Msg: err.Error()}
	}

	cfg := defaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Field: "toml", Msg: err.Error()}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		GenerationMode: ModeBatch,
		Timezone:       "UTC",
		SinkType:       SinkFile,
		Topic:          "viewlog",
		LogFormat:      "json",
		LogLevel:       "info",
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func applyEnvOverrides(cfg *Config) {
	cfg.PostgresDSN = getenv("VIEWLOG_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.AWSProfile = getenv("VIEWLOG_AWS_PROFILE", cfg.AWSProfile)
	cfg.AWSAccessKeyID = getenv("VIEWLOG_AWS_ACCESS_KEY_ID", cfg.AWSAccessKeyID)
	cfg.AWSAccessKeySecret = getenv("VIEWLOG_AWS_ACCESS_KEY_SECRET", cfg.AWSAccessKeySecret)
	cfg.S3Region = getenv("VIEWLOG_S3_REGION", cfg.S3Region)
	cfg.KinesisRegion = getenv("VIEWLOG_KINESIS_REGION", cfg.KinesisRegion)
	cfg.LogLevel = getenv("VIEWLOG_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("VIEWLOG_LOG_FORMAT", cfg.LogFormat)
	cfg.OutputDir = getenv("VIEWLOG_OUTPUT_DIR", cfg.OutputDir)
}

func (c *Config) validate() error {
	switch c.GenerationMode {
	case ModeBatch, ModeStreaming:
	default:
		return &ConfigError{Field: "generation_mode", Msg: fmt.Sprintf("unknown mode %q", c.GenerationMode)}
	}
	if c.GenerationMode == ModeBatch && len(c.TargetMonths) == 0 {
		return &ConfigError{Field: "target_months", Msg: "required for batch mode"}
	}
	for _, m := range c.TargetMonths {
		if len(m) != 7 || m[4] != '-' {
			return &ConfigError{Field: "target_months", Msg: fmt.Sprintf("malformed month %q, want YYYY-MM", m)}
		}
	}
	if c.DAU <= 0 {
		return &ConfigError{Field: "dau", Msg: "must be positive"}
	}
	if c.NewUserRatio < 0 || c.NewUserRatio > 1 {
		return &ConfigError{Field: "new_user_ratio", Msg: "must be in [0,1]"}
	}
	sum := 0.0
	for _, w := range c.DayOfWeekRatio {
		sum += w
	}
	if sum <= 0 {
		return &ConfigError{Field: "day_of_week_ratio", Msg: "weights must sum to a positive value"}
	}
	if len(c.HourDistribution) == 0 {
		return &ConfigError{Field: "hour_distribution", Msg: "required"}
	}
	switch c.SinkType {
	case SinkFile:
		if c.OutputDir == "" {
			return &ConfigError{Field: "output_dir", Msg: "required for file sink"}
		}
	case SinkObject:
		if c.S3Bucket == "" {
			return &ConfigError{Field: "s3_bucket", Msg: "required for object sink"}
		}
	case SinkStream:
		if c.KinesisStreamName == "" {
			return &ConfigError{Field: "kinesis_stream_name", Msg: "required for stream sink"}
		}
	default:
		return &ConfigError{Field: "sink_type", Msg: fmt.Sprintf("unknown sink type %q", c.SinkType)}
	}
	if c.Topic == "" {
		return &ConfigError{Field: "topic", Msg: "required"}
	}
	if c.PostgresDSN == "" {
		return &ConfigError{Field: "postgres_dsn", Msg: "required"}
	}
	return nil
}

// ParsedHourRanges splits HourDistribution's "start-end" keys into concrete
// HourRange values, per §4.1 ("range 'start-end' contributes
// weight/(end-start) to each of [start, end)").
func (c *Config) ParsedHourRanges() ([]HourRange, error) {
	ranges := make([]HourRange, 0, len(c.HourDistribution))
	for key, weight := range c.HourDistribution {
		var start, end int
		if _, err := fmt.Sscanf(key, "%d-%d", &start, &end); err != nil {
			return nil, &ConfigError{Field: "hour_distribution", Msg: fmt.Sprintf("malformed range %q", key)}
		}
		if start < 0 || end > 24 || start >= end {
			return nil, &ConfigError{Field: "hour_distribution", Msg: fmt.Sprintf("invalid range %q", key)}
		}
		ranges = append(ranges, HourRange{Start: start, End: end, Weight: weight})
	}
	return ranges, nil
}
