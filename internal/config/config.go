// Package config loads knolreview settings from defaults, an optional YAML
// file, KNOLREVIEW_ environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/conorfennell/knolreview/internal/schedule"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is stripped from environment variables; "__" separates levels.
const EnvPrefix = "KNOLREVIEW_"

type Config struct {
	DB       string   `koanf:"db" validate:"required"`
	Addr     string   `koanf:"addr" validate:"required,hostname_port"`
	ReposDir string   `koanf:"repos_dir" validate:"required"`
	Log      Log      `koanf:"log"`
	Schedule Schedule `koanf:"schedule"`
}

type Log struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

type Schedule struct {
	MasteredRate        float64       `koanf:"mastered_rate" validate:"gt=0,lte=1,gtefield=ReviewRate"`
	ReviewRate          float64       `koanf:"review_rate" validate:"gt=0,lte=1"`
	MasteredMinAttempts int           `koanf:"mastered_min_attempts" validate:"gte=1"`
	LearningInterval    time.Duration `koanf:"learning_interval" validate:"gt=0"`
	ReviewInterval      time.Duration `koanf:"review_interval" validate:"gtefield=LearningInterval"`
	MasteredInterval    time.Duration `koanf:"mastered_interval" validate:"gtefield=ReviewInterval"`
}

// Params converts the schedule section into scheduling parameters.
func (s Schedule) Params() *schedule.Params {
	return &schedule.Params{
		MasteredRate:        s.MasteredRate,
		MasteredMinAttempts: s.MasteredMinAttempts,
		ReviewRate:          s.ReviewRate,
		LearningInterval:    s.LearningInterval,
		ReviewInterval:      s.ReviewInterval,
		MasteredInterval:    s.MasteredInterval,
	}
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"db":                    "db",
	"addr":                  "addr",
	"repos-dir":             "repos_dir",
	"log-level":             "log.level",
	"log-format":            "log.format",
	"mastered-rate":         "schedule.mastered_rate",
	"review-rate":           "schedule.review_rate",
	"mastered-min-attempts": "schedule.mastered_min_attempts",
	"learning-interval":     "schedule.learning_interval",
	"review-interval":       "schedule.review_interval",
	"mastered-interval":     "schedule.mastered_interval",
}

// RegisterFlags adds the config flags, with their defaults, to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := schedule.DefaultParams()
	fs.String("config", "", "Path to a YAML config file")
	fs.String("db", "knolreview.db", "Path to the SQLite database file")
	fs.String("addr", "localhost:8080", "Address for the HTTP server")
	fs.String("repos-dir", "repos", "Directory for git source checkouts")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "text", "Log format: text, json")
	fs.Float64("mastered-rate", d.MasteredRate, "Minimum success rate for the mastered bucket")
	fs.Float64("review-rate", d.ReviewRate, "Minimum success rate for the review bucket")
	fs.Int("mastered-min-attempts", d.MasteredMinAttempts, "Minimum attempts before a card can be mastered")
	fs.Duration("learning-interval", d.LearningInterval, "Delay after a learning response")
	fs.Duration("review-interval", d.ReviewInterval, "Delay after a review response")
	fs.Duration("mastered-interval", d.MasteredInterval, "Delay after a mastered response")
}

// Load builds a Config from fs (already parsed) and the environment.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Defaults fill keys nothing else set; changed flags override everything.
	err = k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NewLogger builds the process logger from the log section.
func (l Log) NewLogger() *slog.Logger {
	var level slog.Level
	switch l.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
