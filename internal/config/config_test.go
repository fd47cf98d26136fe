package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/conorfennell/knolreview/internal/schedule"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return Load(fs)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.DB != "knolreview.db" || cfg.Addr != "localhost:8080" || cfg.Log.Level != "info" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if diff := cmp.Diff(schedule.DefaultParams(), cfg.Schedule.Params()); diff != "" {
		t.Errorf("Default schedule mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knolreview.yaml")
	yamlConfig := `
db: from-file.db
addr: "0.0.0.0:9000"
log:
  level: debug
schedule:
  review_interval: 12h
  mastered_interval: 96h
`
	if err := os.WriteFile(path, []byte(yamlConfig), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("KNOLREVIEW_ADDR", "127.0.0.1:7000")
	t.Setenv("KNOLREVIEW_SCHEDULE__MASTERED_RATE", "0.9")

	cfg, err := load(t, "--config", path, "--db", "from-flag.db")
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	if cfg.DB != "from-flag.db" {
		t.Errorf("Expected flag to win for db, got %q", cfg.DB)
	}
	if cfg.Addr != "127.0.0.1:7000" {
		t.Errorf("Expected env to win over file for addr, got %q", cfg.Addr)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Expected file level and default format, got %+v", cfg.Log)
	}
	if cfg.Schedule.MasteredRate != 0.9 {
		t.Errorf("Expected mastered rate from env, got %v", cfg.Schedule.MasteredRate)
	}
	if cfg.Schedule.ReviewInterval != 12*time.Hour || cfg.Schedule.MasteredInterval != 96*time.Hour {
		t.Errorf("Expected intervals from file, got %+v", cfg.Schedule)
	}
	if cfg.Schedule.LearningInterval != time.Hour {
		t.Errorf("Expected default learning interval, got %v", cfg.Schedule.LearningInterval)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"unknown log level", []string{"--log-level", "verbose"}},
		{"rate above one", []string{"--mastered-rate", "1.5"}},
		{"review rate above mastered rate", []string{"--review-rate", "0.9"}},
		{"intervals out of order", []string{"--review-interval", "100h"}},
		{"bad address", []string{"--addr", "nowhere"}},
		{"zero attempts", []string{"--mastered-min-attempts", "0"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := load(t, tc.args...); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	if _, err := load(t, "--config", filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}
