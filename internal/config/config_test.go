package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("TASKNGO_CONFIG_PATH", dir)
	t.Chdir(dir)
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Scheduler.Tick != time.Second || cfg.Scheduler.TickWindow != 3*time.Second {
		t.Fatalf("unexpected tick defaults: %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.DecayWindow != 10*time.Second || cfg.Scheduler.AutoArchiveOverdueAtEndOfDay {
		t.Fatalf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
	if cfg.Push.Provider != ProviderLog || !cfg.Push.ScheduleOnCreate {
		t.Fatalf("unexpected push defaults: %+v", cfg.Push)
	}
	if cfg.WeekStart() != time.Sunday {
		t.Fatalf("expected sunday week start, got %s", cfg.WeekStart())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.File != "" {
		t.Fatalf("expected no config file, got %q", cfg.File)
	}
	if cfg.Push.QueueSize != 256 || cfg.Reset.WeekStart != "sunday" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	dir := isolate(t)
	content := `scheduler:
  decay_window: 20s
  auto_archive_overdue_at_end_of_day: true
reset:
  week_start: monday
push:
  provider: onesignal
  app_id: app
  recipient: player
`
	if err := os.WriteFile(filepath.Join(dir, "taskngo.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TASKNGO_PUSH_API_KEY", "secret")
	t.Setenv("TASKNGO_ALERTS_DESKTOP", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.HasSuffix(cfg.File, "taskngo.yaml") {
		t.Fatalf("unexpected config file %q", cfg.File)
	}
	if cfg.Scheduler.DecayWindow != 20*time.Second || !cfg.Scheduler.AutoArchiveOverdueAtEndOfDay {
		t.Fatalf("file values not applied: %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.Tick != time.Second {
		t.Fatalf("unset keys should keep defaults, got %s", cfg.Scheduler.Tick)
	}
	if cfg.WeekStart() != time.Monday {
		t.Fatalf("expected monday, got %s", cfg.WeekStart())
	}
	if cfg.Push.APIKey != "secret" || !cfg.Alerts.Desktop {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Push, cfg.Alerts)
	}
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"tick", func(c *Config) { c.Scheduler.Tick = 0 }, "scheduler.tick"},
		{"window", func(c *Config) { c.Scheduler.TickWindow = 500 * time.Millisecond }, "tick_window"},
		{"week", func(c *Config) { c.Reset.WeekStart = "someday" }, "week_start"},
		{"provider", func(c *Config) { c.Push.Provider = "pigeon" }, "push.provider"},
		{"onesignal", func(c *Config) { c.Push.Provider = ProviderOneSignal }, "required for onesignal"},
		{"queue", func(c *Config) { c.Push.QueueSize = 0 }, "queue_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected invalid error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "taskngo.yaml")
	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("write default: %v", err)
	}
	if err := WriteDefault(path, false); err == nil {
		t.Fatal("expected refusal to overwrite without force")
	}
	if err := WriteDefault(path, true); err != nil {
		t.Fatalf("forced write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "decay_window: 10s") {
		t.Fatalf("durations should be written as strings:\n%s", raw)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.Scheduler.DecayWindow != 10*time.Second || cfg.Push.QueueSize != 256 {
		t.Fatalf("round trip lost values: %+v", cfg)
	}
}

func TestYAMLMasksAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Push.APIKey = "secret"
	out, err := cfg.YAML(false)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if strings.Contains(string(out), "secret") {
		t.Fatalf("api key leaked:\n%s", out)
	}
}
