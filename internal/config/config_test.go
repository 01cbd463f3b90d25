package config

import (
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CLIP_LISTEN_ADDR", ":9090")
	t.Setenv("CLIP_DATA_DIR", dir)
	t.Setenv("CLIP_DEBUG", "true")
	t.Setenv("CLIP_TIMELINE_MAX_DAYS", "90")
	t.Setenv("CLIP_ALERT_THRESHOLD", "15.5")
	t.Setenv("CLIP_ALERT_TO", "a@example.com, b@example.com,")
	t.Setenv("CLIP_SNAPSHOT_SCHEDULE", "")

	cfg := Load()

	if cfg.ListenAddr != ":9090" || cfg.DataDirectory != dir {
		t.Errorf("addr=%q dir=%q", cfg.ListenAddr, cfg.DataDirectory)
	}
	if !cfg.Debug || cfg.LogLevel != "debug" {
		t.Errorf("debug=%v level=%q", cfg.Debug, cfg.LogLevel)
	}
	if cfg.TimelineMaxDays != 90 {
		t.Errorf("timeline max days = %d", cfg.TimelineMaxDays)
	}
	if cfg.AlertThreshold.String() != "15.5" {
		t.Errorf("alert threshold = %s", cfg.AlertThreshold)
	}
	if len(cfg.AlertTo) != 2 || cfg.AlertTo[1] != "b@example.com" {
		t.Errorf("alert to = %v", cfg.AlertTo)
	}
	if cfg.SnapshotSchedule != "" {
		t.Errorf("an explicitly empty schedule disables snapshots, got %q", cfg.SnapshotSchedule)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"postgres without url", func(c *Config) { c.Backend = BackendPostgres }, false},
		{"postgres with url", func(c *Config) { c.Backend = BackendPostgres; c.DatabaseURL = "postgres://localhost/clip" }, true},
		{"unknown backend", func(c *Config) { c.Backend = "sqlite" }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"zero timeline", func(c *Config) { c.TimelineMaxDays = 0 }, false},
		{"no user and no secret", func(c *Config) { c.DefaultUser = "" }, false},
		{"bad schedule", func(c *Config) { c.SnapshotSchedule = "every day" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected an error")
			}
		})
	}
}
