package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"echoai/internal/config"
	"echoai/internal/services"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workflow.Workers != 2 {
		t.Fatalf("workers = %d, want default 2", cfg.Workflow.Workers)
	}
	if got := cfg.MinImageFloor("story_time"); got != 2.5 {
		t.Fatalf("story_time floor = %v, want 2.5", got)
	}
	if got := cfg.MinImageFloor("unknown_style"); got != 1.5 {
		t.Fatalf("fallback floor = %v, want 1.5", got)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := []byte("log_level = \"debug\"\n\n[workflow]\nworkers = 4\n\n[voice]\nproviders = [\"edge\"]\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, used, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if used != path {
		t.Fatalf("used path = %q, want %q", used, path)
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("workers = %d, want 4", cfg.Workflow.Workers)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q, want debug", cfg.LogLevel)
	}
	if len(cfg.Voice.Providers) != 1 || cfg.Voice.Providers[0] != "edge" {
		t.Fatalf("voice providers = %v, want [edge]", cfg.Voice.Providers)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Images.Providers = []string{"serpapi"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidateRejectsZeroWorkers(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero workers")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error on second WriteSample")
	}
	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if cfg.Render.FFmpegBinary != "ffmpeg" {
		t.Fatalf("ffmpeg binary = %q", cfg.Render.FFmpegBinary)
	}
}
