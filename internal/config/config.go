package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
	AssetsDir  string `toml:"assets_dir"`
	APIBind    string `toml:"api_bind"`
}

// Script configures the script generation provider chain.
type Script struct {
	Providers      []string `toml:"providers"`
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url"`
	Model          string   `toml:"model"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Voice configures the narration synthesis provider chain.
type Voice struct {
	Providers         []string `toml:"providers"`
	ElevenLabsAPIKey  string   `toml:"elevenlabs_api_key"`
	ElevenLabsVoiceID string   `toml:"elevenlabs_voice_id"`
	MonthlyQuota      int      `toml:"monthly_quota"`
	EdgeBinary        string   `toml:"edge_binary"`
	EdgeVoice         string   `toml:"edge_voice"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
}

// Images configures the stock image provider chain.
type Images struct {
	Providers         []string `toml:"providers"`
	PexelsAPIKey      string   `toml:"pexels_api_key"`
	UnsplashAccessKey string   `toml:"unsplash_access_key"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
	MaxPerJob         int      `toml:"max_per_job"`
}

// Timing configures the timeline reconciler.
type Timing struct {
	ToleranceSeconds       float64            `toml:"tolerance_seconds"`
	TransitionSeconds      float64            `toml:"transition_seconds"`
	DefaultMinImageSeconds float64            `toml:"default_min_image_seconds"`
	MinImageSeconds        map[string]float64 `toml:"min_image_seconds"`
}

// Render configures the ffmpeg render backend.
type Render struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	CRF            int    `toml:"crf"`
	Preset         string `toml:"preset"`
	AudioBitrate   string `toml:"audio_bitrate"`
}

// Workflow contains orchestrator timing and concurrency settings.
type Workflow struct {
	Workers            int `toml:"workers"`
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completion     bool   `toml:"completion"`
	Errors         bool   `toml:"errors"`
}

// Config is the root configuration for the generation pipeline.
type Config struct {
	Paths
	Script        Script        `toml:"script"`
	Voice         Voice         `toml:"voice"`
	Images        Images        `toml:"images"`
	Timing        Timing        `toml:"timing"`
	Render        Render        `toml:"render"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	LogLevel      string        `toml:"log_level"`
	LogFormat     string        `toml:"log_format"`
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() string {
	return expandPath("~/.config/echoai/config.toml")
}

// Load reads configuration from path (or the default location when empty),
// layering it over Default(). A missing file yields defaults without error.
// It returns the config and the path that was consulted.
func Load(path string) (*Config, string, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = DefaultConfigPath()
	}
	resolved = expandPath(resolved)

	cfg := Default()
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, resolved, fmt.Errorf("read config %s: %w", resolved, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolved, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

// WriteSample writes the embedded sample config to path, refusing to overwrite.
func WriteSample(path string) error {
	path = expandPath(path)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.StagingDir, c.LibraryDir, c.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// MinImageFloor returns the minimum per-image display duration for a style.
func (c *Config) MinImageFloor(style string) float64 {
	if v, ok := c.Timing.MinImageSeconds[style]; ok && v > 0 {
		return v
	}
	return c.Timing.DefaultMinImageSeconds
}
