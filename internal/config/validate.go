package config

import (
	"fmt"
	"strings"

	"echoai/internal/services"
)

var knownScriptProviders = map[string]struct{}{"openrouter": {}, "pollinations": {}}
var knownVoiceProviders = map[string]struct{}{"elevenlabs": {}, "edge": {}}
var knownImageProviders = map[string]struct{}{"pexels": {}, "unsplash": {}}

// Validate checks configuration consistency before anything starts.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StagingDir) == "" {
		return configError("staging_dir must be set")
	}
	if strings.TrimSpace(c.LibraryDir) == "" {
		return configError("library_dir must be set")
	}
	if len(c.Script.Providers) == 0 {
		return configError("script.providers must name at least one provider")
	}
	if len(c.Voice.Providers) == 0 {
		return configError("voice.providers must name at least one provider")
	}
	if len(c.Images.Providers) == 0 {
		return configError("images.providers must name at least one provider")
	}
	for _, p := range c.Script.Providers {
		if _, ok := knownScriptProviders[p]; !ok {
			return configError(fmt.Sprintf("script.providers: unknown provider %q", p))
		}
	}
	for _, p := range c.Voice.Providers {
		if _, ok := knownVoiceProviders[p]; !ok {
			return configError(fmt.Sprintf("voice.providers: unknown provider %q", p))
		}
	}
	for _, p := range c.Images.Providers {
		if _, ok := knownImageProviders[p]; !ok {
			return configError(fmt.Sprintf("images.providers: unknown provider %q", p))
		}
	}
	if c.Timing.ToleranceSeconds <= 0 {
		return configError("timing.tolerance_seconds must be positive")
	}
	if c.Timing.TransitionSeconds < 0 {
		return configError("timing.transition_seconds must not be negative")
	}
	if c.Timing.DefaultMinImageSeconds <= 0 {
		return configError("timing.default_min_image_seconds must be positive")
	}
	if c.Workflow.Workers <= 0 {
		return configError("workflow.workers must be positive")
	}
	if c.Images.MaxPerJob <= 0 {
		return configError("images.max_per_job must be positive")
	}
	return nil
}

func configError(message string) error {
	return services.Wrap(services.ErrConfiguration, "config", "validate", message, nil)
}
