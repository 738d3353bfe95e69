package voice

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"echoai/internal/logging"
	"echoai/internal/services"
	"echoai/internal/storyboard"
)

// Synthesizer produces narration audio for a text into a destination WAV path.
type Synthesizer interface {
	Name() string
	Available(ctx context.Context) bool
	Synthesize(ctx context.Context, text, destPath string) (storyboard.Audio, error)
}

// Chain tries synthesizers in priority order until one succeeds.
type Chain struct {
	providers []Synthesizer
	logger    *slog.Logger
}

// NewChain builds a synthesizer chain in the supplied order.
func NewChain(logger *slog.Logger, providers ...Synthesizer) *Chain {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Chain{providers: providers, logger: logger.With(logging.String(logging.FieldComponent, "voice"))}
}

// Synthesize runs the chain. An unavailable provider (missing key, exhausted
// quota, absent binary) is skipped silently; errors fall through to the next
// provider. Exhausting the chain returns services.ErrProviderExhausted.
func (c *Chain) Synthesize(ctx context.Context, text, destPath string) (storyboard.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return storyboard.Audio{}, services.Wrap(
			services.ErrValidation, "voice", "synthesize",
			"Narration text is empty", nil)
	}

	var failures []string
	for _, provider := range c.providers {
		if err := ctx.Err(); err != nil {
			return storyboard.Audio{}, err
		}
		if !provider.Available(ctx) {
			c.logger.Debug("skipping unavailable voice provider",
				logging.String(logging.FieldProvider, provider.Name()))
			continue
		}
		audio, err := provider.Synthesize(ctx, text, destPath)
		if err == nil {
			audio.Provider = provider.Name()
			c.logger.Info("narration synthesized",
				logging.String(logging.FieldProvider, provider.Name()),
				logging.Float64("duration_seconds", audio.DurationSeconds))
			return audio, nil
		}
		if ctx.Err() != nil {
			return storyboard.Audio{}, ctx.Err()
		}
		c.logger.Warn("voice provider failed",
			logging.String(logging.FieldProvider, provider.Name()),
			logging.Error(err))
		failures = append(failures, fmt.Sprintf("%s: %v", provider.Name(), err))
	}

	detail := "No voice provider is configured"
	if len(failures) > 0 {
		detail = strings.Join(failures, "; ")
	}
	return storyboard.Audio{}, services.Wrap(
		services.ErrProviderExhausted, "voice", "synthesize",
		"All voice providers failed: "+detail, nil)
}

// HealthCheck reports whether at least one synthesizer is reachable.
func (c *Chain) HealthCheck(ctx context.Context) error {
	for _, provider := range c.providers {
		if provider.Available(ctx) {
			return nil
		}
	}
	return fmt.Errorf("no voice provider available")
}
