package script

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"echoai/internal/logging"
	"echoai/internal/services"
	"echoai/internal/storyboard"
)

// Request carries the inputs a provider needs to write a script.
type Request struct {
	Topic           string
	Style           string
	DurationSeconds int
}

// Provider produces a narration script for a topic.
type Provider interface {
	Name() string
	Available(ctx context.Context) bool
	Generate(ctx context.Context, req Request) (storyboard.Script, error)
}

// Chain tries providers in priority order until one succeeds.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain builds a provider chain in the supplied order.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Chain{providers: providers, logger: logger.With(logging.String(logging.FieldComponent, "script"))}
}

// Generate runs the chain. Unavailable providers are skipped without counting
// as failures; a provider error falls through to the next entry. An exhausted
// chain returns services.ErrProviderExhausted.
func (c *Chain) Generate(ctx context.Context, req Request) (storyboard.Script, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return storyboard.Script{}, services.Wrap(
			services.ErrValidation, "script", "generate",
			"Topic is required", nil)
	}

	var failures []string
	for _, provider := range c.providers {
		if err := ctx.Err(); err != nil {
			return storyboard.Script{}, err
		}
		if !provider.Available(ctx) {
			c.logger.Debug("skipping unavailable script provider",
				logging.String(logging.FieldProvider, provider.Name()))
			continue
		}
		result, err := provider.Generate(ctx, req)
		if err == nil {
			result.Topic = req.Topic
			result.Style = req.Style
			result.Provider = provider.Name()
			c.logger.Info("script generated",
				logging.String(logging.FieldProvider, provider.Name()),
				logging.Int("beats", len(result.Beats)))
			return result, nil
		}
		if ctx.Err() != nil {
			return storyboard.Script{}, ctx.Err()
		}
		c.logger.Warn("script provider failed",
			logging.String(logging.FieldProvider, provider.Name()),
			logging.Error(err))
		failures = append(failures, fmt.Sprintf("%s: %v", provider.Name(), err))
	}

	detail := "No script provider is configured"
	if len(failures) > 0 {
		detail = strings.Join(failures, "; ")
	}
	return storyboard.Script{}, services.Wrap(
		services.ErrProviderExhausted, "script", "generate",
		"All script providers failed: "+detail, nil)
}

// HealthCheck reports whether at least one provider is reachable.
func (c *Chain) HealthCheck(ctx context.Context) error {
	for _, provider := range c.providers {
		if provider.Available(ctx) {
			return nil
		}
	}
	return fmt.Errorf("no script provider available")
}
