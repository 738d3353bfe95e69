package script

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"echoai/internal/config"
	"echoai/internal/logging"
	"echoai/internal/queue"
	"echoai/internal/services"
	"echoai/internal/stage"
)

// Stage runs script generation for a claimed job.
type Stage struct {
	chain  *Chain
	logger *slog.Logger
}

// NewStage wires the provider chain from configuration, honoring the
// configured provider order.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	providers := make([]Provider, 0, len(cfg.Script.Providers))
	for _, name := range cfg.Script.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "openrouter":
			providers = append(providers, NewOpenRouter(cfg.Script))
		case "pollinations":
			providers = append(providers, NewPollinations(cfg.Script.TimeoutSeconds))
		}
	}
	return &Stage{chain: NewChain(logger, providers...), logger: logger}
}

// NewStageWithChain injects a prebuilt chain (used by tests).
func NewStageWithChain(chain *Chain, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{chain: chain, logger: logger}
}

// Prepare validates the job inputs before any provider call.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	if strings.TrimSpace(job.Topic) == "" {
		return services.Wrap(services.ErrValidation, "script", "prepare", "Job has no topic", nil)
	}
	if _, err := buildPrompt(Request{Topic: job.Topic, Style: job.Style, DurationSeconds: job.DurationSeconds}); err != nil {
		return err
	}
	job.SetProgress(queue.StatusScripting.StageLabel(), "Writing narration script", 5)
	return nil
}

// Execute generates the script and stores it on the job's storyboard.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	env, err := stage.LoadStoryboard(job)
	if err != nil {
		return err
	}
	result, err := s.chain.Generate(ctx, Request{
		Topic:           job.Topic,
		Style:           job.Style,
		DurationSeconds: job.DurationSeconds,
	})
	if err != nil {
		return err
	}
	env.Script = result
	if err := stage.SaveStoryboard(job, env); err != nil {
		return err
	}
	job.SetProgress(queue.StatusScripted.StageLabel(),
		fmt.Sprintf("Script ready (%d beats via %s)", len(result.Beats), result.Provider),
		queue.StatusScripted.ProgressFloor())
	return nil
}

// HealthCheck reports whether any script provider is usable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.chain.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("script", err.Error())
	}
	return stage.Healthy("script")
}
