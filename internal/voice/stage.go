package voice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"echoai/internal/config"
	"echoai/internal/logging"
	"echoai/internal/queue"
	"echoai/internal/services"
	"echoai/internal/stage"
)

// Stage synthesizes narration audio for a scripted job.
type Stage struct {
	cfg    *config.Config
	chain  *Chain
	logger *slog.Logger
}

// NewStage wires the synthesizer chain from configuration, honoring the
// configured provider order.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	usage := NewUsageTracker(cfg.VoiceUsagePath())
	providers := make([]Synthesizer, 0, len(cfg.Voice.Providers))
	for _, name := range cfg.Voice.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "elevenlabs":
			providers = append(providers, NewElevenLabs(cfg.Voice, cfg.Render.FFmpegBinary, usage))
		case "edge":
			providers = append(providers, NewEdge(cfg.Voice, cfg.Render.FFmpegBinary))
		}
	}
	return &Stage{cfg: cfg, chain: NewChain(logger, providers...), logger: logger}
}

// NewStageWithChain injects a prebuilt chain (used by tests).
func NewStageWithChain(cfg *config.Config, chain *Chain, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{cfg: cfg, chain: chain, logger: logger}
}

// Prepare verifies the script stage produced narration text.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	env, err := stage.LoadStoryboard(job)
	if err != nil {
		return err
	}
	if len(env.Script.Beats) == 0 {
		return services.Wrap(services.ErrValidation, "voice", "prepare",
			"Job has no script beats; script stage must run first", nil)
	}
	job.SetProgress(queue.StatusSynthesizing.StageLabel(), "Synthesizing narration", queue.StatusSynthesizing.ProgressFloor())
	return nil
}

// Execute synthesizes the full narration into the job's staging directory and
// records the measured audio duration on the storyboard.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	env, err := stage.LoadStoryboard(job)
	if err != nil {
		return err
	}
	jobDir := s.cfg.JobStagingDir(job.ID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "voice", "execute",
			"Unable to create job staging directory", err)
	}

	destPath := filepath.Join(jobDir, "narration.wav")
	audio, err := s.chain.Synthesize(ctx, env.Script.Narration(), destPath)
	if err != nil {
		return err
	}
	env.Audio = audio
	if err := stage.SaveStoryboard(job, env); err != nil {
		return err
	}
	job.SetProgress(queue.StatusSynthesized.StageLabel(),
		fmt.Sprintf("Narration ready (%.1fs via %s)", audio.DurationSeconds, audio.Provider),
		queue.StatusSynthesized.ProgressFloor())
	return nil
}

// HealthCheck reports whether any synthesizer is usable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.chain.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("voice", err.Error())
	}
	return stage.Healthy("voice")
}
