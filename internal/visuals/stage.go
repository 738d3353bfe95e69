package visuals

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"log/slog"

	"echoai/internal/config"
	"echoai/internal/logging"
	"echoai/internal/queue"
	"echoai/internal/services"
	"echoai/internal/stage"
)

// Stage sources the image sequence for a synthesized job.
type Stage struct {
	cfg    *config.Config
	source *Source
	logger *slog.Logger
}

// NewStage wires the fetcher chain from configuration, honoring the
// configured provider order.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	fetchers := make([]Fetcher, 0, len(cfg.Images.Providers))
	for _, name := range cfg.Images.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "pexels":
			fetchers = append(fetchers, NewPexels(cfg.Images.PexelsAPIKey, cfg.Images.TimeoutSeconds))
		case "unsplash":
			fetchers = append(fetchers, NewUnsplash(cfg.Images.UnsplashAccessKey, cfg.Images.TimeoutSeconds))
		}
	}
	return &Stage{
		cfg:    cfg,
		source: NewSource(logger, cfg.AssetsDir, fetchers...),
		logger: logger,
	}
}

// NewStageWithSource injects a prebuilt source (used by tests).
func NewStageWithSource(cfg *config.Config, source *Source, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{cfg: cfg, source: source, logger: logger}
}

// Prepare verifies narration exists so keywords can be extracted.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	env, err := stage.LoadStoryboard(job)
	if err != nil {
		return err
	}
	if len(env.Script.Beats) == 0 {
		return services.Wrap(services.ErrValidation, "visuals", "prepare",
			"Job has no script beats; script stage must run first", nil)
	}
	job.SetProgress(queue.StatusSourcing.StageLabel(), "Sourcing images", queue.StatusSourcing.ProgressFloor())
	return nil
}

// Execute sources one image per script beat, capped by configuration, and
// records the ordered sequence on the storyboard.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	env, err := stage.LoadStoryboard(job)
	if err != nil {
		return err
	}
	count := len(env.Script.Beats)
	if max := s.cfg.Images.MaxPerJob; max > 0 && count > max {
		count = max
	}

	images, err := s.source.Fetch(ctx, SourceRequest{
		Narration: env.Script.Narration(),
		Count:     count,
		DestDir:   filepath.Join(s.cfg.JobStagingDir(job.ID), "images"),
		UseStored: job.UseStored,
	})
	if err != nil {
		return err
	}
	env.Images = images
	if err := stage.SaveStoryboard(job, env); err != nil {
		return err
	}
	job.SetProgress(queue.StatusSourced.StageLabel(),
		fmt.Sprintf("%d images sourced", len(images)),
		queue.StatusSourced.ProgressFloor())
	return nil
}

// HealthCheck reports whether any image provider is usable. The stored pool
// keeps the stage viable even with no network provider configured.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.source.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("visuals", err.Error()+" (stored pool only)")
	}
	return stage.Healthy("visuals")
}
