package render

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"log/slog"

	"github.com/google/uuid"

	"echoai/internal/composition"
	"echoai/internal/config"
	"echoai/internal/fileutil"
	"echoai/internal/logging"
	"echoai/internal/queue"
	"echoai/internal/services"
	"echoai/internal/stage"
)

// Renderer is the backend that turns a plan into a video file.
type Renderer interface {
	Name() string
	Available(ctx context.Context) bool
	Render(ctx context.Context, plan composition.Plan, captionFile, outputPath string) error
}

// Stage renders the composed plan and promotes the verified output into the
// library. Failures remove partial artifacts so retries start clean.
type Stage struct {
	cfg     *config.Config
	backend Renderer
	probe   Prober
	logger  *slog.Logger
}

// NewStage wires the ffmpeg backend and prober from configuration.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	backend := NewFFmpeg(cfg.Render)
	return NewStageWithBackend(cfg, backend, FFprobeProber(cfg.Render.FFmpegBinary, nil), logger)
}

// NewStageWithBackend injects the renderer and prober (used by tests).
func NewStageWithBackend(cfg *config.Config, backend Renderer, probe Prober, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{cfg: cfg, backend: backend, probe: probe, logger: logger}
}

// Prepare confirms the composition stage produced a usable plan.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	env, err := stage.LoadStoryboard(job)
	if err != nil {
		return err
	}
	if len(env.Timeline.Segments) == 0 {
		return services.Wrap(services.ErrValidation, "render", "prepare",
			"Job has no composed timeline; composition must run first", nil)
	}
	job.SetProgress(queue.StatusRendering.StageLabel(), "Rendering video", queue.StatusRendering.ProgressFloor())
	return nil
}

// Execute renders into the job staging directory, verifies the result against
// the narration duration, and moves the file into the library.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	env, err := stage.LoadStoryboard(job)
	if err != nil {
		return err
	}
	plan, err := composition.Build(env, composition.Options{
		Platform:          job.Platform,
		Transition:        job.Transition,
		CaptionStyle:      job.CaptionStyle,
		TransitionSeconds: s.cfg.Timing.TransitionSeconds,
	})
	if err != nil {
		return err
	}

	renderPath := filepath.Join(s.cfg.JobStagingDir(job.ID), "render.mp4")
	s.logger.Info("starting render",
		slog.Int64("job_id", job.ID),
		slog.String("backend", s.backend.Name()),
		slog.Int("segments", len(plan.Segments)),
		slog.Float64("total_seconds", plan.TotalSeconds))
	if err := s.backend.Render(ctx, plan, env.Timeline.CaptionFile, renderPath); err != nil {
		_ = os.Remove(renderPath)
		return err
	}
	if err := s.verify(ctx, renderPath, plan.TotalSeconds); err != nil {
		_ = os.Remove(renderPath)
		return err
	}

	if err := os.MkdirAll(s.cfg.LibraryDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "render", "execute",
			"Unable to create library directory", err)
	}
	finalPath := filepath.Join(s.cfg.LibraryDir, outputFileName(job))
	if err := fileutil.MoveFile(renderPath, finalPath); err != nil {
		return services.Wrap(services.ErrTransient, "render", "execute",
			"Unable to move render into library", err)
	}

	job.OutputFile = finalPath
	job.SetProgress(queue.StatusRendering.StageLabel(),
		fmt.Sprintf("Video rendered (%.1fs)", plan.TotalSeconds), 95)
	return nil
}

// verify rejects empty files and durations outside the configured tolerance.
func (s *Stage) verify(ctx context.Context, path string, wantSeconds float64) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrRenderFailed, "render", "verify",
			"Render produced no output file", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrRenderFailed, "render", "verify",
			"Render produced an empty file", nil)
	}
	if s.probe == nil {
		return nil
	}
	duration, err := s.probe(ctx, path)
	if err != nil {
		return services.Wrap(services.ErrRenderFailed, "render", "verify",
			"Unable to measure rendered duration", err)
	}
	tolerance := s.cfg.Timing.ToleranceSeconds
	if tolerance <= 0 {
		tolerance = 0.2
	}
	if math.Abs(duration-wantSeconds) > tolerance {
		return services.Wrap(services.ErrRenderFailed, "render", "verify",
			fmt.Sprintf("Rendered duration %.2fs deviates from narration %.2fs by more than %.2fs",
				duration, wantSeconds, tolerance), nil)
	}
	return nil
}

// HealthCheck reports whether the render backend is usable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if !s.backend.Available(ctx) {
		return stage.Unhealthy("render", fmt.Sprintf("%s not available", s.backend.Name()))
	}
	return stage.Healthy("render")
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// outputFileName builds a stable library name: topic slug plus a short unique
// suffix so repeated topics never collide.
func outputFileName(job *queue.Job) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(job.Topic), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 48 {
		slug = slug[:48]
	}
	if slug == "" {
		slug = "video"
	}
	return fmt.Sprintf("%s-%s.mp4", slug, uuid.NewString()[:8])
}
