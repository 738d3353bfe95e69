package composition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"log/slog"

	"echoai/internal/config"
	"echoai/internal/logging"
	"echoai/internal/queue"
	"echoai/internal/services"
	"echoai/internal/stage"
)

// CaptionFileName is the subtitle artifact written into the job staging dir.
const CaptionFileName = "captions.ass"

// Stage turns a reconciled timeline into a concrete render plan and writes
// the caption sidecar file. It performs no rendering itself.
type Stage struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{cfg: cfg, logger: logger}
}

// Prepare validates the job's style selections before any planning work.
// Unknown transitions or caption styles fail here, never mid-render.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	if err := Validate(job.Transition, job.CaptionStyle); err != nil {
		return err
	}
	env, err := stage.LoadStoryboard(job)
	if err != nil {
		return err
	}
	if len(env.Timeline.Segments) == 0 {
		return services.Wrap(services.ErrValidation, "composition", "prepare",
			"Job has no reconciled timeline; reconciliation must run first", nil)
	}
	job.SetProgress(queue.StatusComposing.StageLabel(), "Planning composition", queue.StatusComposing.ProgressFloor())
	return nil
}

// Execute builds the render plan and writes the caption document. The plan
// itself is recomputed by the render stage from the same storyboard; only the
// caption sidecar is persisted.
func (s *Stage) Execute(_ context.Context, job *queue.Job) error {
	env, err := stage.LoadStoryboard(job)
	if err != nil {
		return err
	}
	plan, err := Build(env, Options{
		Platform:          job.Platform,
		Transition:        job.Transition,
		CaptionStyle:      job.CaptionStyle,
		TransitionSeconds: s.cfg.Timing.TransitionSeconds,
	})
	if err != nil {
		return err
	}

	captionPath := ""
	if doc := RenderCaptions(plan); doc != "" {
		captionPath = filepath.Join(s.cfg.JobStagingDir(job.ID), CaptionFileName)
		if err := os.WriteFile(captionPath, []byte(doc), 0o644); err != nil {
			return services.Wrap(services.ErrTransient, "composition", "execute",
				"Unable to write caption file", err)
		}
	}

	env.Timeline.CaptionFile = captionPath
	if err := stage.SaveStoryboard(job, env); err != nil {
		return err
	}
	job.SetProgress(queue.StatusComposed.StageLabel(),
		fmt.Sprintf("Composition planned (%d segments, %d captions)", len(plan.Segments), len(plan.Captions)),
		queue.StatusComposed.ProgressFloor())
	return nil
}

// HealthCheck always passes; planning is pure computation over config.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("composition")
}
