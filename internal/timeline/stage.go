package timeline

import (
	"context"
	"fmt"

	"log/slog"

	"echoai/internal/composition"
	"echoai/internal/config"
	"echoai/internal/logging"
	"echoai/internal/queue"
	"echoai/internal/services"
	"echoai/internal/stage"
)

// Stage reconciles a sourced job's narration and images into a timeline.
type Stage struct {
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewStage builds the reconciliation stage from configuration.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{reconciler: New(cfg.Timing), logger: logger}
}

// Prepare verifies the upstream stages delivered audio and images.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	env, err := stage.LoadStoryboard(job)
	if err != nil {
		return err
	}
	if env.Audio.DurationSeconds <= 0 {
		return services.Wrap(services.ErrValidation, "timeline", "prepare",
			"Job has no measured narration; voice stage must run first", nil)
	}
	if len(env.Images) == 0 {
		return services.Wrap(services.ErrValidation, "timeline", "prepare",
			"Job has no images; sourcing stage must run first", nil)
	}
	job.SetProgress(queue.StatusReconciling.StageLabel(), "Reconciling timing", queue.StatusReconciling.ProgressFloor())
	return nil
}

// Execute computes the timeline and stores it on the storyboard. Images beyond
// a reduced segment count stay on the envelope but get no segment.
func (s *Stage) Execute(_ context.Context, job *queue.Job) error {
	env, err := stage.LoadStoryboard(job)
	if err != nil {
		return err
	}
	result, err := s.reconciler.Reconcile(Request{
		Script:               env.Script,
		Audio:                env.Audio,
		ImageCount:           len(env.Images),
		Style:                job.Style,
		AllowCaptionCrossing: composition.CaptionCrossesBoundaries(job.CaptionStyle),
	})
	if err != nil {
		return err
	}
	env.Timeline = result
	if err := stage.SaveStoryboard(job, env); err != nil {
		return err
	}
	job.SetProgress(queue.StatusReconciled.StageLabel(),
		fmt.Sprintf("Timeline covers %.1fs across %d segments", result.TotalSeconds, len(result.Segments)),
		queue.StatusReconciled.ProgressFloor())
	return nil
}

// HealthCheck always reports ready; reconciliation is pure computation.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("timeline")
}
