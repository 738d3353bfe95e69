package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"echoai/internal/logging"
	"echoai/internal/queue"
	"echoai/internal/services"
)

// errStageDiscarded signals that a stage finished after cancellation was
// requested and its result must not be persisted.
var errStageDiscarded = errors.New("stage result discarded after cancel request")

// processJob drives a freshly claimed job through every remaining stage. The
// claim already moved the job into the processing status of the stage it
// resumes at, which for a new job is the first stage.
func (m *Manager) processJob(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	jobLogger := logger.With(
		logging.Int64("job_id", job.ID),
		logging.String("topic", job.Topic),
	)
	jobStart := time.Now()

	start := m.stageIndex(job.Status)
	if start < 0 {
		err := fmt.Errorf("job %d claimed in unexpected status %s", job.ID, job.Status)
		m.setLastError(err)
		return err
	}

	for i := start; i < len(m.stages); i++ {
		st := m.stages[i]
		if i > start {
			cancelled, err := m.honorCancellation(ctx, jobLogger, job)
			if err != nil {
				m.setLastError(err)
				return err
			}
			if cancelled {
				return nil
			}
			job.Status = st.processing
			job.ErrorMessage = ""
			job.MarkStageEntered(st.processing, time.Now())
			if err := m.store.Update(ctx, job); err != nil {
				wrapped := fmt.Errorf("persist processing transition: %w", err)
				jobLogger.Error("failed to move job into stage", logging.Error(wrapped))
				m.setLastError(wrapped)
				return wrapped
			}
		} else {
			job.MarkStageEntered(st.processing, time.Now())
		}

		if err := m.runStage(ctx, jobLogger, st, job); err != nil {
			if errors.Is(err, errStageDiscarded) {
				jobLogger.Info("stage result discarded", logging.String("stage", st.name))
				if cancelErr := m.cancelClaimedJob(ctx, jobLogger, job.ID); cancelErr != nil {
					m.setLastError(cancelErr)
					return cancelErr
				}
				return nil
			}
			if errors.Is(err, context.Canceled) {
				jobLogger.Debug("stage interrupted by shutdown", logging.String("stage", st.name))
				return err
			}
			m.failJob(ctx, jobLogger, st, job, err)
			m.setLastError(err)
			return err
		}
	}

	job.Status = queue.StatusCompleted
	job.SetProgress(queue.StatusCompleted.StageLabel(), "Video ready", 100)
	if err := m.store.Update(ctx, job); err != nil {
		wrapped := fmt.Errorf("persist completion: %w", err)
		jobLogger.Error("failed to persist completed job", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	jobLogger.Info("job completed",
		logging.String("output_file", job.OutputFile),
		logging.Duration("pipeline_duration", time.Since(jobStart)))
	if err := m.notifier.NotifyJobCompleted(ctx, job.ID, job.Topic, job.OutputFile); err != nil {
		jobLogger.Warn("completion notification failed", logging.Error(err))
	}
	return nil
}

func (m *Manager) runStage(ctx context.Context, jobLogger *slog.Logger, st pipelineStage, job *queue.Job) error {
	stageLogger := jobLogger.With(logging.String("stage", st.name))
	stageStart := time.Now()
	stageLogger.Info("stage started", logging.String("status", string(st.processing)))

	if err := st.handler.Prepare(ctx, job); err != nil {
		return err
	}
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	execCtx, stopExec := context.WithCancel(ctx)
	defer stopExec()
	go m.watchCancelFlag(execCtx, stopExec, job.ID)
	execErr := st.handler.Execute(execCtx, job)
	stopExec()

	requested, flagErr := m.store.CancelRequested(ctx, job.ID)
	if flagErr == nil && requested {
		return errStageDiscarded
	}
	if execErr != nil {
		return execErr
	}
	if flagErr != nil {
		return fmt.Errorf("read cancel flag: %w", flagErr)
	}

	job.Status = st.done
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}
	stageLogger.Info("stage completed",
		logging.String("next_status", string(st.done)),
		logging.Duration("stage_duration", time.Since(stageStart)))
	return nil
}

// watchCancelFlag polls the cooperative cancel flag while a stage executes and
// cancels the stage context when it is raised, so outbound provider and tool
// calls abort instead of running out their course.
func (m *Manager) watchCancelFlag(ctx context.Context, stop context.CancelFunc, jobID int64) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requested, err := m.store.CancelRequested(ctx, jobID)
			if err == nil && requested {
				stop()
				return
			}
		}
	}
}

// stageIndex returns the pipeline position whose processing status matches the
// given status, or -1 when no stage claims it.
func (m *Manager) stageIndex(status queue.Status) int {
	for i, st := range m.stages {
		if st.processing == status {
			return i
		}
	}
	return -1
}

// honorCancellation checks the cooperative cancel flag at a stage boundary.
// Results of fully completed stages stay on the job.
func (m *Manager) honorCancellation(ctx context.Context, jobLogger *slog.Logger, job *queue.Job) (bool, error) {
	requested, err := m.store.CancelRequested(ctx, job.ID)
	if err != nil {
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	if !requested {
		return false, nil
	}
	jobLogger.Info("job cancelled at stage boundary")
	if err := m.cancelClaimedJob(ctx, jobLogger, job.ID); err != nil {
		return false, err
	}
	return true, nil
}

// cancelClaimedJob marks a claimed job cancelled from its stored row rather
// than the worker's in-memory copy, dropping any stage mutations that were
// never persisted as a completed stage.
func (m *Manager) cancelClaimedJob(ctx context.Context, jobLogger *slog.Logger, jobID int64) error {
	stored, err := m.store.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("reload job for cancellation: %w", err)
	}
	if stored == nil {
		return fmt.Errorf("job %d disappeared during cancellation", jobID)
	}
	stored.SetCancelled()
	if err := m.store.Update(ctx, stored); err != nil {
		return fmt.Errorf("persist cancellation: %w", err)
	}
	if err := m.notifier.NotifyJobCancelled(ctx, stored.ID, stored.Topic); err != nil {
		jobLogger.Warn("cancellation notification failed", logging.Error(err))
	}
	return nil
}

func (m *Manager) failJob(ctx context.Context, jobLogger *slog.Logger, st pipelineStage, job *queue.Job, stageErr error) {
	details := services.Details(stageErr)
	job.SetFailed(details.Message)
	if err := m.store.Update(ctx, job); err != nil {
		jobLogger.Error("failed to persist job failure", logging.Error(err))
	}
	jobLogger.Error("stage failed",
		logging.String("stage", st.name),
		logging.String("kind", details.Kind),
		logging.Error(stageErr))
	if err := m.notifier.NotifyJobFailed(ctx, job.ID, job.Topic, details.Message); err != nil {
		jobLogger.Warn("failure notification failed", logging.Error(err))
	}
}
