package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CancelOutcome reports the result of a cancellation request.
type CancelOutcome string

const (
	CancelAck            CancelOutcome = "ack"
	CancelNotCancellable CancelOutcome = "not_cancellable"
	CancelNotFound       CancelOutcome = "not_found"
)

// stageStarts maps every status a worker may claim a job from to the
// processing status the claim moves it into. Pending jobs start the pipeline;
// the other entries let a worker resume a job parked between stages, such as
// one rolled back by ResetStuckProcessing.
var stageStarts = []struct {
	from Status
	to   Status
}{
	{StatusPending, StatusScripting},
	{StatusScripted, StatusSynthesizing},
	{StatusSynthesized, StatusSourcing},
	{StatusSourced, StatusReconciling},
	{StatusReconciled, StatusComposing},
	{StatusComposed, StatusRendering},
}

// ClaimNext atomically claims the oldest claimable job for a worker by
// transitioning it from its stage-start status into the matching processing
// status. It returns nil when no claimable job exists.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	query := `SELECT id, status FROM jobs
        WHERE status IN (` + makePlaceholders(len(stageStarts)) + `) AND cancel_requested = 0
        ORDER BY created_at, id LIMIT 1`
	starts := make(map[Status]Status, len(stageStarts))
	args := make([]any, 0, len(stageStarts))
	for _, advance := range stageStarts {
		starts[advance.from] = advance.to
		args = append(args, advance.from)
	}

	for {
		row := s.db.QueryRowContext(ctx, query, args...)
		var id int64
		var status Status
		err := row.Scan(&id, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select claimable job: %w", err)
		}

		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			starts[status],
			time.Now().UTC().Format(time.RFC3339Nano),
			id,
			status,
		)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			// Another worker won the claim; try the next candidate.
			continue
		}
		return s.GetByID(ctx, id)
	}
}

// RequestCancel asks for a job to be cancelled. Pending jobs transition to
// cancelled immediately; running pre-rendering jobs get the cancel flag raised
// for the owning worker to honor cooperatively. Jobs that are rendering or
// already terminal are not cancellable.
func (s *Store) RequestCancel(ctx context.Context, id int64) (CancelOutcome, error) {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if job == nil {
		return CancelNotFound, nil
	}
	if !job.Status.Cancellable() {
		return CancelNotCancellable, nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if job.Status == StatusPending {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs SET status = ?, cancel_requested = 1, progress_stage = ?,
                 progress_message = 'Cancelled on request', updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusCancelled,
			StatusCancelled.StageLabel(),
			now,
			id,
			StatusPending,
		)
		if err != nil {
			return "", fmt.Errorf("cancel pending job: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 1 {
			return CancelAck, nil
		}
		// A worker claimed the job between the read and the update; fall
		// through to the cooperative flag path.
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET cancel_requested = 1, updated_at = ?
         WHERE id = ? AND status NOT IN (?, ?, ?, ?)`,
		now,
		id,
		StatusRendering,
		StatusCompleted,
		StatusFailed,
		StatusCancelled,
	)
	if err != nil {
		return "", fmt.Errorf("request cancel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if affected == 0 {
		return CancelNotCancellable, nil
	}
	return CancelAck, nil
}

// CancelRequested reports whether cancellation has been requested for a job.
func (s *Store) CancelRequested(ctx context.Context, id int64) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT cancel_requested FROM jobs WHERE id = ?`, id)
	var flag int
	err := row.Scan(&flag)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return flag != 0, nil
}

var stageRollbacks = []struct {
	from Status
	to   Status
}{
	{StatusScripting, StatusPending},
	{StatusSynthesizing, StatusScripted},
	{StatusSourcing, StatusSynthesized},
	{StatusReconciling, StatusSourced},
	{StatusComposing, StatusReconciled},
	{StatusRendering, StatusComposed},
}

// ResetStuckProcessing rolls jobs abandoned mid-stage (daemon crash or kill)
// back to the start of their current stage so a worker can resume them.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	query := `UPDATE jobs SET status = CASE status`
	args := make([]any, 0, len(stageRollbacks)*2+len(stageRollbacks)+1)
	for _, rollback := range stageRollbacks {
		query += ` WHEN ? THEN ?`
		args = append(args, rollback.from, rollback.to)
	}
	query += ` ELSE status END,
        progress_message = 'Reset from interrupted processing', updated_at = ?
        WHERE status IN (` + makePlaceholders(len(stageRollbacks)) + `)`
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	for _, rollback := range stageRollbacks {
		args = append(args, rollback.from)
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}
