package api

import (
	"time"

	"echoai/internal/queue"
)

// FromJob converts a queue job into its API snapshot.
func FromJob(job *queue.Job) JobSnapshot {
	if job == nil {
		return JobSnapshot{}
	}
	snapshot := JobSnapshot{
		ID:              job.ID,
		Topic:           job.Topic,
		Platform:        job.Platform,
		Style:           job.Style,
		DurationSeconds: job.DurationSeconds,
		Transition:      job.Transition,
		CaptionStyle:    job.CaptionStyle,
		UseStored:       job.UseStored,
		Status:          string(job.Status),
		Progress: JobProgress{
			Stage:    job.ProgressStage,
			Percent:  job.ProgressPercent,
			Fraction: job.FractionDone(),
			Message:  job.ProgressMessage,
		},
		ErrorMessage:    job.ErrorMessage,
		OutputFile:      job.OutputFile,
		CancelRequested: job.CancelRequested,
	}
	if len(job.StageTimes) > 0 {
		snapshot.StageTimes = make(map[string]string, len(job.StageTimes))
		for stage, at := range job.StageTimes {
			snapshot.StageTimes[stage] = at
		}
	}
	if !job.CreatedAt.IsZero() {
		snapshot.CreatedAt = job.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !job.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = job.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return snapshot
}

// FromJobs converts a slice of queue jobs, preserving order.
func FromJobs(jobs []*queue.Job) []JobSnapshot {
	snapshots := make([]JobSnapshot, 0, len(jobs))
	for _, job := range jobs {
		snapshots = append(snapshots, FromJob(job))
	}
	return snapshots
}

// MergeStats converts status-keyed counts into string keys, filling zeroes so
// every known status always appears in the payload.
func MergeStats(stats map[queue.Status]int) map[string]int {
	merged := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		merged[string(status)] = stats[status]
	}
	return merged
}
