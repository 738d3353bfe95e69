// Package queue persists video jobs in SQLite and provides the status
// transitions the workflow manager drives: claiming and resuming work, recording
// per-stage progress, cooperative cancellation, and crash recovery for jobs
// interrupted mid-stage.
package queue
