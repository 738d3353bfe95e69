// Package logging assembles the structured slog loggers used across the
// pipeline. It owns the console and JSON handlers, level and output plumbing,
// and context-aware helpers so stage code automatically tags log lines with
// job IDs, stage names, and correlation IDs.
package logging
