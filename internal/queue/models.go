package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a generation job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusScripting    Status = "scripting"
	StatusScripted     Status = "scripted"
	StatusSynthesizing Status = "synthesizing"
	StatusSynthesized  Status = "synthesized"
	StatusSourcing     Status = "sourcing"
	StatusSourced      Status = "sourced"
	StatusReconciling  Status = "reconciling"
	StatusReconciled   Status = "reconciled"
	StatusComposing    Status = "composing"
	StatusComposed     Status = "composed"
	StatusRendering    Status = "rendering"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusScripting,
	StatusScripted,
	StatusSynthesizing,
	StatusSynthesized,
	StatusSourcing,
	StatusSourced,
	StatusReconciling,
	StatusReconciled,
	StatusComposing,
	StatusComposed,
	StatusRendering,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusScripting:    {},
	StatusSynthesizing: {},
	StatusSourcing:     {},
	StatusReconciling:  {},
	StatusComposing:    {},
	StatusRendering:    {},
}

var terminalStatuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// progressFloors anchor the monotonic progress percent reported for each stage.
var progressFloors = map[Status]float64{
	StatusPending:      0,
	StatusScripting:    5,
	StatusScripted:     20,
	StatusSynthesizing: 25,
	StatusSynthesized:  40,
	StatusSourcing:     45,
	StatusSourced:      60,
	StatusReconciling:  65,
	StatusReconciled:   72,
	StatusComposing:    75,
	StatusComposed:     82,
	StatusRendering:    85,
	StatusCompleted:    100,
}

// Job represents one video generation request persisted in SQLite. Only the
// orchestrator worker that claimed a job mutates it; the single exception is
// the cancel_requested flag, which any process may raise.
type Job struct {
	ID              int64
	Topic           string
	Platform        string
	Style           string
	DurationSeconds int
	Transition      string
	CaptionStyle    string
	Voice           string
	UseStored       bool
	Status          Status
	StoryboardJSON  string
	OutputFile      string
	ErrorMessage    string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	StageTimes      map[string]string // stage name -> RFC3339 entry timestamp
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing reports whether the status reflects an in-flight stage.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// Cancellable reports whether a job in this status may still be cancelled.
// Rendering is past the point of no return; terminal jobs cannot change.
func (s Status) Cancellable() bool {
	if s.IsTerminal() || s == StatusRendering {
		return false
	}
	return true
}

// ProgressFloor returns the monotonic progress anchor for a status.
func (s Status) ProgressFloor() float64 {
	return progressFloors[s]
}

// StageLabel derives the human-readable stage label from a status.
func (s Status) StageLabel() string {
	switch s {
	case StatusPending:
		return "Queued"
	case StatusScripting, StatusScripted:
		return "Script Generation"
	case StatusSynthesizing, StatusSynthesized:
		return "Voice Synthesis"
	case StatusSourcing, StatusSourced:
		return "Image Sourcing"
	case StatusReconciling, StatusReconciled:
		return "Reconciliation"
	case StatusComposing, StatusComposed:
		return "Composition"
	case StatusRendering:
		return "Rendering"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// SetProgress updates the progress triplet while keeping the percent
// monotonically non-decreasing for the job's lifetime.
func (j *Job) SetProgress(stage, message string, percent float64) {
	if percent < j.ProgressPercent {
		percent = j.ProgressPercent
	}
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressStage = StatusFailed.StageLabel()
	j.ProgressMessage = message
}

// SetCancelled marks the job as cancelled.
func (j *Job) SetCancelled() {
	j.Status = StatusCancelled
	j.ProgressStage = StatusCancelled.StageLabel()
	j.ProgressMessage = "Cancelled on request"
}

// MarkStageEntered records the entry timestamp for a stage.
func (j *Job) MarkStageEntered(status Status, at time.Time) {
	if j.StageTimes == nil {
		j.StageTimes = make(map[string]string, 8)
	}
	j.StageTimes[string(status)] = at.UTC().Format(time.RFC3339Nano)
}

// FractionDone reports progress as a 0..1 fraction for boundary consumers.
func (j *Job) FractionDone() float64 {
	return j.ProgressPercent / 100
}
