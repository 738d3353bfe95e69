package api

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"echoai/internal/composition"
	"echoai/internal/queue"
	"echoai/internal/script"
	"echoai/internal/services"
)

const (
	defaultDurationSeconds = 25
	maxDurationSeconds     = 180
	defaultTransition      = "fade"
	defaultCaptionStyle    = "bounce"
)

var platforms = []string{"tiktok", "youtube", "instagram", "other"}

// JobStore abstracts the queue operations the service needs.
type JobStore interface {
	NewJob(ctx context.Context, req queue.SubmitRequest) (*queue.Job, error)
	GetByID(ctx context.Context, id int64) (*queue.Job, error)
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	RequestCancel(ctx context.Context, id int64) (queue.CancelOutcome, error)
}

// JobService validates requests and shapes job snapshots for transports.
type JobService struct {
	store JobStore
}

// NewJobService constructs a JobService around the provided store.
func NewJobService(store JobStore) *JobService {
	return &JobService{store: store}
}

// Submit validates a generation request and enqueues a pending job. Style
// selections are checked here so a bad request never occupies a worker.
func (s *JobService) Submit(ctx context.Context, req SubmitRequest) (JobSnapshot, error) {
	normalized, err := normalizeSubmit(req)
	if err != nil {
		return JobSnapshot{}, err
	}
	job, err := s.store.NewJob(ctx, normalized)
	if err != nil {
		return JobSnapshot{}, err
	}
	return FromJob(job), nil
}

// Status fetches a job snapshot by identifier.
func (s *JobService) Status(ctx context.Context, id int64) (JobSnapshot, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return JobSnapshot{}, err
	}
	if job == nil {
		return JobSnapshot{}, services.Wrap(services.ErrNotFound, "api", "status",
			fmt.Sprintf("Job %d not found", id), nil)
	}
	return FromJob(job), nil
}

// List returns job snapshots filtered by status, newest last.
func (s *JobService) List(ctx context.Context, statuses ...queue.Status) ([]JobSnapshot, error) {
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Stats returns queue counts keyed by status string.
func (s *JobService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeStats(stats), nil
}

// Cancel requests cancellation, mapping store outcomes onto the error
// taxonomy: unknown jobs are NotFound, rendering or terminal jobs are
// NotCancellable.
func (s *JobService) Cancel(ctx context.Context, id int64) (CancelResponse, error) {
	outcome, err := s.store.RequestCancel(ctx, id)
	if err != nil {
		return CancelResponse{}, err
	}
	switch outcome {
	case queue.CancelAck:
		return CancelResponse{Outcome: string(outcome)}, nil
	case queue.CancelNotFound:
		return CancelResponse{}, services.Wrap(services.ErrNotFound, "api", "cancel",
			fmt.Sprintf("Job %d not found", id), nil)
	case queue.CancelNotCancellable:
		return CancelResponse{}, services.Wrap(services.ErrNotCancellable, "api", "cancel",
			fmt.Sprintf("Job %d can no longer be cancelled", id), nil)
	default:
		return CancelResponse{}, services.Wrap(services.ErrTransient, "api", "cancel",
			fmt.Sprintf("Unexpected cancel outcome %q", outcome), nil)
	}
}

// Result reports the finished artifact for a job, or why it is unavailable.
func (s *JobService) Result(ctx context.Context, id int64) (ResultResponse, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return ResultResponse{}, err
	}
	if job == nil {
		return ResultResponse{}, services.Wrap(services.ErrNotFound, "api", "result",
			fmt.Sprintf("Job %d not found", id), nil)
	}
	switch job.Status {
	case queue.StatusCompleted:
		return ResultResponse{State: ResultReady, OutputFile: job.OutputFile}, nil
	case queue.StatusFailed:
		return ResultResponse{State: ResultFailed, Detail: job.ErrorMessage}, nil
	case queue.StatusCancelled:
		return ResultResponse{State: ResultFailed, Detail: "job was cancelled"}, nil
	default:
		return ResultResponse{State: ResultNotReady, Detail: job.ProgressStage}, nil
	}
}

func normalizeSubmit(req SubmitRequest) (queue.SubmitRequest, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return queue.SubmitRequest{}, services.Wrap(services.ErrValidation, "api", "submit",
			"Topic must not be empty", nil)
	}

	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform == "" {
		platform = "other"
	}
	if !slices.Contains(platforms, platform) {
		return queue.SubmitRequest{}, services.Wrap(services.ErrValidation, "api", "submit",
			fmt.Sprintf("Unknown platform %q (supported: %s)", req.Platform, strings.Join(platforms, ", ")), nil)
	}

	style := strings.ToLower(strings.TrimSpace(req.Style))
	if style == "" {
		style = "viral_facts"
	}
	if !slices.Contains(script.Styles(), style) {
		return queue.SubmitRequest{}, services.Wrap(services.ErrValidation, "api", "submit",
			fmt.Sprintf("Unknown style %q (supported: %s)", req.Style, strings.Join(script.Styles(), ", ")), nil)
	}

	duration := req.DurationSeconds
	if duration == 0 {
		duration = defaultDurationSeconds
	}
	if duration < 0 || duration > maxDurationSeconds {
		return queue.SubmitRequest{}, services.Wrap(services.ErrValidation, "api", "submit",
			fmt.Sprintf("Duration must be between 1 and %d seconds", maxDurationSeconds), nil)
	}

	transition := strings.ToLower(strings.TrimSpace(req.Transition))
	if transition == "" {
		transition = defaultTransition
	}
	captionStyle := strings.ToLower(strings.TrimSpace(req.CaptionStyle))
	if captionStyle == "" {
		captionStyle = defaultCaptionStyle
	}
	if err := composition.Validate(transition, captionStyle); err != nil {
		return queue.SubmitRequest{}, err
	}

	return queue.SubmitRequest{
		Topic:           topic,
		Platform:        platform,
		Style:           style,
		DurationSeconds: duration,
		Transition:      transition,
		CaptionStyle:    captionStyle,
		Voice:           strings.TrimSpace(req.Voice),
		UseStored:       req.UseStored,
	}, nil
}
