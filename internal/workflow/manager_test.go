package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"echoai/internal/config"
	"echoai/internal/queue"
	"echoai/internal/services"
	"echoai/internal/stage"
)

type fakeStage struct {
	name    string
	execErr error
	onExec  func(ctx context.Context, job *queue.Job) error

	mu       sync.Mutex
	prepares int
	executes int
}

func (f *fakeStage) Prepare(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	f.prepares++
	f.mu.Unlock()
	return nil
}

func (f *fakeStage) Execute(ctx context.Context, job *queue.Job) error {
	f.mu.Lock()
	f.executes++
	f.mu.Unlock()
	if f.onExec != nil {
		if err := f.onExec(ctx, job); err != nil {
			return err
		}
	}
	return f.execErr
}

func (f *fakeStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(f.name)
}

func (f *fakeStage) executed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.executes
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []int64
	failed    []string
	cancelled []int64
}

func (r *recordingNotifier) NotifyJobQueued(context.Context, int64, string) error { return nil }

func (r *recordingNotifier) NotifyJobCompleted(_ context.Context, jobID int64, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, jobID)
	return nil
}

func (r *recordingNotifier) NotifyJobFailed(_ context.Context, _ int64, _, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, reason)
	return nil
}

func (r *recordingNotifier) NotifyJobCancelled(_ context.Context, jobID int64, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, jobID)
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func workflowStore(t *testing.T) (*config.Config, *queue.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.StagingDir = t.TempDir()
	cfg.LibraryDir = t.TempDir()
	cfg.LogDir = t.TempDir()
	store, err := queue.Open(&cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return &cfg, store
}

func testStages(stages ...*fakeStage) []pipelineStage {
	order := []struct {
		processing queue.Status
		done       queue.Status
	}{
		{queue.StatusScripting, queue.StatusScripted},
		{queue.StatusSynthesizing, queue.StatusSynthesized},
		{queue.StatusSourcing, queue.StatusSourced},
		{queue.StatusReconciling, queue.StatusReconciled},
		{queue.StatusComposing, queue.StatusComposed},
		{queue.StatusRendering, queue.StatusCompleted},
	}
	built := make([]pipelineStage, 0, len(stages))
	for i, fs := range stages {
		built = append(built, pipelineStage{
			name:       fs.name,
			processing: order[i].processing,
			done:       order[i].done,
			handler:    fs,
		})
	}
	return built
}

func submitTestJob(t *testing.T, store *queue.Store) *queue.Job {
	t.Helper()
	job, err := store.NewJob(context.Background(), queue.SubmitRequest{
		Topic:        "space facts",
		Platform:     "tiktok",
		Style:        "viral_facts",
		Transition:   "fade",
		CaptionStyle: "bounce",
	})
	if err != nil {
		t.Fatalf("submit job: %v", err)
	}
	return job
}

func TestProcessJobRunsStagesInOrderToCompletion(t *testing.T) {
	cfg, store := workflowStore(t)
	ctx := context.Background()

	var order []string
	var mu sync.Mutex
	fakes := make([]*fakeStage, 6)
	for i, name := range []string{"script", "voice", "visuals", "timeline", "composition", "render"} {
		name := name
		fakes[i] = &fakeStage{name: name, onExec: func(context.Context, *queue.Job) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}}
	}
	notifier := &recordingNotifier{}
	manager := newManager(cfg, store, nil, notifier, testStages(fakes...))

	submitTestJob(t, store)
	job, err := store.ClaimNext(ctx)
	if err != nil || job == nil {
		t.Fatalf("claim: %v %v", job, err)
	}
	if err := manager.processJob(ctx, manager.logger, job); err != nil {
		t.Fatalf("processJob failed: %v", err)
	}

	want := []string{"script", "voice", "visuals", "timeline", "composition", "render"}
	if len(order) != len(want) {
		t.Fatalf("stage order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("stage order %v, want %v", order, want)
		}
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", stored.Status)
	}
	if stored.ProgressPercent != 100 {
		t.Fatalf("progress = %v, want 100", stored.ProgressPercent)
	}
	if len(notifier.completed) != 1 || notifier.completed[0] != job.ID {
		t.Fatalf("completion notification missing: %v", notifier.completed)
	}
}

func TestProcessJobFailureRecordsClassifiedMessage(t *testing.T) {
	cfg, store := workflowStore(t)
	ctx := context.Background()

	failing := &fakeStage{name: "voice", execErr: services.Wrap(
		services.ErrProviderExhausted, "voice", "synthesize", "All voice providers failed", nil)}
	later := &fakeStage{name: "visuals"}
	notifier := &recordingNotifier{}
	manager := newManager(cfg, store, nil, notifier, testStages(
		&fakeStage{name: "script"}, failing, later,
	))

	submitTestJob(t, store)
	job, _ := store.ClaimNext(ctx)
	err := manager.processJob(ctx, manager.logger, job)
	if !errors.Is(err, services.ErrProviderExhausted) {
		t.Fatalf("expected provider exhaustion, got %v", err)
	}

	stored, _ := store.GetByID(ctx, job.ID)
	if stored.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", stored.Status)
	}
	if stored.ErrorMessage == "" || strings.Contains(stored.ErrorMessage, "provider chain exhausted:") {
		t.Fatalf("error message should be plain text, got %q", stored.ErrorMessage)
	}
	if later.executed() != 0 {
		t.Fatal("stages after the failure must not run")
	}
	if len(notifier.failed) != 1 {
		t.Fatalf("failure notification missing: %v", notifier.failed)
	}
}

func TestProcessJobHonorsCancelBetweenStages(t *testing.T) {
	cfg, store := workflowStore(t)
	ctx := context.Background()

	cancelDuring := &fakeStage{name: "script", onExec: func(ctx context.Context, job *queue.Job) error {
		outcome, err := store.RequestCancel(ctx, job.ID)
		if err != nil || outcome != queue.CancelAck {
			return services.Wrap(services.ErrTransient, "test", "cancel", "request cancel failed", err)
		}
		return nil
	}}
	second := &fakeStage{name: "voice"}
	notifier := &recordingNotifier{}
	manager := newManager(cfg, store, nil, notifier, testStages(cancelDuring, second))

	submitTestJob(t, store)
	job, _ := store.ClaimNext(ctx)
	if err := manager.processJob(ctx, manager.logger, job); err != nil {
		t.Fatalf("processJob failed: %v", err)
	}

	stored, _ := store.GetByID(ctx, job.ID)
	if stored.Status != queue.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", stored.Status)
	}
	if second.executed() != 0 {
		t.Fatal("stage after cancellation must not run")
	}
	if len(notifier.cancelled) != 1 {
		t.Fatalf("cancellation notification missing: %v", notifier.cancelled)
	}
}

func TestProcessJobResumesFromIntermediateStatus(t *testing.T) {
	cfg, store := workflowStore(t)
	ctx := context.Background()

	fakes := make([]*fakeStage, 6)
	for i, name := range []string{"script", "voice", "visuals", "timeline", "composition", "render"} {
		fakes[i] = &fakeStage{name: name}
	}
	notifier := &recordingNotifier{}
	manager := newManager(cfg, store, nil, notifier, testStages(fakes...))

	job := submitTestJob(t, store)
	job.Status = queue.StatusSourced
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("park job after sourcing: %v", err)
	}

	claimed, err := store.ClaimNext(ctx)
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v %v", claimed, err)
	}
	if claimed.Status != queue.StatusReconciling {
		t.Fatalf("claim status = %s, want reconciling", claimed.Status)
	}
	if err := manager.processJob(ctx, manager.logger, claimed); err != nil {
		t.Fatalf("processJob failed: %v", err)
	}

	for _, done := range fakes[:3] {
		if done.executed() != 0 {
			t.Fatalf("completed stage %s must not run again", done.name)
		}
	}
	for _, remaining := range fakes[3:] {
		if remaining.executed() != 1 {
			t.Fatalf("remaining stage %s should run once, ran %d times",
				remaining.name, remaining.executed())
		}
	}
	stored, _ := store.GetByID(ctx, job.ID)
	if stored.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", stored.Status)
	}
	if len(notifier.completed) != 1 {
		t.Fatalf("completion notification missing: %v", notifier.completed)
	}
}

func TestProcessJobDiscardsResultOfCancelledStage(t *testing.T) {
	cfg, store := workflowStore(t)
	ctx := context.Background()

	cancelMidStage := &fakeStage{name: "script", onExec: func(ctx context.Context, job *queue.Job) error {
		outcome, err := store.RequestCancel(ctx, job.ID)
		if err != nil || outcome != queue.CancelAck {
			return services.Wrap(services.ErrTransient, "test", "cancel", "request cancel failed", err)
		}
		job.StoryboardJSON = `{"script":{"topic":"half-written"}}`
		return nil
	}}
	second := &fakeStage{name: "voice"}
	notifier := &recordingNotifier{}
	manager := newManager(cfg, store, nil, notifier, testStages(cancelMidStage, second))

	submitTestJob(t, store)
	job, _ := store.ClaimNext(ctx)
	if err := manager.processJob(ctx, manager.logger, job); err != nil {
		t.Fatalf("processJob failed: %v", err)
	}

	stored, _ := store.GetByID(ctx, job.ID)
	if stored.Status != queue.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", stored.Status)
	}
	if stored.StoryboardJSON != "" {
		t.Fatalf("in-flight stage output must be dropped, got %q", stored.StoryboardJSON)
	}
	if second.executed() != 0 {
		t.Fatal("stage after cancellation must not run")
	}
	if len(notifier.cancelled) != 1 {
		t.Fatalf("cancellation notification missing: %v", notifier.cancelled)
	}
}

func TestStartRejectsDoubleStart(t *testing.T) {
	cfg, store := workflowStore(t)
	manager := newManager(cfg, store, nil, &recordingNotifier{}, testStages(&fakeStage{name: "script"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	defer manager.Stop()
	if err := manager.Start(ctx); err == nil {
		t.Fatal("second start should fail")
	}
}

func TestStatusReportsCountsAndHealth(t *testing.T) {
	cfg, store := workflowStore(t)
	manager := newManager(cfg, store, nil, &recordingNotifier{}, testStages(
		&fakeStage{name: "script"}, &fakeStage{name: "voice"},
	))

	submitTestJob(t, store)
	summary, err := manager.Status(context.Background())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if summary.Counts[queue.StatusPending] != 1 {
		t.Fatalf("pending count = %d, want 1", summary.Counts[queue.StatusPending])
	}
	if len(summary.Health) != 2 || !summary.Health[0].Ready {
		t.Fatalf("unexpected health: %+v", summary.Health)
	}
}
