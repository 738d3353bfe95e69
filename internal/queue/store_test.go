package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"echoai/internal/config"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.StagingDir = filepath.Join(root, "staging")
	cfg.LibraryDir = filepath.Join(root, "library")
	cfg.LogDir = filepath.Join(root, "logs")
	cfg.AssetsDir = filepath.Join(root, "assets")

	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func submitJob(t *testing.T, store *Store, topic string) *Job {
	t.Helper()
	job, err := store.NewJob(context.Background(), SubmitRequest{
		Topic:           topic,
		Platform:        "tiktok",
		Style:           "viral_facts",
		DurationSeconds: 30,
		Transition:      "fade",
		CaptionStyle:    "bounce",
	})
	if err != nil {
		t.Fatalf("submit job: %v", err)
	}
	return job
}

func TestNewJobDefaultsToPending(t *testing.T) {
	store := testStore(t)
	job := submitJob(t, store, "ocean facts")

	if job.ID == 0 {
		t.Fatal("expected assigned job id")
	}
	if job.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}

	fetched, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected job to exist")
	}
	if fetched.Topic != "ocean facts" || fetched.Platform != "tiktok" {
		t.Fatalf("unexpected round trip: %+v", fetched)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	store := testStore(t)
	job, err := store.GetByID(context.Background(), 404)
	if err != nil {
		t.Fatalf("get missing job: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for missing job, got %+v", job)
	}
}

func TestClaimNextIsFIFO(t *testing.T) {
	store := testStore(t)
	first := submitJob(t, store, "first topic")
	second := submitJob(t, store, "second topic")

	claimed, err := store.ClaimNext(context.Background())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("expected to claim job %d, got %+v", first.ID, claimed)
	}
	if claimed.Status != StatusScripting {
		t.Fatalf("expected scripting after claim, got %s", claimed.Status)
	}

	claimed, err = store.ClaimNext(context.Background())
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed == nil || claimed.ID != second.ID {
		t.Fatalf("expected to claim job %d, got %+v", second.ID, claimed)
	}

	claimed, err = store.ClaimNext(context.Background())
	if err != nil {
		t.Fatalf("empty claim: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected no pending jobs, got %+v", claimed)
	}
}

func TestClaimNextResumesStageStartStatuses(t *testing.T) {
	store := testStore(t)
	resumes := map[Status]Status{
		StatusScripted:    StatusSynthesizing,
		StatusSynthesized: StatusSourcing,
		StatusSourced:     StatusReconciling,
		StatusReconciled:  StatusComposing,
		StatusComposed:    StatusRendering,
	}

	for parked, want := range resumes {
		job := submitJob(t, store, "parked "+string(parked))
		job.Status = parked
		if err := store.Update(context.Background(), job); err != nil {
			t.Fatalf("update: %v", err)
		}

		claimed, err := store.ClaimNext(context.Background())
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if claimed == nil || claimed.ID != job.ID {
			t.Fatalf("%s: expected to claim job %d, got %+v", parked, job.ID, claimed)
		}
		if claimed.Status != want {
			t.Fatalf("%s: claim should advance to %s, got %s", parked, want, claimed.Status)
		}
		// Park the job terminally so the next iteration claims its own row.
		claimed.Status = StatusCompleted
		if err := store.Update(context.Background(), claimed); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
}

func TestResetJobsAreClaimable(t *testing.T) {
	store := testStore(t)
	job := submitJob(t, store, "interrupted mid-stage")
	job.Status = StatusSourcing
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("update: %v", err)
	}

	reset, err := store.ResetStuckProcessing(context.Background())
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 job reset, got %d", reset)
	}

	claimed, err := store.ClaimNext(context.Background())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("reset job should be claimable, got %+v", claimed)
	}
	if claimed.Status != StatusSourcing {
		t.Fatalf("reset job should resume its interrupted stage, got %s", claimed.Status)
	}
}

func TestUpdatePersistsProgressAndStoryboard(t *testing.T) {
	store := testStore(t)
	job := submitJob(t, store, "space trivia")

	job.Status = StatusScripted
	job.SetProgress(StatusScripted.StageLabel(), "Script ready", 20)
	job.MarkStageEntered(StatusScripting, time.Now().UTC())
	job.StoryboardJSON = `{"script":{"topic":"space trivia"}}`
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("update: %v", err)
	}

	fetched, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if fetched.Status != StatusScripted {
		t.Fatalf("expected scripted, got %s", fetched.Status)
	}
	if fetched.ProgressPercent != 20 {
		t.Fatalf("expected 20%%, got %v", fetched.ProgressPercent)
	}
	if fetched.StoryboardJSON != job.StoryboardJSON {
		t.Fatalf("storyboard not persisted: %q", fetched.StoryboardJSON)
	}
	if _, ok := fetched.StageTimes[string(StatusScripting)]; !ok {
		t.Fatalf("stage times not persisted: %+v", fetched.StageTimes)
	}
}

func TestRequestCancelPendingJob(t *testing.T) {
	store := testStore(t)
	job := submitJob(t, store, "cancel me")

	outcome, err := store.RequestCancel(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("request cancel: %v", err)
	}
	if outcome != CancelAck {
		t.Fatalf("expected ack, got %s", outcome)
	}

	fetched, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if fetched.Status != StatusCancelled {
		t.Fatalf("expected immediate cancel for pending job, got %s", fetched.Status)
	}
}

func TestRequestCancelRunningJobSetsFlag(t *testing.T) {
	store := testStore(t)
	job := submitJob(t, store, "running job")
	job.Status = StatusSourcing
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("update: %v", err)
	}

	outcome, err := store.RequestCancel(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("request cancel: %v", err)
	}
	if outcome != CancelAck {
		t.Fatalf("expected ack, got %s", outcome)
	}

	flagged, err := store.CancelRequested(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("read cancel flag: %v", err)
	}
	if !flagged {
		t.Fatal("expected cancel flag to be set")
	}

	fetched, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if fetched.Status != StatusSourcing {
		t.Fatalf("running job should keep its status until the worker stops, got %s", fetched.Status)
	}
}

func TestUpdateKeepsCancelFlagRaised(t *testing.T) {
	store := testStore(t)
	job := submitJob(t, store, "slow stage")
	job.Status = StatusSourcing
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("update: %v", err)
	}

	outcome, err := store.RequestCancel(context.Background(), job.ID)
	if err != nil || outcome != CancelAck {
		t.Fatalf("request cancel: %v %s", err, outcome)
	}

	// The worker's copy predates the cancel request; writing it back must not
	// lower the flag.
	job.SetProgress(StatusSourcing.StageLabel(), "Downloading images", 45)
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("stale update: %v", err)
	}

	flagged, err := store.CancelRequested(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("read cancel flag: %v", err)
	}
	if !flagged {
		t.Fatal("cancel flag must survive a stale job update")
	}
}

func TestRequestCancelRefusesRenderingAndTerminal(t *testing.T) {
	store := testStore(t)
	for _, status := range []Status{StatusRendering, StatusCompleted, StatusFailed, StatusCancelled} {
		job := submitJob(t, store, "locked "+string(status))
		job.Status = status
		if err := store.Update(context.Background(), job); err != nil {
			t.Fatalf("update: %v", err)
		}

		outcome, err := store.RequestCancel(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("request cancel: %v", err)
		}
		if outcome != CancelNotCancellable {
			t.Fatalf("status %s: expected not cancellable, got %s", status, outcome)
		}
	}
}

func TestRequestCancelMissingJob(t *testing.T) {
	store := testStore(t)
	outcome, err := store.RequestCancel(context.Background(), 999)
	if err != nil {
		t.Fatalf("request cancel: %v", err)
	}
	if outcome != CancelNotFound {
		t.Fatalf("expected not found, got %s", outcome)
	}
}

func TestResetStuckProcessingRollsBackToStageStart(t *testing.T) {
	store := testStore(t)
	cases := map[Status]Status{
		StatusScripting:    StatusPending,
		StatusSynthesizing: StatusScripted,
		StatusSourcing:     StatusSynthesized,
		StatusReconciling:  StatusSourced,
		StatusComposing:    StatusReconciled,
		StatusRendering:    StatusComposed,
	}

	ids := make(map[Status]int64, len(cases))
	for from := range cases {
		job := submitJob(t, store, "stuck "+string(from))
		job.Status = from
		if err := store.Update(context.Background(), job); err != nil {
			t.Fatalf("update: %v", err)
		}
		ids[from] = job.ID
	}
	stable := submitJob(t, store, "still pending")

	reset, err := store.ResetStuckProcessing(context.Background())
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset != int64(len(cases)) {
		t.Fatalf("expected %d jobs reset, got %d", len(cases), reset)
	}

	for from, want := range cases {
		job, err := store.GetByID(context.Background(), ids[from])
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Status != want {
			t.Fatalf("%s should roll back to %s, got %s", from, want, job.Status)
		}
	}

	untouched, err := store.GetByID(context.Background(), stable.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if untouched.Status != StatusPending {
		t.Fatalf("pending job should be untouched, got %s", untouched.Status)
	}
}

func TestClearRemovesOnlyTerminalJobs(t *testing.T) {
	store := testStore(t)
	done := submitJob(t, store, "done")
	done.Status = StatusCompleted
	if err := store.Update(context.Background(), done); err != nil {
		t.Fatalf("update: %v", err)
	}
	active := submitJob(t, store, "active")

	removed, err := store.Clear(context.Background())
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	remaining, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != active.ID {
		t.Fatalf("expected only active job to remain, got %+v", remaining)
	}
}

func TestStatsCountsByStatus(t *testing.T) {
	store := testStore(t)
	submitJob(t, store, "a")
	submitJob(t, store, "b")
	job := submitJob(t, store, "c")
	job.Status = StatusCompleted
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("update: %v", err)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[StatusPending] != 2 || stats[StatusCompleted] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSetProgressNeverDecreases(t *testing.T) {
	job := &Job{Status: StatusSourced}
	job.SetProgress("Visual Sourcing", "Images stored", 60)
	job.SetProgress("Timing Reconciliation", "Recomputing", 40)
	if job.ProgressPercent != 60 {
		t.Fatalf("progress must be monotonic, got %v", job.ProgressPercent)
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	if _, ok := ParseStatus("exploded"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	status, ok := ParseStatus("rendering")
	if !ok {
		t.Fatal("rendering should parse")
	}
	if status != StatusRendering {
		t.Fatalf("expected rendering, got %s", status)
	}
}
