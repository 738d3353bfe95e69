package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"echoai/internal/api"
	"echoai/internal/config"
	"echoai/internal/queue"
	"echoai/internal/workflow"
)

func testDaemon(t *testing.T) (*Daemon, *queue.Store, http.Handler) {
	t.Helper()
	cfg := config.Default()
	cfg.StagingDir = t.TempDir()
	cfg.LibraryDir = t.TempDir()
	cfg.LogDir = t.TempDir()
	cfg.APIBind = "127.0.0.1:0"

	store, err := queue.Open(&cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	manager := workflow.NewManager(&cfg, store, nil)
	d, err := New(&cfg, store, nil, manager)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d, store, d.apiSrv.handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSubmitStatusCancelRoundTrip(t *testing.T) {
	_, _, handler := testDaemon(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/jobs", api.SubmitRequest{
		Topic:    "deep sea facts",
		Platform: "tiktok",
		Style:    "viral_facts",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d body=%s", rec.Code, rec.Body.String())
	}
	var submitted api.SubmitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/jobs/%d", submitted.JobID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var snapshot api.JobSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatal(err)
	}
	if snapshot.Status != "pending" || snapshot.Topic != "deep sea facts" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}

	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/jobs/%d/cancel", submitted.JobID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel code = %d body=%s", rec.Code, rec.Body.String())
	}

	// Cancelled jobs are terminal; a second cancel conflicts.
	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/jobs/%d/cancel", submitted.JobID), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second cancel code = %d, want 409", rec.Code)
	}
}

func TestSubmitRejectsUnknownTransition(t *testing.T) {
	_, _, handler := testDaemon(t)
	rec := doJSON(t, handler, http.MethodPost, "/api/jobs", api.SubmitRequest{
		Topic:      "x",
		Transition: "spiral",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestJobEndpointsReturn404ForUnknownJob(t *testing.T) {
	_, _, handler := testDaemon(t)
	if rec := doJSON(t, handler, http.MethodGet, "/api/jobs/999", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status code = %d, want 404", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodPost, "/api/jobs/999/cancel", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("cancel code = %d, want 404", rec.Code)
	}
}

func TestDownloadStates(t *testing.T) {
	d, store, handler := testDaemon(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, queue.SubmitRequest{Topic: "download me", Platform: "other", Style: "viral_facts"})
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/jobs/%d/download", job.ID), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("unfinished download code = %d, want 409", rec.Code)
	}

	output := filepath.Join(d.cfg.LibraryDir, "download-me.mp4")
	if err := os.WriteFile(output, []byte("video-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	job.Status = queue.StatusCompleted
	job.OutputFile = output
	if err := store.Update(ctx, job); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/jobs/%d/download", job.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download code = %d", rec.Code)
	}
	if rec.Body.String() != "video-bytes" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestStatusEndpointReportsQueueStats(t *testing.T) {
	_, store, handler := testDaemon(t)
	if _, err := store.NewJob(context.Background(), queue.SubmitRequest{Topic: "stats", Platform: "other", Style: "viral_facts"}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var status api.WorkflowStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.QueueStats["pending"] != 1 {
		t.Fatalf("pending = %d, want 1", status.QueueStats["pending"])
	}
	if len(status.StageHealth) == 0 {
		t.Fatal("stage health missing")
	}
}
