package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"echoai/internal/api"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	body := fmt.Sprintf(
		"staging_dir = %q\nlibrary_dir = %q\nlog_dir = %q\nassets_dir = %q\n",
		filepath.Join(base, "staging"),
		filepath.Join(base, "library"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "assets"),
	)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(api.SubmitResponse{JobID: 7})
		case http.MethodGet:
			json.NewEncoder(w).Encode(api.JobListResponse{Jobs: []api.JobSnapshot{
				{ID: 7, Topic: "Why Octopuses Dream", Platform: "tiktok", Status: "sourcing",
					Progress: api.JobProgress{Percent: 45}, CreatedAt: "2026-08-29T10:00:00Z"},
			}})
		}
	})
	mux.HandleFunc("/api/jobs/7", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(api.JobSnapshot{
			ID: 7, Topic: "Why Octopuses Dream", Platform: "tiktok", Style: "viral_facts",
			DurationSeconds: 25, Transition: "fade", CaptionStyle: "bounce",
			Status: "sourcing", Progress: api.JobProgress{Stage: "Image Sourcing", Percent: 45},
		})
	})
	mux.HandleFunc("/api/jobs/7/cancel", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(api.CancelResponse{Outcome: "ok"})
	})
	mux.HandleFunc("/api/jobs/404", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Job 404 not found"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// Refuses to overwrite.
	if _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestSubmitPrintsJobID(t *testing.T) {
	server := fakeAPI(t)
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, []string{"--config", cfgPath, "--api", server.URL, "submit", "octopus dreams"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "Queued job 7") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestJobsRendersTable(t *testing.T) {
	server := fakeAPI(t)
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, []string{"--config", cfgPath, "--api", server.URL, "jobs"})
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if !strings.Contains(out, "Why Octopuses Dream") || !strings.Contains(out, "sourcing") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestShowAndCancel(t *testing.T) {
	server := fakeAPI(t)
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, []string{"--config", cfgPath, "--api", server.URL, "show", "7"})
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "Job 7: Why Octopuses Dream") {
		t.Fatalf("unexpected output: %s", out)
	}

	out, err = runCLI(t, []string{"--config", cfgPath, "--api", server.URL, "cancel", "7"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !strings.Contains(out, "Cancel requested for job 7") {
		t.Fatalf("unexpected output: %s", out)
	}

	if _, err := runCLI(t, []string{"--config", cfgPath, "--api", server.URL, "show", "404"}); err == nil {
		t.Fatal("expected error for unknown job")
	}
}

func TestQueueMaintenanceOnEmptyStore(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, []string{"--config", cfgPath, "queue", "clear"})
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	if !strings.Contains(out, "Removed 0 finished job(s)") {
		t.Fatalf("unexpected output: %s", out)
	}

	out, err = runCLI(t, []string{"--config", cfgPath, "queue", "reset"})
	if err != nil {
		t.Fatalf("queue reset: %v", err)
	}
	if !strings.Contains(out, "Reset 0 interrupted job(s)") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestParseJobIDRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"abc", "-1", "0", ""} {
		if _, err := parseJobID(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	id, err := parseJobID("42")
	if err != nil || id != 42 {
		t.Fatalf("parseJobID(42) = %d, %v", id, err)
	}
}

func TestBuildQueueStatusRowsOrdersByLifecycle(t *testing.T) {
	rows := buildQueueStatusRows(map[string]int{
		"completed": 2,
		"pending":   1,
		"failed":    0,
	})
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[0][0] != "pending" || rows[1][0] != "completed" {
		t.Fatalf("unexpected order: %v", rows)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 40); got != "short" {
		t.Fatalf("truncate(short) = %s", got)
	}
	long := strings.Repeat("a", 50)
	got := truncate(long, 40)
	if len(got) != 40 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate(long) = %s", got)
	}
}
