package stage

import (
	"testing"

	"echoai/internal/queue"
)

func TestLoadStoryboard_Valid(t *testing.T) {
	job := &queue.Job{StoryboardJSON: `{"script":{"topic":"deep sea","style":"viral_facts"}}`}
	env, err := LoadStoryboard(job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Script.Topic != "deep sea" {
		t.Fatalf("unexpected topic: %q", env.Script.Topic)
	}
}

func TestLoadStoryboard_Empty(t *testing.T) {
	env, err := LoadStoryboard(&queue.Job{})
	if err != nil {
		t.Fatalf("unexpected error for empty input: %v", err)
	}
	if env.Script.Topic != "" {
		t.Fatalf("expected empty envelope for empty input")
	}
}

func TestLoadStoryboard_Invalid(t *testing.T) {
	_, err := LoadStoryboard(&queue.Job{StoryboardJSON: "{invalid json"})
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestSaveStoryboardRoundTrip(t *testing.T) {
	job := &queue.Job{}
	env, _ := LoadStoryboard(job)
	env.Script.Topic = "volcano myths"
	if err := SaveStoryboard(job, env); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded, err := LoadStoryboard(job)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Script.Topic != "volcano myths" {
		t.Fatalf("round trip lost topic: %q", reloaded.Script.Topic)
	}
}
