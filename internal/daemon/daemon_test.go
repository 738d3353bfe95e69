package daemon

import (
	"context"
	"testing"

	"echoai/internal/config"
	"echoai/internal/queue"
	"echoai/internal/workflow"
)

func TestDaemonEnforcesSingleInstance(t *testing.T) {
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

	first, err := New(&cfg, store, nil, workflow.NewManager(&cfg, store, nil))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	defer first.Stop()

	if first.APIAddr() == "" {
		t.Fatal("api address not bound")
	}

	second, err := New(&cfg, store, nil, workflow.NewManager(&cfg, store, nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second daemon should fail to acquire the lock")
	}

	first.Stop()
	if first.running.Load() {
		t.Fatal("daemon still marked running after stop")
	}
}
