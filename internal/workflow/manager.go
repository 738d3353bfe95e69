package workflow

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"echoai/internal/composition"
	"echoai/internal/config"
	"echoai/internal/logging"
	"echoai/internal/notifications"
	"echoai/internal/queue"
	"echoai/internal/render"
	"echoai/internal/script"
	"echoai/internal/stage"
	"echoai/internal/timeline"
	"echoai/internal/visuals"
	"echoai/internal/voice"
)

// pipelineStage binds a handler to the statuses it moves a job between.
type pipelineStage struct {
	name       string
	processing queue.Status
	done       queue.Status
	handler    stage.Handler
}

// Manager coordinates queue processing across a bounded worker pool.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	notifier     notifications.Service
	stages       []pipelineStage
	pollInterval time.Duration
	errorRetry   time.Duration

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a manager with the full production stage pipeline.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	stages := []pipelineStage{
		{"script", queue.StatusScripting, queue.StatusScripted, script.NewStage(cfg, logging.NewComponentLogger(logger, "script"))},
		{"voice", queue.StatusSynthesizing, queue.StatusSynthesized, voice.NewStage(cfg, logging.NewComponentLogger(logger, "voice"))},
		{"visuals", queue.StatusSourcing, queue.StatusSourced, visuals.NewStage(cfg, logging.NewComponentLogger(logger, "visuals"))},
		{"timeline", queue.StatusReconciling, queue.StatusReconciled, timeline.NewStage(cfg, logging.NewComponentLogger(logger, "timeline"))},
		{"composition", queue.StatusComposing, queue.StatusComposed, composition.NewStage(cfg, logging.NewComponentLogger(logger, "composition"))},
		{"render", queue.StatusRendering, queue.StatusCompleted, render.NewStage(cfg, logging.NewComponentLogger(logger, "render"))},
	}
	return newManager(cfg, store, logger, notifications.NewService(cfg), stages)
}

// NewManagerWithNotifier constructs the production pipeline with a custom
// notifier (used in tests and by the daemon's test-notification command).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	manager := NewManager(cfg, store, logger)
	manager.notifier = notifier
	return manager
}

func newManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, stages []pipelineStage) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	poll := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if poll <= 0 {
		poll = time.Second
	}
	retry := time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
	if retry <= 0 {
		retry = 5 * time.Second
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		stages:       stages,
		pollInterval: poll,
		errorRetry:   retry,
	}
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// LastError returns the most recent worker-level error, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}
