package workflow

import (
	"context"

	"echoai/internal/queue"
	"echoai/internal/stage"
)

// Summary is a point-in-time view of the pipeline for status surfaces.
type Summary struct {
	Running   bool
	Counts    map[queue.Status]int
	LastError string
	Health    []stage.Health
}

// Status gathers queue statistics and stage health for the API and CLI.
func (m *Manager) Status(ctx context.Context) (Summary, error) {
	counts, err := m.store.Stats(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		Running: m.Running(),
		Counts:  counts,
		Health:  m.Health(ctx),
	}
	if err := m.LastError(); err != nil {
		summary.LastError = err.Error()
	}
	return summary, nil
}

// Health runs every stage's health check in pipeline order.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	results := make([]stage.Health, 0, len(m.stages))
	for _, st := range m.stages {
		results = append(results, st.handler.HealthCheck(ctx))
	}
	return results
}
