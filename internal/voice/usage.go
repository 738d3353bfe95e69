package voice

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// UsageTracker counts premium synthesis calls per calendar month so the quota
// guard can declare the provider unavailable instead of burning failed calls.
type UsageTracker struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

type usageRecord struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// NewUsageTracker stores usage state in the given file.
func NewUsageTracker(path string) *UsageTracker {
	return &UsageTracker{path: path, now: time.Now}
}

func (t *UsageTracker) load() usageRecord {
	current := t.now().Format("2006-01")
	raw, err := os.ReadFile(t.path)
	if err != nil {
		return usageRecord{Month: current}
	}
	var record usageRecord
	if err := json.Unmarshal(raw, &record); err != nil || record.Month != current {
		// Corrupt file or month rollover: start fresh.
		return usageRecord{Month: current}
	}
	return record
}

// Used returns the count of premium calls this month.
func (t *UsageTracker) Used() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load().Count
}

// WithinQuota reports whether another premium call fits the monthly quota.
func (t *UsageTracker) WithinQuota(quota int) bool {
	if quota <= 0 {
		return true
	}
	return t.Used() < quota
}

// Record increments the counter after a successful premium call.
func (t *UsageTracker) Record() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	record := t.load()
	record.Count++
	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(t.path, raw, 0o644)
}
