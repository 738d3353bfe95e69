package config

import (
	"fmt"
	"path/filepath"
)

// JobStagingDir returns the job-scoped working directory. Every derived
// artifact for a job lives under this directory and is never shared.
func (p Paths) JobStagingDir(jobID int64) string {
	return filepath.Join(p.StagingDir, fmt.Sprintf("job-%d", jobID))
}

// VoiceUsagePath returns the location of the premium voice quota tracker.
func (p Paths) VoiceUsagePath() string {
	return filepath.Join(p.LogDir, "voice_usage.json")
}
