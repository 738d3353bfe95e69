package deps

import (
	"path/filepath"
	"runtime"
	"strings"

	"echoai/internal/config"
)

// Requirements builds the external tool checklist for the current
// configuration. ffmpeg and ffprobe are always required; edge-tts is
// listed only when the voice provider chain includes it.
func Requirements(cfg *config.Config) []Requirement {
	ffmpeg := "ffmpeg"
	if cfg != nil && strings.TrimSpace(cfg.Render.FFmpegBinary) != "" {
		ffmpeg = strings.TrimSpace(cfg.Render.FFmpegBinary)
	}

	reqs := []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, Description: "Renders the final video"},
		{Name: "FFprobe", Command: ProbeBinary(ffmpeg), Description: "Verifies rendered output duration"},
	}

	if cfg != nil && hasProvider(cfg.Voice.Providers, "edge") {
		edge := strings.TrimSpace(cfg.Voice.EdgeBinary)
		if edge == "" {
			edge = "edge-tts"
		}
		reqs = append(reqs, Requirement{
			Name:        "edge-tts",
			Command:     edge,
			Description: "Fallback narration synthesis",
			Optional:    true,
		})
	}

	return reqs
}

// ProbeBinary derives the ffprobe command that pairs with an ffmpeg binary,
// preferring a sibling in the same directory when ffmpeg was given as a path.
func ProbeBinary(ffmpeg string) string {
	ffmpeg = strings.TrimSpace(ffmpeg)
	name := "ffprobe"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if ffmpeg == "" || !strings.ContainsRune(ffmpeg, filepath.Separator) {
		return name
	}
	return filepath.Join(filepath.Dir(ffmpeg), name)
}

func hasProvider(providers []string, name string) bool {
	for _, p := range providers {
		if strings.EqualFold(strings.TrimSpace(p), name) {
			return true
		}
	}
	return false
}
