package render

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"echoai/internal/services"
)

// Prober measures the duration of a finished media file in seconds.
type Prober func(ctx context.Context, path string) (float64, error)

// FFprobeProber measures durations with ffprobe. The binary is resolved next
// to the configured ffmpeg binary so both tools come from the same install.
func FFprobeProber(ffmpegBinary string, exec Executor) Prober {
	binary := probeBinaryFor(ffmpegBinary)
	if exec == nil {
		exec = commandExecutor{}
	}
	return func(ctx context.Context, path string) (float64, error) {
		output, err := exec.Run(ctx, binary, []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		})
		if err != nil {
			return 0, services.Wrap(services.ErrExternalTool, "render", "ffprobe",
				fmt.Sprintf("ffprobe failed: %s", tail(string(output), 200)), err)
		}
		duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
		if err != nil {
			return 0, services.Wrap(services.ErrExternalTool, "render", "ffprobe",
				fmt.Sprintf("unparseable ffprobe output %q", strings.TrimSpace(string(output))), err)
		}
		return duration, nil
	}
}

func probeBinaryFor(ffmpegBinary string) string {
	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	if ffmpegBinary == "" || ffmpegBinary == "ffmpeg" {
		return "ffprobe"
	}
	dir, name := filepath.Split(ffmpegBinary)
	if strings.Contains(name, "ffmpeg") {
		return filepath.Join(dir, strings.Replace(name, "ffmpeg", "ffprobe", 1))
	}
	return "ffprobe"
}
