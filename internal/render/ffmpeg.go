package render

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"echoai/internal/composition"
	"echoai/internal/config"
	"echoai/internal/services"
)

// Executor runs an external binary, returning combined output. Tests inject
// fakes; production uses os/exec.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.CombinedOutput()
}

// FFmpeg renders composition plans by shelling out to ffmpeg.
type FFmpeg struct {
	binary       string
	crf          int
	preset       string
	audioBitrate string
	exec         Executor
	lookPath     func(string) (string, error)
}

// Option customizes an FFmpeg backend.
type Option func(*FFmpeg)

// WithExecutor injects the process runner (used by tests).
func WithExecutor(exec Executor) Option {
	return func(f *FFmpeg) { f.exec = exec }
}

// WithLookPath overrides binary resolution (used by tests).
func WithLookPath(fn func(string) (string, error)) Option {
	return func(f *FFmpeg) { f.lookPath = fn }
}

// NewFFmpeg builds the render backend from configuration.
func NewFFmpeg(cfg config.Render, opts ...Option) *FFmpeg {
	f := &FFmpeg{
		binary:       strings.TrimSpace(cfg.FFmpegBinary),
		crf:          cfg.CRF,
		preset:       strings.TrimSpace(cfg.Preset),
		audioBitrate: strings.TrimSpace(cfg.AudioBitrate),
		exec:         commandExecutor{},
		lookPath:     exec.LookPath,
	}
	if f.binary == "" {
		f.binary = "ffmpeg"
	}
	if f.crf <= 0 {
		f.crf = 23
	}
	if f.preset == "" {
		f.preset = "medium"
	}
	if f.audioBitrate == "" {
		f.audioBitrate = "128k"
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name identifies the backend in logs and health output.
func (f *FFmpeg) Name() string { return "ffmpeg" }

// Available reports whether the ffmpeg binary resolves on PATH.
func (f *FFmpeg) Available(context.Context) bool {
	_, err := f.lookPath(f.binary)
	return err == nil
}

// Render executes ffmpeg for the plan, writing the finished video to
// outputPath. The caller owns verification and cleanup of the output.
func (f *FFmpeg) Render(ctx context.Context, plan composition.Plan, captionFile, outputPath string) error {
	args, err := buildArgs(plan, captionFile, outputPath, f.crf, f.preset, f.audioBitrate)
	if err != nil {
		return err
	}
	output, err := f.exec.Run(ctx, f.binary, args)
	if err != nil {
		return services.Wrap(services.ErrRenderFailed, "render", "ffmpeg",
			fmt.Sprintf("ffmpeg failed: %s", tail(string(output), 400)), err)
	}
	return nil
}

// buildArgs assembles the full ffmpeg invocation: one looping input per
// segment image plus the narration track, a filter graph that normalizes each
// image to the output geometry and chains transitions, optional subtitle
// burn-in, and the encode settings.
func buildArgs(plan composition.Plan, captionFile, outputPath string, crf int, preset, audioBitrate string) ([]string, error) {
	if len(plan.Segments) == 0 {
		return nil, services.Wrap(services.ErrValidation, "render", "build",
			"Plan has no segments", nil)
	}

	args := []string{"-y", "-nostdin"}
	for _, segment := range plan.Segments {
		args = append(args, "-i", segment.ImagePath)
	}
	args = append(args, "-i", plan.AudioPath)

	var filters []string
	for i, segment := range plan.Segments {
		filters = append(filters, fmt.Sprintf(
			"[%d:v]loop=loop=-1:size=1:start=0,"+
				"scale=%d:%d:force_original_aspect_ratio=decrease,"+
				"pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,setsar=1,"+
				"trim=duration=%s,setpts=PTS-STARTPTS[v%d]",
			i, plan.Geometry.Width, plan.Geometry.Height,
			plan.Geometry.Width, plan.Geometry.Height,
			formatSeconds(segment.End-segment.Start), i))
	}

	finalTag := "[v0]"
	if len(plan.Segments) > 1 {
		if plan.Segments[1].TransitionSeconds > 0 {
			// Chain xfade joins. Each join consumes the transition window, so
			// the accumulated stream length is the sum of segment durations
			// minus the windows already spent.
			accumulated := plan.Segments[0].End - plan.Segments[0].Start
			for i := 1; i < len(plan.Segments); i++ {
				segment := plan.Segments[i]
				window := segment.TransitionSeconds
				previous := fmt.Sprintf("[t%d]", i-2)
				if i == 1 {
					previous = "[v0]"
				}
				filters = append(filters, fmt.Sprintf(
					"%s[v%d]xfade=transition=%s:duration=%s:offset=%s[t%d]",
					previous, i, segment.TransitionIn,
					formatSeconds(window), formatSeconds(accumulated-window), i-1))
				accumulated += segment.End - segment.Start - window
			}
			finalTag = fmt.Sprintf("[t%d]", len(plan.Segments)-2)
		} else {
			var inputs strings.Builder
			for i := range plan.Segments {
				fmt.Fprintf(&inputs, "[v%d]", i)
			}
			filters = append(filters, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[vc]", inputs.String(), len(plan.Segments)))
			finalTag = "[vc]"
		}
	}

	if captionFile != "" {
		filters = append(filters, fmt.Sprintf("%sass=%s[v]", finalTag, escapeFilterPath(captionFile)))
	} else {
		filters = append(filters, finalTag+"copy[v]")
	}

	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", "[v]",
		"-map", fmt.Sprintf("%d:a", len(plan.Segments)),
		"-r", fmt.Sprintf("%d", plan.Geometry.FrameRate),
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", fmt.Sprintf("%d", crf),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", audioBitrate,
		"-t", formatSeconds(plan.TotalSeconds),
		outputPath,
	)
	return args, nil
}

func formatSeconds(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

// escapeFilterPath escapes the characters libavfilter treats specially inside
// filter option values.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, ":", `\:`)
	return strings.ReplaceAll(path, "'", `\'`)
}

func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return "…" + s[len(s)-limit:]
}
