package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"echoai/internal/composition"
	"echoai/internal/config"
	"echoai/internal/services"
)

func testPlan(transitionSeconds float64) composition.Plan {
	plan := composition.Plan{
		Geometry:     composition.GeometryFor("tiktok"),
		AudioPath:    "/tmp/narration.wav",
		TotalSeconds: 12,
		Segments: []composition.SegmentInstruction{
			{ImagePath: "/tmp/a.jpg", Start: 0, End: 6.25},
			{ImagePath: "/tmp/b.jpg", Start: 5.75, End: 12, TransitionIn: "fade", TransitionSeconds: transitionSeconds},
		},
	}
	return plan
}

func TestBuildArgsXfadeChain(t *testing.T) {
	args, err := buildArgs(testPlan(0.5), "", "/tmp/out.mp4", 23, "medium", "128k")
	if err != nil {
		t.Fatalf("buildArgs failed: %v", err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-i /tmp/a.jpg -i /tmp/b.jpg -i /tmp/narration.wav") {
		t.Fatalf("inputs out of order: %s", joined)
	}
	filter := argValue(t, args, "-filter_complex")
	if !strings.Contains(filter, "scale=1080:1920:force_original_aspect_ratio=decrease") {
		t.Fatalf("missing scale filter: %s", filter)
	}
	// Offset is the first clip's length minus the transition window.
	if !strings.Contains(filter, "xfade=transition=fade:duration=0.5:offset=5.75") {
		t.Fatalf("unexpected xfade clause: %s", filter)
	}
	if !strings.Contains(joined, "-map [v] -map 2:a") {
		t.Fatalf("audio not mapped from last input: %s", joined)
	}
	if !strings.Contains(joined, "-t 12") {
		t.Fatalf("output not clamped to narration duration: %s", joined)
	}
}

func TestBuildArgsConcatWhenNoTransitionWindow(t *testing.T) {
	args, err := buildArgs(testPlan(0), "", "/tmp/out.mp4", 23, "medium", "128k")
	if err != nil {
		t.Fatalf("buildArgs failed: %v", err)
	}
	filter := argValue(t, args, "-filter_complex")
	if !strings.Contains(filter, "concat=n=2:v=1:a=0") {
		t.Fatalf("expected concat fallback: %s", filter)
	}
	if strings.Contains(filter, "xfade") {
		t.Fatalf("unexpected xfade without transition window: %s", filter)
	}
}

func TestBuildArgsBurnsCaptionFile(t *testing.T) {
	args, err := buildArgs(testPlan(0.5), "/tmp/job/captions.ass", "/tmp/out.mp4", 23, "medium", "128k")
	if err != nil {
		t.Fatalf("buildArgs failed: %v", err)
	}
	filter := argValue(t, args, "-filter_complex")
	if !strings.Contains(filter, "ass=/tmp/job/captions.ass[v]") {
		t.Fatalf("caption burn-in missing: %s", filter)
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`C:\videos\captions.ass`)
	if got != `C\:\\videos\\captions.ass` {
		t.Fatalf("unexpected escape: %s", got)
	}
}

type fakeExecutor struct {
	calls  [][]string
	output []byte
	err    error
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{binary}, args...))
	return f.output, f.err
}

func TestFFmpegRenderWrapsFailure(t *testing.T) {
	exec := &fakeExecutor{output: []byte("boom"), err: errors.New("exit status 1")}
	backend := NewFFmpeg(config.Render{}, WithExecutor(exec))
	err := backend.Render(context.Background(), testPlan(0.5), "", "/tmp/out.mp4")
	if !errors.Is(err, services.ErrRenderFailed) {
		t.Fatalf("expected ErrRenderFailed, got %v", err)
	}
	if len(exec.calls) != 1 || exec.calls[0][0] != "ffmpeg" {
		t.Fatalf("unexpected invocation: %v", exec.calls)
	}
}

func TestFFprobeProberParsesDuration(t *testing.T) {
	exec := &fakeExecutor{output: []byte("12.04\n")}
	probe := FFprobeProber("/usr/local/bin/ffmpeg", exec)
	got, err := probe(context.Background(), "/tmp/out.mp4")
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if got != 12.04 {
		t.Fatalf("duration = %v, want 12.04", got)
	}
	if exec.calls[0][0] != "/usr/local/bin/ffprobe" {
		t.Fatalf("ffprobe should resolve next to ffmpeg, got %s", exec.calls[0][0])
	}
}

func TestProbeBinaryForDefaults(t *testing.T) {
	if got := probeBinaryFor(""); got != "ffprobe" {
		t.Fatalf("empty binary: %s", got)
	}
	if got := probeBinaryFor("ffmpeg"); got != "ffprobe" {
		t.Fatalf("bare ffmpeg: %s", got)
	}
}

func argValue(t *testing.T, args []string, flag string) string {
	t.Helper()
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
	return ""
}
