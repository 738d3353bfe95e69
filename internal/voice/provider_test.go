package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"echoai/internal/config"
	"echoai/internal/services"
	"echoai/internal/storyboard"
)

type fakeSynth struct {
	name      string
	available bool
	err       error
	duration  float64
	calls     int
}

func (f *fakeSynth) Name() string                   { return f.name }
func (f *fakeSynth) Available(context.Context) bool { return f.available }
func (f *fakeSynth) Synthesize(_ context.Context, _, destPath string) (storyboard.Audio, error) {
	f.calls++
	if f.err != nil {
		return storyboard.Audio{}, f.err
	}
	return storyboard.Audio{Path: destPath, DurationSeconds: f.duration}, nil
}

func TestChainPremiumFailureFallsBackToFree(t *testing.T) {
	premium := &fakeSynth{name: "elevenlabs", available: true, err: errors.New("http 500")}
	free := &fakeSynth{name: "edge", available: true, duration: 24.7}

	chain := NewChain(nil, premium, free)
	audio, err := chain.Synthesize(context.Background(), "narration text", "/tmp/out.wav")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if audio.Provider != "edge" {
		t.Fatalf("expected edge to serve, got %q", audio.Provider)
	}
	if premium.calls != 1 {
		t.Fatalf("premium should be tried once, got %d", premium.calls)
	}
}

func TestChainExhaustedQuotaSkipsWithoutError(t *testing.T) {
	quotaOut := &fakeSynth{name: "elevenlabs", available: false}
	free := &fakeSynth{name: "edge", available: true, duration: 10}

	chain := NewChain(nil, quotaOut, free)
	audio, err := chain.Synthesize(context.Background(), "text", "/tmp/out.wav")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if quotaOut.calls != 0 {
		t.Fatal("unavailable provider must not be called")
	}
	if audio.Provider != "edge" {
		t.Fatalf("expected edge, got %q", audio.Provider)
	}
}

func TestChainExhaustionReturnsMarker(t *testing.T) {
	chain := NewChain(nil,
		&fakeSynth{name: "a", available: true, err: errors.New("down")},
		&fakeSynth{name: "b", available: true, err: errors.New("also down")},
	)
	_, err := chain.Synthesize(context.Background(), "text", "/tmp/out.wav")
	if !errors.Is(err, services.ErrProviderExhausted) {
		t.Fatalf("expected provider exhausted, got %v", err)
	}
}

func stubTranscoder(byteRate uint32, dataSize int) Transcoder {
	return func(_ context.Context, _, dst string) error {
		return os.WriteFile(dst, buildWAV(byteRate, dataSize), 0o644)
	}
}

func TestElevenLabsSynthesizesAndRecordsUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "el-key" {
			t.Errorf("missing api key header, got %q", got)
		}
		if want := "/v1/text-to-speech/voice-1"; r.URL.Path != want {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, "fake mp3 bytes")
	}))
	t.Cleanup(server.Close)

	usage := trackerAt(t, time.Now())
	provider := NewElevenLabs(
		config.Voice{ElevenLabsAPIKey: "el-key", ElevenLabsVoiceID: "voice-1", MonthlyQuota: 65},
		"ffmpeg",
		usage,
		WithElevenLabsBaseURL(server.URL),
		WithTranscoder(stubTranscoder(96000, 96000*25)),
	)

	dest := filepath.Join(t.TempDir(), "narration.wav")
	audio, err := provider.Synthesize(context.Background(), "hello world", dest)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if audio.DurationSeconds != 25 {
		t.Fatalf("expected 25s, got %v", audio.DurationSeconds)
	}
	if usage.Used() != 1 {
		t.Fatalf("expected usage recorded, got %d", usage.Used())
	}
}

func TestElevenLabsUnavailableWhenQuotaExhausted(t *testing.T) {
	usage := trackerAt(t, time.Now())
	for i := 0; i < 2; i++ {
		if err := usage.Record(); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	provider := NewElevenLabs(
		config.Voice{ElevenLabsAPIKey: "el-key", ElevenLabsVoiceID: "v", MonthlyQuota: 2},
		"ffmpeg", usage,
	)
	if provider.Available(context.Background()) {
		t.Fatal("exhausted quota must report unavailable")
	}
}

func TestElevenLabsHTTPFailureDoesNotConsumeQuota(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded upstream", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	usage := trackerAt(t, time.Now())
	provider := NewElevenLabs(
		config.Voice{ElevenLabsAPIKey: "el-key", ElevenLabsVoiceID: "v"},
		"ffmpeg", usage,
		WithElevenLabsBaseURL(server.URL),
	)
	_, err := provider.Synthesize(context.Background(), "text", filepath.Join(t.TempDir(), "n.wav"))
	if err == nil {
		t.Fatal("expected error")
	}
	if usage.Used() != 0 {
		t.Fatalf("failed call must not count against quota, got %d", usage.Used())
	}
}

type fakeExecutor struct {
	failures int
	calls    int
	media    []byte
}

func (f *fakeExecutor) Run(_ context.Context, _ string, args []string) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("synthesis glitch")
	}
	// The last --write-media argument names the output file.
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "--write-media" {
			return os.WriteFile(args[i+1], f.media, 0o644)
		}
	}
	return fmt.Errorf("no --write-media argument in %v", args)
}

func TestEdgeRetriesThenSucceeds(t *testing.T) {
	executor := &fakeExecutor{failures: 2, media: []byte("mp3")}
	provider := NewEdge(
		config.Voice{EdgeBinary: "edge-tts"},
		"ffmpeg",
		WithExecutor(executor),
		WithEdgeTranscoder(stubTranscoder(96000, 96000*10)),
		WithLookPath(func(string) (string, error) { return "/usr/bin/edge-tts", nil }),
		WithRetryDelay(time.Millisecond),
	)

	audio, err := provider.Synthesize(context.Background(), "text", filepath.Join(t.TempDir(), "n.wav"))
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if executor.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", executor.calls)
	}
	if audio.DurationSeconds != 10 {
		t.Fatalf("expected 10s, got %v", audio.DurationSeconds)
	}
}

func TestEdgeGivesUpAfterRetries(t *testing.T) {
	executor := &fakeExecutor{failures: 10}
	provider := NewEdge(
		config.Voice{},
		"ffmpeg",
		WithExecutor(executor),
		WithLookPath(func(string) (string, error) { return "/usr/bin/edge-tts", nil }),
		WithRetryDelay(time.Millisecond),
	)
	_, err := provider.Synthesize(context.Background(), "text", filepath.Join(t.TempDir(), "n.wav"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestEdgeUnavailableWithoutBinary(t *testing.T) {
	provider := NewEdge(config.Voice{}, "ffmpeg",
		WithLookPath(func(string) (string, error) { return "", errors.New("not found") }))
	if provider.Available(context.Background()) {
		t.Fatal("missing binary must report unavailable")
	}
}
