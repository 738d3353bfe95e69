package voice

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"echoai/internal/config"
	"echoai/internal/services"
	"echoai/internal/storyboard"
)

const defaultEdgeVoice = "en-US-GuyNeural"

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) error
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, tail(string(output), 300))
	}
	return nil
}

// Edge synthesizes narration with the local edge-tts executable, the free
// unlimited fallback behind the premium provider.
type Edge struct {
	binary     string
	voice      string
	transcode  Transcoder
	exec       Executor
	lookPath   func(string) (string, error)
	retryDelay time.Duration
}

// EdgeOption customizes the provider.
type EdgeOption func(*Edge)

// WithExecutor injects a custom executor (tests).
func WithExecutor(executor Executor) EdgeOption {
	return func(e *Edge) {
		if executor != nil {
			e.exec = executor
		}
	}
}

// WithEdgeTranscoder overrides audio normalization (tests).
func WithEdgeTranscoder(transcode Transcoder) EdgeOption {
	return func(e *Edge) {
		if transcode != nil {
			e.transcode = transcode
		}
	}
}

// WithRetryDelay overrides the backoff between synthesis attempts (tests).
func WithRetryDelay(delay time.Duration) EdgeOption {
	return func(e *Edge) {
		e.retryDelay = delay
	}
}

// WithLookPath overrides binary discovery (tests).
func WithLookPath(lookPath func(string) (string, error)) EdgeOption {
	return func(e *Edge) {
		if lookPath != nil {
			e.lookPath = lookPath
		}
	}
}

// NewEdge constructs the free fallback voice provider.
func NewEdge(cfg config.Voice, ffmpegBinary string, opts ...EdgeOption) *Edge {
	binary := strings.TrimSpace(cfg.EdgeBinary)
	if binary == "" {
		binary = "edge-tts"
	}
	voiceName := strings.TrimSpace(cfg.EdgeVoice)
	if voiceName == "" {
		voiceName = defaultEdgeVoice
	}
	provider := &Edge{
		binary:     binary,
		voice:      voiceName,
		transcode:  FFmpegTranscoder(ffmpegBinary),
		exec:       commandExecutor{},
		lookPath:   exec.LookPath,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// Name identifies the provider.
func (e *Edge) Name() string { return "edge" }

// Available reports whether the edge-tts binary is on PATH.
func (e *Edge) Available(context.Context) bool {
	_, err := e.lookPath(e.binary)
	return err == nil
}

// Synthesize runs edge-tts and normalizes its media output to PCM WAV.
// Transient synthesis failures are retried a few times before giving up.
func (e *Edge) Synthesize(ctx context.Context, text, destPath string) (storyboard.Audio, error) {
	media := destPath + ".media"
	defer os.Remove(media)

	args := []string{
		"--voice", e.voice,
		"--text", text,
		"--write-media", media,
	}
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := ctx.Err(); err != nil {
			return storyboard.Audio{}, err
		}
		lastErr = e.exec.Run(ctx, e.binary, args)
		if lastErr == nil {
			break
		}
		select {
		case <-ctx.Done():
			return storyboard.Audio{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * e.retryDelay):
		}
	}
	if lastErr != nil {
		return storyboard.Audio{}, services.Wrap(
			services.ErrExternalTool, "voice", "edge-tts",
			"edge-tts synthesis failed", lastErr)
	}

	if err := e.transcode(ctx, media, destPath); err != nil {
		return storyboard.Audio{}, err
	}
	duration, err := Duration(destPath)
	if err != nil {
		return storyboard.Audio{}, fmt.Errorf("edge-tts: measure duration: %w", err)
	}
	return storyboard.Audio{Path: destPath, DurationSeconds: duration}, nil
}
