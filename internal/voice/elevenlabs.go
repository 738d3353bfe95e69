package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"echoai/internal/config"
	"echoai/internal/storyboard"
)

const (
	defaultElevenLabsURL = "https://api.elevenlabs.io"
	elevenLabsModel      = "eleven_multilingual_v2"
	defaultVoiceTimeout  = 60 * time.Second
	elevenLabsStability  = 0.5
	elevenLabsSimilarity = 0.75
)

// ElevenLabs synthesizes narration through the ElevenLabs HTTP API. Calls are
// counted against a monthly quota; an exhausted quota makes the provider
// report unavailable so the chain falls through without an error.
type ElevenLabs struct {
	apiKey     string
	voiceID    string
	quota      int
	baseURL    string
	httpClient *http.Client
	usage      *UsageTracker
	transcode  Transcoder
}

// ElevenLabsOption customizes the provider.
type ElevenLabsOption func(*ElevenLabs)

// WithElevenLabsBaseURL points the provider at a different endpoint (tests).
func WithElevenLabsBaseURL(baseURL string) ElevenLabsOption {
	return func(e *ElevenLabs) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			e.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithTranscoder overrides audio normalization (tests).
func WithTranscoder(transcode Transcoder) ElevenLabsOption {
	return func(e *ElevenLabs) {
		if transcode != nil {
			e.transcode = transcode
		}
	}
}

// NewElevenLabs constructs the premium voice provider.
func NewElevenLabs(cfg config.Voice, ffmpegBinary string, usage *UsageTracker, opts ...ElevenLabsOption) *ElevenLabs {
	timeout := defaultVoiceTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	provider := &ElevenLabs{
		apiKey:     strings.TrimSpace(cfg.ElevenLabsAPIKey),
		voiceID:    strings.TrimSpace(cfg.ElevenLabsVoiceID),
		quota:      cfg.MonthlyQuota,
		baseURL:    defaultElevenLabsURL,
		httpClient: &http.Client{Timeout: timeout},
		usage:      usage,
		transcode:  FFmpegTranscoder(ffmpegBinary),
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// Name identifies the provider.
func (e *ElevenLabs) Name() string { return "elevenlabs" }

// Available reports whether the key is configured and the quota has headroom.
func (e *ElevenLabs) Available(context.Context) bool {
	if e.apiKey == "" || e.voiceID == "" {
		return false
	}
	if e.usage != nil && !e.usage.WithinQuota(e.quota) {
		return false
	}
	return true
}

// Synthesize posts the narration text and normalizes the response to PCM WAV.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, destPath string) (storyboard.Audio, error) {
	payload := map[string]any{
		"text":     text,
		"model_id": elevenLabsModel,
		"voice_settings": map[string]float64{
			"stability":        elevenLabsStability,
			"similarity_boost": elevenLabsSimilarity,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return storyboard.Audio{}, fmt.Errorf("elevenlabs request: encode body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", e.baseURL, e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return storyboard.Audio{}, fmt.Errorf("elevenlabs request: new request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return storyboard.Audio{}, fmt.Errorf("elevenlabs request: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return storyboard.Audio{}, fmt.Errorf("elevenlabs request: http %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	raw := destPath + ".raw"
	out, err := os.Create(raw)
	if err != nil {
		return storyboard.Audio{}, fmt.Errorf("elevenlabs: create temp file: %w", err)
	}
	_, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(raw)
		return storyboard.Audio{}, fmt.Errorf("elevenlabs: write audio: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(raw)
		return storyboard.Audio{}, fmt.Errorf("elevenlabs: close audio: %w", closeErr)
	}
	defer os.Remove(raw)

	// The API returns MP3 by default; normalize to PCM WAV for measurement.
	if err := e.transcode(ctx, raw, destPath); err != nil {
		return storyboard.Audio{}, err
	}
	duration, err := Duration(destPath)
	if err != nil {
		return storyboard.Audio{}, fmt.Errorf("elevenlabs: measure duration: %w", err)
	}
	if e.usage != nil {
		if err := e.usage.Record(); err != nil {
			return storyboard.Audio{}, fmt.Errorf("elevenlabs: record quota usage: %w", err)
		}
	}
	return storyboard.Audio{Path: destPath, DurationSeconds: duration}, nil
}
