package services_test

import (
	"errors"
	"testing"

	"echoai/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrProviderExhausted, "voice-synthesis", "elevenlabs request", "all providers failed", base)
	if !errors.Is(err, services.ErrProviderExhausted) {
		t.Fatalf("expected ErrProviderExhausted marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
}

func TestDetailsClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   string
		detail string
	}{
		{
			name:   "unknown style",
			err:    services.Wrap(services.ErrUnknownStyle, "composition", "resolve transition", "spiral is not supported", nil),
			kind:   "unknown_style",
			detail: "composition: resolve transition: spiral is not supported",
		},
		{
			name:   "render failed",
			err:    services.Wrap(services.ErrRenderFailed, "rendering", "verify output", "file is empty", nil),
			kind:   "render_failed",
			detail: "rendering: verify output: file is empty",
		},
		{
			name:   "untagged",
			err:    errors.New("boom"),
			kind:   "transient",
			detail: "boom",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			details := services.Details(tc.err)
			if details.Kind != tc.kind {
				t.Fatalf("kind = %q, want %q", details.Kind, tc.kind)
			}
			if details.Message != tc.detail {
				t.Fatalf("message = %q, want %q", details.Message, tc.detail)
			}
		})
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "stage", "op", "message", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}
