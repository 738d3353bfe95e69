package storyboard

import (
	"encoding/json"
	"slices"
	"strings"
)

// Envelope captures the structured payload shared between the script, voice,
// image, reconciliation, and composition stages. It is serialized onto the
// job record so later stages (and restarts) can pick up earlier artifacts.
type Envelope struct {
	Script   Script   `json:"script"`
	Audio    Audio    `json:"audio"`
	Images   []Image  `json:"images,omitempty"`
	Timeline Timeline `json:"timeline"`
}

// Beat is one narration line with its estimated speech duration. Estimates are
// placeholders until synthesis measures the real narration length.
type Beat struct {
	Text             string  `json:"text"`
	EstimatedSeconds float64 `json:"estimated_seconds"`
}

// Script is the ordered sequence of narration beats for one job.
type Script struct {
	Topic    string `json:"topic"`
	Style    string `json:"style"`
	Provider string `json:"provider"`
	Beats    []Beat `json:"beats"`
}

// Narration joins the beats into the full text handed to voice synthesis.
func (s *Script) Narration() string {
	if s == nil {
		return ""
	}
	parts := make([]string, 0, len(s.Beats))
	for _, beat := range s.Beats {
		if text := strings.TrimSpace(beat.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// EstimatedSeconds sums the per-beat speech estimates.
func (s *Script) EstimatedSeconds() float64 {
	if s == nil {
		return 0
	}
	var total float64
	for _, beat := range s.Beats {
		total += beat.EstimatedSeconds
	}
	return total
}

// Audio is the synthesized narration track with its measured duration.
type Audio struct {
	Path            string  `json:"path"`
	DurationSeconds float64 `json:"duration_seconds"`
	Provider        string  `json:"provider"`
}

// Image is one sourced visual. Order within the envelope defines visual beats.
type Image struct {
	Path     string `json:"path"`
	Provider string `json:"provider"`
	Stored   bool   `json:"stored,omitempty"`
}

// CaptionSpan is one caption with its display window in seconds.
type CaptionSpan struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment maps one image onto a slice of the narration timeline.
type Segment struct {
	ImageIndex   int           `json:"image_index"`
	Start        float64       `json:"start"`
	End          float64       `json:"end"`
	TransitionIn string        `json:"transition_in,omitempty"`
	Captions     []CaptionSpan `json:"captions,omitempty"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Timeline is the reconciled mapping of images and captions onto the
// narration's measured duration.
type Timeline struct {
	Segments     []Segment `json:"segments"`
	TotalSeconds float64   `json:"total_seconds"`
	CaptionFile  string    `json:"caption_file,omitempty"`
}

// Parse loads a storyboard from JSON, returning an empty envelope on blank input.
func Parse(raw string) (Envelope, error) {
	var env Envelope
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return env, nil
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Envelope{}, err
	}
	env.Images = slices.Clone(env.Images)
	return env, nil
}

// Encode serializes the envelope to JSON.
func (e Envelope) Encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
