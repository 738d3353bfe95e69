package composition

import (
	"fmt"
	"sort"
	"strings"

	"echoai/internal/services"
	"echoai/internal/storyboard"
)

// SegmentInstruction shows one image for a window of the output, entered
// through a resolved transition effect (empty for the opening segment).
type SegmentInstruction struct {
	ImagePath         string
	Start             float64
	End               float64
	TransitionIn      string
	TransitionSeconds float64
}

// CaptionInstruction displays one caption span with fully resolved styling.
type CaptionInstruction struct {
	Text      string
	Start     float64
	End       float64
	StyleName string
}

// Plan is the ordered, provider-agnostic instruction set for one render.
// It is recomputed per job and consumed exactly once.
type Plan struct {
	Geometry     Geometry
	AudioPath    string
	TotalSeconds float64
	CaptionStyle string
	Segments     []SegmentInstruction
	Captions     []CaptionInstruction
}

// Options selects the style knobs applied on top of the timeline.
type Options struct {
	Platform          string
	Transition        string
	CaptionStyle      string
	TransitionSeconds float64
}

// Validate fails fast with UnknownStyle when the transition or caption style
// is outside the supported set. Run this at submit time and again before
// planning.
func Validate(transition, captionStyle string) error {
	if !KnownTransition(transition) {
		return services.Wrap(services.ErrUnknownStyle, "composition", "validate",
			fmt.Sprintf("Unknown transition %q (supported: %s)", transition,
				strings.Join(SupportedTransitions(), ", ")), nil)
	}
	if !KnownCaptionStyle(captionStyle) {
		return services.Wrap(services.ErrUnknownStyle, "composition", "validate",
			fmt.Sprintf("Unknown caption style %q (supported: %s)", captionStyle,
				strings.Join(SupportedCaptionStyles(), ", ")), nil)
	}
	return nil
}

// Build resolves the timeline and style selections into a flat plan.
func Build(env storyboard.Envelope, opts Options) (Plan, error) {
	if err := Validate(opts.Transition, opts.CaptionStyle); err != nil {
		return Plan{}, err
	}
	if len(env.Timeline.Segments) == 0 {
		return Plan{}, services.Wrap(services.ErrValidation, "composition", "build",
			"Timeline has no segments; reconciliation must run first", nil)
	}
	if strings.TrimSpace(env.Audio.Path) == "" {
		return Plan{}, services.Wrap(services.ErrValidation, "composition", "build",
			"Storyboard has no narration audio", nil)
	}

	effect := transitions[strings.ToLower(strings.TrimSpace(opts.Transition))]
	captionStyle := strings.ToLower(strings.TrimSpace(opts.CaptionStyle))

	plan := Plan{
		Geometry:     GeometryFor(opts.Platform),
		AudioPath:    env.Audio.Path,
		TotalSeconds: env.Timeline.TotalSeconds,
		CaptionStyle: captionStyle,
		Segments:     make([]SegmentInstruction, 0, len(env.Timeline.Segments)),
	}

	for i, segment := range env.Timeline.Segments {
		if segment.ImageIndex < 0 || segment.ImageIndex >= len(env.Images) {
			return Plan{}, services.Wrap(services.ErrValidation, "composition", "build",
				fmt.Sprintf("Segment %d references missing image %d", i, segment.ImageIndex), nil)
		}
		instruction := SegmentInstruction{
			ImagePath: env.Images[segment.ImageIndex].Path,
			Start:     segment.Start,
			End:       segment.End,
		}
		if i > 0 {
			instruction.TransitionIn = effect
			instruction.TransitionSeconds = opts.TransitionSeconds
			if overlap := env.Timeline.Segments[i-1].End - segment.Start; overlap > 0 && overlap < instruction.TransitionSeconds {
				instruction.TransitionSeconds = overlap
			}
		}
		plan.Segments = append(plan.Segments, instruction)

		if captionStyle == CaptionNone {
			continue
		}
		for _, span := range segment.Captions {
			plan.Captions = append(plan.Captions, CaptionInstruction{
				Text:      span.Text,
				Start:     span.Start,
				End:       span.End,
				StyleName: captionStyleName(captionStyle, len(plan.Captions)),
			})
		}
	}
	sort.SliceStable(plan.Captions, func(i, j int) bool {
		return plan.Captions[i].Start < plan.Captions[j].Start
	})
	return plan, nil
}

// colorBoxPalette rotates per caption, matching the boxed highlight look.
var colorBoxPalette = []string{"Orange", "Pink", "Yellow", "Green"}

func captionStyleName(style string, index int) string {
	if style == CaptionColorBox {
		return colorBoxPalette[index%len(colorBoxPalette)]
	}
	return "Default"
}
