package composition

import (
	"sort"
	"strings"
)

// Geometry is the output raster for a platform.
type Geometry struct {
	Width     int
	Height    int
	FrameRate int
}

// Short-form vertical is 9:16 across every supported platform today; the
// table keeps the lookup explicit so a landscape platform slots in cleanly.
var platformGeometry = map[string]Geometry{
	"tiktok":    {Width: 1080, Height: 1920, FrameRate: 30},
	"youtube":   {Width: 1080, Height: 1920, FrameRate: 30},
	"instagram": {Width: 1080, Height: 1920, FrameRate: 30},
	"other":     {Width: 1080, Height: 1920, FrameRate: 30},
}

// transitions maps the public transition names onto ffmpeg xfade effects.
var transitions = map[string]string{
	"fade":        "fade",
	"slideright":  "slideright",
	"slideleft":   "slideleft",
	"wiperight":   "wiperight",
	"wipeleft":    "wipeleft",
	"dissolve":    "dissolve",
	"circleopen":  "circleopen",
	"circleclose": "circleclose",
}

const (
	CaptionNone     = "none"
	CaptionBounce   = "bounce"
	CaptionColorBox = "color_box"
	CaptionKaraoke  = "karaoke"
)

var captionStyles = map[string]struct{}{
	CaptionNone:     {},
	CaptionBounce:   {},
	CaptionColorBox: {},
	CaptionKaraoke:  {},
}

// SupportedTransitions lists the valid transition names, sorted.
func SupportedTransitions() []string {
	names := make([]string, 0, len(transitions))
	for name := range transitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SupportedCaptionStyles lists the valid caption style names, sorted.
func SupportedCaptionStyles() []string {
	names := make([]string, 0, len(captionStyles))
	for name := range captionStyles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KnownTransition reports whether name is a supported transition.
func KnownTransition(name string) bool {
	_, ok := transitions[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// KnownCaptionStyle reports whether name is a supported caption style.
func KnownCaptionStyle(name string) bool {
	_, ok := captionStyles[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// CaptionCrossesBoundaries reports whether the style's spans may straddle
// image-segment boundaries. Karaoke is the only style that highlights through
// a visual cut.
func CaptionCrossesBoundaries(name string) bool {
	return strings.ToLower(strings.TrimSpace(name)) == CaptionKaraoke
}

// GeometryFor resolves the output raster for a platform, defaulting to the
// generic vertical profile for unrecognized names.
func GeometryFor(platform string) Geometry {
	if geometry, ok := platformGeometry[strings.ToLower(strings.TrimSpace(platform))]; ok {
		return geometry
	}
	return platformGeometry["other"]
}
