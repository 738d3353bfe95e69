package timeline

import (
	"fmt"
	"math"
	"strings"

	"echoai/internal/config"
	"echoai/internal/services"
	"echoai/internal/storyboard"
)

// Request carries the reconciler inputs for one job.
type Request struct {
	Script     storyboard.Script
	Audio      storyboard.Audio
	ImageCount int
	Style      string
	// AllowCaptionCrossing permits caption spans to cross segment boundaries
	// (the karaoke style); all other styles clip spans at boundaries.
	AllowCaptionCrossing bool
}

// Reconciler aligns narration, images, and captions into one timeline.
type Reconciler struct {
	timing config.Timing
}

// New constructs a reconciler with the configured timing parameters.
func New(timing config.Timing) *Reconciler {
	return &Reconciler{timing: timing}
}

// floorFor resolves the style-dependent minimum per-image display duration.
func (r *Reconciler) floorFor(style string) float64 {
	if floor, ok := r.timing.MinImageSeconds[strings.ToLower(strings.TrimSpace(style))]; ok && floor > 0 {
		return floor
	}
	if r.timing.DefaultMinImageSeconds > 0 {
		return r.timing.DefaultMinImageSeconds
	}
	return 1.5
}

// Reconcile distributes the measured narration duration across the image
// sequence proportionally to script-beat length, enforcing the per-style
// display floor by reducing the image count when needed (never extending
// narration). Transition overlap is applied symmetrically around each
// boundary so the total duration is unchanged.
func (r *Reconciler) Reconcile(req Request) (storyboard.Timeline, error) {
	total := req.Audio.DurationSeconds
	if total <= 0 {
		return storyboard.Timeline{}, services.Wrap(services.ErrValidation, "timeline", "reconcile",
			"Narration duration must be positive", nil)
	}
	if req.ImageCount <= 0 {
		return storyboard.Timeline{}, services.Wrap(services.ErrValidation, "timeline", "reconcile",
			"At least one image is required", nil)
	}
	if len(req.Script.Beats) == 0 {
		return storyboard.Timeline{}, services.Wrap(services.ErrValidation, "timeline", "reconcile",
			"Script has no beats", nil)
	}

	floor := r.floorFor(req.Style)
	count := req.ImageCount
	if float64(count)*floor > total {
		count = int(total / floor)
	}
	if count <= 0 {
		return storyboard.Timeline{}, services.Wrap(services.ErrTimingInfeasible, "timeline", "reconcile",
			fmt.Sprintf("Narration of %.1fs cannot fit one image at the %.1fs display floor", total, floor),
			nil)
	}

	durations := r.allocate(req.Script.Beats, count, total, floor)
	segments := make([]storyboard.Segment, count)
	cursor := 0.0
	for i := range segments {
		segments[i] = storyboard.Segment{
			ImageIndex: i,
			Start:      cursor,
			End:        cursor + durations[i],
		}
		cursor += durations[i]
	}
	// Absorb float drift in the last segment so the timeline lands exactly on
	// the narration duration.
	segments[count-1].End = total

	r.applyTransitionOverlap(segments)
	r.attachCaptions(segments, req.Script.Beats, total, req.AllowCaptionCrossing)

	return storyboard.Timeline{Segments: segments, TotalSeconds: total}, nil
}

// allocate splits total across count segments proportionally to the speech
// weight of the beats each segment covers, then lifts below-floor segments to
// the floor, taking the difference from segments with headroom.
func (r *Reconciler) allocate(beats []storyboard.Beat, count int, total, floor float64) []float64 {
	weights := make([]float64, count)
	var weightSum float64
	for i := 0; i < count; i++ {
		for _, beat := range beatsForSegment(beats, i, count) {
			weight := beat.EstimatedSeconds
			if weight <= 0 {
				weight = 1
			}
			weights[i] += weight
		}
		if weights[i] <= 0 {
			weights[i] = 1
		}
		weightSum += weights[i]
	}

	durations := make([]float64, count)
	for i := range durations {
		durations[i] = total * weights[i] / weightSum
	}

	// Lift below-floor segments; the caller guarantees count*floor <= total,
	// so redistribution always converges.
	for iterations := 0; iterations < count; iterations++ {
		var deficit, headroom float64
		for _, d := range durations {
			if d < floor {
				deficit += floor - d
			} else {
				headroom += d - floor
			}
		}
		if deficit < 1e-9 {
			break
		}
		scale := (headroom - deficit) / headroom
		for i, d := range durations {
			if d < floor {
				durations[i] = floor
			} else {
				durations[i] = floor + (d-floor)*scale
			}
		}
	}
	return durations
}

// beatsForSegment partitions the beat list into count contiguous groups.
func beatsForSegment(beats []storyboard.Beat, index, count int) []storyboard.Beat {
	n := len(beats)
	start := index * n / count
	end := (index + 1) * n / count
	if end <= start {
		if start >= n {
			return nil
		}
		end = start + 1
	}
	return beats[start:end]
}

// applyTransitionOverlap centers the configured transition window on each
// boundary by extending the outgoing segment and pulling the incoming segment
// back symmetrically. Totals never change; the overlap is clamped so neither
// neighbor is consumed entirely.
func (r *Reconciler) applyTransitionOverlap(segments []storyboard.Segment) {
	overlap := r.timing.TransitionSeconds
	if overlap <= 0 || len(segments) < 2 {
		return
	}
	for i := 1; i < len(segments); i++ {
		window := overlap
		if limit := math.Min(segments[i-1].Duration(), segments[i].Duration()) / 2; window > limit {
			window = limit
		}
		boundary := segments[i].Start
		segments[i-1].End = boundary + window/2
		segments[i].Start = boundary - window/2
	}
}

// attachCaptions derives caption spans from beat boundaries scaled onto the
// measured duration, then assigns each span to the segment containing its
// start. Unless crossing is allowed, spans are clipped at the segment end.
func (r *Reconciler) attachCaptions(segments []storyboard.Segment, beats []storyboard.Beat, total float64, allowCrossing bool) {
	var estimateSum float64
	for _, beat := range beats {
		if beat.EstimatedSeconds > 0 {
			estimateSum += beat.EstimatedSeconds
		} else {
			estimateSum += 1
		}
	}

	cursor := 0.0
	for _, beat := range beats {
		weight := beat.EstimatedSeconds
		if weight <= 0 {
			weight = 1
		}
		span := storyboard.CaptionSpan{
			Text:  beat.Text,
			Start: cursor,
			End:   cursor + total*weight/estimateSum,
		}
		cursor = span.End

		owner := segmentAt(segments, span.Start)
		if owner < 0 {
			continue
		}
		if !allowCrossing {
			// Boundaries here are the visual cut points, not the overlap
			// windows, so clip against the next segment's start.
			if owner+1 < len(segments) && span.End > segments[owner+1].Start {
				span.End = segments[owner+1].Start
			}
			if span.End > segments[owner].End {
				span.End = segments[owner].End
			}
		}
		if span.End-span.Start > 1e-9 {
			segments[owner].Captions = append(segments[owner].Captions, span)
		}
	}
}

func segmentAt(segments []storyboard.Segment, at float64) int {
	for i := len(segments) - 1; i >= 0; i-- {
		if at >= segments[i].Start-1e-9 {
			return i
		}
	}
	return -1
}
