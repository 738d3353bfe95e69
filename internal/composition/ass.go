package composition

import (
	"fmt"
	"strings"
)

const assHeader = `[Script Info]
Title: echoai captions
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
WrapStyle: 0
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
`

const assEvents = `
[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Text
`

// Style lines per caption mode. Bounce uses a heavy face with thick outline,
// color_box pairs white text with a rotating opaque box, karaoke uses the
// libass \k sweep between primary and secondary colours.
const (
	bounceStyle = "Style: Default,Arial Black,68,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,-1,0,0,0,100,100,0,0,1,4,2,2,120,120,320,1"

	karaokeStyle = "Style: Default,Arial,58,&H00FFFFFF,&H0000FFFF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,3,0,2,120,120,260,1"
)

var colorBoxStyles = []string{
	"Style: Orange,Arial Black,64,&H00FFFFFF,&H000000FF,&H00000000,&H0000A5FF,-1,0,0,0,100,100,0,0,3,0,0,5,40,40,40,1",
	"Style: Pink,Arial Black,64,&H00FFFFFF,&H000000FF,&H00000000,&HFF1493FF,-1,0,0,0,100,100,0,0,3,0,0,5,40,40,40,1",
	"Style: Yellow,Arial Black,64,&H00000000,&H000000FF,&H00000000,&H0000FFFF,-1,0,0,0,100,100,0,0,3,0,0,5,40,40,40,1",
	"Style: Green,Arial Black,64,&H00000000,&H000000FF,&H00000000,&H0000FF00,-1,0,0,0,100,100,0,0,3,0,0,5,40,40,40,1",
}

// RenderCaptions builds the ASS subtitle document for the plan. Returns an
// empty string when the caption style is none or no spans survived
// reconciliation.
func RenderCaptions(plan Plan) string {
	if plan.CaptionStyle == CaptionNone || len(plan.Captions) == 0 {
		return ""
	}

	var doc strings.Builder
	fmt.Fprintf(&doc, assHeader, plan.Geometry.Width, plan.Geometry.Height)
	switch plan.CaptionStyle {
	case CaptionColorBox:
		for _, style := range colorBoxStyles {
			doc.WriteString(style)
			doc.WriteByte('\n')
		}
	case CaptionKaraoke:
		doc.WriteString(karaokeStyle)
		doc.WriteByte('\n')
	default:
		doc.WriteString(bounceStyle)
		doc.WriteByte('\n')
	}
	doc.WriteString(assEvents)

	for _, caption := range plan.Captions {
		switch plan.CaptionStyle {
		case CaptionBounce:
			writeBounceEvents(&doc, caption)
		case CaptionColorBox:
			writeColorBoxEvent(&doc, caption, plan.Geometry)
		case CaptionKaraoke:
			writeKaraokeEvent(&doc, caption)
		}
	}
	return doc.String()
}

// writeBounceEvents emits one event per word: the full line stays on screen
// while the active word pops to 115% and flashes yellow.
func writeBounceEvents(doc *strings.Builder, caption CaptionInstruction) {
	words := strings.Fields(caption.Text)
	if len(words) == 0 {
		return
	}
	step := (caption.End - caption.Start) / float64(len(words))
	for i := range words {
		start := caption.Start + float64(i)*step
		end := start + step
		if i == len(words)-1 {
			end = caption.End
		}
		var line strings.Builder
		for j, word := range words {
			if j > 0 {
				line.WriteByte(' ')
			}
			if j == i {
				line.WriteString(`{\c&H00FFFF&}{\t(0,100,\fscx115\fscy115)}{\t(100,200,\fscx100\fscy100)}`)
				line.WriteString(escapeASS(word))
				line.WriteString(`{\c&HFFFFFF&}`)
			} else {
				line.WriteString(escapeASS(word))
			}
		}
		fmt.Fprintf(doc, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			assTimestamp(start), assTimestamp(end), line.String())
	}
}

// writeColorBoxEvent centers the boxed caption around the lower third. The
// box is the style's opaque BackColour; position is explicit so libass does
// not stack concurrent events.
func writeColorBoxEvent(doc *strings.Builder, caption CaptionInstruction, geometry Geometry) {
	text := strings.ToUpper(strings.TrimSpace(caption.Text))
	if text == "" {
		return
	}
	x := geometry.Width / 2
	y := geometry.Height * 3 / 4
	fmt.Fprintf(doc, "Dialogue: 0,%s,%s,%s,,0,0,0,,{\\an5\\pos(%d,%d)}%s\n",
		assTimestamp(caption.Start), assTimestamp(caption.End), caption.StyleName,
		x, y, escapeASS(text))
}

// writeKaraokeEvent sweeps the secondary colour across the line with \k tags,
// splitting the span's duration evenly per word in centiseconds.
func writeKaraokeEvent(doc *strings.Builder, caption CaptionInstruction) {
	words := strings.Fields(caption.Text)
	if len(words) == 0 {
		return
	}
	total := int((caption.End - caption.Start) * 100)
	if total < len(words) {
		total = len(words)
	}
	step := total / len(words)
	var line strings.Builder
	for i, word := range words {
		if i > 0 {
			line.WriteByte(' ')
		}
		duration := step
		if i == len(words)-1 {
			duration = total - step*(len(words)-1)
		}
		fmt.Fprintf(&line, "{\\k%d}%s", duration, escapeASS(word))
	}
	fmt.Fprintf(doc, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
		assTimestamp(caption.Start), assTimestamp(caption.End), line.String())
}

// assTimestamp formats seconds as H:MM:SS.cc.
func assTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int(seconds*100 + 0.5)
	return fmt.Sprintf("%d:%02d:%02d.%02d",
		centis/360000, centis/6000%60, centis/100%60, centis%100)
}

// escapeASS strips characters that would break dialogue lines.
func escapeASS(text string) string {
	text = strings.ReplaceAll(text, "{", "(")
	text = strings.ReplaceAll(text, "}", ")")
	return strings.ReplaceAll(text, "\n", " ")
}
