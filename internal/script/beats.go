package script

import (
	"strings"
	"unicode"

	"echoai/internal/storyboard"
)

// wordsPerSecond approximates conversational narration pace; beat estimates
// are placeholders refined against the measured audio duration later.
const wordsPerSecond = 2.6

// assembleBeats converts raw beat texts into storyboard beats with estimated
// speech durations, dropping empties after emoji stripping.
func assembleBeats(raw []string) []storyboard.Beat {
	beats := make([]storyboard.Beat, 0, len(raw))
	for _, text := range raw {
		text = strings.TrimSpace(stripEmoji(text))
		text = strings.Trim(text, `"`)
		if text == "" {
			continue
		}
		beats = append(beats, storyboard.Beat{
			Text:             text,
			EstimatedSeconds: estimateSeconds(text),
		})
	}
	return beats
}

// splitIntoBeats breaks free-form narration text into beats: blank-line
// paragraphs when present, otherwise sentence pairs.
func splitIntoBeats(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	paragraphs := make([]string, 0, 8)
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, strings.Join(strings.Fields(block), " "))
		}
	}
	if len(paragraphs) > 1 {
		return paragraphs
	}

	sentences := splitSentences(strings.Join(paragraphs, " "))
	beats := make([]string, 0, (len(sentences)+1)/2)
	for i := 0; i < len(sentences); i += 2 {
		beat := sentences[i]
		if i+1 < len(sentences) {
			beat += " " + sentences[i+1]
		}
		beats = append(beats, beat)
	}
	return beats
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(strings.TrimSpace(text))
	for i, r := range runes {
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// An ellipsis is a dramatic pause, not a sentence end.
		if r == '.' && i+1 < len(runes) && runes[i+1] == '.' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if sentence := strings.TrimSpace(current.String()); sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}
	if sentence := strings.TrimSpace(current.String()); sentence != "" {
		sentences = append(sentences, sentence)
	}
	return sentences
}

func estimateSeconds(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return float64(words) / wordsPerSecond
}

// stripEmoji removes non-BMP runes (emojis and pictographs) that break both
// TTS synthesis and caption rendering.
func stripEmoji(text string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return -1
		}
		return r
	}, text)
}
