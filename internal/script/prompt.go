package script

import (
	"fmt"
	"strings"

	"echoai/internal/services"
)

const systemPrompt = `You write narration scripts for short-form vertical video.
Respond with JSON only, shaped as {"beats": ["...", "..."]} where each beat is
one spoken paragraph of one or two sentences. No emojis, no hashtags, no stage
directions. 5-6 beats total.`

var styleDirections = map[string]string{
	"viral_facts": `You're a viral TikTok creator making a %d-second video about: %s

Talk like you're texting your best friend. Use "like", "literally", "honestly"
naturally, add dramatic pauses with "...", and be slightly chaotic. Hook in the
first beat so they stop scrolling, vary your openings ("Okay but", "Nobody talks
about", "Tell me why", "So apparently"), build tension, land a twist or hot
take, and end with something that makes them want to comment. Roughly %d words
total. Sentence fragments are fine. Like this.`,

	"story_time": `You're a storyteller creating a %d-second narrative video about: %s

Set the scene immediately and paint a vivid picture. Vary your openings
("Picture this", "I'll never forget when", "Story time"). Build a clear arc:
setup, tension, revelation, then a satisfying ending or cliffhanger. Warm and
conversational, like telling a friend, with dramatic pauses via "...". Roughly
%d words total.`,

	"motivational": `You're a motivational speaker creating a %d-second empowering video about: %s

Start with power: a bold statement that demands attention. Vary your openings
("Real talk", "Here's the truth", "Stop"). Challenge limiting beliefs, layer in
truth bombs, land the core empowering message, and close with a clear
call-to-action. Short punchy sentences. Confident, not preachy. Roughly %d
words total.`,

	"educational": `You're an educator creating a %d-second informative video about: %s

Open with a clear promise of what they'll learn ("Quick lesson", "The science
behind", "Three things about"). Break concepts down step by step, make them
concrete with examples, and finish with the key takeaway. Simple precise
language, authoritative but not condescending. Roughly %d words total.`,
}

// buildPrompt resolves the user prompt for a style. Word budget follows the
// rough three-words-per-second speaking rate.
func buildPrompt(req Request) (string, error) {
	template, ok := styleDirections[strings.ToLower(strings.TrimSpace(req.Style))]
	if !ok {
		return "", services.Wrap(
			services.ErrValidation, "script", "build prompt",
			fmt.Sprintf("Unknown script style %q", req.Style), nil)
	}
	duration := req.DurationSeconds
	if duration <= 0 {
		duration = 25
	}
	return fmt.Sprintf(template, duration, req.Topic, duration*3), nil
}

// Styles lists the supported script styles.
func Styles() []string {
	return []string{"viral_facts", "story_time", "motivational", "educational"}
}
