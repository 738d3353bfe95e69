package visuals

import (
	"regexp"
	"sort"
	"strings"
)

// Generic fallback keywords when the script yields nothing usable.
var fallbackKeywords = []string{
	"lifestyle", "smartphone", "people", "modern life", "urban", "daily routine",
}

var wordPattern = regexp.MustCompile(`[a-zA-Z]{4,}`)

var stopwords = map[string]struct{}{
	"that": {}, "this": {}, "with": {}, "from": {}, "they": {}, "their": {},
	"have": {}, "there": {}, "about": {}, "would": {}, "could": {}, "people": {},
	"because": {}, "which": {}, "when": {}, "just": {}, "know": {}, "ever": {},
	"those": {}, "thing": {}, "right": {}, "what": {}, "your": {}, "some": {},
	"been": {}, "like": {}, "were": {}, "said": {}, "each": {}, "them": {},
	"than": {}, "many": {}, "more": {}, "make": {}, "made": {}, "then": {},
	"into": {}, "only": {}, "other": {}, "also": {}, "these": {}, "tell": {},
	"gets": {}, "gives": {}, "kind": {}, "happen": {}, "youll": {}, "youre": {},
	"never": {}, "believe": {}, "literally": {}, "honestly": {},
}

// extractKeywords pulls the most frequent meaningful words from narration
// text, topping up with generic defaults when the script is too sparse.
func extractKeywords(text string, max int) []string {
	if max <= 0 {
		max = 6
	}
	text = strings.NewReplacer(`"`, "", "'", "").Replace(text)

	counts := make(map[string]int)
	order := make(map[string]int)
	for i, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, skip := stopwords[word]; skip {
			continue
		}
		counts[word]++
		if _, seen := order[word]; !seen {
			order[word] = i
		}
	}

	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}
	// Most frequent first; first appearance breaks ties deterministically.
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return order[words[i]] < order[words[j]]
	})
	if len(words) > max {
		words = words[:max]
	}

	for _, extra := range []string{"lifestyle", "moment", "daily", "experience"} {
		if len(words) >= max {
			break
		}
		duplicate := false
		for _, existing := range words {
			if existing == extra {
				duplicate = true
				break
			}
		}
		if !duplicate {
			words = append(words, extra)
		}
	}
	return words
}
