// Package keywords holds the local, deterministic transcript heuristics
// used around the keyword-extraction collaborator: the input budget applied
// before calling it, and a frequency fallback for when the collaborator
// answers with something unusable.
package keywords

import (
	"regexp"
	"sort"
	"strings"
)

// TranscriptBudget bounds the caption text sent to the extraction
// collaborator so requests stay within its input limits.
const TranscriptBudget = 4000

var reWord = regexp.MustCompile(`[a-zA-Z][a-zA-Z'-]+`)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "that": {}, "this": {}, "with": {},
	"you": {}, "your": {}, "our": {}, "are": {}, "was": {}, "were": {},
	"have": {}, "has": {}, "had": {}, "not": {}, "but": {}, "all": {},
	"they": {}, "them": {}, "their": {}, "there": {}, "here": {}, "what": {},
	"when": {}, "where": {}, "how": {}, "why": {}, "who": {}, "will": {},
	"would": {}, "can": {}, "could": {}, "should": {}, "just": {}, "like": {},
	"about": {}, "into": {}, "from": {}, "then": {}, "than": {}, "some": {},
	"very": {}, "really": {}, "going": {}, "been": {}, "because": {},
	"which": {}, "also": {}, "more": {}, "out": {}, "now": {}, "get": {},
	"one": {}, "two": {}, "make": {}, "want": {}, "know": {}, "think": {},
	"see": {}, "say": {}, "said": {}, "well": {}, "okay": {}, "yeah": {},
	"don't": {}, "it's": {}, "that's": {}, "we're": {}, "i'm": {},
}

// Truncate cuts text to at most budget characters at a word boundary.
func Truncate(text string, budget int) string {
	text = strings.TrimSpace(text)
	if budget <= 0 || len(text) <= budget {
		return text
	}
	cut := text[:budget]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

// Candidates returns up to n frequency-ranked content words from the
// transcript, lowercased, stopwords removed. Deterministic on purpose:
// ties break alphabetically so the fallback never flip-flops between runs.
func Candidates(text string, n int) []string {
	if n <= 0 {
		return nil
	}

	counts := map[string]int{}
	for _, w := range reWord.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 3 {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		counts[w]++
	}
	if len(counts) == 0 {
		return nil
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		a, b := words[i], words[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		// Longer words tend to be more searchable subjects.
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	if len(words) > n {
		words = words[:n]
	}
	return words
}
