package textutil

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Everything outside letters, digits, underscore, whitespace and basic
	// punctuation is stripped during normalization.
	specialsRe = regexp.MustCompile(`[^\p{L}\p{N}_\s\-.,!?]`)
)

// Fold returns s lowercased with full Unicode case folding, suitable as a
// case-insensitive comparison key.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Normalize prepares text for comparison: case-folded, whitespace runs
// collapsed to single spaces, special characters removed.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	n := Fold(strings.TrimSpace(s))
	n = whitespaceRe.ReplaceAllString(n, " ")
	n = specialsRe.ReplaceAllString(n, "")
	return strings.TrimSpace(n)
}

// Similarity scores word overlap between two texts in [0,1] using the Jaccard
// index over normalized forms. Equal normalized forms score 1.0; if exactly
// one input is empty the score is 0.0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	wa := wordSet(na)
	wb := wordSet(nb)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

// HashContent returns a short stable fingerprint of content for
// deduplication and ID generation.
func HashContent(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])[:12]
}

// Truncate bounds s to max runes, appending "..." when text was cut.
func Truncate(s string, max int) string {
	if s == "" || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	cut := max - 3
	if cut < 0 {
		cut = 0
	}
	return string(r[:cut]) + "..."
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "this": {},
	"that": {}, "these": {}, "those": {}, "i": {}, "you": {}, "he": {},
	"she": {}, "it": {}, "we": {}, "they": {},
}

// Keywords extracts up to max frequency-ranked terms from text, skipping
// stopwords and words shorter than three characters. Ties keep first-seen
// order.
func Keywords(text string, max int) []string {
	if text == "" || max <= 0 {
		return nil
	}
	freq := map[string]int{}
	order := make([]string, 0, 16)
	for _, w := range strings.Fields(Normalize(text)) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, seen := freq[w]; !seen {
			order = append(order, w)
		}
		freq[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})
	if len(order) > max {
		order = order[:max]
	}
	return order
}

// intentTable maps intent tags to their trigger phrases, checked in order.
var intentTable = []struct {
	intent   string
	patterns []string
}{
	{"purchase", []string{"buy", "purchase", "order", "checkout", "shop", "add to cart"}},
	{"signup", []string{"sign up", "register", "join", "create account", "get started"}},
	{"subscription", []string{"subscribe", "sign up", "newsletter", "updates"}},
	{"download", []string{"download", "get", "grab", "access"}},
	{"trial", []string{"free trial", "try", "test", "demo"}},
	{"contact", []string{"contact", "call", "email", "reach out", "get in touch"}},
	{"learn", []string{"learn more", "read more", "see more", "find out", "discover"}},
	{"navigate", []string{"view", "browse", "explore", "see", "check out"}},
}

// ClassifyIntent tags CTA text with the user intent it solicits. Unmatched
// action-oriented text falls through to "action"; empty input is "unknown".
func ClassifyIntent(text string) string {
	if text == "" {
		return "unknown"
	}
	lower := Fold(text)
	for _, row := range intentTable {
		for _, p := range row.patterns {
			if strings.Contains(lower, p) {
				return row.intent
			}
		}
	}
	return "action"
}

var (
	highUrgencyWords   = []string{"now", "today", "immediately", "urgent", "hurry", "fast", "quick", "instant"}
	mediumUrgencyWords = []string{"limited", "expires", "deadline", "soon", "don't wait", "act"}
	timePatterns       = []string{"24 hours", "this week", "today only", "ends soon"}
	scarcityWords      = []string{"only", "last", "few left", "limited", "exclusive"}
)

// AssessUrgency scores how time-pressured CTA text reads, on a 1..10 scale.
func AssessUrgency(text string) int {
	if text == "" {
		return 1
	}
	lower := Fold(text)
	score := 1
	if containsAny(lower, highUrgencyWords) {
		score += 4
	}
	if containsAny(lower, mediumUrgencyWords) {
		score += 2
	}
	if containsAny(lower, timePatterns) {
		score += 3
	}
	if containsAny(lower, scarcityWords) {
		score += 2
	}
	if score > 10 {
		score = 10
	}
	return score
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// FormatConfidence renders a 0..1 confidence score as a coarse label.
func FormatConfidence(score float64) string {
	switch {
	case score >= 0.9:
		return "Very High"
	case score >= 0.8:
		return "High"
	case score >= 0.7:
		return "Good"
	case score >= 0.6:
		return "Medium"
	case score >= 0.5:
		return "Low"
	default:
		return "Very Low"
	}
}
