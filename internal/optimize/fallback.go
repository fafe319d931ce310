package optimize

import (
	"regexp"
	"strings"

	"github.com/ctaworks/ctaopt/internal/cta"
)

const (
	fallbackRationale  = "Basic optimization applied due to AI service unavailability"
	fallbackConfidence = 0.5
	fallbackUrgency    = 5
	fallbackType       = "fallback"
)

// rewriteRule maps a vague phrase onto a stronger replacement. Rules are
// checked in order against the lowercased text; the first match wins.
type rewriteRule struct {
	pattern     *regexp.Regexp
	replacement string
}

var rewriteRules = []rewriteRule{
	{regexp.MustCompile(`\blearn more\b`), "See How It Works"},
	{regexp.MustCompile(`\bclick here\b`), "Get Started Now"},
	{regexp.MustCompile(`\bsubmit\b`), "Send My Request"},
	{regexp.MustCompile(`\bsign up\b`), "Join Free Today"},
	{regexp.MustCompile(`\bregister\b`), "Create Account"},
	{regexp.MustCompile(`\btry\b`), "Start Free Trial"},
	{regexp.MustCompile(`\bbuy now\b`), "Order Now"},
	{regexp.MustCompile(`\bcontact us\b`), "Get Expert Help"},
	{regexp.MustCompile(`\bdownload\b`), "Get Free Download"},
	{regexp.MustCompile(`\bread more\b`), "Learn the Details"},
}

// actionWords suppresses the "Get " prefix when the text already leads with
// an action.
var actionWords = []string{"get", "start", "try", "join", "see", "discover"}

// Fallback produces one deterministic rule-based rewrite per candidate. It
// substitutes for a failed model batch and also fills in candidates a
// successful response did not cover.
func Fallback(batch []cta.Candidate) []cta.Optimization {
	out := make([]cta.Optimization, 0, len(batch))
	for _, c := range batch {
		out = append(out, fallbackFor(c))
	}
	return out
}

func fallbackFor(c cta.Candidate) cta.Optimization {
	return cta.NewOptimization(c.ID, rewriteText(c.OriginalText), fallbackRationale,
		fallbackType, fallbackConfidence, fallbackUrgency, true, "")
}

// rewriteText applies the substitution table; when nothing matches, very
// short texts without an action word get a "Get " prefix, everything else
// passes through unchanged.
func rewriteText(original string) string {
	text := strings.TrimSpace(original)
	lower := strings.ToLower(text)
	for _, r := range rewriteRules {
		if r.pattern.MatchString(lower) {
			return r.replacement
		}
	}
	for _, w := range actionWords {
		if strings.Contains(lower, w) {
			return text
		}
	}
	if len(strings.Fields(text)) <= 2 {
		return "Get " + text
	}
	return text
}
