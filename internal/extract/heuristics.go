package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/ctaworks/ctaopt/internal/cta"
	"github.com/ctaworks/ctaopt/internal/textutil"
)

// Keyword tiers behind the CTA heuristic. The secondary tier deliberately
// admits vague phrases like "learn more": those are exactly the candidates
// the optimizer exists to improve.
var (
	primaryKeywords = []string{
		"buy", "purchase", "order", "get started", "start now", "sign up", "register",
		"subscribe", "download", "try", "start free", "book", "schedule", "contact",
		"call", "email", "request", "apply", "join", "enroll", "reserve", "claim",
	}
	secondaryKeywords = []string{
		"learn more", "read more", "see more", "view", "explore", "discover",
		"find out", "watch", "listen", "browse", "search", "compare",
	}
	urgencyKeywords = []string{
		"now", "today", "limited", "hurry", "fast", "quick", "instant",
		"immediate", "urgent", "don't wait", "act now", "expires", "deadline",
	}
)

var imperativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(get|start|try|buy|sign|join|call|email|book|download|subscribe)`),
	regexp.MustCompile(`(now|today)$`),
	regexp.MustCompile(`^[a-z]+ (free|now|today)`),
	regexp.MustCompile(`(click|tap) (here|now)`),
}

// strongPatterns is the stricter bar applied to free-standing text blocks,
// which otherwise produce false positives from ordinary prose.
var strongPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(get|start|try|buy|sign|join|download|subscribe|call|email|book)`),
	regexp.MustCompile(`(free trial|get started|sign up|learn more|contact us)`),
	regexp.MustCompile(`(now|today|free)$`),
}

var stylingIndicators = []string{
	"btn", "button", "cta", "call-to-action", "primary", "secondary",
	"action", "submit", "download", "signup", "register", "purchase",
}

var navIndicators = []string{
	"home", "about", "contact", "blog", "news", "faq", "help",
	"privacy", "terms", "policy", "sitemap", "menu", "nav",
}

// IsPotentialCTA accepts text that reads like a call to action: inside the
// 2..100 rune window and either carrying a keyword from any tier or matching
// an imperative pattern.
func IsPotentialCTA(text string) bool {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < 2 || n > cta.MaxTextLen {
		return false
	}
	lower := textutil.Fold(text)
	if containsAny(lower, primaryKeywords) || containsAny(lower, secondaryKeywords) || containsAny(lower, urgencyKeywords) {
		return true
	}
	for _, re := range imperativePatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// isStandaloneCTA gates text blocks that are not buttons or links: at most
// eight words and a strong opener or phrase on top of the general heuristic.
func isStandaloneCTA(text string) bool {
	if !IsPotentialCTA(text) {
		return false
	}
	if len(strings.Fields(text)) > 8 {
		return false
	}
	lower := textutil.Fold(strings.TrimSpace(text))
	for _, re := range strongPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// hasCTAStyling reports whether the element's classes mark it as an
// actionable control rather than an ordinary link.
func hasCTAStyling(s *goquery.Selection) bool {
	class, _ := s.Attr("class")
	return containsAny(strings.ToLower(class), stylingIndicators)
}

// isNavigationLink rejects links that belong to site chrome. Checked against
// visible text, href and classes; a match in any of them disqualifies.
func isNavigationLink(s *goquery.Selection) bool {
	text := strings.ToLower(nodeText(s))
	href, _ := s.Attr("href")
	class, _ := s.Attr("class")
	return containsAny(text, navIndicators) ||
		containsAny(strings.ToLower(href), navIndicators) ||
		containsAny(strings.ToLower(class), navIndicators)
}

var likelihoodKeywords = []string{
	"buy", "purchase", "order", "get started", "sign up", "subscribe",
	"download", "try", "start", "join", "contact", "call", "book",
}

var likelihoodUrgency = []string{"now", "today", "limited", "hurry", "fast", "quick"}

// ctaLikelihood estimates 0..1 confidence that the element is a CTA from its
// text, tag and styling.
func ctaLikelihood(s *goquery.Selection, text string) float64 {
	likelihood := 0.3
	lower := strings.ToLower(text)
	class, _ := s.Attr("class")
	class = strings.ToLower(class)

	hits := 0
	for _, kw := range likelihoodKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	likelihood += 0.3 * float64(hits)

	switch goquery.NodeName(s) {
	case "button":
		likelihood += 0.2
	case "input":
		if typ, _ := s.Attr("type"); strings.EqualFold(typ, "submit") {
			likelihood += 0.25
		}
	}

	if strings.Contains(class, "cta") || strings.Contains(class, "call-to-action") {
		likelihood += 0.3
	} else if strings.Contains(class, "btn") || strings.Contains(class, "button") {
		likelihood += 0.2
	}

	if containsAny(lower, likelihoodUrgency) {
		likelihood += 0.1
	}
	if len(strings.Fields(text)) > 8 {
		likelihood -= 0.2
	}

	if likelihood < 0 {
		return 0
	}
	if likelihood > 1 {
		return 1
	}
	return likelihood
}

// visualProminence estimates how strongly the element draws the eye on a
// 1..10 scale, judged from styling classes alone.
func visualProminence(s *goquery.Selection) int {
	prominence := 5
	class, _ := s.Attr("class")
	class = strings.ToLower(class)

	if containsAny(class, []string{"primary", "main", "hero", "featured"}) {
		prominence += 2
	}
	if containsAny(class, []string{"btn", "button", "cta"}) {
		prominence++
	}
	if containsAny(class, []string{"large", "big", "xl", "lg"}) {
		prominence++
	} else if containsAny(class, []string{"small", "sm", "xs", "mini"}) {
		prominence--
	}
	if containsAny(class, []string{"red", "orange", "green", "blue", "primary"}) {
		prominence++
	}
	if containsAny(class, []string{"top", "header", "above-fold"}) {
		prominence++
	}

	if prominence < 1 {
		return 1
	}
	if prominence > 10 {
		return 10
	}
	return prominence
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
