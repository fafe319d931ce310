// Package assess scores a candidate set for improvement potential without
// calling a model. The output tells a caller which CTAs to prioritize and
// what the dominant weaknesses are.
package assess

import (
	"fmt"
	"strings"

	"github.com/ctaworks/ctaopt/internal/cta"
)

var (
	vaguePatterns     = []string{"click here", "learn more", "read more", "submit", "continue"}
	weakActionWords   = []string{"see", "view", "check", "browse"}
	strongActionWords = []string{"get", "start", "join", "buy", "download", "subscribe"}
)

// Assess buckets candidates by improvement potential and derives the common
// issues and optimization priorities for the set. Nil is returned for an
// empty input.
func Assess(candidates []cta.Candidate) *cta.Assessment {
	if len(candidates) == 0 {
		return nil
	}

	out := &cta.Assessment{TotalCTAs: len(candidates)}

	var vagueCount, longCount, weakCount int
	for _, c := range candidates {
		lower := strings.ToLower(c.OriginalText)
		words := len(strings.Fields(c.OriginalText))

		score := 0
		if containsAny(lower, vaguePatterns) {
			score += 3
		}
		if words > 6 {
			score += 2
		}
		if !containsAny(lower, strongActionWords) {
			score += 2
		}
		switch {
		case score >= 5:
			out.ImprovementPotential.High++
		case score >= 3:
			out.ImprovementPotential.Medium++
		default:
			out.ImprovementPotential.Low++
		}

		if containsAny(lower, vaguePatterns) {
			vagueCount++
		}
		if words > 5 {
			longCount++
		}
		if containsAny(lower, weakActionWords) {
			weakCount++
		}
	}

	total := float64(len(candidates))
	if float64(vagueCount) > total*0.3 {
		out.CommonIssues = append(out.CommonIssues, fmt.Sprintf("%d CTAs use vague language", vagueCount))
	}
	if longCount > 0 {
		out.CommonIssues = append(out.CommonIssues, fmt.Sprintf("%d CTAs are too long", longCount))
	}
	if weakCount > 0 {
		out.CommonIssues = append(out.CommonIssues, fmt.Sprintf("%d CTAs use weak action words", weakCount))
	}

	if out.ImprovementPotential.High > 0 {
		out.Priorities = append(out.Priorities, "Focus on high-impact CTAs first")
	}
	if float64(vagueCount) > total*0.2 {
		out.Priorities = append(out.Priorities, "Replace vague CTAs with specific actions")
	}
	if float64(weakCount) > total*0.3 {
		out.Priorities = append(out.Priorities, "Strengthen action language")
	}

	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
