package optimize

import (
	"math"
	"unicode/utf8"
)

// EstimateTokens converts a string into an estimated token count using a
// conservative heuristic (~4 chars per token in English). The result is
// always at least 1 for non-empty input.
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return int(math.Ceil(float64(len(s)) / 4.0))
}

// truncateToTokens cuts s so its token estimate stays within budget, backing
// off to the nearest rune boundary.
func truncateToTokens(s string, budget int) string {
	limit := budget * 4
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
