package assess

import (
	"reflect"
	"testing"

	"github.com/ctaworks/ctaopt/internal/cta"
)

func cands(texts ...string) []cta.Candidate {
	out := make([]cta.Candidate, 0, len(texts))
	for i, text := range texts {
		out = append(out, cta.Candidate{ID: string(rune('a' + i)), OriginalText: text, Type: cta.TypeButton})
	}
	return out
}

func TestAssess_EmptyInput(t *testing.T) {
	if got := Assess(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", got)
	}
}

func TestAssess_Buckets(t *testing.T) {
	got := Assess(cands(
		"Click Here",
		"Submit your information to receive our newsletter today",
		"Submit to get results",
		"Buy Now",
	))
	if got.TotalCTAs != 4 {
		t.Fatalf("total = %d, want 4", got.TotalCTAs)
	}
	p := got.ImprovementPotential
	if p.High != 2 || p.Medium != 1 || p.Low != 1 {
		t.Fatalf("potential = %+v, want high 2 medium 1 low 1", p)
	}
}

func TestAssess_IssuesAndPriorities(t *testing.T) {
	got := Assess(cands(
		"Click Here",
		"Learn More",
		"See the complete feature comparison guide now",
		"Get Started",
	))

	wantIssues := []string{
		"2 CTAs use vague language",
		"1 CTAs are too long",
		"1 CTAs use weak action words",
	}
	if !reflect.DeepEqual(got.CommonIssues, wantIssues) {
		t.Fatalf("issues = %v, want %v", got.CommonIssues, wantIssues)
	}

	wantPriorities := []string{
		"Focus on high-impact CTAs first",
		"Replace vague CTAs with specific actions",
	}
	if !reflect.DeepEqual(got.Priorities, wantPriorities) {
		t.Fatalf("priorities = %v, want %v", got.Priorities, wantPriorities)
	}
}

func TestAssess_StrongSetHasNoFindings(t *testing.T) {
	got := Assess(cands("Get Started", "Buy Now", "Join Free"))
	if got.ImprovementPotential.Low != 3 {
		t.Fatalf("potential = %+v, want all low", got.ImprovementPotential)
	}
	if len(got.CommonIssues) != 0 {
		t.Fatalf("unexpected issues: %v", got.CommonIssues)
	}
	if len(got.Priorities) != 0 {
		t.Fatalf("unexpected priorities: %v", got.Priorities)
	}
}

// The vague-language issue needs strictly more than 30% of the set, while
// the rewrite priority fires already above 20%.
func TestAssess_VagueThresholds(t *testing.T) {
	texts := []string{"Click Here", "Click Here", "Click Here"}
	for i := 0; i < 7; i++ {
		texts = append(texts, "Buy Now")
	}
	got := Assess(cands(texts...))

	for _, issue := range got.CommonIssues {
		if issue == "3 CTAs use vague language" {
			t.Fatalf("vague issue fired at exactly 30%%: %v", got.CommonIssues)
		}
	}
	found := false
	for _, p := range got.Priorities {
		if p == "Replace vague CTAs with specific actions" {
			found = true
		}
	}
	if !found {
		t.Fatalf("rewrite priority missing at 30%%: %v", got.Priorities)
	}
}
