package optimize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ctaworks/ctaopt/internal/cta"
)

// fakeClient replays canned JSON payloads and records every request. When
// errOnCall is zero a configured error fires on every call, otherwise only
// on that call number.
type fakeClient struct {
	responses []string
	err       error
	errOnCall int
	calls     int
	requests  []openai.ChatCompletionRequest
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil && (f.errOnCall == 0 || f.errOnCall == f.calls) {
		return openai.ChatCompletionResponse{}, f.err
	}
	payload := `{"optimizations":[]}`
	if len(f.responses) > 0 {
		idx := f.calls - 1
		if idx >= len(f.responses) {
			idx = len(f.responses) - 1
		}
		payload = f.responses[idx]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: payload},
		}},
	}, nil
}

func cand(id, text string) cta.Candidate {
	return cta.Candidate{ID: id, OriginalText: text, Type: cta.TypeButton}
}

func TestOptimizeAll_EmptyInput(t *testing.T) {
	f := &fakeClient{}
	e := &Engine{Client: f}

	opts, recs := e.OptimizeAll(context.Background(), nil)
	if len(opts) != 0 || len(recs) != 0 {
		t.Fatalf("expected empty result, got %d opts %d recs", len(opts), len(recs))
	}
	if f.calls != 0 {
		t.Fatalf("model called %d times for empty input", f.calls)
	}
}

func TestOptimizeAll_MatchesByID(t *testing.T) {
	f := &fakeClient{responses: []string{`{
		"optimizations": [
			{"original_cta_id": "b", "optimized_text": "Join Our Beta Today", "improvement_rationale": "urgency", "confidence_score": 0.9, "optimization_type": "urgency_added", "action_oriented": true, "urgency_level": 8},
			{"original_cta_id": "a", "optimized_text": "See Pricing In Action", "improvement_rationale": "specific", "confidence_score": 0.8, "optimization_type": "specificity_improved", "action_oriented": true, "urgency_level": 4}
		],
		"general_recommendations": ["Lead with the benefit"]
	}`}}
	e := &Engine{Client: f}

	opts, recs := e.OptimizeAll(context.Background(), []cta.Candidate{
		cand("a", "Learn More"),
		cand("b", "Sign Up"),
	})
	if len(opts) != 2 {
		t.Fatalf("got %d results, want 2", len(opts))
	}
	if opts[0].OriginalCTAID != "a" || opts[0].OptimizedText != "See Pricing In Action" {
		t.Fatalf("first result = %q %q, ID matching failed", opts[0].OriginalCTAID, opts[0].OptimizedText)
	}
	if opts[1].OriginalCTAID != "b" || opts[1].OptimizedText != "Join Our Beta Today" {
		t.Fatalf("second result = %q %q", opts[1].OriginalCTAID, opts[1].OptimizedText)
	}
	if len(recs) != 1 || recs[0] != "Lead with the benefit" {
		t.Fatalf("recommendations = %v", recs)
	}
}

func TestOptimizeAll_PositionalMatching(t *testing.T) {
	f := &fakeClient{responses: []string{`{
		"optimizations": [
			{"optimized_text": "Start Your Free Trial"},
			{"optimized_text": "Get The Full Report"}
		]
	}`}}
	e := &Engine{Client: f}

	opts, _ := e.OptimizeAll(context.Background(), []cta.Candidate{
		cand("a", "Try it"),
		cand("b", "Download"),
	})
	if len(opts) != 2 {
		t.Fatalf("got %d results, want 2", len(opts))
	}
	if opts[0].OriginalCTAID != "a" || opts[0].OptimizedText != "Start Your Free Trial" {
		t.Fatalf("first result = %+v", opts[0])
	}
	if opts[1].OriginalCTAID != "b" || opts[1].OptimizedText != "Get The Full Report" {
		t.Fatalf("second result = %+v", opts[1])
	}
}

func TestOptimizeAll_SurplusEntriesDropped(t *testing.T) {
	f := &fakeClient{responses: []string{`{
		"optimizations": [
			{"original_cta_id": "a", "optimized_text": "Get Started Free"},
			{"optimized_text": "Extra One"},
			{"optimized_text": "Extra Two"}
		]
	}`}}
	e := &Engine{Client: f}

	opts, _ := e.OptimizeAll(context.Background(), []cta.Candidate{cand("a", "Click Here")})
	if len(opts) != 1 {
		t.Fatalf("got %d results, want 1", len(opts))
	}
	if opts[0].OptimizedText != "Get Started Free" {
		t.Fatalf("text = %q", opts[0].OptimizedText)
	}
}

func TestOptimizeAll_UncoveredCandidateGetsFallback(t *testing.T) {
	f := &fakeClient{responses: []string{`{
		"optimizations": [
			{"original_cta_id": "b", "optimized_text": "Join 5,000 Teams"}
		]
	}`}}
	e := &Engine{Client: f}

	opts, _ := e.OptimizeAll(context.Background(), []cta.Candidate{
		cand("a", "Learn More"),
		cand("b", "Sign Up"),
	})
	if len(opts) != 2 {
		t.Fatalf("got %d results, want 2", len(opts))
	}
	if opts[0].OptimizationType != "fallback" || opts[0].OptimizedText != "See How It Works" {
		t.Fatalf("uncovered candidate = %+v, want rule-based fallback", opts[0])
	}
	if opts[1].OptimizedText != "Join 5,000 Teams" {
		t.Fatalf("covered candidate = %+v", opts[1])
	}
}

func TestOptimizeAll_EmptyTextEntryFallsBack(t *testing.T) {
	f := &fakeClient{responses: []string{`{
		"optimizations": [
			{"original_cta_id": "a", "optimized_text": "   "}
		]
	}`}}
	e := &Engine{Client: f}

	opts, _ := e.OptimizeAll(context.Background(), []cta.Candidate{cand("a", "Read more")})
	if len(opts) != 1 {
		t.Fatalf("got %d results, want 1", len(opts))
	}
	if opts[0].OptimizationType != "fallback" || opts[0].OptimizedText != "Learn the Details" {
		t.Fatalf("result = %+v, want fallback rewrite", opts[0])
	}
}

func TestOptimizeAll_ModelErrorFallsBack(t *testing.T) {
	f := &fakeClient{err: errors.New("rate limited")}
	e := &Engine{Client: f}

	in := []cta.Candidate{
		cand("a", "Learn More"),
		cand("b", "Pricing"),
		cand("c", "Request a personalized demo"),
	}
	opts, recs := e.OptimizeAll(context.Background(), in)
	if len(opts) != len(in) {
		t.Fatalf("got %d results, want %d", len(opts), len(in))
	}
	if len(recs) != 0 {
		t.Fatalf("unexpected recommendations from failed batch: %v", recs)
	}
	for i, o := range opts {
		if o.OriginalCTAID != in[i].ID {
			t.Fatalf("result %d bound to %q, want %q", i, o.OriginalCTAID, in[i].ID)
		}
		if o.OptimizationType != "fallback" || o.ConfidenceScore != 0.5 || o.UrgencyLevel != 5 {
			t.Fatalf("result %d = %+v, want fallback tagging", i, o)
		}
		if o.ImprovementRationale != "Basic optimization applied due to AI service unavailability" {
			t.Fatalf("rationale = %q", o.ImprovementRationale)
		}
	}
	if opts[0].OptimizedText != "See How It Works" {
		t.Fatalf("rule rewrite = %q", opts[0].OptimizedText)
	}
	if opts[1].OptimizedText != "Get Pricing" {
		t.Fatalf("short text rewrite = %q", opts[1].OptimizedText)
	}
	if opts[2].OptimizedText != "Request a personalized demo" {
		t.Fatalf("long text should pass through, got %q", opts[2].OptimizedText)
	}
}

func TestOptimizeAll_MalformedJSONFallsBack(t *testing.T) {
	f := &fakeClient{responses: []string{`here are your optimizations!`}}
	e := &Engine{Client: f}

	opts, _ := e.OptimizeAll(context.Background(), []cta.Candidate{
		cand("a", "Sign Up"),
		cand("b", "Continue"),
	})
	if len(opts) != 2 {
		t.Fatalf("got %d results, want 2", len(opts))
	}
	for i, o := range opts {
		if o.OptimizationType != "fallback" {
			t.Fatalf("result %d type = %q, want fallback", i, o.OptimizationType)
		}
	}
	if opts[0].OptimizedText != "Join Free Today" {
		t.Fatalf("rewrite = %q", opts[0].OptimizedText)
	}
}

func TestOptimizeAll_ClampsNumericFields(t *testing.T) {
	f := &fakeClient{responses: []string{`{
		"optimizations": [
			{"original_cta_id": "a", "optimized_text": "Start Now", "confidence_score": 1.7, "urgency_level": -3}
		]
	}`}}
	e := &Engine{Client: f}

	opts, _ := e.OptimizeAll(context.Background(), []cta.Candidate{cand("a", "Go")})
	if len(opts) != 1 {
		t.Fatalf("got %d results, want 1", len(opts))
	}
	if opts[0].ConfidenceScore != 1.0 {
		t.Fatalf("confidence = %v, want clamped 1.0", opts[0].ConfidenceScore)
	}
	if opts[0].UrgencyLevel != 0 {
		t.Fatalf("urgency = %d, want clamped 0", opts[0].UrgencyLevel)
	}
}

func TestOptimizeAll_DefaultsForAbsentFields(t *testing.T) {
	f := &fakeClient{responses: []string{`{
		"optimizations": [
			{"original_cta_id": "a", "optimized_text": "Claim Your Spot"}
		]
	}`}}
	e := &Engine{Client: f}

	opts, _ := e.OptimizeAll(context.Background(), []cta.Candidate{cand("a", "Join")})
	o := opts[0]
	if o.ConfidenceScore != 0.7 {
		t.Fatalf("default confidence = %v, want 0.7", o.ConfidenceScore)
	}
	if o.UrgencyLevel != 5 {
		t.Fatalf("default urgency = %d, want 5", o.UrgencyLevel)
	}
	if o.OptimizationType != "general" {
		t.Fatalf("default type = %q, want general", o.OptimizationType)
	}
	if !o.ActionOriented {
		t.Fatalf("default action_oriented = false, want true")
	}
}

func TestOptimizeAll_BatchesOfTen(t *testing.T) {
	f := &fakeClient{}
	e := &Engine{Client: f}

	var in []cta.Candidate
	for i := 0; i < 12; i++ {
		in = append(in, cand(fmt.Sprintf("c%d", i), "Sign Up"))
	}
	opts, _ := e.OptimizeAll(context.Background(), in)
	if len(opts) != 12 {
		t.Fatalf("got %d results, want 12", len(opts))
	}
	if f.calls != 2 {
		t.Fatalf("model called %d times, want 2 batches", f.calls)
	}
	first := f.requests[0].Messages[1].Content
	if !strings.Contains(first, "10. ORIGINAL") || strings.Contains(first, "11. ORIGINAL") {
		t.Fatalf("first batch should hold exactly 10 candidates:\n%s", first)
	}
	second := f.requests[1].Messages[1].Content
	if !strings.Contains(second, "2. ORIGINAL") || strings.Contains(second, "3. ORIGINAL") {
		t.Fatalf("second batch should hold exactly 2 candidates:\n%s", second)
	}
}

func TestOptimizeAll_BatchFailureIsIsolated(t *testing.T) {
	f := &fakeClient{
		err:       errors.New("api error"),
		errOnCall: 1,
		responses: []string{`{
			"optimizations": [
				{"original_cta_id": "c10", "optimized_text": "Get My Custom Plan"},
				{"original_cta_id": "c11", "optimized_text": "Start Saving Today"}
			]
		}`},
	}
	e := &Engine{Client: f}

	var in []cta.Candidate
	for i := 0; i < 12; i++ {
		in = append(in, cand(fmt.Sprintf("c%d", i), "Learn More"))
	}
	opts, _ := e.OptimizeAll(context.Background(), in)
	if len(opts) != 12 {
		t.Fatalf("got %d results, want 12", len(opts))
	}
	if opts[0].OptimizationType != "fallback" {
		t.Fatalf("failed batch result = %+v, want fallback", opts[0])
	}
	if opts[10].OptimizedText != "Get My Custom Plan" || opts[11].OptimizedText != "Start Saving Today" {
		t.Fatalf("second batch should succeed: %+v %+v", opts[10], opts[11])
	}
}

func TestOptimizeAll_RequestShape(t *testing.T) {
	f := &fakeClient{}
	e := &Engine{Client: f}

	_, _ = e.OptimizeAll(context.Background(), []cta.Candidate{
		{ID: "a", OriginalText: "Learn More", Type: cta.TypeLink},
	})
	if len(f.requests) != 1 {
		t.Fatalf("expected one request")
	}
	req := f.requests[0]
	if req.Model != "gpt-4" {
		t.Fatalf("model = %q, want gpt-4 default", req.Model)
	}
	if req.MaxTokens != 2000 {
		t.Fatalf("max tokens = %d, want 2000", req.MaxTokens)
	}
	if req.Temperature != 0.3 {
		t.Fatalf("temperature = %v, want 0.3", req.Temperature)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("response format = %+v, want json_object", req.ResponseFormat)
	}
	if req.Messages[0].Content != systemMessage {
		t.Fatalf("system message = %q", req.Messages[0].Content)
	}
	user := req.Messages[1].Content
	for _, part := range []string{
		"OPTIMIZATION PRINCIPLES",
		`1. ORIGINAL: "Learn More"`,
		"TYPE: link",
		"CONTEXT: No context available",
		"LOCATION: Unknown location",
		"RESPONSE FORMAT (JSON)",
	} {
		if !strings.Contains(user, part) {
			t.Fatalf("user prompt missing %q:\n%s", part, user)
		}
	}
}

func TestBuildPrompt_TruncatesLongContext(t *testing.T) {
	long := strings.Repeat("x", 1000)
	prompt := buildPrompt([]cta.Candidate{
		{ID: "a", OriginalText: "Sign Up", Type: cta.TypeButton, Context: long},
	})
	if !strings.Contains(prompt, strings.Repeat("x", maxContextTokens*4)) {
		t.Fatalf("context truncated too aggressively")
	}
	if strings.Contains(prompt, strings.Repeat("x", maxContextTokens*4+1)) {
		t.Fatalf("context not truncated")
	}
}

func TestRewriteText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Learn More", "See How It Works"},
		{"Click here", "Get Started Now"},
		{"Submit", "Send My Request"},
		{"Sign Up", "Join Free Today"},
		{"Register", "Create Account"},
		{"Try it", "Start Free Trial"},
		{"Buy Now", "Order Now"},
		{"Contact Us", "Get Expert Help"},
		{"Download", "Get Free Download"},
		{"Read more", "Learn the Details"},
		{"Sign up to download", "Join Free Today"},
		{"Pricing", "Get Pricing"},
		{"Start Here", "Start Here"},
		{"Request a personalized demo", "Request a personalized demo"},
	}
	for _, tc := range cases {
		if got := rewriteText(tc.in); got != tc.want {
			t.Fatalf("rewriteText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Fatalf("empty = %d, want 0", got)
	}
	if got := EstimateTokens("abcd"); got != 1 {
		t.Fatalf("4 chars = %d, want 1", got)
	}
	if got := EstimateTokens("abcde"); got != 2 {
		t.Fatalf("5 chars = %d, want 2", got)
	}
}
