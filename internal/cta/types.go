package cta

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ctaworks/ctaopt/internal/textutil"
)

// Type classifies how a candidate was presented in its source markup.
type Type string

const (
	TypeButton      Type = "button"
	TypeLink        Type = "link"
	TypeFormSubmit  Type = "form_submit"
	TypeImageButton Type = "image_button"
	TypeTextCTA     Type = "text_cta"
)

// Valid reports whether t is one of the known candidate types.
func (t Type) Valid() bool {
	switch t {
	case TypeButton, TypeLink, TypeFormSubmit, TypeImageButton, TypeTextCTA:
		return true
	}
	return false
}

// NoContext is stored when no surrounding text could be recovered for a
// candidate. Context is always populated on output.
const NoContext = "No context available"

// UnknownLocation is stored when provenance could not be determined.
const UnknownLocation = "Unknown location"

// MaxTextLen bounds candidate text length in runes. Longer spans are prose,
// not calls to action.
const MaxTextLen = 100

// ErrInvalidInput marks caller-supplied input that fails validation (empty
// url/text, malformed image, out-of-range candidate text). Surfaced
// immediately, never retried.
var ErrInvalidInput = errors.New("invalid input")

// Coordinates carries positional metadata for image-sourced candidates:
// either a recognized text box or, at minimum, the source image dimensions.
type Coordinates struct {
	X           int     `json:"x,omitempty"`
	Y           int     `json:"y,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	ImageWidth  int     `json:"image_width,omitempty"`
	ImageHeight int     `json:"image_height,omitempty"`
}

// Candidate is one detected call-to-action.
type Candidate struct {
	ID           string       `json:"id"`
	OriginalText string       `json:"original_text"`
	Type         Type         `json:"cta_type"`
	Context      string       `json:"context"`
	Location     string       `json:"location"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	SourceURL    string       `json:"source_url,omitempty"`
	Selector     string       `json:"css_selector,omitempty"`
	// Prominence estimates visual weight from markup on a 1..10 scale.
	Prominence int `json:"visual_prominence,omitempty"`
	// Likelihood is the 0..1 heuristic confidence that this is a CTA.
	Likelihood float64 `json:"cta_likelihood,omitempty"`
}

// NewCandidate validates and builds a Candidate. Text is trimmed and must be
// 1..100 runes; context and location receive their sentinels when empty.
func NewCandidate(id, text string, typ Type, context, location string) (Candidate, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < 1 || n > MaxTextLen {
		return Candidate{}, fmt.Errorf("candidate text must be 1..%d characters, got %d: %w", MaxTextLen, n, ErrInvalidInput)
	}
	if !typ.Valid() {
		return Candidate{}, fmt.Errorf("unknown cta type %q: %w", typ, ErrInvalidInput)
	}
	if strings.TrimSpace(context) == "" {
		context = NoContext
	}
	if strings.TrimSpace(location) == "" {
		location = UnknownLocation
	}
	return Candidate{
		ID:           id,
		OriginalText: text,
		Type:         typ,
		Context:      context,
		Location:     location,
	}, nil
}

// DedupKey returns the case-insensitive identity of the candidate's text.
// Within one extraction run candidates sharing a key collapse to the first
// occurrence.
func (c Candidate) DedupKey() string {
	return textutil.Fold(strings.TrimSpace(c.OriginalText))
}

// Optimization is one rewrite suggestion bound to exactly one Candidate.
type Optimization struct {
	OriginalCTAID        string  `json:"original_cta_id"`
	OptimizedText        string  `json:"optimized_text"`
	ImprovementRationale string  `json:"improvement_rationale"`
	ConfidenceScore      float64 `json:"confidence_score"`
	OptimizationType     string  `json:"optimization_type"`
	ActionOriented       bool    `json:"action_oriented"`
	ValueProposition     string  `json:"value_proposition,omitempty"`
	UrgencyLevel         int     `json:"urgency_level"`
}

// NewOptimization builds an Optimization with numeric fields clamped into
// range. Out-of-range model output is corrected here, never rejected.
func NewOptimization(candidateID, text, rationale, optType string, confidence float64, urgency int, actionOriented bool, valueProp string) Optimization {
	if strings.TrimSpace(optType) == "" {
		optType = "general"
	}
	return Optimization{
		OriginalCTAID:        candidateID,
		OptimizedText:        text,
		ImprovementRationale: rationale,
		ConfidenceScore:      ClampConfidence(confidence),
		OptimizationType:     optType,
		ActionOriented:       actionOriented,
		ValueProposition:     valueProp,
		UrgencyLevel:         ClampUrgency(urgency),
	}
}

// ClampConfidence bounds a confidence score to [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampUrgency bounds an urgency level to [0,10].
func ClampUrgency(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// PageAnalysis records the outcome of analyzing one crawled page. It is
// built once and appended to the crawl's page list; a failed fetch still
// produces a record with Error set.
type PageAnalysis struct {
	URL            string      `json:"url"`
	Title          string      `json:"title,omitempty"`
	Description    string      `json:"description,omitempty"`
	ResponseTimeMs int64       `json:"response_time_ms"`
	CTAsFound      int         `json:"ctas_found"`
	ExtractedCTAs  []Candidate `json:"extracted_ctas"`
	Error          string      `json:"error,omitempty"`
}
