package optimize

import (
	"fmt"
	"strings"

	"github.com/ctaworks/ctaopt/internal/cta"
)

// systemMessage pins the model into a JSON-only contract.
const systemMessage = "You are an expert conversion rate optimization specialist. Always respond with valid JSON format."

const promptHeader = `You are a conversion rate optimization expert specializing in call-to-action (CTA) improvement. Your task is to analyze and optimize CTA text to increase conversion rates.

OPTIMIZATION PRINCIPLES:
1. Action-Oriented: Use strong action verbs that create urgency
2. Value-Clear: Communicate clear value proposition
3. Specific: Be concrete rather than vague
4. Benefit-Focused: Highlight what the user gains
5. Friction-Free: Remove uncertainty and hesitation
6. Urgent: Create appropriate sense of urgency when relevant

TRANSFORM VAGUE → SPECIFIC:
- "Learn More" → "See How [Benefit] in 5 Minutes"
- "Click Here" → "Start Free Trial Now"
- "Submit" → "Get My Personalized Quote"
- "Sign Up" → "Join 50,000+ Professionals"

CTAs TO OPTIMIZE:
`

const promptFooter = `

RESPONSE FORMAT (JSON):
{
  "optimizations": [
    {
      "original_cta_id": "cta_id_here",
      "optimized_text": "New optimized CTA text",
      "improvement_rationale": "Specific explanation of why this is better",
      "confidence_score": 0.85,
      "optimization_type": "action_oriented|value_focused|urgency_added|specificity_improved",
      "action_oriented": true,
      "value_proposition": "What value is highlighted",
      "urgency_level": 7
    }
  ],
  "general_recommendations": [
    "Overall recommendations for CTA strategy"
  ]
}

IMPORTANT:
- Each optimized CTA should be significantly more action-oriented and specific
- Confidence score should reflect how much improvement is expected (0.0-1.0)
- Urgency level is 1-10 (1=no urgency, 10=maximum urgency)
- Always explain WHY the new version is better
- Keep CTAs concise but impactful (2-6 words ideal)
`

// maxContextTokens bounds how much page context a single candidate may add
// to the prompt.
const maxContextTokens = 60

// buildPrompt renders the user message for one batch. Candidates are indexed
// 1-based so the model can correlate positionally when it loses track of IDs.
func buildPrompt(batch []cta.Candidate) string {
	var sb strings.Builder
	sb.WriteString(promptHeader)
	for i, c := range batch {
		context := c.Context
		if context == "" {
			context = cta.NoContext
		}
		location := c.Location
		if location == "" {
			location = cta.UnknownLocation
		}
		sb.WriteString(fmt.Sprintf("\n%d. ORIGINAL: %q\n", i+1, c.OriginalText))
		sb.WriteString(fmt.Sprintf("   TYPE: %s\n", c.Type))
		sb.WriteString(fmt.Sprintf("   CONTEXT: %s\n", truncateToTokens(context, maxContextTokens)))
		sb.WriteString(fmt.Sprintf("   LOCATION: %s\n", location))
	}
	sb.WriteString(promptFooter)
	return sb.String()
}
