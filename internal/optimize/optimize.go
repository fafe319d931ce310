// Package optimize turns extracted candidates into rewrite suggestions by
// prompting a chat model in fixed-size batches. A batch that fails the call
// or returns an unparsable payload degrades to a deterministic rule-based
// fallback, so a non-empty input never yields zero output.
package optimize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ctaworks/ctaopt/internal/cta"
	"github.com/ctaworks/ctaopt/internal/llm"
)

const (
	defaultModel       = "gpt-4"
	defaultMaxTokens   = 2000
	defaultTemperature = 0.3
	defaultBatchSize   = 10
)

// Engine drives batch optimization against a chat model.
type Engine struct {
	Client llm.Client

	// Model is the chat model id. Empty means gpt-4.
	Model string

	// MaxTokens bounds the response size per batch. Zero means 2000.
	MaxTokens int

	// Temperature controls sampling. Zero means 0.3.
	Temperature float32

	// BatchSize is the number of candidates per model call. Zero means 10.
	BatchSize int
}

func (e *Engine) model() string {
	if e.Model == "" {
		return defaultModel
	}
	return e.Model
}

func (e *Engine) maxTokens() int {
	if e.MaxTokens == 0 {
		return defaultMaxTokens
	}
	return e.MaxTokens
}

func (e *Engine) temperature() float32 {
	if e.Temperature == 0 {
		return defaultTemperature
	}
	return e.Temperature
}

func (e *Engine) batchSize() int {
	if e.BatchSize <= 0 {
		return defaultBatchSize
	}
	return e.BatchSize
}

// OptimizeAll processes candidates in input order and returns exactly one
// optimization per candidate, plus any strategy-level recommendations the
// model volunteered. Batch failures are absorbed: the failed batch gets
// fallback rewrites and later batches still run. An empty input returns
// immediately without a model call.
func (e *Engine) OptimizeAll(ctx context.Context, candidates []cta.Candidate) ([]cta.Optimization, []string) {
	if len(candidates) == 0 {
		return nil, nil
	}
	log.Info().Int("candidates", len(candidates)).Msg("starting optimization")

	size := e.batchSize()
	out := make([]cta.Optimization, 0, len(candidates))
	var recommendations []string
	for start := 0; start < len(candidates); start += size {
		end := start + size
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		opts, recs, err := e.processBatch(ctx, batch)
		if err != nil {
			log.Warn().Err(err).Int("batch_start", start).Int("batch_len", len(batch)).
				Msg("model batch failed, using fallback rewrites")
			opts = Fallback(batch)
		} else {
			recommendations = append(recommendations, recs...)
		}
		out = append(out, opts...)
	}
	log.Info().Int("results", len(out)).Msg("optimization complete")
	return out, recommendations
}

// processBatch sends one batch to the model and maps the response back onto
// the candidates. Transport failures and unparsable payloads come back as
// errors; the caller decides whether to fall back.
func (e *Engine) processBatch(ctx context.Context, batch []cta.Candidate) ([]cta.Optimization, []string, error) {
	if e.Client == nil {
		return nil, nil, errors.New("no model client configured")
	}
	req := openai.ChatCompletionRequest{
		Model: e.model(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(batch)},
		},
		MaxTokens:   e.maxTokens(),
		Temperature: e.temperature(),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	resp, err := e.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil, errors.New("empty completion response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	log.Debug().Int("chars", len(content)).Msg("model response received")
	return parseResponse(content, batch)
}

// responseEnvelope is the JSON contract the prompt demands from the model.
type responseEnvelope struct {
	Optimizations   []responseEntry `json:"optimizations"`
	Recommendations []string        `json:"general_recommendations"`
}

// responseEntry uses pointers where an absent field and a zero value need
// different defaults.
type responseEntry struct {
	OriginalCTAID  string   `json:"original_cta_id"`
	OptimizedText  string   `json:"optimized_text"`
	Rationale      string   `json:"improvement_rationale"`
	Confidence     *float64 `json:"confidence_score"`
	Type           string   `json:"optimization_type"`
	ActionOriented *bool    `json:"action_oriented"`
	ValueProp      string   `json:"value_proposition"`
	Urgency        *int     `json:"urgency_level"`
}

// parseResponse decodes the payload and correlates entries with the batch:
// exact ID match first, then positional order for entries without a
// recognized ID. The positional path is best-effort; when the model omits or
// reorders entries the assignment can be approximate. Candidates left
// uncovered get the rule-based fallback so the one-result-per-candidate
// invariant holds, and surplus entries are dropped.
func parseResponse(content string, batch []cta.Candidate) ([]cta.Optimization, []string, error) {
	var env responseEnvelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return nil, nil, fmt.Errorf("decode model response: %w", err)
	}

	usable := make([]responseEntry, 0, len(env.Optimizations))
	for _, entry := range env.Optimizations {
		if strings.TrimSpace(entry.OptimizedText) == "" {
			continue
		}
		usable = append(usable, entry)
	}

	known := make(map[string]bool, len(batch))
	for _, c := range batch {
		known[c.ID] = true
	}
	byID := make(map[string]responseEntry, len(usable))
	var positional []responseEntry
	for _, entry := range usable {
		if known[entry.OriginalCTAID] {
			if _, dup := byID[entry.OriginalCTAID]; !dup {
				byID[entry.OriginalCTAID] = entry
				continue
			}
		}
		positional = append(positional, entry)
	}

	out := make([]cta.Optimization, 0, len(batch))
	for _, c := range batch {
		entry, ok := byID[c.ID]
		if !ok && len(positional) > 0 {
			entry, ok = positional[0], true
			positional = positional[1:]
		}
		if !ok {
			out = append(out, fallbackFor(c))
			continue
		}
		out = append(out, optimizationFrom(entry, c))
	}
	return out, env.Recommendations, nil
}

// optimizationFrom applies the documented defaults for absent fields; the
// constructor clamps the numeric ranges.
func optimizationFrom(entry responseEntry, c cta.Candidate) cta.Optimization {
	confidence := 0.7
	if entry.Confidence != nil {
		confidence = *entry.Confidence
	}
	urgency := 5
	if entry.Urgency != nil {
		urgency = *entry.Urgency
	}
	actionOriented := true
	if entry.ActionOriented != nil {
		actionOriented = *entry.ActionOriented
	}
	return cta.NewOptimization(c.ID, strings.TrimSpace(entry.OptimizedText), entry.Rationale,
		entry.Type, confidence, urgency, actionOriented, entry.ValueProp)
}
