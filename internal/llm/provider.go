// Package llm isolates the chat-model surface the optimizer depends on, so
// any OpenAI-compatible backend (hosted, proxy, or local stub) can be swapped
// in and tests can use an in-process fake.
package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the one call the rewrite pipeline makes against a chat model.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelLister is an optional capability used for startup preflight checks.
// Callers detect it with a type assertion; backends without a models endpoint
// simply omit it.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// OpenAIProvider adapts *openai.Client to Client and ModelLister.
type OpenAIProvider struct {
	Inner *openai.Client
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return p.Inner.CreateChatCompletion(ctx, request)
}

func (p *OpenAIProvider) ListModels(ctx context.Context) (openai.ModelsList, error) {
	return p.Inner.ListModels(ctx)
}
