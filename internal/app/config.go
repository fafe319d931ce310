package app

import "time"

// Config holds runtime configuration for the application. Zero values fall
// through to the component defaults, so an empty Config is usable against a
// local OpenAI-compatible endpoint.
type Config struct {
	// LLM
	LLMBaseURL     string
	LLMModel       string
	LLMAPIKey      string
	LLMMaxTokens   int
	LLMTemperature float64

	// Crawling
	MaxPages    int
	MaxDepth    int
	CrawlDelay  time.Duration
	Concurrency int

	// Fetching
	FetchTimeout time.Duration
	FetchRetries int
	UserAgent    string

	// OCR
	OCRLanguage   string
	OCRConfidence float64

	// Behavior
	Verbose bool
}
