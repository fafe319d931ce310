package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema. Nested sections
// map naturally to flags and env.
type FileConfig struct {
	LLM struct {
		BaseURL     string  `yaml:"base" json:"base"`
		Model       string  `yaml:"model" json:"model"`
		APIKey      string  `yaml:"key" json:"key"`
		MaxTokens   int     `yaml:"maxTokens" json:"maxTokens"`
		Temperature float64 `yaml:"temperature" json:"temperature"`
	} `yaml:"llm" json:"llm"`

	Crawl struct {
		MaxPages    int           `yaml:"maxPages" json:"maxPages"`
		MaxDepth    int           `yaml:"maxDepth" json:"maxDepth"`
		Delay       time.Duration `yaml:"delay" json:"delay"`
		Concurrency int           `yaml:"concurrency" json:"concurrency"`
	} `yaml:"crawl" json:"crawl"`

	Fetch struct {
		Timeout time.Duration `yaml:"timeout" json:"timeout"`
		Retries int           `yaml:"retries" json:"retries"`
		UA      string        `yaml:"ua" json:"ua"`
	} `yaml:"fetch" json:"fetch"`

	OCR struct {
		Language   string  `yaml:"language" json:"language"`
		Confidence float64 `yaml:"confidence" json:"confidence"`
	} `yaml:"ocr" json:"ocr"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset or still at their flag default. Flags should already
// have been parsed; this lets file config supply defaults while preserving
// explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	const (
		modelDefault       = "gpt-4"
		maxTokensDefault   = 2000
		temperatureDefault = 0.3
		maxPagesDefault    = 5
		maxDepthDefault    = 2
		delayDefault       = 500 * time.Millisecond
		concurrencyDefault = 5
		timeoutDefault     = 30 * time.Second
		retriesDefault     = 3
		uaDefault          = "ctaopt/1.0 (+https://github.com/ctaworks/ctaopt)"
		languageDefault    = "eng"
		confidenceDefault  = 0.6
	)

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if (cfg.LLMModel == "" || cfg.LLMModel == modelDefault) && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if (cfg.LLMMaxTokens == 0 || cfg.LLMMaxTokens == maxTokensDefault) && fc.LLM.MaxTokens > 0 {
		cfg.LLMMaxTokens = fc.LLM.MaxTokens
	}
	if (cfg.LLMTemperature == 0 || cfg.LLMTemperature == temperatureDefault) && fc.LLM.Temperature > 0 {
		cfg.LLMTemperature = fc.LLM.Temperature
	}

	if (cfg.MaxPages == 0 || cfg.MaxPages == maxPagesDefault) && fc.Crawl.MaxPages > 0 {
		cfg.MaxPages = fc.Crawl.MaxPages
	}
	if (cfg.MaxDepth == 0 || cfg.MaxDepth == maxDepthDefault) && fc.Crawl.MaxDepth > 0 {
		cfg.MaxDepth = fc.Crawl.MaxDepth
	}
	if (cfg.CrawlDelay == 0 || cfg.CrawlDelay == delayDefault) && fc.Crawl.Delay > 0 {
		cfg.CrawlDelay = fc.Crawl.Delay
	}
	if (cfg.Concurrency == 0 || cfg.Concurrency == concurrencyDefault) && fc.Crawl.Concurrency > 0 {
		cfg.Concurrency = fc.Crawl.Concurrency
	}

	if (cfg.FetchTimeout == 0 || cfg.FetchTimeout == timeoutDefault) && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if (cfg.FetchRetries == 0 || cfg.FetchRetries == retriesDefault) && fc.Fetch.Retries > 0 {
		cfg.FetchRetries = fc.Fetch.Retries
	}
	if (cfg.UserAgent == "" || cfg.UserAgent == uaDefault) && fc.Fetch.UA != "" {
		cfg.UserAgent = fc.Fetch.UA
	}

	if (cfg.OCRLanguage == "" || cfg.OCRLanguage == languageDefault) && fc.OCR.Language != "" {
		cfg.OCRLanguage = fc.OCR.Language
	}
	if (cfg.OCRConfidence == 0 || cfg.OCRConfidence == confidenceDefault) && fc.OCR.Confidence > 0 {
		cfg.OCRConfidence = fc.OCR.Confidence
	}

	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation for settings that would
// otherwise fail deep inside a run.
func ValidateConfig(cfg Config) error {
	if cfg.MaxPages < 0 || cfg.MaxDepth < 0 || cfg.Concurrency < 0 || cfg.FetchRetries < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.CrawlDelay < 0 || cfg.FetchTimeout < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	if cfg.OCRConfidence < 0 || cfg.OCRConfidence > 1 {
		return errors.New("config: ocr confidence must be within [0,1]")
	}
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		return errors.New("config: llm temperature must be within [0,2]")
	}
	return nil
}
