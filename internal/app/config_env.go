package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.LLMBaseURL == "" {
		v := os.Getenv("LLM_BASE_URL")
		if v == "" {
			v = os.Getenv("OPENAI_BASE_URL")
		}
		cfg.LLMBaseURL = v
	}
	if cfg.LLMModel == "" {
		v := os.Getenv("LLM_MODEL")
		if v == "" {
			v = os.Getenv("OPENAI_MODEL")
		}
		cfg.LLMModel = v
	}
	if cfg.LLMAPIKey == "" {
		v := os.Getenv("LLM_API_KEY")
		if v == "" {
			v = os.Getenv("OPENAI_API_KEY")
		}
		cfg.LLMAPIKey = v
	}
	if cfg.LLMMaxTokens == 0 {
		setInt(&cfg.LLMMaxTokens, "LLM_MAX_TOKENS")
	}
	if cfg.LLMTemperature == 0 {
		setFloat(&cfg.LLMTemperature, "LLM_TEMPERATURE")
	}

	if cfg.OCRLanguage == "" {
		v := os.Getenv("OCR_LANGUAGE")
		if v == "" {
			v = os.Getenv("TESSERACT_LANG")
		}
		cfg.OCRLanguage = v
	}
	if cfg.OCRConfidence == 0 {
		setFloat(&cfg.OCRConfidence, "OCR_CONFIDENCE")
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = os.Getenv("USER_AGENT")
	}
	if cfg.MaxPages == 0 {
		setInt(&cfg.MaxPages, "MAX_PAGES")
	}
	if cfg.MaxDepth == 0 {
		setInt(&cfg.MaxDepth, "MAX_DEPTH")
	}
	if cfg.Concurrency == 0 {
		setInt(&cfg.Concurrency, "CRAWL_CONCURRENCY")
	}
	if cfg.CrawlDelay == 0 {
		if n, ok := envInt("CRAWL_DELAY_MS"); ok && n > 0 {
			cfg.CrawlDelay = time.Duration(n) * time.Millisecond
		}
	}
	if cfg.FetchTimeout == 0 {
		if s := os.Getenv("FETCH_TIMEOUT"); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				cfg.FetchTimeout = d
			}
		}
	}
	if cfg.FetchRetries == 0 {
		setInt(&cfg.FetchRetries, "FETCH_RETRIES")
	}

	if !cfg.Verbose {
		if truthy(os.Getenv("VERBOSE")) {
			cfg.Verbose = true
		}
	}
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. This lets env take precedence over
// values coming from a config file while flags remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
	setInt(&cfg.LLMMaxTokens, "LLM_MAX_TOKENS")
	setFloat(&cfg.LLMTemperature, "LLM_TEMPERATURE")

	if v := os.Getenv("TESSERACT_LANG"); v != "" {
		cfg.OCRLanguage = v
	}
	if v := os.Getenv("OCR_LANGUAGE"); v != "" {
		cfg.OCRLanguage = v
	}
	setFloat(&cfg.OCRConfidence, "OCR_CONFIDENCE")

	if v := os.Getenv("USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	setInt(&cfg.MaxPages, "MAX_PAGES")
	setInt(&cfg.MaxDepth, "MAX_DEPTH")
	setInt(&cfg.Concurrency, "CRAWL_CONCURRENCY")
	if n, ok := envInt("CRAWL_DELAY_MS"); ok && n > 0 {
		cfg.CrawlDelay = time.Duration(n) * time.Millisecond
	}
	if s := os.Getenv("FETCH_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.FetchTimeout = d
		}
	}
	setInt(&cfg.FetchRetries, "FETCH_RETRIES")

	if s := strings.ToLower(strings.TrimSpace(os.Getenv("VERBOSE"))); s != "" {
		switch s {
		case "1", "true", "yes", "on":
			cfg.Verbose = true
		case "0", "false", "no", "off":
			cfg.Verbose = false
		}
	}
}

func envInt(key string) (int, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func setInt(dst *int, key string) {
	if n, ok := envInt(key); ok && n > 0 {
		*dst = n
	}
}

func setFloat(dst *float64, key string) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		*dst = f
	}
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
