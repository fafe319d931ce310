package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Verify ApplyEnvToConfig reads key settings from environment, including the
// OPENAI_* and TESSERACT_LANG fallbacks and duration parsing.
func TestApplyEnvToConfig_FromEnv(t *testing.T) {
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("OPENAI_BASE_URL", "http://llm.example/v1")
	t.Setenv("LLM_MODEL", "local-model")
	t.Setenv("LLM_MAX_TOKENS", "512")
	t.Setenv("LLM_TEMPERATURE", "0.7")
	t.Setenv("OCR_LANGUAGE", "")
	t.Setenv("TESSERACT_LANG", "fin")
	t.Setenv("CRAWL_DELAY_MS", "250")
	t.Setenv("FETCH_TIMEOUT", "10s")
	t.Setenv("VERBOSE", "yes")

	var cfg Config
	ApplyEnvToConfig(&cfg)
	if cfg.LLMBaseURL != "http://llm.example/v1" {
		t.Fatalf("LLMBaseURL=%q, want fallback from OPENAI_BASE_URL", cfg.LLMBaseURL)
	}
	if cfg.LLMModel != "local-model" {
		t.Fatalf("LLMModel=%q, want local-model", cfg.LLMModel)
	}
	if cfg.LLMMaxTokens != 512 {
		t.Fatalf("LLMMaxTokens=%d, want 512", cfg.LLMMaxTokens)
	}
	if cfg.LLMTemperature != 0.7 {
		t.Fatalf("LLMTemperature=%v, want 0.7", cfg.LLMTemperature)
	}
	if cfg.OCRLanguage != "fin" {
		t.Fatalf("OCRLanguage=%q, want fallback from TESSERACT_LANG", cfg.OCRLanguage)
	}
	if cfg.CrawlDelay != 250*time.Millisecond {
		t.Fatalf("CrawlDelay=%v, want 250ms", cfg.CrawlDelay)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Fatalf("FetchTimeout=%v, want 10s", cfg.FetchTimeout)
	}
	if !cfg.Verbose {
		t.Fatalf("VERBOSE=yes should set Verbose")
	}
}

// Explicit cfg values must survive ApplyEnvToConfig untouched.
func TestApplyEnvToConfig_ExplicitWins(t *testing.T) {
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("MAX_PAGES", "15")
	t.Setenv("OCR_CONFIDENCE", "0.9")

	cfg := Config{LLMModel: "flag-model", MaxPages: 3, OCRConfidence: 0.5}
	ApplyEnvToConfig(&cfg)
	if cfg.LLMModel != "flag-model" {
		t.Fatalf("LLMModel=%q, explicit value should win over env", cfg.LLMModel)
	}
	if cfg.MaxPages != 3 {
		t.Fatalf("MaxPages=%d, explicit value should win over env", cfg.MaxPages)
	}
	if cfg.OCRConfidence != 0.5 {
		t.Fatalf("OCRConfidence=%v, explicit value should win over env", cfg.OCRConfidence)
	}
}

// ApplyEnvOverrides forces env over existing values, with the primary name
// winning over its alias when both are set.
func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "alias-model")
	t.Setenv("LLM_MODEL", "primary-model")
	t.Setenv("MAX_DEPTH", "3")
	t.Setenv("VERBOSE", "off")

	cfg := Config{LLMModel: "file-model", MaxDepth: 1, Verbose: true}
	ApplyEnvOverrides(&cfg)
	if cfg.LLMModel != "primary-model" {
		t.Fatalf("LLMModel=%q, want LLM_MODEL to win over OPENAI_MODEL", cfg.LLMModel)
	}
	if cfg.MaxDepth != 3 {
		t.Fatalf("MaxDepth=%d, want env override 3", cfg.MaxDepth)
	}
	if cfg.Verbose {
		t.Fatalf("VERBOSE=off should clear Verbose")
	}
}

func TestLoadConfigFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctaopt.yaml")
	content := strings.Join([]string{
		"llm:",
		"  base: http://llm.example/v1",
		"  model: gpt-4o-mini",
		"  maxTokens: 1500",
		"  temperature: 0.5",
		"crawl:",
		"  maxPages: 8",
		"  maxDepth: 3",
		"  delay: 250000000",
		"fetch:",
		"  timeout: 10000000000",
		"  retries: 2",
		"  ua: custom-agent/2.0",
		"ocr:",
		"  language: deu",
		"  confidence: 0.8",
		"verbose: true",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if fc.LLM.Model != "gpt-4o-mini" || fc.LLM.MaxTokens != 1500 {
		t.Fatalf("llm section = %+v", fc.LLM)
	}
	if fc.Crawl.MaxPages != 8 || fc.Crawl.Delay != 250*time.Millisecond {
		t.Fatalf("crawl section = %+v", fc.Crawl)
	}
	if fc.Fetch.Timeout != 10*time.Second || fc.Fetch.UA != "custom-agent/2.0" {
		t.Fatalf("fetch section = %+v", fc.Fetch)
	}
	if fc.OCR.Language != "deu" || fc.OCR.Confidence != 0.8 {
		t.Fatalf("ocr section = %+v", fc.OCR)
	}
	if !fc.Verbose {
		t.Fatalf("verbose not parsed")
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctaopt.json")
	content := `{"llm":{"model":"gpt-4o","key":"sk-test"},"crawl":{"maxPages":12}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if fc.LLM.Model != "gpt-4o" || fc.LLM.APIKey != "sk-test" || fc.Crawl.MaxPages != 12 {
		t.Fatalf("parsed config = %+v", fc)
	}
}

// Files without a recognized extension fall back to trying both codecs; pure
// garbage reports both parse failures.
func TestLoadConfigFile_UnknownExtension(t *testing.T) {
	dir := t.TempDir()

	ok := filepath.Join(dir, "ctaopt.conf")
	if err := os.WriteFile(ok, []byte("verbose: true\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	fc, err := LoadConfigFile(ok)
	if err != nil {
		t.Fatalf("LoadConfigFile(.conf yaml content): %v", err)
	}
	if !fc.Verbose {
		t.Fatalf("yaml fallback did not parse")
	}

	bad := filepath.Join(dir, "broken.conf")
	if err := os.WriteFile(bad, []byte("{{{not a config"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfigFile(bad); err == nil {
		t.Fatalf("expected parse error for garbage input")
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

// File config fills fields still at their flag defaults but never clobbers an
// explicitly set flag value.
func TestApplyFileConfig_Precedence(t *testing.T) {
	var fc FileConfig
	fc.LLM.Model = "file-model"
	fc.LLM.MaxTokens = 900
	fc.Crawl.MaxPages = 10
	fc.Fetch.UA = "file-agent/1.0"

	cfg := Config{
		LLMModel:     "gpt-4", // flag default, file may replace
		LLMMaxTokens: 4000,    // explicit flag, keep
		MaxPages:     9,       // explicit flag, keep
		UserAgent:    "ctaopt/1.0 (+https://github.com/ctaworks/ctaopt)",
	}
	ApplyFileConfig(&cfg, fc)

	if cfg.LLMModel != "file-model" {
		t.Fatalf("LLMModel=%q, default should yield to file", cfg.LLMModel)
	}
	if cfg.LLMMaxTokens != 4000 {
		t.Fatalf("LLMMaxTokens=%d, explicit flag should win over file", cfg.LLMMaxTokens)
	}
	if cfg.MaxPages != 9 {
		t.Fatalf("MaxPages=%d, explicit flag should win over file", cfg.MaxPages)
	}
	if cfg.UserAgent != "file-agent/1.0" {
		t.Fatalf("UserAgent=%q, default should yield to file", cfg.UserAgent)
	}
}

func TestValidateConfig(t *testing.T) {
	good := Config{MaxPages: 5, MaxDepth: 2, OCRConfidence: 0.6, LLMTemperature: 0.3}
	if err := ValidateConfig(good); err != nil {
		t.Fatalf("ValidateConfig(good): %v", err)
	}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"negative pages", Config{MaxPages: -1}},
		{"negative delay", Config{CrawlDelay: -time.Second}},
		{"confidence above one", Config{OCRConfidence: 1.5}},
		{"temperature out of range", Config{LLMTemperature: 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateConfig(tc.cfg); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}
