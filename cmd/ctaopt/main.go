package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ctaworks/ctaopt/internal/app"
	"github.com/ctaworks/ctaopt/internal/cta"
	"github.com/ctaworks/ctaopt/internal/jobs"
)

func main() {
	// Load .env before flag defaults read the environment.
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		urlInput    string
		textInput   string
		imageInput  string
		contextHint string
		outPath     string
		configPath  string

		llmBase        string
		llmModel       string
		llmKey         string
		llmMaxTokens   int
		llmTemperature float64

		maxPages    int
		maxDepth    int
		crawlDelay  time.Duration
		concurrency int

		fetchTimeout time.Duration
		fetchRetries int
		userAgent    string

		ocrLang       string
		ocrConfidence float64

		verbose bool
	)

	flag.StringVar(&urlInput, "url", "", "Website URL to crawl and analyze")
	flag.StringVar(&textInput, "text", "", "Path to a text file to analyze ('-' for stdin)")
	flag.StringVar(&imageInput, "image", "", "Path to an image file to analyze")
	flag.StringVar(&contextHint, "context", "", "Optional context hint for text or image input")
	flag.StringVar(&outPath, "out", "", "Write results JSON to this path instead of stdout")
	flag.StringVar(&configPath, "config", "", "Optional YAML or JSON config file")

	// Env supplies defaults here so explicit flags stay highest precedence.
	flag.StringVar(&llmBase, "llm.base", envOr("LLM_BASE_URL", os.Getenv("OPENAI_BASE_URL")), "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", envOr("LLM_MODEL", envOr("OPENAI_MODEL", "gpt-4")), "Model name")
	flag.StringVar(&llmKey, "llm.key", envOr("LLM_API_KEY", os.Getenv("OPENAI_API_KEY")), "API key for the model server")
	flag.IntVar(&llmMaxTokens, "llm.maxTokens", envIntOr("LLM_MAX_TOKENS", 2000), "Completion token budget per batch")
	flag.Float64Var(&llmTemperature, "llm.temperature", envFloatOr("LLM_TEMPERATURE", 0.3), "Sampling temperature")

	flag.IntVar(&maxPages, "max.pages", envIntOr("MAX_PAGES", 5), "Maximum pages to crawl (1-20)")
	flag.IntVar(&maxDepth, "max.depth", envIntOr("MAX_DEPTH", 2), "Maximum crawl depth (1-3)")
	flag.DurationVar(&crawlDelay, "crawl.delay", envDurationOr("CRAWL_DELAY_MS", 500*time.Millisecond), "Politeness delay between page fetches")
	flag.IntVar(&concurrency, "crawl.concurrency", envIntOr("CRAWL_CONCURRENCY", 5), "Concurrent page analyses for known URL lists")

	flag.DurationVar(&fetchTimeout, "fetch.timeout", envParseDurationOr("FETCH_TIMEOUT", 30*time.Second), "Per-request timeout")
	flag.IntVar(&fetchRetries, "fetch.retries", envIntOr("FETCH_RETRIES", 3), "Fetch attempts per page including the first")
	flag.StringVar(&userAgent, "fetch.ua", envOr("USER_AGENT", "ctaopt/1.0 (+https://github.com/ctaworks/ctaopt)"), "User-Agent for page and robots requests")

	flag.StringVar(&ocrLang, "ocr.lang", envOr("OCR_LANGUAGE", envOr("TESSERACT_LANG", "eng")), "Tesseract language code")
	flag.Float64Var(&ocrConfidence, "ocr.confidence", envFloatOr("OCR_CONFIDENCE", 0.6), "Word confidence threshold on a 0-1 scale")

	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := app.Config{
		LLMBaseURL:     llmBase,
		LLMModel:       llmModel,
		LLMAPIKey:      llmKey,
		LLMMaxTokens:   llmMaxTokens,
		LLMTemperature: llmTemperature,
		MaxPages:       maxPages,
		MaxDepth:       maxDepth,
		CrawlDelay:     crawlDelay,
		Concurrency:    concurrency,
		FetchTimeout:   fetchTimeout,
		FetchRetries:   fetchRetries,
		UserAgent:      userAgent,
		OCRLanguage:    ocrLang,
		OCRConfidence:  ocrConfidence,
		Verbose:        verbose,
	}

	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("config file unreadable")
			os.Exit(2)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(2)
	}

	modes := 0
	for _, v := range []string{urlInput, textInput, imageInput} {
		if strings.TrimSpace(v) != "" {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "exactly one of -url, -text or -image is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg, urlInput, textInput, imageInput, contextHint, outPath); err != nil {
		log.Error().Err(err).Msg("run failed")
		if errors.Is(err, cta.ErrInvalidInput) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(cfg app.Config, urlInput, textInput, imageInput, contextHint, outPath string) error {
	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	var job *jobs.Job
	switch {
	case urlInput != "":
		job, err = a.AnalyzeURL(ctx, urlInput, cfg.MaxPages, cfg.MaxDepth)
	case textInput != "":
		var data []byte
		data, err = readInput(textInput)
		if err != nil {
			return fmt.Errorf("read text input: %w", err)
		}
		job, err = a.AnalyzeText(ctx, string(data), contextHint)
	default:
		var data []byte
		data, err = os.ReadFile(imageInput)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		job, err = a.AnalyzeImage(ctx, data, contextHint)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	out = append(out, '\n')
	if outPath == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().Str("out", outPath).Msg("wrote results")
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if n := envIntOr(key, 0); n > 0 {
		return time.Duration(n) * time.Millisecond
	}
	return fallback
}

func envParseDurationOr(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
