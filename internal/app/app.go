// Package app wires transport, extraction, OCR, and the optimization engine
// into the three analysis pipelines and records their runs in a job store.
package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ctaworks/ctaopt/internal/assess"
	"github.com/ctaworks/ctaopt/internal/crawl"
	"github.com/ctaworks/ctaopt/internal/cta"
	"github.com/ctaworks/ctaopt/internal/extract"
	"github.com/ctaworks/ctaopt/internal/fetch"
	"github.com/ctaworks/ctaopt/internal/jobs"
	"github.com/ctaworks/ctaopt/internal/llm"
	"github.com/ctaworks/ctaopt/internal/ocr"
	"github.com/ctaworks/ctaopt/internal/optimize"
	"github.com/ctaworks/ctaopt/internal/robots"
)

const (
	defaultUserAgent    = "ctaopt/1.0 (+https://github.com/ctaworks/ctaopt)"
	defaultFetchTimeout = 30 * time.Second
	defaultFetchRetries = 3

	defaultMaxPages = 5
	defaultMaxDepth = 2
	maxPagesLimit   = 20
	maxDepthLimit   = 3

	maxTextLen    = 10000
	maxContextLen = 1000
	storedTextLen = 1000
)

// App wires the fetcher, crawler, OCR engine, optimizer, and job store into
// the URL, text, and image analysis pipelines.
type App struct {
	cfg       Config
	fetcher   *fetch.Client
	robotsMgr *robots.Manager
	optimizer *optimize.Engine
	store     jobs.Store

	mu        sync.Mutex
	ocrEngine ocr.Engine
	newEngine func() (ocr.Engine, error)
}

func New(ctx context.Context, cfg Config) (*App, error) {
	transportCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		transportCfg.BaseURL = cfg.LLMBaseURL
	}
	transportCfg.HTTPClient = newHTTPClient()
	provider := &llm.OpenAIProvider{Inner: openai.NewClientWithConfig(transportCfg)}

	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	retries := cfg.FetchRetries
	if retries <= 0 {
		retries = defaultFetchRetries
	}
	httpClient := newHTTPClient()

	a := &App{
		cfg: cfg,
		fetcher: &fetch.Client{
			HTTPClient:        httpClient,
			UserAgent:         ua,
			MaxAttempts:       retries,
			PerRequestTimeout: timeout,
			RedirectMaxHops:   5,
			MaxConcurrent:     8,
		},
		robotsMgr: &robots.Manager{HTTPClient: httpClient, UserAgent: ua},
		optimizer: &optimize.Engine{
			Client:      provider,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: float32(cfg.LLMTemperature),
		},
		store:     jobs.NewMemoryStore(),
		newEngine: func() (ocr.Engine, error) { return ocr.NewTesseractEngine(), nil },
	}

	// Quick connectivity check by listing models. Best-effort: warn and
	// continue on failure so runs against an unreachable backend still
	// degrade to the rule-table fallback instead of failing startup.
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := provider.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
	} else if len(models.Models) > 0 {
		log.Info().Int("count", len(models.Models)).Msg("LLM models available")
	} else {
		log.Warn().Msg("LLM returned zero models")
	}

	return a, nil
}

// Jobs exposes the job store so callers can look up past runs.
func (a *App) Jobs() jobs.Store { return a.store }

// Close releases the OCR engine if one was started.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ocrEngine != nil {
		_ = a.ocrEngine.Close()
		a.ocrEngine = nil
	}
}

// AnalyzeURL crawls a website starting at rawURL, extracts CTA candidates
// from every reachable page, optimizes them, and records the run in the job
// store. maxPages and maxDepth fall back to configured defaults when zero.
func (a *App) AnalyzeURL(ctx context.Context, rawURL string, maxPages, maxDepth int) (*jobs.Job, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	maxPages, maxDepth, err := a.crawlBounds(maxPages, maxDepth)
	if err != nil {
		return nil, err
	}

	job := jobs.New(jobs.KindURL)
	a.put(job)
	start := time.Now()
	log.Info().Str("url", rawURL).Str("job", job.ID).Msg("starting URL analysis")

	job.SetProgress(10, "Crawling website")
	a.put(job)

	crawler := &crawl.Crawler{
		Fetch:       a.fetcher,
		Robots:      a.robotsMgr,
		MaxPages:    maxPages,
		MaxDepth:    maxDepth,
		Delay:       a.cfg.CrawlDelay,
		Concurrency: a.cfg.Concurrency,
	}
	pages, err := crawler.Crawl(ctx, rawURL)
	if err != nil {
		return a.fail(job, fmt.Errorf("crawl %s: %w", rawURL, err))
	}
	job.SetProgress(50, "Extracting CTAs")
	a.put(job)

	candidates := collectCandidates(pages)
	job.SetProgress(70, "Optimizing CTAs")
	a.put(job)

	opts, recs := a.optimizer.OptimizeAll(ctx, candidates)
	job.SetProgress(90, "Assembling results")
	a.put(job)

	job.Complete(&cta.Results{
		SourceType:       string(jobs.KindURL),
		Source:           rawURL,
		Candidates:       candidates,
		Optimizations:    opts,
		Pages:            pages,
		CrawlSummary:     crawl.Summarize(pages),
		Assessment:       assess.Assess(candidates),
		Recommendations:  recs,
		TotalCTAsFound:   len(candidates),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		CompletedAt:      time.Now().UTC(),
	})
	a.put(job)
	log.Info().Str("job", job.ID).Int("pages", len(pages)).Int("ctas", len(candidates)).Msg("completed URL analysis")
	return job, nil
}

// AnalyzeText extracts CTA candidates from raw text and optimizes them. The
// contextHint, when given, is attached to candidates that lack surrounding
// context of their own.
func (a *App) AnalyzeText(ctx context.Context, text, contextHint string) (*jobs.Job, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is empty: %w", cta.ErrInvalidInput)
	}
	if len([]rune(text)) > maxTextLen {
		return nil, fmt.Errorf("text exceeds %d characters: %w", maxTextLen, cta.ErrInvalidInput)
	}
	if err := validateContextHint(contextHint); err != nil {
		return nil, err
	}

	job := jobs.New(jobs.KindText)
	a.put(job)
	start := time.Now()
	log.Info().Str("job", job.ID).Int("chars", len(text)).Msg("starting text analysis")

	job.SetProgress(20, "Extracting CTAs from text")
	a.put(job)

	candidates := extract.FromText(text, contextHint)
	job.SetProgress(60, "Optimizing CTAs")
	a.put(job)

	opts, recs := a.optimizer.OptimizeAll(ctx, candidates)
	job.SetProgress(90, "Assembling results")
	a.put(job)

	job.Complete(&cta.Results{
		SourceType:       string(jobs.KindText),
		Source:           truncateRunes(text, storedTextLen),
		Candidates:       candidates,
		Optimizations:    opts,
		Assessment:       assess.Assess(candidates),
		Recommendations:  recs,
		TotalCTAsFound:   len(candidates),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		CompletedAt:      time.Now().UTC(),
	})
	a.put(job)
	log.Info().Str("job", job.ID).Int("ctas", len(candidates)).Msg("completed text analysis")
	return job, nil
}

// AnalyzeImage OCRs an encoded image, extracts CTA candidates from the
// recognized text, and optimizes them. A missing or broken OCR engine fails
// the job; invalid images are rejected before a job is created.
func (a *App) AnalyzeImage(ctx context.Context, img []byte, contextHint string) (*jobs.Job, error) {
	if err := ocr.Validate(img); err != nil {
		return nil, err
	}
	if err := validateContextHint(contextHint); err != nil {
		return nil, err
	}

	job := jobs.New(jobs.KindImage)
	a.put(job)
	start := time.Now()
	log.Info().Str("job", job.ID).Int("bytes", len(img)).Msg("starting image analysis")

	job.SetProgress(20, "Running OCR")
	a.put(job)

	eng, err := a.engine()
	if err != nil {
		return a.fail(job, fmt.Errorf("ocr engine: %v: %w", err, ocr.ErrEngineUnavailable))
	}
	analyzer := &ocr.Analyzer{
		Engine:              eng,
		Language:            a.cfg.OCRLanguage,
		ConfidenceThreshold: a.cfg.OCRConfidence,
	}
	candidates, err := analyzer.ExtractCandidates(img, contextHint)
	if err != nil {
		return a.fail(job, fmt.Errorf("image analysis: %w", err))
	}
	job.SetProgress(60, "Optimizing CTAs")
	a.put(job)

	opts, recs := a.optimizer.OptimizeAll(ctx, candidates)
	job.SetProgress(90, "Assembling results")
	a.put(job)

	layout, err := ocr.AnalyzeLayout(img)
	if err != nil {
		log.Warn().Err(err).Msg("layout analysis failed")
	}

	job.Complete(&cta.Results{
		SourceType:       string(jobs.KindImage),
		Source:           fmt.Sprintf("image (%d bytes)", len(img)),
		Candidates:       candidates,
		Optimizations:    opts,
		Assessment:       assess.Assess(candidates),
		Layout:           layout,
		Recommendations:  recs,
		TotalCTAsFound:   len(candidates),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		CompletedAt:      time.Now().UTC(),
	})
	a.put(job)
	log.Info().Str("job", job.ID).Int("ctas", len(candidates)).Msg("completed image analysis")
	return job, nil
}

// engine returns the shared OCR engine, starting it on first use.
func (a *App) engine() (ocr.Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ocrEngine != nil {
		return a.ocrEngine, nil
	}
	eng, err := a.newEngine()
	if err != nil {
		return nil, err
	}
	a.ocrEngine = eng
	return eng, nil
}

func (a *App) put(job *jobs.Job) {
	if err := a.store.Put(job); err != nil {
		log.Warn().Err(err).Str("job", job.ID).Msg("job store update failed")
	}
}

func (a *App) fail(job *jobs.Job, err error) (*jobs.Job, error) {
	job.Fail(err.Error())
	a.put(job)
	log.Error().Err(err).Str("job", job.ID).Msg("analysis failed")
	return job, err
}

func (a *App) crawlBounds(maxPages, maxDepth int) (int, int, error) {
	if maxPages == 0 {
		maxPages = a.cfg.MaxPages
	}
	if maxPages == 0 {
		maxPages = defaultMaxPages
	}
	if maxDepth == 0 {
		maxDepth = a.cfg.MaxDepth
	}
	if maxDepth == 0 {
		maxDepth = defaultMaxDepth
	}
	if maxPages < 1 || maxPages > maxPagesLimit {
		return 0, 0, fmt.Errorf("max pages must be within [1,%d]: %w", maxPagesLimit, cta.ErrInvalidInput)
	}
	if maxDepth < 1 || maxDepth > maxDepthLimit {
		return 0, 0, fmt.Errorf("max depth must be within [1,%d]: %w", maxDepthLimit, cta.ErrInvalidInput)
	}
	return maxPages, maxDepth, nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("parse url: %v: %w", err, cta.ErrInvalidInput)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must start with http:// or https://: %w", cta.ErrInvalidInput)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host: %w", cta.ErrInvalidInput)
	}
	return nil
}

func validateContextHint(hint string) error {
	if len([]rune(hint)) > maxContextLen {
		return fmt.Errorf("context exceeds %d characters: %w", maxContextLen, cta.ErrInvalidInput)
	}
	return nil
}

// collectCandidates flattens page analyses into one candidate list, skipping
// pages whose fetch failed.
func collectCandidates(pages []cta.PageAnalysis) []cta.Candidate {
	var out []cta.Candidate
	for _, p := range pages {
		if p.Error != "" {
			continue
		}
		out = append(out, p.ExtractedCTAs...)
	}
	return out
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
