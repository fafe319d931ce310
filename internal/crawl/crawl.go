// Package crawl walks a website breadth-first and analyzes each page for CTA
// candidates. Link prioritization favors conversion-relevant pages so small
// page budgets still land on the money pages.
package crawl

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/ctaworks/ctaopt/internal/cta"
	"github.com/ctaworks/ctaopt/internal/extract"
	"github.com/ctaworks/ctaopt/internal/fetch"
	"github.com/ctaworks/ctaopt/internal/robots"
)

const (
	defaultMaxPages    = 10
	defaultMaxDepth    = 2
	defaultDelay       = 500 * time.Millisecond
	defaultConcurrency = 5
)

// Crawler discovers and analyzes pages starting from a seed URL. The zero
// value is not usable; Fetch must be set.
type Crawler struct {
	Fetch  *fetch.Client
	Robots *robots.Manager
	// MaxPages caps how many pages are analyzed per crawl. Zero means 10.
	MaxPages int
	// MaxDepth caps link-following depth from the seed. Zero means 2.
	MaxDepth int
	// Delay spaces successive page fetches. Zero means 500ms.
	Delay time.Duration
	// Concurrency bounds simultaneous analyses in AnalyzePages. Zero means 5.
	Concurrency int

	limiter     *rate.Limiter
	limiterOnce sync.Once

	// sleepFn is swapped in tests to avoid real delays.
	sleepFn func(context.Context, time.Duration)
}

// Crawl analyzes the seed page, then follows prioritized same-host links
// breadth-first until the page budget or depth limit is reached. Every
// attempted page yields an analysis record; fetch failures are recorded on
// the record rather than aborting the crawl. A failed seed page returns an
// error alongside the partial results.
func (c *Crawler) Crawl(ctx context.Context, startURL string) ([]cta.PageAnalysis, error) {
	maxPages := c.maxPages()
	maxDepth := c.maxDepth()

	type queued struct {
		url   string
		depth int
	}
	queue := []queued{{url: startURL}}
	visited := make(map[string]struct{})
	var analyses []cta.PageAnalysis
	var seedErr error

	for len(queue) > 0 && len(visited) < maxPages {
		item := queue[0]
		queue = queue[1:]

		norm := normalizeURL(item.url)
		if _, seen := visited[norm]; seen {
			continue
		}
		if item.depth > maxDepth {
			continue
		}
		if c.Robots != nil && !c.Robots.Allowed(ctx, item.url) {
			log.Debug().Str("url", item.url).Msg("disallowed by robots, skipping")
			continue
		}
		visited[norm] = struct{}{}

		if err := c.wait(ctx); err != nil {
			return analyses, err
		}
		analysis, body, err := c.analyzePage(ctx, item.url)
		analyses = append(analyses, analysis)
		if err != nil {
			if len(analyses) == 1 {
				seedErr = fmt.Errorf("seed page: %w", err)
			}
			continue
		}
		if item.depth >= maxDepth {
			continue
		}

		links := pageLinks(body, item.url)
		type scored struct {
			link  pageLink
			score int
		}
		var ranked []scored
		for _, l := range links {
			if !shouldCrawl(l.URL) {
				continue
			}
			if _, seen := visited[normalizeURL(l.URL)]; seen {
				continue
			}
			ranked = append(ranked, scored{link: l, score: c.prioritize(ctx, l.URL, l.Text)})
		}
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
		for _, r := range ranked {
			if len(queue) >= maxPages*2 {
				break
			}
			queue = append(queue, queued{url: r.link.URL, depth: item.depth + 1})
		}
	}

	log.Debug().Int("pages", len(analyses)).Str("seed", startURL).Msg("crawl finished")
	return analyses, seedErr
}

// AnalyzePage fetches and analyzes a single page. Failures are recorded on
// the returned analysis.
func (c *Crawler) AnalyzePage(ctx context.Context, pageURL string) cta.PageAnalysis {
	analysis, _, _ := c.analyzePage(ctx, pageURL)
	return analysis
}

func (c *Crawler) analyzePage(ctx context.Context, pageURL string) (cta.PageAnalysis, string, error) {
	start := time.Now()
	body, _, err := c.Fetch.Get(ctx, pageURL)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		log.Debug().Err(err).Str("url", pageURL).Msg("page fetch failed")
		return cta.PageAnalysis{URL: pageURL, ResponseTimeMs: elapsed, Error: err.Error()}, "", err
	}

	htmlStr := string(body)
	title, description := pageMeta(htmlStr)
	candidates := extract.FromHTML(htmlStr, pageURL)

	return cta.PageAnalysis{
		URL:            pageURL,
		Title:          title,
		Description:    description,
		ResponseTimeMs: elapsed,
		CTAsFound:      len(candidates),
		ExtractedCTAs:  candidates,
	}, htmlStr, nil
}

// AnalyzePages analyzes a fixed URL list with bounded concurrency. Results
// arrive in completion order; individual failures are recorded per page.
func (c *Crawler) AnalyzePages(ctx context.Context, urls []string) []cta.PageAnalysis {
	sem := semaphore.NewWeighted(int64(c.concurrency()))
	var mu sync.Mutex
	var out []cta.PageAnalysis
	var wg sync.WaitGroup

	for _, u := range urls {
		u := u
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)
			analysis := c.AnalyzePage(ctx, u)
			c.sleep(ctx, c.delay())
			mu.Lock()
			out = append(out, analysis)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

// QuickCrawl analyzes the seed page plus the most promising links judged
// from URL keywords alone, skipping the per-link page probe the full crawl
// performs. Suited to fast scans of large sites.
func (c *Crawler) QuickCrawl(ctx context.Context, seedURL string) []cta.PageAnalysis {
	seed, body, err := c.analyzePage(ctx, seedURL)
	if err != nil {
		return []cta.PageAnalysis{seed}
	}

	type scored struct {
		url   string
		score int
	}
	var ranked []scored
	for _, l := range pageLinks(body, seedURL) {
		if s := quickPriority(l.URL); s > 0 {
			ranked = append(ranked, scored{url: l.URL, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	limit := c.maxPages() - 1
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	urls := make([]string, 0, len(ranked))
	for _, r := range ranked {
		urls = append(urls, r.url)
	}

	return append([]cta.PageAnalysis{seed}, c.AnalyzePages(ctx, urls)...)
}

func pageMeta(htmlStr string) (title, description string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return "", ""
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())
	if desc, ok := doc.Find(`meta[name=description]`).Attr("content"); ok {
		description = strings.TrimSpace(desc)
	}
	return title, description
}

// wait enforces the politeness delay between page fetches.
func (c *Crawler) wait(ctx context.Context) error {
	c.limiterOnce.Do(func() {
		c.limiter = rate.NewLimiter(rate.Every(c.delay()), 1)
	})
	return c.limiter.Wait(ctx)
}

func (c *Crawler) sleep(ctx context.Context, d time.Duration) {
	if c.sleepFn != nil {
		c.sleepFn(ctx, d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c *Crawler) maxPages() int {
	if c.MaxPages <= 0 {
		return defaultMaxPages
	}
	return c.MaxPages
}

func (c *Crawler) maxDepth() int {
	if c.MaxDepth <= 0 {
		return defaultMaxDepth
	}
	return c.MaxDepth
}

func (c *Crawler) delay() time.Duration {
	if c.Delay <= 0 {
		return defaultDelay
	}
	return c.Delay
}

func (c *Crawler) concurrency() int {
	if c.Concurrency <= 0 {
		return defaultConcurrency
	}
	return c.Concurrency
}
