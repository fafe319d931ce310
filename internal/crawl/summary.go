package crawl

import (
	"math"
	"sort"

	"github.com/ctaworks/ctaopt/internal/cta"
)

// Summarize aggregates per-page analyses into crawl-level statistics. Failed
// pages count toward totals but not averages.
func Summarize(analyses []cta.PageAnalysis) *cta.CrawlSummary {
	s := &cta.CrawlSummary{
		TotalPages: len(analyses),
		ByType:     make(map[cta.Type]int),
		ByLocation: make(map[string]int),
	}

	var responseSum int64
	for _, a := range analyses {
		if a.Error != "" {
			s.FailedPages++
			continue
		}
		s.SuccessfulPages++
		s.TotalCTAsFound += a.CTAsFound
		responseSum += a.ResponseTimeMs

		for _, c := range a.ExtractedCTAs {
			s.ByType[c.Type]++
			s.ByLocation[c.Location]++
		}

		switch {
		case a.CTAsFound >= 5:
			s.CTARichPages++
		case a.CTAsFound >= 2:
			s.ModerateCTAPages++
		default:
			s.LowCTAPages++
		}
	}

	if s.SuccessfulPages > 0 {
		s.AvgCTAsPerPage = round2(float64(s.TotalCTAsFound) / float64(s.SuccessfulPages))
		s.AvgResponseTimeMs = round2(float64(responseSum) / float64(s.SuccessfulPages))
	}

	s.TopPages = topPages(analyses, 5)
	return s
}

// topPages ranks successful pages by CTA count, ties resolved by crawl order.
func topPages(analyses []cta.PageAnalysis, n int) []cta.PageRank {
	var ranked []cta.PageRank
	for _, a := range analyses {
		if a.Error != "" {
			continue
		}
		ranked = append(ranked, cta.PageRank{URL: a.URL, Title: a.Title, CTACount: a.CTAsFound})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].CTACount > ranked[j].CTACount })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
