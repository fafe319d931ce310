package cta

import "time"

// Results is the aggregate a completed analysis job hands back to its caller.
// Candidates are owned by the extraction run, optimizations by the
// optimization run; nothing here outlives the job that produced it.
type Results struct {
	SourceType       string         `json:"source_type"`
	Source           string         `json:"source"`
	Candidates       []Candidate    `json:"extracted_ctas"`
	Optimizations    []Optimization `json:"optimized_ctas"`
	Pages            []PageAnalysis `json:"page_analyses,omitempty"`
	CrawlSummary     *CrawlSummary  `json:"crawl_summary,omitempty"`
	Assessment       *Assessment    `json:"performance_analysis,omitempty"`
	Layout           *Layout        `json:"image_layout,omitempty"`
	Recommendations  []string       `json:"general_recommendations,omitempty"`
	TotalCTAsFound   int            `json:"total_ctas_found"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	CompletedAt      time.Time      `json:"completed_at"`
}

// CrawlSummary aggregates statistics across a crawl's page analyses.
type CrawlSummary struct {
	TotalPages        int            `json:"total_pages"`
	SuccessfulPages   int            `json:"successful_pages"`
	FailedPages       int            `json:"failed_pages"`
	TotalCTAsFound    int            `json:"total_ctas_found"`
	AvgCTAsPerPage    float64        `json:"avg_ctas_per_page"`
	AvgResponseTimeMs float64        `json:"avg_response_time_ms"`
	ByType            map[Type]int   `json:"ctas_by_type,omitempty"`
	ByLocation        map[string]int `json:"ctas_by_location,omitempty"`
	CTARichPages      int            `json:"cta_rich_pages"`
	ModerateCTAPages  int            `json:"moderate_cta_pages"`
	LowCTAPages       int            `json:"low_cta_pages"`
	TopPages          []PageRank     `json:"top_pages_by_cta_count,omitempty"`
}

// PageRank names one page in the summary's CTA-count leaderboard.
type PageRank struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	CTACount int    `json:"cta_count"`
}

// Assessment is the deterministic improvement-potential analysis of a
// candidate set, produced without any model call.
type Assessment struct {
	TotalCTAs            int                  `json:"total_ctas"`
	ImprovementPotential ImprovementPotential `json:"improvement_potential"`
	CommonIssues         []string             `json:"common_issues"`
	Priorities           []string             `json:"optimization_priorities"`
}

// ImprovementPotential buckets candidates by how much a rewrite is expected
// to help. Vague, wordy, weak-verb CTAs land in High.
type ImprovementPotential struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Layout describes an analyzed image's shape and the zones where CTAs are
// conventionally placed.
type Layout struct {
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	AspectRatio    float64 `json:"aspect_ratio"`
	LayoutType     string  `json:"layout_type"`
	SuggestedZones []Zone  `json:"suggested_cta_zones"`
}

// Zone is a named rectangular region of an image with a placement priority.
type Zone struct {
	Name     string `json:"name"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Priority string `json:"priority"`
}
