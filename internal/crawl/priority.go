package crawl

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ctaworks/ctaopt/internal/extract"
)

var skipExtensions = []string{".pdf", ".jpg", ".jpeg", ".png", ".gif", ".zip", ".doc", ".docx"}

var skipPatterns = []string{
	"admin", "wp-admin", "login", "logout", "register",
	"api/", "ajax/", "json", "xml", "rss", "feed",
	"terms", "privacy", "legal", "sitemap",
}

var highPriorityKeywords = []string{
	"pricing", "plans", "signup", "register", "subscribe", "buy", "purchase",
	"checkout", "contact", "demo", "trial", "free", "get-started", "start",
}

var mediumPriorityKeywords = []string{
	"product", "service", "solution", "feature", "about", "how-it-works", "benefits",
}

// shouldCrawl filters out assets, account areas and boilerplate pages that
// never carry conversion copy.
func shouldCrawl(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	lower := strings.ToLower(raw)
	for _, pat := range skipPatterns {
		if strings.Contains(lower, pat) {
			return false
		}
	}
	return true
}

// normalizeURL reduces a URL to scheme, host, path and query with any
// trailing slash removed, so path-only variants of the same page collapse in
// the visited set.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	norm := u.Scheme + "://" + u.Host + u.Path
	if u.RawQuery != "" {
		norm += "?" + u.RawQuery
	}
	return strings.TrimRight(norm, "/")
}

// prioritize scores a discovered link. Keyword tiers match against the URL or
// the link's anchor text; one hit per tier counts. The target page is probed
// once so CTA-dense pages rank higher; an unreachable page scores zero.
func (c *Crawler) prioritize(ctx context.Context, linkURL, linkText string) int {
	score := 0
	lowerURL := strings.ToLower(linkURL)
	lowerText := strings.ToLower(linkText)

	for _, kw := range highPriorityKeywords {
		if strings.Contains(lowerURL, kw) || strings.Contains(lowerText, kw) {
			score += 10
			break
		}
	}
	for _, kw := range mediumPriorityKeywords {
		if strings.Contains(lowerURL, kw) || strings.Contains(lowerText, kw) {
			score += 5
			break
		}
	}

	body, _, err := c.Fetch.Get(ctx, linkURL)
	if err != nil {
		return 0
	}
	if isCTARich(string(body)) {
		score += 8
	}

	if u, err := url.Parse(linkURL); err == nil {
		switch depth := pathDepth(u); {
		case depth <= 1:
			score += 3
		case depth <= 2:
			score++
		}
	}
	return score
}

// quickPriority scores a link from its URL alone. Only positive scores are
// worth a fetch in quick mode.
func quickPriority(linkURL string) int {
	lower := strings.ToLower(linkURL)
	for _, kw := range []string{"pricing", "signup", "contact", "demo"} {
		if strings.Contains(lower, kw) {
			return 10
		}
	}
	for _, kw := range []string{"product", "service", "about"} {
		if strings.Contains(lower, kw) {
			return 5
		}
	}
	return 0
}

var ctaClassRe = regexp.MustCompile(`btn|button|cta|primary|call-to-action`)

var richTextKeywords = []string{"sign up", "get started", "buy now", "subscribe", "download", "contact us"}

// isCTARich scores a page's CTA density: interactive controls count whole,
// keyword presence counts half, and three points make the page rich.
func isCTARich(htmlStr string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return false
	}
	controls := doc.Find("button").Length() + doc.Find("input[type=submit]").Length()
	doc.Find("a[class]").Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		if ctaClassRe.MatchString(strings.ToLower(class)) {
			controls++
		}
	})
	controls += doc.Find("form").Length()

	text := strings.ToLower(extract.VisibleText(htmlStr))
	present := 0
	for _, kw := range richTextKeywords {
		if strings.Contains(text, kw) {
			present++
		}
	}
	return float64(controls)+0.5*float64(present) >= 3
}

type pageLink struct {
	URL  string
	Text string
}

// pageLinks returns the same-host links on a page with fragments stripped and
// duplicates removed. The page's own URL is excluded.
func pageLinks(htmlStr, baseURL string) []pageLink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	baseNorm := normalizeURL(baseURL)

	seen := make(map[string]struct{})
	var out []pageLink
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Host != base.Host {
			return
		}
		abs.Fragment = ""
		link := abs.String()
		norm := normalizeURL(link)
		if norm == baseNorm {
			return
		}
		if _, dup := seen[norm]; dup {
			return
		}
		seen[norm] = struct{}{}
		out = append(out, pageLink{URL: link, Text: strings.Join(strings.Fields(s.Text()), " ")})
	})
	return out
}

func pathDepth(u *url.URL) int {
	depth := 0
	for _, seg := range strings.Split(u.Path, "/") {
		if strings.TrimSpace(seg) != "" {
			depth++
		}
	}
	return depth
}
