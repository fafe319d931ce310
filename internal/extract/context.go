package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const contextLimit = 200

// elementContext recovers the text surrounding an element so the optimizer
// can see what the page promises around the CTA. Nearest container ancestor
// wins when it carries enough text; otherwise sibling text is joined.
func elementContext(s *goquery.Selection) string {
	own := nodeText(s)

	found := ""
	s.ParentsFiltered("section, article, div, main").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		ctx := strings.TrimSpace(strings.ReplaceAll(nodeText(p), own, ""))
		if utf8.RuneCountInString(ctx) > 50 {
			found = clip(ctx, contextLimit)
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	var parts []string
	s.PrevAll().Each(func(_ int, sib *goquery.Selection) {
		if t := nodeText(sib); t != "" {
			parts = append(parts, t)
		}
	})
	s.NextAll().Each(func(_ int, sib *goquery.Selection) {
		if t := nodeText(sib); t != "" {
			parts = append(parts, t)
		}
	})
	return clip(strings.Join(parts, " "), contextLimit)
}

var locationLandmarks = []struct {
	selector string
	name     string
}{
	{"nav", "Navigation"},
	{"header", "Page Header"},
	{"footer", "Page Footer"},
	{"aside", "Sidebar"},
	{".hero, .banner, .jumbotron", "Hero Section"},
	{"main", "Main Content"},
}

// elementLocation names the page region an element sits in, judged from the
// nearest landmark ancestor.
func elementLocation(s *goquery.Selection) string {
	for _, lm := range locationLandmarks {
		if s.Closest(lm.selector).Length() > 0 {
			return lm.name
		}
	}
	return "Page Body"
}

// cssSelector builds a short selector for locating the element again. An id
// wins outright; otherwise the first two classes qualify the tag.
func cssSelector(s *goquery.Selection) string {
	tag := goquery.NodeName(s)
	if id, ok := s.Attr("id"); ok && id != "" {
		return tag + "#" + id
	}
	if class, ok := s.Attr("class"); ok {
		fields := strings.Fields(class)
		if len(fields) > 2 {
			fields = fields[:2]
		}
		if len(fields) > 0 {
			return tag + "." + strings.Join(fields, ".")
		}
	}
	return tag
}

// formContext describes the form a submit control belongs to: the inferred
// form type plus field count, with surrounding page text appended when found.
func formContext(form *goquery.Selection) string {
	fields := form.Find("input, select, textarea")
	desc := fmt.Sprintf("%s form with %d fields", classifyFormType(form, fields), fields.Length())
	if ctx := elementContext(form); ctx != "" {
		desc += " | " + ctx
	}
	return desc
}

func classifyFormType(form *goquery.Selection, fields *goquery.Selection) string {
	var types, names []string
	fields.Each(func(_ int, f *goquery.Selection) {
		if t, ok := f.Attr("type"); ok {
			types = append(types, strings.ToLower(t))
		}
		if n, ok := f.Attr("name"); ok {
			names = append(names, strings.ToLower(n))
		}
	})
	joined := strings.Join(types, " ") + " " + strings.Join(names, " ")

	switch {
	case strings.Contains(joined, "password") || strings.Contains(joined, "login"):
		return "login"
	case strings.Contains(joined, "email"):
		return "signup"
	case strings.Contains(joined, "search") || strings.Contains(joined, "query"):
		return "search"
	case strings.Contains(joined, "message") || strings.Contains(joined, "inquiry") || strings.Contains(joined, "subject"):
		return "contact"
	case fields.Length() > 5:
		return "detailed"
	default:
		return "general"
	}
}

// nodeText returns the element's rendered text with whitespace collapsed.
// Plain buttons and links use their inner text; input controls fall back to
// value, then placeholder, then aria-label and title.
func nodeText(s *goquery.Selection) string {
	if goquery.NodeName(s) == "input" {
		for _, attr := range []string{"value", "placeholder", "aria-label", "title"} {
			if v, ok := s.Attr(attr); ok {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
		return ""
	}
	return strings.Join(strings.Fields(s.Text()), " ")
}

// clip bounds s to max runes with a hard cut.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
