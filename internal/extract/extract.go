// Package extract finds call-to-action candidates in HTML documents and
// plain text. Detection is heuristic: keyword tiers, imperative patterns and
// styling cues, tuned to surface weak CTAs as readily as strong ones.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ctaworks/ctaopt/internal/cta"
)

// FromHTML scans a document for CTA candidates across four element families:
// button controls, styled links, form submits and free-standing text blocks.
// Malformed markup is tolerated; unparsable input yields an empty result, not
// an error. The returned list is de-duplicated case-insensitively on text,
// first occurrence winning.
func FromHTML(htmlStr, sourceURL string) []cta.Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		log.Debug().Err(err).Str("url", sourceURL).Msg("html parse failed, no candidates")
		return nil
	}

	var found []cta.Candidate
	found = append(found, buttonCandidates(doc, sourceURL)...)
	found = append(found, linkCandidates(doc, sourceURL)...)
	found = append(found, formCandidates(doc, sourceURL)...)
	found = append(found, textBlockCandidates(doc, sourceURL)...)

	out := dedupe(found)
	log.Debug().Int("count", len(out)).Str("url", sourceURL).Msg("extracted candidates from html")
	return out
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]\s+`)

// FromText splits plain text into sentence-like segments and keeps the ones
// that read like CTAs. When no context is supplied the neighboring segments
// stand in for it.
func FromText(text, context string) []cta.Candidate {
	segments := sentenceSplitRe.Split(text, -1)

	var found []cta.Candidate
	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		if !IsPotentialCTA(seg) {
			continue
		}
		ctx := context
		if ctx == "" {
			ctx = surroundingSegments(segments, i)
		}
		cand, err := cta.NewCandidate(uuid.NewString(), seg, cta.TypeTextCTA, ctx, fmt.Sprintf("Text segment %d", i+1))
		if err != nil {
			continue
		}
		found = append(found, cand)
	}

	out := dedupe(found)
	log.Debug().Int("count", len(out)).Msg("extracted candidates from text")
	return out
}

// buttonCandidates covers explicit button controls: button elements and
// submit or button typed inputs.
func buttonCandidates(doc *goquery.Document, sourceURL string) []cta.Candidate {
	var out []cta.Candidate
	doc.Find("button, input[type=submit], input[type=button]").Each(func(_ int, s *goquery.Selection) {
		text := nodeText(s)
		if text == "" || !IsPotentialCTA(text) {
			return
		}
		typ := cta.TypeFormSubmit
		if goquery.NodeName(s) == "button" {
			typ = cta.TypeButton
		}
		if cand, ok := newElementCandidate(s, text, typ, elementContext(s), sourceURL); ok {
			out = append(out, cand)
		}
	})
	return out
}

// linkCandidates keeps anchors that are styled like actions and do not belong
// to site navigation.
func linkCandidates(doc *goquery.Document, sourceURL string) []cta.Candidate {
	var out []cta.Candidate
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if isNavigationLink(s) {
			return
		}
		text := nodeText(s)
		if text == "" || !IsPotentialCTA(text) || !hasCTAStyling(s) {
			return
		}
		if cand, ok := newElementCandidate(s, text, cta.TypeLink, elementContext(s), sourceURL); ok {
			out = append(out, cand)
		}
	})
	return out
}

// formCandidates re-walks forms so their submit controls carry form-aware
// context. The generic button scan already saw these controls; dedupe keeps
// whichever version came first. Form submits skip the keyword heuristic since
// submitting a form is an action by definition.
func formCandidates(doc *goquery.Document, sourceURL string) []cta.Candidate {
	var out []cta.Candidate
	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		ctx := formContext(form)
		location := elementLocation(form)
		form.Find("button, input[type=submit], input[type=button]").Each(func(_ int, s *goquery.Selection) {
			text := nodeText(s)
			if text == "" {
				return
			}
			cand, err := cta.NewCandidate(uuid.NewString(), text, cta.TypeFormSubmit, ctx, location)
			if err != nil {
				return
			}
			cand.SourceURL = sourceURL
			cand.Selector = cssSelector(s)
			cand.Prominence = visualProminence(s)
			cand.Likelihood = ctaLikelihood(s, text)
			out = append(out, cand)
		})
	})
	return out
}

// textBlockCandidates finds short free-standing text that passes the stricter
// standalone bar. Containers whose concatenated text exceeds the length cap
// are skipped outright, which naturally excludes wrapper elements.
func textBlockCandidates(doc *goquery.Document, sourceURL string) []cta.Candidate {
	var out []cta.Candidate
	doc.Find("p, div, span, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" || utf8.RuneCountInString(text) > cta.MaxTextLen {
			return
		}
		if !isStandaloneCTA(text) {
			return
		}
		if cand, ok := newElementCandidate(s, text, cta.TypeTextCTA, elementContext(s), sourceURL); ok {
			out = append(out, cand)
		}
	})
	return out
}

func newElementCandidate(s *goquery.Selection, text string, typ cta.Type, context, sourceURL string) (cta.Candidate, bool) {
	cand, err := cta.NewCandidate(uuid.NewString(), text, typ, context, elementLocation(s))
	if err != nil {
		return cta.Candidate{}, false
	}
	cand.SourceURL = sourceURL
	cand.Selector = cssSelector(s)
	cand.Prominence = visualProminence(s)
	cand.Likelihood = ctaLikelihood(s, text)
	return cand, true
}

// dedupe drops candidates whose text folds to one already seen, preserving
// first-seen order.
func dedupe(in []cta.Candidate) []cta.Candidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]cta.Candidate, 0, len(in))
	for _, c := range in {
		key := c.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// surroundingSegments joins the segments adjacent to index i, bounded to the
// context limit.
func surroundingSegments(segments []string, i int) string {
	var parts []string
	if i > 0 {
		if prev := strings.TrimSpace(segments[i-1]); prev != "" {
			parts = append(parts, prev)
		}
	}
	if i+1 < len(segments) {
		if next := strings.TrimSpace(segments[i+1]); next != "" {
			parts = append(parts, next)
		}
	}
	return clip(strings.Join(parts, " "), contextLimit)
}
