// Package ocr turns images into call-to-action candidates. It validates and
// preprocesses the input, hands the pixels to a tesseract-backed engine, and
// maps the recognized text onto the shared candidate model.
package ocr

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ctaworks/ctaopt/internal/cta"
	"github.com/ctaworks/ctaopt/internal/extract"
)

const (
	defaultLanguage            = "eng"
	defaultConfidenceThreshold = 0.6
)

// Analyzer runs OCR-driven candidate extraction. The zero value is not
// usable; Engine must be set.
type Analyzer struct {
	Engine Engine

	// Language is the tesseract language code. Empty means "eng".
	Language string

	// ConfidenceThreshold drops words the engine is unsure about, on a 0-1
	// scale. Zero means 0.6.
	ConfidenceThreshold float64
}

func (a *Analyzer) lang() string {
	if a.Language == "" {
		return defaultLanguage
	}
	return a.Language
}

func (a *Analyzer) threshold() float64 {
	if a.ConfidenceThreshold == 0 {
		return defaultConfidenceThreshold
	}
	return a.ConfidenceThreshold
}

// ExtractCandidates recognizes the full text of an image and extracts
// call-to-action candidates from it. The context string is attached to every
// candidate when given, the same way a caller-supplied hint works for plain
// text analysis.
func (a *Analyzer) ExtractCandidates(img []byte, context string) ([]cta.Candidate, error) {
	if err := Validate(img); err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %v: %w", err, cta.ErrInvalidInput)
	}
	proc, err := preprocess(img)
	if err != nil {
		return nil, err
	}
	text, err := a.Engine.Text(proc.png, a.lang())
	if err != nil {
		return nil, fmt.Errorf("ocr text: %w", err)
	}
	text = strings.TrimSpace(text)
	log.Debug().Int("chars", len(text)).Msg("ocr recognized text")

	candidates := extract.FromText(text, context)
	for i := range candidates {
		candidates[i].Type = cta.TypeImageButton
		if candidates[i].Coordinates == nil {
			candidates[i].Coordinates = &cta.Coordinates{
				ImageWidth:  cfg.Width,
				ImageHeight: cfg.Height,
			}
		}
		if candidates[i].Location == "" || candidates[i].Location == cta.UnknownLocation {
			candidates[i].Location = "Image Content"
		}
	}
	return candidates, nil
}

// ExtractWithConfidence recognizes word-level tokens and keeps the ones that
// both clear the confidence threshold and read like a call to action. Each
// candidate carries the word's bounding box and a location derived from its
// position in the processed image.
func (a *Analyzer) ExtractWithConfidence(img []byte) ([]cta.Candidate, error) {
	if err := Validate(img); err != nil {
		return nil, err
	}
	proc, err := preprocess(img)
	if err != nil {
		return nil, err
	}
	words, err := a.Engine.Words(proc.png, a.lang())
	if err != nil {
		return nil, fmt.Errorf("ocr words: %w", err)
	}

	minConf := a.threshold() * 100
	var out []cta.Candidate
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" || w.Confidence < minConf {
			continue
		}
		if !extract.IsPotentialCTA(text) {
			continue
		}
		out = append(out, cta.Candidate{
			ID:           fmt.Sprintf("img_cta_%d", len(out)),
			OriginalText: text,
			Type:         cta.TypeImageButton,
			Context:      fmt.Sprintf("OCR confidence: %.0f%%", w.Confidence),
			Location:     textLocation(w.Box.Min.X, w.Box.Min.Y, proc.width, proc.height),
			Coordinates: &cta.Coordinates{
				X:          w.Box.Min.X,
				Y:          w.Box.Min.Y,
				Width:      w.Box.Dx(),
				Height:     w.Box.Dy(),
				Confidence: w.Confidence,
			},
		})
	}
	log.Debug().Int("words", len(words)).Int("candidates", len(out)).Msg("ocr word extraction")
	return out, nil
}

// textLocation names the region of the image a word starts in, splitting the
// canvas into a 3x3 grid with wide edge bands.
func textLocation(x, y, width, height int) string {
	if width <= 0 || height <= 0 {
		return cta.UnknownLocation
	}
	xp := float64(x) / float64(width)
	yp := float64(y) / float64(height)

	var row string
	switch {
	case yp < 0.2:
		row = "Top"
	case yp > 0.8:
		row = "Bottom"
	}
	switch {
	case xp < 0.3:
		if row == "" {
			return "Left Side"
		}
		return row + " Left"
	case xp > 0.7:
		if row == "" {
			return "Right Side"
		}
		return row + " Right"
	default:
		if row == "" {
			return "Center"
		}
		return row + " Center"
	}
}

// AnalyzeLayout classifies an image's shape and suggests conventional
// placement zones for calls to action. Only the image header is decoded.
func AnalyzeLayout(img []byte) (*cta.Layout, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %v: %w", err, cta.ErrInvalidInput)
	}
	w, h := cfg.Width, cfg.Height

	aspect := 1.0
	if h > 0 {
		aspect = float64(w) / float64(h)
	}
	var layoutType string
	switch {
	case aspect > 2.0:
		layoutType = "banner"
	case aspect > 1.5:
		layoutType = "landscape"
	case aspect > 0.7:
		layoutType = "square"
	default:
		layoutType = "portrait"
	}

	fw, fh := float64(w), float64(h)
	zones := []cta.Zone{
		{Name: "top_right", X: int(fw * 0.7), Y: 0, Width: int(fw * 0.3), Height: int(fh * 0.2), Priority: "medium"},
		{Name: "center", X: int(fw * 0.3), Y: int(fh * 0.4), Width: int(fw * 0.4), Height: int(fh * 0.2), Priority: "high"},
		{Name: "bottom_center", X: int(fw * 0.25), Y: int(fh * 0.8), Width: int(fw * 0.5), Height: int(fh * 0.2), Priority: "medium"},
		{Name: "right_sidebar", X: int(fw * 0.8), Y: int(fh * 0.3), Width: int(fw * 0.2), Height: int(fh * 0.4), Priority: "low"},
	}

	return &cta.Layout{
		Width:          w,
		Height:         h,
		AspectRatio:    aspect,
		LayoutType:     layoutType,
		SuggestedZones: zones,
	}, nil
}
