package ocr

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// ErrEngineUnavailable marks OCR backend failures, typically a missing or
// broken tesseract installation. Callers can degrade to non-image flows when
// they see it.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Word is one recognized token with its position on the page and the engine's
// confidence on a 0-100 scale.
type Word struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
}

// Engine abstracts the OCR backend so tests can substitute a fake.
type Engine interface {
	// Text recognizes the full text of an encoded image.
	Text(img []byte, lang string) (string, error)
	// Words recognizes word-level tokens with positions and confidences.
	Words(img []byte, lang string) ([]Word, error)
	Close() error
}

// TesseractEngine runs OCR through a single gosseract client. The client is
// not safe for concurrent use, so every call serializes on a mutex.
type TesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractEngine constructs an engine backed by a fresh tesseract client.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{client: gosseract.NewClient()}
}

// prepare configures the client for one recognition pass. Callers hold mu.
func (e *TesseractEngine) prepare(img []byte, lang string) error {
	if err := e.client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return fmt.Errorf("set page seg mode: %v: %w", err, ErrEngineUnavailable)
	}
	if err := e.client.SetLanguage(lang); err != nil {
		return fmt.Errorf("set language %q: %v: %w", lang, err, ErrEngineUnavailable)
	}
	if err := e.client.SetImageFromBytes(img); err != nil {
		return fmt.Errorf("set image: %v: %w", err, ErrEngineUnavailable)
	}
	return nil
}

func (e *TesseractEngine) Text(img []byte, lang string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.prepare(img, lang); err != nil {
		return "", err
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %v: %w", err, ErrEngineUnavailable)
	}
	return text, nil
}

func (e *TesseractEngine) Words(img []byte, lang string) ([]Word, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.prepare(img, lang); err != nil {
		return nil, err
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("bounding boxes: %v: %w", err, ErrEngineUnavailable)
	}
	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, Word{Text: b.Word, Confidence: b.Confidence, Box: b.Box})
	}
	return words, nil
}

func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
