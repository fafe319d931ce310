package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/draw"

	"github.com/ctaworks/ctaopt/internal/cta"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	maxImageBytes = 10 << 20
	minDimension  = 50
	maxDimension  = 5000

	// Tesseract accuracy drops sharply below this side length, so smaller
	// images are upscaled before recognition.
	minOCRSide = 300

	contrastFactor  = 1.2
	sharpnessFactor = 1.1
)

// Validate rejects image payloads that are empty, oversized, undecodable, or
// outside the supported dimension range. Failures wrap cta.ErrInvalidInput.
func Validate(img []byte) error {
	if len(img) == 0 {
		return fmt.Errorf("empty image data: %w", cta.ErrInvalidInput)
	}
	if len(img) > maxImageBytes {
		return fmt.Errorf("image is %d bytes, limit %d: %w", len(img), maxImageBytes, cta.ErrInvalidInput)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return fmt.Errorf("decode image: %v: %w", err, cta.ErrInvalidInput)
	}
	if cfg.Width < minDimension || cfg.Height < minDimension {
		return fmt.Errorf("image %dx%d below minimum %dpx: %w", cfg.Width, cfg.Height, minDimension, cta.ErrInvalidInput)
	}
	if cfg.Width > maxDimension || cfg.Height > maxDimension {
		return fmt.Errorf("image %dx%d above maximum %dpx: %w", cfg.Width, cfg.Height, maxDimension, cta.ErrInvalidInput)
	}
	return nil
}

// processedImage is the OCR-ready rendition of an input image along with the
// dimensions all word coordinates are expressed in.
type processedImage struct {
	png    []byte
	width  int
	height int
}

// preprocess prepares an image for recognition: upscale small images, raise
// contrast, sharpen, then flatten to grayscale. The result is re-encoded as
// PNG because tesseract takes encoded bytes.
func preprocess(data []byte) (processedImage, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return processedImage{}, fmt.Errorf("decode image: %w", err)
	}
	rgba := toRGBA(src)
	if b := rgba.Bounds(); b.Dx() < minOCRSide || b.Dy() < minOCRSide {
		rgba = upscale(rgba, minOCRSide)
	}
	adjustContrast(rgba, contrastFactor)
	rgba = sharpen(rgba, sharpnessFactor)
	gray := toGray(rgba)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return processedImage{}, fmt.Errorf("encode processed image: %w", err)
	}
	b := gray.Bounds()
	return processedImage{png: buf.Bytes(), width: b.Dx(), height: b.Dy()}, nil
}

func toRGBA(src image.Image) *image.RGBA {
	if r, ok := src.(*image.RGBA); ok {
		return r
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// upscale grows the image so that both sides reach at least minSide,
// preserving aspect ratio.
func upscale(src *image.RGBA, minSide int) *image.RGBA {
	b := src.Bounds()
	scale := math.Max(float64(minSide)/float64(b.Dx()), float64(minSide)/float64(b.Dy()))
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// adjustContrast stretches each channel around the image's grayscale mean:
// out = mean + factor*(in - mean).
func adjustContrast(img *image.RGBA, factor float64) {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return
	}
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			sum += 0.299*float64(img.Pix[i]) + 0.587*float64(img.Pix[i+1]) + 0.114*float64(img.Pix[i+2])
		}
	}
	mean := sum / float64(n)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = clampByte(mean + factor*(float64(img.Pix[i])-mean))
		img.Pix[i+1] = clampByte(mean + factor*(float64(img.Pix[i+1])-mean))
		img.Pix[i+2] = clampByte(mean + factor*(float64(img.Pix[i+2])-mean))
	}
}

// sharpen blends the image against a 3x3 smoothing of itself:
// out = blur + factor*(in - blur). The one-pixel border is left untouched.
func sharpen(img *image.RGBA, factor float64) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	copy(out.Pix, img.Pix)
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			for c := 0; c < 3; c++ {
				var acc float64
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						w := 1.0
						if dx == 0 && dy == 0 {
							w = 5.0
						}
						acc += w * float64(img.Pix[img.PixOffset(x+dx, y+dy)+c])
					}
				}
				blur := acc / 13.0
				orig := float64(img.Pix[img.PixOffset(x, y)+c])
				out.Pix[out.PixOffset(x, y)+c] = clampByte(blur + factor*(orig-blur))
			}
		}
	}
	return out
}

func toGray(img *image.RGBA) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
