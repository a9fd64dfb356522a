// Package preprocess prepares captured pixels for text recognition:
// upscale, grayscale, then a hard binary threshold.
package preprocess

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Defaults used when nothing is configured. They suit light name tags on
// game backgrounds at 100% DPI and are expected to be tuned per zone.
const (
	DefaultThreshold uint8   = 190
	DefaultScale     float64 = 3.0

	// MaxScale is the largest upscale callers should ask for.
	MaxScale  float64 = 8
	// MaxPixels bounds the upscaled image; larger requests yield nil.
	MaxPixels float64 = 1 << 28
)

// Options controls Preprocess.
type Options struct {
	Threshold uint8
	Scale     float64
	// Invert swaps black and white after thresholding, so light text on a
	// dark background ends up dark on light.
	Invert bool
}

// Preprocess returns the binarized, upscaled image, or nil for nil or
// zero-size input and for an upscaled size above MaxPixels. Scale values
// below 1 are treated as 1.
func Preprocess(img image.Image, opts Options) *image.Gray {
	if img == nil {
		return nil
	}
	src := img.Bounds()
	if src.Empty() {
		return nil
	}
	scale := opts.Scale
	if scale < 1 || math.IsNaN(scale) {
		scale = 1
	}

	fw := math.Round(float64(src.Dx()) * scale)
	fh := math.Round(float64(src.Dy()) * scale)
	if math.IsInf(scale, 0) || fw*fh > MaxPixels {
		return nil
	}
	w, h := int(fw), int(fh)
	gray := image.NewGray(image.Rect(0, 0, w, h))
	if scale == 1 {
		draw.Draw(gray, gray.Bounds(), img, src.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(gray, gray.Bounds(), img, src, draw.Src, nil)
	}

	lo, hi := uint8(0), uint8(255)
	if opts.Invert {
		lo, hi = hi, lo
	}
	for i, y := range gray.Pix {
		if y > opts.Threshold {
			gray.Pix[i] = hi
		} else {
			gray.Pix[i] = lo
		}
	}
	return gray
}
