package ocr

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	wordColor  = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	matchColor = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	labelColor = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	haloColor  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// Annotate returns a color copy of img with every recognized word boxed and
// labeled. The matched word, if any, is boxed in green.
func Annotate(img image.Image, words []WordBox, match *WordBox) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	for _, w := range words {
		c := wordColor
		if match != nil && w == *match {
			c = matchColor
		}
		drawRectangle(rgba, w.Left, w.Top, w.Left+w.Width, w.Top+w.Height, c)
		drawLabel(rgba, w.Text, w.Left, w.Top-2)
	}
	return rgba
}

// drawRectangle draws a clamped rectangle outline.
func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	b := img.Bounds()
	x1, y1 = max(x1, b.Min.X), max(y1, b.Min.Y)
	x2, y2 = min(x2, b.Max.X), min(y2, b.Max.Y)
	if x2 <= x1 || y2 <= y1 {
		return
	}
	for x := x1; x < x2; x++ {
		img.Set(x, y1, c)
		img.Set(x, y2-1, c)
	}
	for y := y1; y < y2; y++ {
		img.Set(x1, y, c)
		img.Set(x2-1, y, c)
	}
}

// drawLabel writes text with its baseline at (x, y), over a one-pixel halo
// so it stays readable on both black and white.
func drawLabel(img *image.RGBA, text string, x, y int) {
	if y < 13 {
		y = 13
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx != 0 || dy != 0 {
				drawString(img, text, x+dx, y+dy, haloColor)
			}
		}
	}
	drawString(img, text, x, y, labelColor)
}

func drawString(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
