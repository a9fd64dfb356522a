// Package capture produces pixel buffers of the bound window's client area
// or of an explicit screen region, together with their absolute origin.
package capture

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/kbinani/screenshot"

	"github.com/mj1618/guidepilot/internal/logx"
	"github.com/mj1618/guidepilot/internal/platform"
)

// ErrEmptyCapture is returned for zero-size windows and regions.
var ErrEmptyCapture = errors.New("capture: empty area")

// Result is a captured buffer. Image's (0,0) pixel sits at Origin in
// absolute screen coordinates.
type Result struct {
	Image  *image.RGBA
	Origin image.Point
}

// Rect returns the absolute screen rectangle the result covers.
func (r *Result) Rect() platform.Rect {
	b := r.Image.Bounds()
	return platform.Rect{
		Left:   r.Origin.X,
		Top:    r.Origin.Y,
		Right:  r.Origin.X + b.Dx(),
		Bottom: r.Origin.Y + b.Dy(),
	}
}

// Grabber copies visible screen pixels.
type Grabber interface {
	Grab(r image.Rectangle) (*image.RGBA, error)
}

// ScreenGrabber grabs the screen through github.com/kbinani/screenshot.
type ScreenGrabber struct{}

// Grab implements Grabber.
func (ScreenGrabber) Grab(r image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(r)
}

// Capturer captures windows and regions.
type Capturer struct {
	wm   platform.WindowManager
	shot platform.Screenshotter
	grab Grabber
	log  *slog.Logger
}

// New creates a Capturer. A nil grabber means ScreenGrabber.
func New(wm platform.WindowManager, shot platform.Screenshotter, grab Grabber, log *slog.Logger) *Capturer {
	if grab == nil {
		grab = ScreenGrabber{}
	}
	return &Capturer{wm: wm, shot: shot, grab: grab, log: logx.Component(log, "capture")}
}

// CaptureWindow captures the client area of h. It renders the window
// off-screen so occluded windows still capture correctly, and falls back
// once to a direct screen grab of the client rectangle when that fails.
func (c *Capturer) CaptureWindow(h platform.Handle) (*Result, error) {
	client, err := c.wm.ClientRect(h)
	if err != nil {
		return nil, fmt.Errorf("capture: client rect: %w", err)
	}
	if client.Empty() {
		return nil, ErrEmptyCapture
	}
	origin := image.Pt(client.Left, client.Top)

	if c.shot != nil {
		img, err := c.shot.CaptureClient(h)
		if err == nil && img != nil && !img.Bounds().Empty() {
			return &Result{Image: normalize(img), Origin: origin}, nil
		}
		c.log.Warn("composition capture failed, grabbing screen", "error", err)
	}

	img, err := c.grab.Grab(client.Image())
	if err != nil {
		return nil, fmt.Errorf("capture: screen grab: %w", err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyCapture
	}
	return &Result{Image: normalize(img), Origin: origin}, nil
}

// CaptureRegion grabs an explicit absolute screen rectangle.
func (c *Capturer) CaptureRegion(r platform.Rect) (*Result, error) {
	if r.Empty() {
		return nil, ErrEmptyCapture
	}
	img, err := c.grab.Grab(r.Image())
	if err != nil {
		return nil, fmt.Errorf("capture: screen grab: %w", err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyCapture
	}
	return &Result{Image: normalize(img), Origin: image.Pt(r.Left, r.Top)}, nil
}

// normalize rebases img so its bounds start at (0,0).
func normalize(img *image.RGBA) *image.RGBA {
	if img.Rect.Min == (image.Point{}) {
		return img
	}
	b := img.Bounds()
	return &image.RGBA{
		Pix:    img.Pix[img.PixOffset(b.Min.X, b.Min.Y):],
		Stride: img.Stride,
		Rect:   image.Rect(0, 0, b.Dx(), b.Dy()),
	}
}
