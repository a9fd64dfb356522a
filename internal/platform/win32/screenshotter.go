//go:build windows

package win32

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/mj1618/guidepilot/internal/platform"
)

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [1]uint32
}

// Screenshotter implements platform.Screenshotter with PrintWindow, which
// renders the window off-screen and so works for obscured windows.
type Screenshotter struct{}

// NewScreenshotter creates a new Windows screenshotter.
func NewScreenshotter() *Screenshotter {
	return &Screenshotter{}
}

func (s *Screenshotter) CaptureClient(h platform.Handle) (*image.RGBA, error) {
	var r rect
	if ok, _, err := procGetClientRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r))); ok == 0 {
		return nil, fmt.Errorf("GetClientRect: %w", errnoOr(err))
	}
	width, height := r.Right-r.Left, r.Bottom-r.Top
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("client area is %dx%d", width, height)
	}

	hwnd := uintptr(h)
	windowDC, _, _ := procGetDC.Call(hwnd)
	if windowDC == 0 {
		return nil, fmt.Errorf("GetDC failed")
	}
	defer procReleaseDC.Call(hwnd, windowDC)

	memDC, _, _ := procCreateCompatibleDC.Call(windowDC)
	if memDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(memDC)

	bitmap, _, _ := procCreateCompatibleBitmap.Call(windowDC, uintptr(width), uintptr(height))
	if bitmap == 0 {
		return nil, fmt.Errorf("CreateCompatibleBitmap failed")
	}
	defer procDeleteObject.Call(bitmap)

	old, _, _ := procSelectObject.Call(memDC, bitmap)
	defer procSelectObject.Call(memDC, old)

	if ok, _, _ := procPrintWindow.Call(hwnd, memDC, pwClientOnly|pwRenderFullContent); ok == 0 {
		return nil, fmt.Errorf("PrintWindow failed")
	}

	bi := bitmapInfo{Header: bitmapInfoHeader{
		Width:       width,
		Height:      -height, // top-down rows
		Planes:      1,
		BitCount:    32,
		Compression: biRGB,
	}}
	bi.Header.Size = uint32(unsafe.Sizeof(bi.Header))

	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	// The bitmap must not be selected into a DC while GetDIBits reads it.
	procSelectObject.Call(memDC, old)
	lines, _, _ := procGetDIBits.Call(memDC, bitmap, 0, uintptr(height),
		uintptr(unsafe.Pointer(&img.Pix[0])), uintptr(unsafe.Pointer(&bi)), dibRGBColors)
	if lines == 0 {
		return nil, fmt.Errorf("GetDIBits failed")
	}

	// BGRA -> RGBA, forcing opaque alpha.
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		img.Pix[i+3] = 0xff
	}
	return img, nil
}
