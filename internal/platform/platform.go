package platform

import "image"

// WindowManager enumerates top-level windows and manages their focus.
type WindowManager interface {
	// ListWindows returns visible top-level windows that have a title,
	// in the order the OS enumerates them.
	ListWindows() ([]Window, error)

	// IsWindow reports whether the handle still refers to a live window.
	IsWindow(h Handle) bool

	// ForegroundWindow returns the handle of the current foreground window.
	ForegroundWindow() Handle

	// Restore un-minimizes the window.
	Restore(h Handle) error

	// SetForeground requests foreground status for the window.
	SetForeground(h Handle) error

	// WindowRect returns the window's outer rectangle in screen pixels.
	WindowRect(h Handle) (Rect, error)

	// ClientRect returns the window's client area in screen pixels.
	ClientRect(h Handle) (Rect, error)
}

// Inputter injects synthetic keyboard and mouse events.
type Inputter interface {
	// ScanCode maps a virtual-key code to its hardware scan code.
	ScanCode(vk VirtualKey) uint16

	// KeyScan sends a single scan-code key event.
	KeyScan(scan uint16, up, extended bool) error

	// KeyUnicode sends a single UTF-16 code unit as a Unicode key event.
	KeyUnicode(unit uint16, up bool) error

	// MoveMouse moves the cursor to absolute screen coordinates.
	MoveMouse(x, y int) error

	// MouseButton presses or releases a mouse button at the current position.
	MouseButton(button MouseButton, up bool) error
}

// Screenshotter captures window contents through an off-screen composition
// path that does not depend on the window being visible.
type Screenshotter interface {
	// CaptureClient renders the client area of the window. The returned
	// image has its origin at (0,0).
	CaptureClient(h Handle) (*image.RGBA, error)
}
