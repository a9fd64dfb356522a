// Package fake provides an in-memory desktop implementing the platform
// interfaces, for tests.
package fake

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/mj1618/guidepilot/internal/platform"
)

// ErrInjected is returned by operations listed in Desktop.Fail.
var ErrInjected = errors.New("fake: injected failure")

// EventKind identifies a recorded input event.
type EventKind string

const (
	EventKey     EventKind = "key"
	EventUnicode EventKind = "unicode"
	EventMove    EventKind = "move"
	EventButton  EventKind = "button"
	EventFocus   EventKind = "focus"
)

// Event is one recorded backend call that produced visible input.
type Event struct {
	Kind     EventKind
	Scan     uint16
	Unit     uint16
	Up       bool
	Extended bool
	X, Y     int
	Button   platform.MouseButton
	Handle   platform.Handle
}

// Window is a simulated top-level window.
type Window struct {
	Handle  platform.Handle
	Title   string
	Visible bool
	Rect    platform.Rect
	Client  platform.Rect
	// Pixels is what the composition path renders for the client area.
	Pixels *image.RGBA
}

// Desktop is a thread-safe simulated desktop.
type Desktop struct {
	mu         sync.Mutex
	windows    []*Window
	foreground platform.Handle
	events     []Event

	// Fail names operations that return ErrInjected: "list", "restore",
	// "foreground", "rect", "client", "capture", "key", "unicode",
	// "move", "button".
	Fail map[string]bool

	// RefuseForeground makes SetForeground succeed without actually
	// changing the foreground window.
	RefuseForeground bool

	// OnEvent, when set, is called after every recorded event without the
	// lock held.
	OnEvent func(Event)
}

// NewDesktop returns an empty desktop.
func NewDesktop() *Desktop {
	return &Desktop{Fail: map[string]bool{}}
}

// Provider returns a platform.Provider backed by this desktop.
func (d *Desktop) Provider() *platform.Provider {
	return &platform.Provider{
		WindowManager: d,
		Inputter:      d,
		Screenshotter: d,
	}
}

// AddWindow adds a visible window and returns it.
func (d *Desktop) AddWindow(h platform.Handle, title string) *Window {
	w := &Window{
		Handle:  h,
		Title:   title,
		Visible: true,
		Rect:    platform.Rect{Left: 100, Top: 100, Right: 900, Bottom: 700},
		Client:  platform.Rect{Left: 108, Top: 131, Right: 892, Bottom: 692},
	}
	d.mu.Lock()
	d.windows = append(d.windows, w)
	d.mu.Unlock()
	return w
}

// Close removes the window with the given handle.
func (d *Desktop) Close(h platform.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, w := range d.windows {
		if w.Handle == h {
			d.windows = append(d.windows[:i], d.windows[i+1:]...)
			break
		}
	}
	if d.foreground == h {
		d.foreground = 0
	}
}

// SetForegroundDirect changes the foreground window without recording input.
func (d *Desktop) SetForegroundDirect(h platform.Handle) {
	d.mu.Lock()
	d.foreground = h
	d.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (d *Desktop) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// ResetEvents clears the recorded events.
func (d *Desktop) ResetEvents() {
	d.mu.Lock()
	d.events = nil
	d.mu.Unlock()
}

func (d *Desktop) record(e Event) error {
	d.mu.Lock()
	d.events = append(d.events, e)
	hook := d.OnEvent
	d.mu.Unlock()
	if hook != nil {
		hook(e)
	}
	return nil
}

func (d *Desktop) failing(op string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Fail[op]
}

func (d *Desktop) find(h platform.Handle) *Window {
	for _, w := range d.windows {
		if w.Handle == h {
			return w
		}
	}
	return nil
}

func (d *Desktop) ListWindows() ([]platform.Window, error) {
	if d.failing("list") {
		return nil, ErrInjected
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []platform.Window
	for _, w := range d.windows {
		if w.Visible && w.Title != "" {
			out = append(out, platform.Window{Handle: w.Handle, Title: w.Title})
		}
	}
	return out, nil
}

func (d *Desktop) IsWindow(h platform.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.find(h) != nil
}

func (d *Desktop) ForegroundWindow() platform.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.foreground
}

func (d *Desktop) Restore(h platform.Handle) error {
	if d.failing("restore") {
		return ErrInjected
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if w := d.find(h); w != nil {
		w.Visible = true
		return nil
	}
	return fmt.Errorf("fake: no window %d", h)
}

func (d *Desktop) SetForeground(h platform.Handle) error {
	if d.failing("foreground") {
		return ErrInjected
	}
	d.mu.Lock()
	if d.find(h) == nil {
		d.mu.Unlock()
		return fmt.Errorf("fake: no window %d", h)
	}
	if !d.RefuseForeground {
		d.foreground = h
	}
	d.mu.Unlock()
	return d.record(Event{Kind: EventFocus, Handle: h})
}

func (d *Desktop) WindowRect(h platform.Handle) (platform.Rect, error) {
	if d.failing("rect") {
		return platform.Rect{}, ErrInjected
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if w := d.find(h); w != nil {
		return w.Rect, nil
	}
	return platform.Rect{}, fmt.Errorf("fake: no window %d", h)
}

func (d *Desktop) ClientRect(h platform.Handle) (platform.Rect, error) {
	if d.failing("client") {
		return platform.Rect{}, ErrInjected
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if w := d.find(h); w != nil {
		return w.Client, nil
	}
	return platform.Rect{}, fmt.Errorf("fake: no window %d", h)
}

func (d *Desktop) CaptureClient(h platform.Handle) (*image.RGBA, error) {
	if d.failing("capture") {
		return nil, ErrInjected
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	w := d.find(h)
	if w == nil {
		return nil, fmt.Errorf("fake: no window %d", h)
	}
	if w.Pixels != nil {
		return w.Pixels, nil
	}
	return image.NewRGBA(image.Rect(0, 0, w.Client.Width(), w.Client.Height())), nil
}

// ScanCode returns vk+0x100 so tests can tell scan codes from key codes.
func (d *Desktop) ScanCode(vk platform.VirtualKey) uint16 {
	return uint16(vk) + 0x100
}

func (d *Desktop) KeyScan(scan uint16, up, extended bool) error {
	if d.failing("key") {
		return ErrInjected
	}
	return d.record(Event{Kind: EventKey, Scan: scan, Up: up, Extended: extended})
}

func (d *Desktop) KeyUnicode(unit uint16, up bool) error {
	if d.failing("unicode") {
		return ErrInjected
	}
	return d.record(Event{Kind: EventUnicode, Unit: unit, Up: up})
}

func (d *Desktop) MoveMouse(x, y int) error {
	if d.failing("move") {
		return ErrInjected
	}
	return d.record(Event{Kind: EventMove, X: x, Y: y})
}

func (d *Desktop) MouseButton(button platform.MouseButton, up bool) error {
	if d.failing("button") {
		return ErrInjected
	}
	return d.record(Event{Kind: EventButton, Button: button, Up: up})
}

// TypedText reassembles the Unicode key-down events into a string.
func TypedText(events []Event) string {
	var units []rune
	for _, e := range events {
		if e.Kind == EventUnicode && !e.Up {
			units = append(units, rune(e.Unit))
		}
	}
	return string(units)
}
