// Package window binds the automation core to a single foreign top-level
// window and keeps it focused.
package window

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mj1618/guidepilot/internal/logx"
	"github.com/mj1618/guidepilot/internal/platform"
)

// DefaultFocusSettle is how long EnsureFocus waits after a foreground
// transfer before returning, so the next input does not race the window
// manager's focus animation.
const DefaultFocusSettle = 200 * time.Millisecond

// Bound is the currently bound window.
type Bound struct {
	Handle platform.Handle `yaml:"handle" json:"handle"`
	Title  string          `yaml:"title"  json:"title"`
}

// Binder owns the single bound window.
type Binder struct {
	wm     platform.WindowManager
	log    *slog.Logger
	settle time.Duration
	sleep  func(time.Duration)

	mu    sync.Mutex
	bound *Bound
}

// Option configures a Binder.
type Option func(*Binder)

// WithFocusSettle overrides DefaultFocusSettle.
func WithFocusSettle(d time.Duration) Option {
	return func(b *Binder) { b.settle = d }
}

// WithSleep replaces time.Sleep, for tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(b *Binder) { b.sleep = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Binder) { b.log = logx.Component(l, "window") }
}

// NewBinder creates an unbound Binder.
func NewBinder(wm platform.WindowManager, opts ...Option) *Binder {
	b := &Binder{
		wm:     wm,
		log:    logx.Component(nil, "window"),
		settle: DefaultFocusSettle,
		sleep:  time.Sleep,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// ListWindows returns the visible titled top-level windows.
func (b *Binder) ListWindows() ([]platform.Window, error) {
	return b.wm.ListWindows()
}

// Bind binds the first visible window whose title contains partialTitle,
// case-insensitively. When nothing matches, any previous binding is cleared
// and Bind returns false.
func (b *Binder) Bind(partialTitle string) bool {
	needle := strings.ToLower(strings.TrimSpace(partialTitle))

	var match *Bound
	if needle != "" {
		windows, err := b.wm.ListWindows()
		if err != nil {
			b.log.Warn("window enumeration failed", "error", err)
		}
		for _, w := range windows {
			if strings.Contains(strings.ToLower(w.Title), needle) {
				match = &Bound{Handle: w.Handle, Title: w.Title}
				break
			}
		}
	}

	b.mu.Lock()
	b.bound = match
	b.mu.Unlock()

	if match == nil {
		b.log.Warn("no window matches", "title", partialTitle)
		return false
	}
	b.log.Info("window bound", "title", match.Title, "handle", uintptr(match.Handle))
	return true
}

// Bound returns the current binding.
func (b *Binder) Bound() (Bound, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bound == nil {
		return Bound{}, false
	}
	return *b.bound, true
}

// Unbind clears the binding.
func (b *Binder) Unbind() {
	b.mu.Lock()
	b.bound = nil
	b.mu.Unlock()
}

// live returns the bound handle, clearing the binding if the window is gone.
func (b *Binder) live() (platform.Handle, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bound == nil {
		return 0, false
	}
	if !b.wm.IsWindow(b.bound.Handle) {
		b.log.Warn("bound window closed", "title", b.bound.Title)
		b.bound = nil
		return 0, false
	}
	return b.bound.Handle, true
}

// EnsureFocus brings the bound window to the foreground. It returns false
// when nothing is bound, the window has closed (the binding is cleared), or
// the OS refuses the foreground transfer.
func (b *Binder) EnsureFocus() bool {
	h, ok := b.live()
	if !ok {
		return false
	}
	if b.wm.ForegroundWindow() == h {
		return true
	}
	if err := b.wm.Restore(h); err != nil {
		b.log.Warn("restore failed", "error", err)
		return false
	}
	if err := b.wm.SetForeground(h); err != nil {
		b.log.Warn("foreground transfer refused", "error", err)
		return false
	}
	b.sleep(b.settle)
	return true
}

// WindowRect returns the live outer rectangle of the bound window.
func (b *Binder) WindowRect() (platform.Rect, bool) {
	h, ok := b.live()
	if !ok {
		return platform.Rect{}, false
	}
	r, err := b.wm.WindowRect(h)
	if err != nil {
		b.log.Warn("window rect query failed", "error", err)
		return platform.Rect{}, false
	}
	return r, true
}

// ClientRect returns the live client area of the bound window in screen
// coordinates.
func (b *Binder) ClientRect() (platform.Rect, bool) {
	h, ok := b.live()
	if !ok {
		return platform.Rect{}, false
	}
	r, err := b.wm.ClientRect(h)
	if err != nil {
		b.log.Warn("client rect query failed", "error", err)
		return platform.Rect{}, false
	}
	return r, true
}

// WaitActive polls until the foreground window's title contains
// partialTitle or ctx is done.
func (b *Binder) WaitActive(ctx context.Context, partialTitle string, poll time.Duration) bool {
	needle := strings.ToLower(strings.TrimSpace(partialTitle))
	if needle == "" {
		return false
	}
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		if b.foregroundMatches(needle) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func (b *Binder) foregroundMatches(needle string) bool {
	fg := b.wm.ForegroundWindow()
	if fg == 0 {
		return false
	}
	windows, err := b.wm.ListWindows()
	if err != nil {
		return false
	}
	for _, w := range windows {
		if w.Handle == fg {
			return strings.Contains(strings.ToLower(w.Title), needle)
		}
	}
	return false
}
