//go:build windows

package win32

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"github.com/mj1618/guidepilot/internal/platform"
	"golang.org/x/sys/windows"
)

// WindowManager implements platform.WindowManager with user32.
type WindowManager struct{}

// NewWindowManager creates a new Windows window manager.
func NewWindowManager() *WindowManager {
	return &WindowManager{}
}

// enumCallback is created once; windows.NewCallback slots are a finite
// process-wide resource.
var (
	enumCallback = windows.NewCallback(enumProc)
	enumMu       sync.Mutex
	enumTarget   *[]platform.Window
)

func enumProc(hwnd uintptr, _ uintptr) uintptr {
	if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
		return 1
	}
	title := windowText(hwnd)
	if title == "" {
		return 1
	}
	*enumTarget = append(*enumTarget, platform.Window{Handle: platform.Handle(hwnd), Title: title})
	return 1
}

func windowText(hwnd uintptr) string {
	n, _, _ := procGetWindowTextLength.Call(hwnd)
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

func (m *WindowManager) ListWindows() ([]platform.Window, error) {
	enumMu.Lock()
	defer enumMu.Unlock()
	var out []platform.Window
	enumTarget = &out
	defer func() { enumTarget = nil }()
	if r, _, err := procEnumWindows.Call(enumCallback, 0); r == 0 {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	return out, nil
}

func (m *WindowManager) IsWindow(h platform.Handle) bool {
	r, _, _ := procIsWindow.Call(uintptr(h))
	return r != 0
}

func (m *WindowManager) ForegroundWindow() platform.Handle {
	r, _, _ := procGetForegroundWindow.Call()
	return platform.Handle(r)
}

func (m *WindowManager) Restore(h platform.Handle) error {
	// ShowWindow returns the previous visibility state, not success.
	if iconic, _, _ := procIsIconic.Call(uintptr(h)); iconic != 0 {
		procShowWindow.Call(uintptr(h), swRestore)
	}
	return nil
}

func (m *WindowManager) SetForeground(h platform.Handle) error {
	if r, _, _ := procSetForegroundWindow.Call(uintptr(h)); r == 0 {
		return fmt.Errorf("SetForegroundWindow refused for window %#x", uintptr(h))
	}
	return nil
}

func (m *WindowManager) WindowRect(h platform.Handle) (platform.Rect, error) {
	var r rect
	if ok, _, err := procGetWindowRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r))); ok == 0 {
		return platform.Rect{}, fmt.Errorf("GetWindowRect: %w", errnoOr(err))
	}
	return platform.Rect{Left: int(r.Left), Top: int(r.Top), Right: int(r.Right), Bottom: int(r.Bottom)}, nil
}

func (m *WindowManager) ClientRect(h platform.Handle) (platform.Rect, error) {
	var r rect
	if ok, _, err := procGetClientRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r))); ok == 0 {
		return platform.Rect{}, fmt.Errorf("GetClientRect: %w", errnoOr(err))
	}
	var p point
	if ok, _, err := procClientToScreen.Call(uintptr(h), uintptr(unsafe.Pointer(&p))); ok == 0 {
		return platform.Rect{}, fmt.Errorf("ClientToScreen: %w", errnoOr(err))
	}
	return platform.Rect{
		Left:   int(p.X),
		Top:    int(p.Y),
		Right:  int(p.X + r.Right),
		Bottom: int(p.Y + r.Bottom),
	}, nil
}

// errnoOr turns the always-non-nil error of LazyProc.Call into something
// useful when the call did not set a last error.
func errnoOr(err error) error {
	if errno, ok := err.(syscall.Errno); ok && errno == 0 {
		return fmt.Errorf("call failed")
	}
	return err
}
