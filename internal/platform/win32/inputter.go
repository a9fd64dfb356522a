//go:build windows

package win32

import (
	"fmt"
	"unsafe"

	"github.com/mj1618/guidepilot/internal/platform"
)

// mouseInput mirrors MOUSEINPUT, the largest member of the INPUT union.
type mouseInput struct {
	Dx        int32
	Dy        int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// keybdInput mirrors KEYBDINPUT.
type keybdInput struct {
	Vk        uint16
	Scan      uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type input struct {
	Type uint32
	Mi   mouseInput
}

// Inputter implements platform.Inputter with SendInput.
type Inputter struct{}

// NewInputter creates a new Windows inputter.
func NewInputter() *Inputter {
	return &Inputter{}
}

func (i *Inputter) ScanCode(vk platform.VirtualKey) uint16 {
	r, _, _ := procMapVirtualKeyW.Call(uintptr(vk), mapvkVKToVSC)
	return uint16(r)
}

func (i *Inputter) KeyScan(scan uint16, up, extended bool) error {
	flags := uint32(keyeventfScanCode)
	if extended {
		flags |= keyeventfExtendedKey
	}
	if up {
		flags |= keyeventfKeyUp
	}
	return sendKeyboard(keybdInput{Scan: scan, Flags: flags})
}

func (i *Inputter) KeyUnicode(unit uint16, up bool) error {
	flags := uint32(keyeventfUnicode)
	if up {
		flags |= keyeventfKeyUp
	}
	return sendKeyboard(keybdInput{Scan: unit, Flags: flags})
}

func (i *Inputter) MoveMouse(x, y int) error {
	if r, _, err := procSetCursorPos.Call(uintptr(x), uintptr(y)); r == 0 {
		return fmt.Errorf("SetCursorPos(%d, %d): %w", x, y, errnoOr(err))
	}
	return nil
}

func (i *Inputter) MouseButton(button platform.MouseButton, up bool) error {
	var flags uint32
	switch button {
	case platform.MouseLeft:
		flags = mouseeventfLeftDown
		if up {
			flags = mouseeventfLeftUp
		}
	case platform.MouseRight:
		flags = mouseeventfRightDown
		if up {
			flags = mouseeventfRightUp
		}
	case platform.MouseMiddle:
		flags = mouseeventfMiddleDown
		if up {
			flags = mouseeventfMiddleUp
		}
	default:
		return fmt.Errorf("unknown mouse button %d", button)
	}
	in := input{Type: inputMouse, Mi: mouseInput{Flags: flags}}
	return send(&in)
}

func sendKeyboard(ki keybdInput) error {
	in := input{Type: inputKeyboard}
	*(*keybdInput)(unsafe.Pointer(&in.Mi)) = ki
	return send(&in)
}

func send(in *input) error {
	n, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(in)), unsafe.Sizeof(*in))
	if n != 1 {
		return fmt.Errorf("SendInput: %w", errnoOr(err))
	}
	return nil
}
