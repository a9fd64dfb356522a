package input

import (
	"fmt"
	"strings"

	"github.com/mj1618/guidepilot/internal/platform"
)

// Virtual-key codes used by the macros.
const (
	VKBack   platform.VirtualKey = 0x08
	VKTab    platform.VirtualKey = 0x09
	VKReturn platform.VirtualKey = 0x0D
	VKEscape platform.VirtualKey = 0x1B
	VKSpace  platform.VirtualKey = 0x20
	VKPrior  platform.VirtualKey = 0x21
	VKNext   platform.VirtualKey = 0x22
	VKEnd    platform.VirtualKey = 0x23
	VKHome   platform.VirtualKey = 0x24
	VKLeft   platform.VirtualKey = 0x25
	VKUp     platform.VirtualKey = 0x26
	VKRight  platform.VirtualKey = 0x27
	VKDown   platform.VirtualKey = 0x28
	VKInsert platform.VirtualKey = 0x2D
	VKDelete platform.VirtualKey = 0x2E
	VKLWin   platform.VirtualKey = 0x5B
	VKRWin   platform.VirtualKey = 0x5C
	VKF1     platform.VirtualKey = 0x70
)

// Key is a virtual key plus whether it needs the extended flag.
type Key struct {
	VK       platform.VirtualKey
	Extended bool
}

var namedKeys = map[string]Key{
	"backspace": {VKBack, false},
	"tab":       {VKTab, false},
	"enter":     {VKReturn, false},
	"return":    {VKReturn, false},
	"escape":    {VKEscape, false},
	"esc":       {VKEscape, false},
	"space":     {VKSpace, false},
	"pageup":    {VKPrior, true},
	"pagedown":  {VKNext, true},
	"end":       {VKEnd, true},
	"home":      {VKHome, true},
	"left":      {VKLeft, true},
	"up":        {VKUp, true},
	"right":     {VKRight, true},
	"down":      {VKDown, true},
	"insert":    {VKInsert, true},
	"delete":    {VKDelete, true},
	"del":       {VKDelete, true},
	"win":       {VKLWin, true},
	"lwin":      {VKLWin, true},
	"rwin":      {VKRWin, true},
}

// ParseKey resolves a key name: a named key ("enter", "left"), a single
// letter or digit, f1-f12, or a hex code ("0x5A").
func ParseKey(s string) (Key, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return Key{}, fmt.Errorf("empty key name")
	}
	if k, ok := namedKeys[name]; ok {
		return k, nil
	}
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return Key{VK: platform.VirtualKey(c - 'a' + 'A')}, nil
		case c >= '0' && c <= '9':
			return Key{VK: platform.VirtualKey(c)}, nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 12 && name == fmt.Sprintf("f%d", n) {
		return Key{VK: VKF1 + platform.VirtualKey(n-1)}, nil
	}
	if strings.HasPrefix(name, "0x") {
		var code uint16
		if _, err := fmt.Sscanf(name, "0x%x", &code); err == nil && code > 0 && code < 0xFF {
			return Key{VK: platform.VirtualKey(code), Extended: isExtended(platform.VirtualKey(code))}, nil
		}
	}
	return Key{}, fmt.Errorf("unknown key %q", s)
}

// isExtended reports whether vk shares its scan code with a numpad key and
// so needs the extended flag.
func isExtended(vk platform.VirtualKey) bool {
	switch vk {
	case VKPrior, VKNext, VKEnd, VKHome, VKLeft, VKUp, VKRight, VKDown, VKInsert, VKDelete, VKLWin, VKRWin:
		return true
	}
	return false
}
