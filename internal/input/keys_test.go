package input

import (
	"testing"

	"github.com/mj1618/guidepilot/internal/platform"
)

func TestParseKey_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  Key
	}{
		{"enter", Key{VKReturn, false}},
		{"Enter", Key{VKReturn, false}},
		{"space", Key{VKSpace, false}},
		{"escape", Key{VKEscape, false}},
		{"left", Key{VKLeft, true}},
		{"delete", Key{VKDelete, true}},
		{"pageup", Key{VKPrior, true}},
		{"win", Key{VKLWin, true}},
		{"z", Key{VK: 'Z'}},
		{"H", Key{VK: 'H'}},
		{"7", Key{VK: '7'}},
		{"f1", Key{VK: VKF1}},
		{"F12", Key{VK: VKF1 + 11}},
		{"0x5A", Key{VK: 0x5A}},
		{"0x25", Key{VK: VKLeft, Extended: true}},
	}
	for _, tt := range tests {
		got, err := ParseKey(tt.input)
		if err != nil {
			t.Errorf("ParseKey(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKey(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestParseKey_Invalid(t *testing.T) {
	for _, s := range []string{"", "  ", "f13", "f0", "ctrl+a", "0x", "0xzz", "!"} {
		if _, err := ParseKey(s); err == nil {
			t.Errorf("ParseKey(%q) should fail", s)
		}
	}
}

func TestIsExtended(t *testing.T) {
	if !isExtended(VKDown) || isExtended(VKReturn) || isExtended(platform.VirtualKey('A')) {
		t.Error("isExtended misclassifies keys")
	}
}
