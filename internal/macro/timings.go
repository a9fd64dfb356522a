package macro

import (
	"image"
	"time"

	"github.com/mj1618/guidepilot/internal/input"
)

// Timings are the fixed waits between macro steps. They track the game
// client's input and rendering latency.
type Timings struct {
	// AfterChatKey follows the key that opens the chat box.
	AfterChatKey time.Duration `yaml:"after_chat_key"`
	// AfterCommand follows typing the command.
	AfterCommand time.Duration `yaml:"after_command"`
	// BetweenConfirms separates the two confirm presses. The second one
	// closes the chat box when the first only submitted.
	BetweenConfirms time.Duration `yaml:"between_confirms"`
	// PanelOpen is the shortcut panel's open animation.
	PanelOpen time.Duration `yaml:"panel_open"`
	// AfterShortcut covers the teleport loading screen.
	AfterShortcut time.Duration `yaml:"after_shortcut"`
}

// DefaultTimings returns the timings measured against the game client.
func DefaultTimings() Timings {
	return Timings{
		AfterChatKey:    100 * time.Millisecond,
		AfterCommand:    100 * time.Millisecond,
		BetweenConfirms: 300 * time.Millisecond,
		PanelOpen:       1700 * time.Millisecond,
		AfterShortcut:   2000 * time.Millisecond,
	}
}

// Keys are the keys and points the macros drive.
type Keys struct {
	Chat    input.Key
	Confirm input.Key
	Panel   input.Key
	// PanelClick is relative to the bound window's client area.
	PanelClick image.Point
}

// DefaultKeys returns the stock key bindings. PanelClick has no sensible
// default and must be configured before shortcuts can run.
func DefaultKeys() Keys {
	return Keys{
		Chat:    input.Key{VK: input.VKSpace},
		Confirm: input.Key{VK: input.VKReturn},
		Panel:   input.Key{VK: 'H'},
	}
}
