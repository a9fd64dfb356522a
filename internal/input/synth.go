// Package input synthesizes keyboard and mouse input for the bound window.
// Keys go through scan codes, text through Unicode events.
package input

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf16"

	"github.com/mj1618/guidepilot/internal/logx"
	"github.com/mj1618/guidepilot/internal/platform"
)

// ErrNotFocused is returned when the bound window cannot be focused; no
// input is synthesized.
var ErrNotFocused = errors.New("input: window not focused")

// Focuser brings the bound window to the foreground.
type Focuser interface {
	EnsureFocus() bool
}

// Timings are the waits the target application needs between events.
type Timings struct {
	// Settle follows a successful focus, before the first event.
	Settle time.Duration
	// Hold is the default key-down duration for SendKey.
	Hold time.Duration
	// CharDelay follows each typed character.
	CharDelay time.Duration
}

// DefaultTimings returns the timings tuned against the game client.
func DefaultTimings() Timings {
	return Timings{
		Settle:    50 * time.Millisecond,
		Hold:      50 * time.Millisecond,
		CharDelay: 20 * time.Millisecond,
	}
}

// Synth sends input through a platform.Inputter.
type Synth struct {
	in      platform.Inputter
	focus   Focuser
	timings Timings
	sleep   func(time.Duration)
	log     *slog.Logger
}

// Option configures a Synth.
type Option func(*Synth)

// WithTimings overrides DefaultTimings.
func WithTimings(t Timings) Option { return func(s *Synth) { s.timings = t } }

// WithSleep replaces time.Sleep, for tests.
func WithSleep(fn func(time.Duration)) Option { return func(s *Synth) { s.sleep = fn } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Synth) { s.log = logx.Component(l, "input") } }

// NewSynth creates a Synth.
func NewSynth(in platform.Inputter, focus Focuser, opts ...Option) *Synth {
	s := &Synth{
		in:      in,
		focus:   focus,
		timings: DefaultTimings(),
		sleep:   time.Sleep,
		log:     logx.Component(nil, "input"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Timings returns the active timings.
func (s *Synth) Timings() Timings { return s.timings }

func (s *Synth) prepare() error {
	if !s.focus.EnsureFocus() {
		return ErrNotFocused
	}
	s.sleep(s.timings.Settle)
	return nil
}

// SendKey presses and releases vk by scan code, holding it for hold (0
// means the default hold).
func (s *Synth) SendKey(vk platform.VirtualKey, hold time.Duration, extended bool) error {
	if err := s.prepare(); err != nil {
		return err
	}
	if hold <= 0 {
		hold = s.timings.Hold
	}
	scan := s.in.ScanCode(vk)
	if err := s.in.KeyScan(scan, false, extended); err != nil {
		return fmt.Errorf("input: key %#x down: %w", uint16(vk), err)
	}
	s.sleep(hold)
	if err := s.in.KeyScan(scan, true, extended); err != nil {
		return fmt.Errorf("input: key %#x up: %w", uint16(vk), err)
	}
	return nil
}

// Press is SendKey for a parsed Key with the default hold.
func (s *Synth) Press(k Key) error {
	return s.SendKey(k.VK, 0, k.Extended)
}

// KeyDown focuses the window and presses vk without releasing it.
func (s *Synth) KeyDown(vk platform.VirtualKey, extended bool) error {
	if err := s.prepare(); err != nil {
		return err
	}
	if err := s.in.KeyScan(s.in.ScanCode(vk), false, extended); err != nil {
		return fmt.Errorf("input: key %#x down: %w", uint16(vk), err)
	}
	return nil
}

// KeyUp releases vk. It does not refocus, so a key held across a focus
// change is still released.
func (s *Synth) KeyUp(vk platform.VirtualKey, extended bool) error {
	if err := s.in.KeyScan(s.in.ScanCode(vk), true, extended); err != nil {
		return fmt.Errorf("input: key %#x up: %w", uint16(vk), err)
	}
	return nil
}

// SendText types text as Unicode key events, one UTF-16 unit at a time.
func (s *Synth) SendText(text string) error {
	if err := s.prepare(); err != nil {
		return err
	}
	s.log.Debug("typing", "text", text)
	for _, unit := range utf16.Encode([]rune(text)) {
		if err := s.in.KeyUnicode(unit, false); err != nil {
			return fmt.Errorf("input: type %q: %w", text, err)
		}
		if err := s.in.KeyUnicode(unit, true); err != nil {
			return fmt.Errorf("input: type %q: %w", text, err)
		}
		s.sleep(s.timings.CharDelay)
	}
	return nil
}

// Click moves the cursor to the absolute point and clicks button.
func (s *Synth) Click(x, y int, button platform.MouseButton) error {
	if err := s.in.MoveMouse(x, y); err != nil {
		return fmt.Errorf("input: move to (%d,%d): %w", x, y, err)
	}
	if err := s.in.MouseButton(button, false); err != nil {
		return fmt.Errorf("input: button down: %w", err)
	}
	if err := s.in.MouseButton(button, true); err != nil {
		return fmt.Errorf("input: button up: %w", err)
	}
	return nil
}
