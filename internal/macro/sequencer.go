// Package macro runs timed input sequences against the bound window, at
// most one at a time.
package macro

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mj1618/guidepilot/internal/input"
	"github.com/mj1618/guidepilot/internal/logx"
	"github.com/mj1618/guidepilot/internal/metrics"
	"github.com/mj1618/guidepilot/internal/platform"
)

var (
	// ErrBusy rejects a trigger, or an exclusive input action, while a
	// macro or another exclusive action holds the input gate.
	ErrBusy = errors.New("macro: input busy")
	// ErrNotBound aborts a macro when no window is bound.
	ErrNotBound = errors.New("macro: no window bound")
	// ErrNotFocused aborts a macro when the window cannot be focused.
	ErrNotFocused = errors.New("macro: window not focused")
	// ErrEmptyCommand rejects a travel trigger without a command.
	ErrEmptyCommand = errors.New("macro: empty command")
	// ErrNoPanelPoint aborts a shortcut when the panel point is unset.
	ErrNoPanelPoint = errors.New("macro: shortcut panel point not configured")
)

// Kind names a macro.
type Kind string

const (
	KindTravel   Kind = "travel"
	KindShortcut Kind = "shortcut"
)

// Window is the bound-window side of a macro.
type Window interface {
	EnsureFocus() bool
	ClientRect() (platform.Rect, bool)
}

// Keyboard is the input side of a macro.
type Keyboard interface {
	Press(k input.Key) error
	SendText(text string) error
	Click(x, y int, button platform.MouseButton) error
}

// Report describes one finished flight.
type Report struct {
	ID       string        `yaml:"id"                 json:"id"`
	Kind     Kind          `yaml:"kind"               json:"kind"`
	Command  string        `yaml:"command,omitempty"  json:"command,omitempty"`
	Shortcut string        `yaml:"shortcut,omitempty" json:"shortcut,omitempty"`
	Started  time.Time     `yaml:"started"            json:"started"`
	Duration time.Duration `yaml:"duration"           json:"duration"`
	Err      error         `yaml:"-"                  json:"-"`
}

// OK reports whether the flight completed.
func (r Report) OK() bool { return r.Err == nil }

// Sequencer runs macros under a single-flight flag. The same gate
// serializes ad hoc input through Exclusive, so nothing is typed into a
// running macro.
type Sequencer struct {
	win     Window
	kb      Keyboard
	keys    Keys
	timings Timings
	sleep   func(time.Duration)
	now     func() time.Time
	log     *slog.Logger
	rec     metrics.Recorder

	// gate is held by a macro flight or an Exclusive call.
	gate    atomic.Bool
	running atomic.Bool
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithKeys overrides DefaultKeys.
func WithKeys(k Keys) Option { return func(s *Sequencer) { s.keys = k } }

// WithTimings overrides DefaultTimings.
func WithTimings(t Timings) Option { return func(s *Sequencer) { s.timings = t } }

// WithSleep replaces time.Sleep, for tests.
func WithSleep(fn func(time.Duration)) Option { return func(s *Sequencer) { s.sleep = fn } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sequencer) { s.log = logx.Component(l, "macro") }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(s *Sequencer) { s.rec = r } }

// New creates an idle Sequencer.
func New(win Window, kb Keyboard, opts ...Option) *Sequencer {
	s := &Sequencer{
		win:     win,
		kb:      kb,
		keys:    DefaultKeys(),
		timings: DefaultTimings(),
		sleep:   time.Sleep,
		now:     time.Now,
		log:     logx.Component(nil, "macro"),
		rec:     metrics.Nop{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Running reports whether a macro is in flight.
func (s *Sequencer) Running() bool { return s.running.Load() }

// Exclusive runs fn while holding the input gate. It returns ErrBusy
// without calling fn when a macro or another exclusive action holds it.
func (s *Sequencer) Exclusive(fn func() error) error {
	if !s.gate.CompareAndSwap(false, true) {
		s.log.Info("input busy, action rejected")
		return ErrBusy
	}
	defer s.gate.Store(false)
	return fn()
}

// RunTravel types a chat command and submits it, blocking until done.
func (s *Sequencer) RunTravel(command string) (Report, error) {
	return s.runSync(KindTravel, command, "", "")
}

// RunShortcut opens the shortcut panel, picks name, waits out the
// teleport, then types followOn as a travel command when it is set.
func (s *Sequencer) RunShortcut(name, followOn string) (Report, error) {
	return s.runSync(KindShortcut, followOn, name, followOn)
}

// GoTravel starts RunTravel on its own goroutine. It returns false, and
// never calls done, when the trigger is rejected.
func (s *Sequencer) GoTravel(command string, done func(Report)) bool {
	return s.runAsync(KindTravel, command, "", "", done)
}

// GoShortcut starts RunShortcut on its own goroutine. It returns false,
// and never calls done, when the trigger is rejected.
func (s *Sequencer) GoShortcut(name, followOn string, done func(Report)) bool {
	return s.runAsync(KindShortcut, followOn, name, followOn, done)
}

func (s *Sequencer) runSync(kind Kind, command, name, followOn string) (Report, error) {
	if kind == KindTravel && strings.TrimSpace(command) == "" {
		return Report{}, ErrEmptyCommand
	}
	if !s.acquire(kind) {
		return Report{}, ErrBusy
	}
	r := s.fly(kind, command, name, followOn)
	return r, r.Err
}

func (s *Sequencer) runAsync(kind Kind, command, name, followOn string, done func(Report)) bool {
	if kind == KindTravel && strings.TrimSpace(command) == "" {
		s.log.Warn("travel trigger without command ignored")
		return false
	}
	if !s.acquire(kind) {
		return false
	}
	go func() {
		r := s.fly(kind, command, name, followOn)
		if done != nil {
			done(r)
		}
	}()
	return true
}

func (s *Sequencer) acquire(kind Kind) bool {
	if !s.gate.CompareAndSwap(false, true) {
		s.log.Info("input busy, trigger rejected", "kind", kind)
		s.rec.ObserveMacro(string(kind), metrics.MacroRejected, 0)
		return false
	}
	s.running.Store(true)
	s.rec.SetMacroInFlight(true)
	return true
}

// fly runs one acquired flight. The flag is released on every path,
// including panics in a step.
func (s *Sequencer) fly(kind Kind, command, name, followOn string) (r Report) {
	r = Report{ID: uuid.NewString(), Kind: kind, Command: command, Shortcut: name, Started: s.now()}
	log := s.log.With("flight", r.ID, "kind", kind)

	defer func() {
		if p := recover(); p != nil {
			r.Err = fmt.Errorf("macro: step panicked: %v", p)
		}
		r.Duration = s.now().Sub(r.Started)
		result := metrics.MacroOK
		if r.Err != nil {
			result = metrics.MacroFailed
			log.Error("macro aborted", "error", r.Err, "elapsed", r.Duration)
		} else {
			log.Info("macro done", "elapsed", r.Duration)
		}
		s.running.Store(false)
		s.gate.Store(false)
		s.rec.SetMacroInFlight(false)
		s.rec.ObserveMacro(string(kind), result, r.Duration)
	}()

	if _, ok := s.win.ClientRect(); !ok {
		r.Err = ErrNotBound
		return r
	}
	if !s.win.EnsureFocus() {
		r.Err = ErrNotFocused
		return r
	}

	log.Info("macro start", "command", command, "shortcut", name)
	switch kind {
	case KindTravel:
		r.Err = s.travel(command)
	case KindShortcut:
		r.Err = s.shortcut(name, followOn)
	}
	return r
}

func (s *Sequencer) travel(command string) error {
	t := s.timings
	if err := s.kb.Press(s.keys.Chat); err != nil {
		return fmt.Errorf("open chat: %w", err)
	}
	s.sleep(t.AfterChatKey)
	if err := s.kb.SendText(command); err != nil {
		return fmt.Errorf("type command: %w", err)
	}
	s.sleep(t.AfterCommand)
	if err := s.kb.Press(s.keys.Confirm); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	s.sleep(t.BetweenConfirms)
	if err := s.kb.Press(s.keys.Confirm); err != nil {
		return fmt.Errorf("close chat: %w", err)
	}
	return nil
}

func (s *Sequencer) shortcut(name, followOn string) error {
	t := s.timings
	if s.keys.PanelClick == (image.Point{}) {
		return ErrNoPanelPoint
	}
	if err := s.kb.Press(s.keys.Panel); err != nil {
		return fmt.Errorf("open panel: %w", err)
	}
	s.sleep(t.PanelOpen)

	client, ok := s.win.ClientRect()
	if !ok {
		return ErrNotBound
	}
	x, y := client.Left+s.keys.PanelClick.X, client.Top+s.keys.PanelClick.Y
	if err := s.kb.Click(x, y, platform.MouseLeft); err != nil {
		return fmt.Errorf("click panel: %w", err)
	}
	if name != "" {
		if err := s.kb.SendText(name); err != nil {
			return fmt.Errorf("type shortcut: %w", err)
		}
		if err := s.kb.Press(s.keys.Confirm); err != nil {
			return fmt.Errorf("confirm shortcut: %w", err)
		}
	}
	s.sleep(t.AfterShortcut)

	if strings.TrimSpace(followOn) == "" {
		return nil
	}
	return s.travel(followOn)
}
