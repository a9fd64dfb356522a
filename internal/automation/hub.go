// Package automation wires window binding, capture, text location, input
// and macros into the single surface the CLI, the MCP server and the
// controller drive.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/mj1618/guidepilot/internal/capture"
	"github.com/mj1618/guidepilot/internal/config"
	"github.com/mj1618/guidepilot/internal/input"
	"github.com/mj1618/guidepilot/internal/intent"
	"github.com/mj1618/guidepilot/internal/logx"
	"github.com/mj1618/guidepilot/internal/macro"
	"github.com/mj1618/guidepilot/internal/metrics"
	"github.com/mj1618/guidepilot/internal/ocr"
	"github.com/mj1618/guidepilot/internal/platform"
	"github.com/mj1618/guidepilot/internal/preprocess"
	"github.com/mj1618/guidepilot/internal/window"
)

var (
	// ErrNotBound is returned when an operation needs a bound window.
	ErrNotBound = errors.New("automation: no window bound")
	// ErrNotFocused aborts a locate when the bound window cannot be
	// brought to the foreground.
	ErrNotFocused = errors.New("automation: window not focused")
	// ErrEmptyTarget rejects a locate request without a target.
	ErrEmptyTarget = errors.New("automation: empty locate target")
)

// Deps are the runtime collaborators of a Hub.
type Deps struct {
	Provider *platform.Provider
	// Engine recognizes text. Nil disables recognition; locates then
	// always miss.
	Engine ocr.Engine
	// Grabber is the direct screen grab. Nil means capture.ScreenGrabber.
	Grabber  capture.Grabber
	Recorder metrics.Recorder
	Logger   *slog.Logger
	// Sleep and Now are replaced in tests.
	Sleep func(time.Duration)
	Now   func() time.Time
}

// Hub owns one instance of every automation module.
type Hub struct {
	binder    *window.Binder
	capturer  *capture.Capturer
	locator   *ocr.Locator
	synth     *input.Synth
	seq       *macro.Sequencer
	extractor intent.Extractor
	rec       metrics.Recorder
	ocr       config.OCRConfig
	zone      *platform.Rect
	sleep     func(time.Duration)
	now       func() time.Time
	log       *slog.Logger
}

// New builds a Hub from cfg. When cfg names a window title, New tries to
// bind it; a miss is logged, not returned.
func New(cfg *config.Config, deps Deps) (*Hub, error) {
	if deps.Provider == nil {
		return nil, errors.New("automation: nil platform provider")
	}
	zone, err := cfg.Zone()
	if err != nil {
		return nil, err
	}
	keys, err := cfg.MacroKeys()
	if err != nil {
		return nil, err
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.Nop{}
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	log := logx.OrDefault(deps.Logger)

	binder := window.NewBinder(deps.Provider.WindowManager,
		window.WithFocusSettle(cfg.Window.FocusSettle),
		window.WithSleep(deps.Sleep),
		window.WithLogger(log),
	)
	synth := input.NewSynth(deps.Provider.Inputter, binder,
		input.WithTimings(cfg.InputTimings()),
		input.WithSleep(deps.Sleep),
		input.WithLogger(log),
	)
	h := &Hub{
		binder:   binder,
		capturer: capture.New(deps.Provider.WindowManager, deps.Provider.Screenshotter, deps.Grabber, log),
		locator: ocr.NewLocator(deps.Engine, ocr.Config{
			DebugDir:      cfg.OCR.DebugDir,
			AnnotateDebug: cfg.OCR.AnnotateDebug,
			Logger:        log,
			Now:           deps.Now,
		}),
		synth: synth,
		seq: macro.New(binder, synth,
			macro.WithKeys(keys),
			macro.WithTimings(cfg.Macro.Timings),
			macro.WithSleep(deps.Sleep),
			macro.WithLogger(log),
			macro.WithRecorder(deps.Recorder),
		),
		extractor: intent.Extractor{CommandTemplate: cfg.Macro.CommandTemplate},
		rec:       deps.Recorder,
		ocr:       cfg.OCR,
		zone:      zone,
		sleep:     deps.Sleep,
		now:       deps.Now,
		log:       logx.Component(log, "automation"),
	}
	if cfg.Window.Title != "" {
		h.Bind(cfg.Window.Title)
	}
	return h, nil
}

// Close releases the recognition engine.
func (h *Hub) Close() error { return h.locator.Close() }

// OCRAvailable reports whether a real recognition engine is loaded.
func (h *Hub) OCRAvailable() bool { return h.locator.Available() }

// ListWindows returns the visible titled windows.
func (h *Hub) ListWindows() ([]platform.Window, error) { return h.binder.ListWindows() }

// Bind binds the first window whose title contains partialTitle.
func (h *Hub) Bind(partialTitle string) bool { return h.binder.Bind(partialTitle) }

// Bound returns the current binding.
func (h *Hub) Bound() (window.Bound, bool) { return h.binder.Bound() }

// EnsureFocus brings the bound window to the foreground.
func (h *Hub) EnsureFocus() bool { return h.binder.EnsureFocus() }

// WaitActive waits until a window whose title contains partialTitle is in
// the foreground.
func (h *Hub) WaitActive(ctx context.Context, partialTitle string, poll time.Duration) bool {
	return h.binder.WaitActive(ctx, partialTitle, poll)
}

// ClientRect returns the bound window's client area in screen pixels.
func (h *Hub) ClientRect() (platform.Rect, bool) { return h.binder.ClientRect() }

// Capture grabs zone when given, otherwise the bound window's client area.
// Either way a window must be bound.
func (h *Hub) Capture(zone *platform.Rect) (*capture.Result, error) {
	b, ok := h.binder.Bound()
	if !ok {
		return nil, ErrNotBound
	}
	if zone != nil {
		return h.capturer.CaptureRegion(*zone)
	}
	if _, ok := h.binder.ClientRect(); !ok {
		return nil, ErrNotBound
	}
	return h.capturer.CaptureWindow(b.Handle)
}

// LocateRequest parameterizes LocateText. Zero fields use the configured
// values.
type LocateRequest struct {
	Target string
	// Threshold is 1-255; 0 uses the configured threshold.
	Threshold int
	Scale     float64
	// Zone is an absolute screen rectangle to read instead of the window.
	Zone *platform.Rect
	// HoldKey is held down during the capture, e.g. "z".
	HoldKey string
	// NoHold disables the configured hold key for this request.
	NoHold bool
}

// LocateResult is the outcome of LocateText.
type LocateResult struct {
	ocr.Result `yaml:",inline"`
	Target     string        `yaml:"target"    json:"target"`
	Region     platform.Rect `yaml:"region"    json:"region"`
	Threshold  int           `yaml:"threshold" json:"threshold"`
	Scale      float64       `yaml:"scale"     json:"scale"`
}

// LocateText focuses the bound window, captures, preprocesses and searches
// for req.Target. The returned point is absolute screen space. A miss is
// not an error; a running macro is (macro.ErrBusy).
func (h *Hub) LocateText(ctx context.Context, req LocateRequest) (LocateResult, error) {
	start := h.now()
	res, err := h.locate(ctx, req)
	switch {
	case err != nil:
		h.rec.ObserveLocate(metrics.LocateFailed, h.now().Sub(start))
	case res.Found:
		h.rec.ObserveLocate(metrics.LocateFound, h.now().Sub(start))
	default:
		h.rec.ObserveLocate(metrics.LocateMiss, h.now().Sub(start))
	}
	return res, err
}

func (h *Hub) locate(ctx context.Context, req LocateRequest) (LocateResult, error) {
	target := strings.TrimSpace(req.Target)
	if target == "" {
		return LocateResult{}, ErrEmptyTarget
	}
	threshold := req.Threshold
	if threshold == 0 {
		threshold = h.ocr.Threshold
	}
	if threshold < 0 || threshold > 255 {
		return LocateResult{}, fmt.Errorf("automation: threshold %d out of range 0-255", threshold)
	}
	scale := req.Scale
	if scale == 0 {
		scale = h.ocr.Scale
	}
	if math.IsNaN(scale) || scale < 1 || scale > preprocess.MaxScale {
		return LocateResult{}, fmt.Errorf("automation: scale %v out of range 1-%v", scale, preprocess.MaxScale)
	}
	zone := req.Zone
	if zone == nil {
		zone = h.zone
	}
	holdName := req.HoldKey
	if holdName == "" && !req.NoHold {
		holdName = h.ocr.HoldKey
	}

	out := LocateResult{Target: target, Threshold: threshold, Scale: scale}
	var shot *capture.Result
	err := h.seq.Exclusive(func() (err error) {
		shot, err = h.focusedCapture(holdName, zone)
		return err
	})
	if err != nil {
		return out, err
	}
	out.Region = shot.Rect()
	if err := ctx.Err(); err != nil {
		return out, err
	}

	gray := preprocess.Preprocess(shot.Image, preprocess.Options{
		Threshold: uint8(threshold),
		Scale:     scale,
		Invert:    h.ocr.Invert,
	})
	res, err := h.locator.Locate(gray, shot.Origin, target, ocr.Options{
		Scale:      scale,
		Threshold:  uint8(threshold),
		Similarity: h.ocr.Similarity,
	})
	out.Result = res
	return out, err
}

// focusedCapture brings the bound window forward, then captures with
// holdName pressed, when set. The key is released before returning on
// every path.
func (h *Hub) focusedCapture(holdName string, zone *platform.Rect) (*capture.Result, error) {
	if !h.binder.EnsureFocus() {
		if _, ok := h.binder.Bound(); !ok {
			return nil, ErrNotBound
		}
		return nil, ErrNotFocused
	}
	if holdName == "" {
		return h.Capture(zone)
	}
	key, err := input.ParseKey(holdName)
	if err != nil {
		return nil, fmt.Errorf("automation: hold key: %w", err)
	}
	if err := h.synth.KeyDown(key.VK, key.Extended); err != nil {
		return nil, fmt.Errorf("automation: hold %s: %w", holdName, err)
	}
	defer func() {
		if err := h.synth.KeyUp(key.VK, key.Extended); err != nil {
			h.log.Warn("hold key not released", "key", holdName, "error", err)
		}
	}()
	h.sleep(h.ocr.HoldSettle)
	return h.Capture(zone)
}

// Click clicks at an absolute screen point. Like every ad hoc input it
// fails with macro.ErrBusy while a macro is in flight.
func (h *Hub) Click(x, y int, button platform.MouseButton) error {
	return h.seq.Exclusive(func() error { return h.synth.Click(x, y, button) })
}

// SendKey presses a named key in the bound window.
func (h *Hub) SendKey(name string) error {
	k, err := input.ParseKey(name)
	if err != nil {
		return err
	}
	return h.seq.Exclusive(func() error { return h.synth.Press(k) })
}

// SendText types text into the bound window.
func (h *Hub) SendText(text string) error {
	return h.seq.Exclusive(func() error { return h.synth.SendText(text) })
}

// MacroRunning reports whether a macro is in flight.
func (h *Hub) MacroRunning() bool { return h.seq.Running() }

// RunTravel runs the travel macro and waits for it.
func (h *Hub) RunTravel(command string) (macro.Report, error) { return h.seq.RunTravel(command) }

// RunShortcut runs the shortcut macro and waits for it.
func (h *Hub) RunShortcut(name, followOn string) (macro.Report, error) {
	return h.seq.RunShortcut(name, followOn)
}

// GoTravel starts the travel macro in the background. False means the
// trigger was rejected.
func (h *Hub) GoTravel(command string, done func(macro.Report)) bool {
	return h.seq.GoTravel(command, done)
}

// GoShortcut starts the shortcut macro in the background.
func (h *Hub) GoShortcut(name, followOn string, done func(macro.Report)) bool {
	return h.seq.GoShortcut(name, followOn, done)
}

// Intent extracts the travel intent of a guide step, or nil.
func (h *Hub) Intent(stepText string) *intent.Intent { return h.extractor.Extract(stepText) }

// GoIntent starts the macro matching in: a shortcut teleport followed by
// the travel command, or the travel command alone.
func (h *Hub) GoIntent(in *intent.Intent, done func(macro.Report)) bool {
	if in == nil {
		return false
	}
	if in.Kind == intent.ZaapShortcut {
		return h.seq.GoShortcut(in.ShortcutName, in.RawCommandText, done)
	}
	return h.seq.GoTravel(in.RawCommandText, done)
}

// RunIntent is GoIntent, blocking.
func (h *Hub) RunIntent(in *intent.Intent) (macro.Report, error) {
	if in == nil {
		return macro.Report{}, macro.ErrEmptyCommand
	}
	if in.Kind == intent.ZaapShortcut {
		return h.seq.RunShortcut(in.ShortcutName, in.RawCommandText)
	}
	return h.seq.RunTravel(in.RawCommandText)
}
