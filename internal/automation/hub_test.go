package automation

import (
	"context"
	"errors"
	"image"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/guidepilot/internal/config"
	"github.com/mj1618/guidepilot/internal/intent"
	"github.com/mj1618/guidepilot/internal/logx"
	"github.com/mj1618/guidepilot/internal/macro"
	"github.com/mj1618/guidepilot/internal/metrics"
	"github.com/mj1618/guidepilot/internal/ocr"
	"github.com/mj1618/guidepilot/internal/platform"
	"github.com/mj1618/guidepilot/internal/platform/fake"
	"github.com/mj1618/guidepilot/internal/preprocess"
)

type stubGrabber struct {
	calls []image.Rectangle
}

func (g *stubGrabber) Grab(r image.Rectangle) (*image.RGBA, error) {
	g.calls = append(g.calls, r)
	return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
}

type stubRecorder struct {
	mu      sync.Mutex
	locates []string
}

func (r *stubRecorder) ObserveLocate(result string, _ time.Duration) {
	r.mu.Lock()
	r.locates = append(r.locates, result)
	r.mu.Unlock()
}
func (r *stubRecorder) ObserveMacro(string, string, time.Duration) {}
func (r *stubRecorder) SetMacroInFlight(bool) {}

type fixture struct {
	hub     *Hub
	desktop *fake.Desktop
	grabber *stubGrabber
	engine  *ocr.StaticEngine
	rec     *stubRecorder
	cfg     *config.Config
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Window.Title = "dofus"
	cfg.OCR.DebugDir = t.TempDir()
	cfg.OCR.Scale = 2
	cfg.Macro.PanelClick = "50,60"
	if mutate != nil {
		mutate(cfg)
	}

	f := &fixture{
		desktop: fake.NewDesktop(),
		grabber: &stubGrabber{},
		engine: &ocr.StaticEngine{Words: []ocr.WordBox{
			{Text: "Lester", Left: 100, Top: 50, Width: 80, Height: 20},
		}},
		rec: &stubRecorder{},
		cfg: cfg,
	}
	w := f.desktop.AddWindow(7, "Dofus - Lester")
	f.desktop.SetForegroundDirect(w.Handle)

	hub, err := New(cfg, Deps{
		Provider: f.desktop.Provider(),
		Engine:   f.engine,
		Grabber:  f.grabber,
		Recorder: f.rec,
		Logger:   logx.Discard(),
		Sleep:    func(time.Duration) {},
		Now:      func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) },
	})
	require.NoError(t, err)
	f.hub = hub
	return f
}

func TestNew_BindsConfiguredTitle(t *testing.T) {
	f := newFixture(t, nil)
	b, ok := f.hub.Bound()
	require.True(t, ok)
	assert.Equal(t, platform.Handle(7), b.Handle)
	assert.True(t, f.hub.OCRAvailable())
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.OCR.Zone = "nope"
	_, err := New(cfg, Deps{Provider: fake.NewDesktop().Provider()})
	assert.Error(t, err)

	_, err = New(config.Default(), Deps{})
	assert.Error(t, err)
}

func TestLocateText_MapsToScreen(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "Lester"})
	require.NoError(t, err)
	require.True(t, res.Found)

	// Box centre (140,60) at scale 2 is (70,30) in the client area, whose
	// top-left is (108,131).
	assert.Equal(t, image.Pt(178, 161), res.Point)
	assert.Equal(t, platform.Rect{Left: 108, Top: 131, Right: 892, Bottom: 692}, res.Region)
	assert.Equal(t, 190, res.Threshold)
	assert.Equal(t, 2.0, res.Scale)
	assert.Equal(t, 1, f.engine.Calls)
	assert.Empty(t, f.grabber.calls, "composition capture should not fall back")

	require.NotEmpty(t, res.DebugPath)
	_, statErr := os.Stat(res.DebugPath)
	assert.NoError(t, statErr)
	assert.Equal(t, []string{metrics.LocateFound}, f.rec.locates)
}

func TestLocateText_Miss(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "Zaap", Threshold: 120})
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Equal(t, 120, res.Threshold)
	assert.Len(t, res.Words, 1)
	assert.Equal(t, []string{metrics.LocateMiss}, f.rec.locates)
}

func TestLocateText_NotBound(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Window.Title = "" })

	_, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "Lester"})
	assert.ErrorIs(t, err, ErrNotBound)
	assert.Zero(t, f.engine.Calls)
	assert.Equal(t, []string{metrics.LocateFailed}, f.rec.locates)
}

func TestLocateText_WindowClosed(t *testing.T) {
	f := newFixture(t, nil)
	f.desktop.Close(7)

	_, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "Lester"})
	assert.ErrorIs(t, err, ErrNotBound)
	_, ok := f.hub.Bound()
	assert.False(t, ok, "binding should be cleared")
}

func TestLocateText_EmptyTarget(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "  "})
	assert.ErrorIs(t, err, ErrEmptyTarget)
}

func TestLocateText_BadThreshold(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "x", Threshold: 400})
	assert.Error(t, err)
	assert.Zero(t, f.engine.Calls)
}

func TestLocateText_Zone(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.OCR.Zone = "1000,500,200,100" })

	res, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "Lester"})
	require.NoError(t, err)
	require.Len(t, f.grabber.calls, 1)
	assert.Equal(t, image.Rect(1000, 500, 1200, 600), f.grabber.calls[0])
	assert.Equal(t, image.Pt(1070, 530), res.Point)
}

func TestLocateText_RequestZoneOverridesConfig(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.OCR.Zone = "1000,500,200,100" })
	zone := &platform.Rect{Left: 0, Top: 0, Right: 50, Bottom: 40}

	_, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "Lester", Zone: zone})
	require.NoError(t, err)
	require.Len(t, f.grabber.calls, 1)
	assert.Equal(t, image.Rect(0, 0, 50, 40), f.grabber.calls[0])
}

func TestLocateText_HoldKey(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.OCR.HoldKey = "z" })
	var captured []fake.Event

	_, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "Lester"})
	require.NoError(t, err)

	for _, e := range f.desktop.Events() {
		if e.Kind == fake.EventKey {
			captured = append(captured, e)
		}
	}
	require.Len(t, captured, 2)
	assert.Equal(t, uint16('Z'+0x100), captured[0].Scan)
	assert.False(t, captured[0].Up)
	assert.True(t, captured[1].Up)
}

func TestLocateText_HoldKeyReleasedOnCaptureFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.desktop.Fail["client"] = true

	_, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "Lester", HoldKey: "z"})
	require.Error(t, err)

	var downs, ups int
	for _, e := range f.desktop.Events() {
		if e.Kind == fake.EventKey {
			if e.Up {
				ups++
			} else {
				downs++
			}
		}
	}
	assert.Equal(t, 1, downs)
	assert.Equal(t, 1, ups)
}

func TestLocateText_NoHoldSkipsConfiguredKey(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.OCR.HoldKey = "z" })

	_, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "Lester", NoHold: true})
	require.NoError(t, err)
	for _, e := range f.desktop.Events() {
		assert.NotEqual(t, fake.EventKey, e.Kind)
	}
}

func TestLocateText_CanceledContext(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.hub.LocateText(ctx, LocateRequest{Target: "Lester"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.engine.Calls)
}

func TestLocateText_EngineError(t *testing.T) {
	f := newFixture(t, nil)
	f.engine.Err = errors.New("boom")

	_, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "Lester"})
	assert.Error(t, err)
	assert.Equal(t, []string{metrics.LocateFailed}, f.rec.locates)
}

func TestLocateText_NoEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Window.Title = "dofus"
	cfg.OCR.DebugDir = ""
	d := fake.NewDesktop()
	d.AddWindow(1, "Dofus")
	hub, err := New(cfg, Deps{Provider: d.Provider(), Logger: logx.Discard(), Sleep: func(time.Duration) {}})
	require.NoError(t, err)
	assert.False(t, hub.OCRAvailable())

	res, err := hub.LocateText(context.Background(), LocateRequest{Target: "Lester"})
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestLocateText_ScaleOutOfRange(t *testing.T) {
	f := newFixture(t, nil)
	for _, scale := range []float64{1e9, math.Inf(1), math.NaN(), 0.5, preprocess.MaxScale + 1} {
		var err error
		require.NotPanics(t, func() {
			_, err = f.hub.LocateText(context.Background(), LocateRequest{Target: "Lester", Scale: scale})
		})
		assert.Error(t, err, "scale %v", scale)
	}
	assert.Zero(t, f.engine.Calls)
	assert.Empty(t, f.desktop.Events(), "nothing is focused or captured for a bad scale")
}

func TestLocateText_FocusesBeforeCapture(t *testing.T) {
	f := newFixture(t, nil)
	f.desktop.AddWindow(9, "Notepad")
	f.desktop.SetForegroundDirect(9)

	res, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "Lester"})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, platform.Handle(7), f.desktop.ForegroundWindow())

	events := f.desktop.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, fake.Event{Kind: fake.EventFocus, Handle: 7}, events[0])
}

func TestLocateText_FocusRefused(t *testing.T) {
	f := newFixture(t, nil)
	f.desktop.AddWindow(9, "Notepad")
	f.desktop.SetForegroundDirect(9)
	f.desktop.Fail["foreground"] = true

	_, err := f.hub.LocateText(context.Background(), LocateRequest{Target: "Lester"})
	assert.ErrorIs(t, err, ErrNotFocused)
	assert.Zero(t, f.engine.Calls)
	_, bound := f.hub.Bound()
	assert.True(t, bound, "a refused focus keeps the binding")
}

func TestInputRejectedWhileMacroRuns(t *testing.T) {
	f := newFixture(t, nil)

	var errs []error
	var once sync.Once
	f.desktop.OnEvent = func(e fake.Event) {
		if e.Kind != fake.EventKey {
			return
		}
		once.Do(func() {
			_, locErr := f.hub.LocateText(context.Background(), LocateRequest{Target: "Lester", HoldKey: "z"})
			errs = append(errs,
				f.hub.SendText("XYZ"),
				f.hub.SendKey("escape"),
				f.hub.Click(1, 1, platform.MouseLeft),
				locErr,
			)
		})
	}

	_, err := f.hub.RunTravel("/travel 1,2")
	require.NoError(t, err)
	require.Len(t, errs, 4)
	for _, e := range errs {
		assert.ErrorIs(t, e, macro.ErrBusy)
	}
	assert.Equal(t, "/travel 1,2", fake.TypedText(f.desktop.Events()))
	assert.Zero(t, f.engine.Calls)

	f.desktop.OnEvent = nil
	assert.NoError(t, f.hub.SendText("ok"), "input is accepted once the macro is done")
}

func TestSendKeyAndText(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.hub.SendKey("enter"))
	require.NoError(t, f.hub.SendText("hé"))
	assert.Equal(t, "hé", fake.TypedText(f.desktop.Events()))
	assert.Error(t, f.hub.SendKey("nosuchkey"))
}

func TestSendText_NotFocused(t *testing.T) {
	f := newFixture(t, nil)
	f.desktop.SetForegroundDirect(0)
	f.desktop.Fail["foreground"] = true

	assert.Error(t, f.hub.SendText("x"))
	assert.Empty(t, fake.TypedText(f.desktop.Events()))
}

func TestClick(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.hub.Click(10, 20, platform.MouseRight))

	events := f.desktop.Events()
	require.Len(t, events, 3)
	assert.Equal(t, fake.Event{Kind: fake.EventMove, X: 10, Y: 20}, events[0])
	assert.Equal(t, platform.MouseRight, events[1].Button)
}

func TestRunIntent_Classic(t *testing.T) {
	f := newFixture(t, nil)
	in := f.hub.Intent("Go to [4,-18] please")
	require.NotNil(t, in)

	r, err := f.hub.RunIntent(in)
	require.NoError(t, err)
	assert.Equal(t, macro.KindTravel, r.Kind)
	assert.Equal(t, "/travel 4,-18", fake.TypedText(f.desktop.Events()))
}

func TestRunIntent_Shortcut(t *testing.T) {
	f := newFixture(t, nil)
	in := f.hub.Intent(`<span style="color: rgb(98, 172, 255)">Astrub go to [5,-18]</span>`)
	require.NotNil(t, in)
	require.Equal(t, intent.ZaapShortcut, in.Kind)

	r, err := f.hub.RunIntent(in)
	require.NoError(t, err)
	assert.Equal(t, macro.KindShortcut, r.Kind)
	assert.Equal(t, "Astrub/travel 5,-18", fake.TypedText(f.desktop.Events()))

	var click *fake.Event
	for _, e := range f.desktop.Events() {
		if e.Kind == fake.EventMove {
			e := e
			click = &e
		}
	}
	require.NotNil(t, click)
	assert.Equal(t, 108+50, click.X)
	assert.Equal(t, 131+60, click.Y)
}

func TestRunIntent_Nil(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.hub.RunIntent(nil)
	assert.ErrorIs(t, err, macro.ErrEmptyCommand)
	assert.False(t, f.hub.GoIntent(nil, nil))
}

func TestGoTravel_Reports(t *testing.T) {
	f := newFixture(t, nil)
	done := make(chan macro.Report, 1)

	require.True(t, f.hub.GoTravel("/travel 1,2", func(r macro.Report) { done <- r }))
	select {
	case r := <-done:
		assert.True(t, r.OK())
	case <-time.After(5 * time.Second):
		t.Fatal("macro did not finish")
	}
	assert.False(t, f.hub.MacroRunning())
}

func TestCapture_Window(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.hub.Capture(nil)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(108, 131), res.Origin)
	assert.Equal(t, 784, res.Image.Bounds().Dx())
}
