package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/guidepilot/internal/automation"
	"github.com/mj1618/guidepilot/internal/config"
	"github.com/mj1618/guidepilot/internal/logx"
	"github.com/mj1618/guidepilot/internal/ocr"
	"github.com/mj1618/guidepilot/internal/platform"
	"github.com/mj1618/guidepilot/internal/platform/fake"
)

func newTestServer(t *testing.T) (*Server, *fake.Desktop) {
	t.Helper()
	cfg := config.Default()
	cfg.OCR.DebugDir = ""
	cfg.OCR.Scale = 1
	cfg.Macro.PanelClick = "10,10"

	d := fake.NewDesktop()
	d.AddWindow(3, "Dofus - Lester")
	d.SetForegroundDirect(3)

	hub, err := automation.New(cfg, automation.Deps{
		Provider: d.Provider(),
		Engine: &ocr.StaticEngine{Words: []ocr.WordBox{
			{Text: "Lester", Left: 10, Top: 20, Width: 40, Height: 10},
		}},
		Logger: logx.Discard(),
		Sleep:  func(time.Duration) {},
	})
	require.NoError(t, err)
	return New(hub, Config{Logger: logx.Discard(), WindowTTL: time.Minute}), d
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func decode(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(text(t, res)), &m))
	return m
}

func TestListWindows_Cached(t *testing.T) {
	s, d := newTestServer(t)

	res, err := s.handleListWindows(context.Background(), call("list_windows", nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "Dofus - Lester")

	d.AddWindow(4, "Notepad")
	res, _ = s.handleListWindows(context.Background(), call("list_windows", nil))
	assert.NotContains(t, text(t, res), "Notepad", "second call should hit the cache")

	_, _ = s.handleBind(context.Background(), call("bind", map[string]any{"title": "lester"}))
	res, _ = s.handleListWindows(context.Background(), call("list_windows", nil))
	assert.Contains(t, text(t, res), "Notepad", "bind should invalidate the cache")
}

func TestBind(t *testing.T) {
	s, _ := newTestServer(t)

	res, _ := s.handleBind(context.Background(), call("bind", map[string]any{"title": "LESTER"}))
	assert.False(t, res.IsError)
	assert.Equal(t, true, decode(t, res)["ok"])

	res, _ = s.handleBind(context.Background(), call("bind", map[string]any{"title": "nobody"}))
	assert.True(t, res.IsError)

	res, _ = s.handleBind(context.Background(), call("bind", map[string]any{}))
	assert.True(t, res.IsError)
}

func TestLocate_FoundAndClick(t *testing.T) {
	s, d := newTestServer(t)
	s.hub.Bind("lester")

	res, _ := s.handleLocate(context.Background(), call("locate_text", map[string]any{
		"target": "lester",
		"click":  true,
	}))
	require.False(t, res.IsError, text(t, res))

	m := decode(t, res)
	data := m["data"].(map[string]any)
	assert.Equal(t, true, data["found"])
	point := data["point"].(map[string]any)
	// Box centre (30,25) at scale 1 plus client origin (108,131).
	assert.Equal(t, 138, point["x"])
	assert.Equal(t, 156, point["y"])
	assert.NotContains(t, data, "words")

	var moved bool
	for _, e := range d.Events() {
		if e.Kind == fake.EventMove && e.X == 138 && e.Y == 156 {
			moved = true
		}
	}
	assert.True(t, moved)
}

func TestLocate_BadZone(t *testing.T) {
	s, _ := newTestServer(t)
	res, _ := s.handleLocate(context.Background(), call("locate_text", map[string]any{"target": "x", "zone": "1,2"}))
	assert.True(t, res.IsError)
}

func TestLocate_NotBound(t *testing.T) {
	s, _ := newTestServer(t)
	res, _ := s.handleLocate(context.Background(), call("locate_text", map[string]any{"target": "lester"}))
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "no window bound")
}

func TestTravel_FromCoordinates(t *testing.T) {
	s, d := newTestServer(t)
	s.hub.Bind("lester")

	res, _ := s.handleTravel(context.Background(), call("travel", map[string]any{"x": 4.0, "y": -18.0}))
	require.False(t, res.IsError, text(t, res))
	assert.Equal(t, "/travel 4,-18", fake.TypedText(d.Events()))
}

func TestTravel_EmptyCommand(t *testing.T) {
	s, _ := newTestServer(t)
	s.hub.Bind("lester")
	res, _ := s.handleTravel(context.Background(), call("travel", map[string]any{}))
	assert.True(t, res.IsError)
}

func TestShortcut(t *testing.T) {
	s, d := newTestServer(t)
	s.hub.Bind("lester")

	res, _ := s.handleShortcut(context.Background(), call("shortcut", map[string]any{"name": "Astrub", "then": "/travel 1,1"}))
	require.False(t, res.IsError, text(t, res))
	assert.Equal(t, "Astrub/travel 1,1", fake.TypedText(d.Events()))
}

func TestIntent(t *testing.T) {
	s, d := newTestServer(t)
	s.hub.Bind("lester")

	res, _ := s.handleIntent(context.Background(), call("travel_intent", map[string]any{"text": "Allez en [7,8]"}))
	require.False(t, res.IsError)
	assert.Contains(t, text(t, res), "/travel 7,8")
	assert.Empty(t, d.Events(), "extraction alone must not type")

	res, _ = s.handleIntent(context.Background(), call("travel_intent", map[string]any{"text": "Allez en [7,8]", "run": true}))
	require.False(t, res.IsError, text(t, res))
	assert.Equal(t, "/travel 7,8", fake.TypedText(d.Events()))

	res, _ = s.handleIntent(context.Background(), call("travel_intent", map[string]any{"text": "nothing here"}))
	assert.False(t, res.IsError)
	assert.NotContains(t, text(t, res), "data")
}

func TestClickTypeKey(t *testing.T) {
	s, d := newTestServer(t)
	s.hub.Bind("lester")

	res, _ := s.handleClick(context.Background(), call("click", map[string]any{"x": 5.0, "y": 6.0, "button": "right"}))
	require.False(t, res.IsError)
	res, _ = s.handleClick(context.Background(), call("click", map[string]any{"x": 5.0, "y": 6.0, "button": "wheel"}))
	assert.True(t, res.IsError)

	res, _ = s.handleType(context.Background(), call("type", map[string]any{"text": "salut"}))
	require.False(t, res.IsError)
	assert.Equal(t, "salut", fake.TypedText(d.Events()))

	res, _ = s.handleKey(context.Background(), call("key", map[string]any{"key": "escape"}))
	assert.False(t, res.IsError)
	res, _ = s.handleKey(context.Background(), call("key", map[string]any{"key": "bogus"}))
	assert.True(t, res.IsError)
}

func TestInputRejectedDuringMacro(t *testing.T) {
	s, d := newTestServer(t)
	s.hub.Bind("lester")

	var during []*mcp.CallToolResult
	var once sync.Once
	d.OnEvent = func(e fake.Event) {
		if e.Kind != fake.EventKey {
			return
		}
		once.Do(func() {
			ctx := context.Background()
			r1, _ := s.handleType(ctx, call("type", map[string]any{"text": "XYZ"}))
			r2, _ := s.handleKey(ctx, call("key", map[string]any{"key": "escape"}))
			r3, _ := s.handleClick(ctx, call("click", map[string]any{"x": 1.0, "y": 1.0}))
			r4, _ := s.handleLocate(ctx, call("locate_text", map[string]any{"target": "lester", "hold_key": "z"}))
			during = append(during, r1, r2, r3, r4)
		})
	}

	res, _ := s.handleTravel(context.Background(), call("travel", map[string]any{"command": "/travel 1,2"}))
	require.False(t, res.IsError, text(t, res))
	require.Len(t, during, 4)
	for _, r := range during {
		assert.True(t, r.IsError)
		assert.Contains(t, text(t, r), "input busy")
	}
	assert.Equal(t, "/travel 1,2", fake.TypedText(d.Events()))

	d.OnEvent = nil
	res, _ = s.handleType(context.Background(), call("type", map[string]any{"text": "ok"}))
	assert.False(t, res.IsError, "input is accepted again once the macro is done")
}

func TestToolPanicIsRecovered(t *testing.T) {
	s, _ := newTestServer(t)
	s.MCP().AddTool(mcp.NewTool("explode"), func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("boom")
	})

	msg := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"explode","arguments":{}}}`
	var resp mcp.JSONRPCMessage
	require.NotPanics(t, func() {
		resp = s.MCP().HandleMessage(context.Background(), json.RawMessage(msg))
	})
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(out), "panic")
}

func TestLocate_HugeScaleIsAnError(t *testing.T) {
	s, _ := newTestServer(t)
	s.hub.Bind("lester")

	res, _ := s.handleLocate(context.Background(), call("locate_text", map[string]any{"target": "lester", "scale": 1e9}))
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "scale")
}

func TestScreenshot(t *testing.T) {
	s, _ := newTestServer(t)
	s.hub.Bind("lester")

	res, _ := s.handleScreenshot(context.Background(), call("screenshot", nil))
	require.False(t, res.IsError)
	require.Len(t, res.Content, 2)
	img, ok := res.Content[1].(mcp.ImageContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.NotEmpty(t, img.Data)
	assert.True(t, strings.HasPrefix(text(t, res), "origin 108,131"))
}

func TestFocus(t *testing.T) {
	s, d := newTestServer(t)
	res, _ := s.handleFocus(context.Background(), call("focus", nil))
	assert.True(t, res.IsError, "nothing bound yet")

	s.hub.Bind("lester")
	d.SetForegroundDirect(0)
	res, _ = s.handleFocus(context.Background(), call("focus", nil))
	assert.False(t, res.IsError)
	assert.Equal(t, platform.Handle(3), d.ForegroundWindow())
}

func TestWindowCache_PropagatesErrors(t *testing.T) {
	c := NewWindowCache(time.Minute)
	_, err := c.List(func() ([]platform.Window, error) { return nil, errors.New("boom") })
	assert.Error(t, err)

	got, err := c.List(func() ([]platform.Window, error) { return nil, nil })
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestWindowCache_Expires(t *testing.T) {
	c := NewWindowCache(time.Second)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }
	calls := 0
	list := func() ([]platform.Window, error) {
		calls++
		return []platform.Window{{Handle: 1, Title: "a"}}, nil
	}

	c.List(list)
	c.List(list)
	assert.Equal(t, 1, calls)
	now = now.Add(2 * time.Second)
	c.List(list)
	assert.Equal(t, 2, calls)
}
