package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mj1618/guidepilot/internal/automation"
	"github.com/mj1618/guidepilot/internal/intent"
	"github.com/mj1618/guidepilot/internal/macro"
	"github.com/mj1618/guidepilot/internal/output"
	"github.com/mj1618/guidepilot/internal/platform"
)

// ToolResult is the YAML body of most tool responses.
type ToolResult struct {
	OK      bool   `yaml:"ok"                json:"ok"`
	Action  string `yaml:"action"            json:"action"`
	Error   string `yaml:"error,omitempty"   json:"error,omitempty"`
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
	Data    any    `yaml:"data,omitempty"    json:"data,omitempty"`
}

// resultToText serializes a ToolResult to YAML for MCP response.
func resultToText(result ToolResult) string {
	text, err := output.Sprint(output.FormatYAML, false, result)
	if err != nil {
		return fmt.Sprintf("ok: %v\naction: %s\nerror: %s", result.OK, result.Action, result.Error)
	}
	return text
}

func ok(action string, data any) *mcp.CallToolResult {
	return mcp.NewToolResultText(resultToText(ToolResult{OK: true, Action: action, Data: data}))
}

func fail(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(resultToText(ToolResult{OK: false, Action: action, Error: err.Error()}))
}

// inputAction runs fn with the input lock held.
func (s *Server) inputAction(action string, fn func() (any, error)) (*mcp.CallToolResult, error) {
	s.inputMu.Lock()
	defer s.inputMu.Unlock()

	data, err := fn()
	if err != nil {
		return fail(action, err), nil
	}
	return ok(action, data), nil
}

func (s *Server) handleListWindows(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	windows, err := s.windows.List(s.hub.ListWindows)
	if err != nil {
		return fail("list_windows", err), nil
	}
	return ok("list_windows", windows), nil
}

func (s *Server) handleBind(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := request.GetString("title", "")
	if strings.TrimSpace(title) == "" {
		return fail("bind", fmt.Errorf("title is required")), nil
	}
	s.windows.Invalidate()
	if !s.hub.Bind(title) {
		return fail("bind", fmt.Errorf("no window title contains %q", title)), nil
	}
	b, _ := s.hub.Bound()
	return ok("bind", b), nil
}

func (s *Server) handleFocus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.inputAction("focus", func() (any, error) {
		if !s.hub.EnsureFocus() {
			return nil, fmt.Errorf("bound window could not be focused")
		}
		b, _ := s.hub.Bound()
		return b, nil
	})
}

func (s *Server) handleLocate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := automation.LocateRequest{
		Target:    request.GetString("target", ""),
		Threshold: request.GetInt("threshold", 0),
		Scale:     request.GetFloat("scale", 0),
		HoldKey:   request.GetString("hold_key", ""),
	}
	if z := request.GetString("zone", ""); z != "" {
		zone, err := platform.ParseRect(z)
		if err != nil {
			return fail("locate_text", err), nil
		}
		req.Zone = zone
	}
	click := request.GetBool("click", false)

	return s.inputAction("locate_text", func() (any, error) {
		res, err := s.hub.LocateText(ctx, req)
		if err != nil {
			return nil, err
		}
		res.Words = nil
		if click && res.Found {
			if err := s.hub.Click(res.Point.X, res.Point.Y, platform.MouseLeft); err != nil {
				return nil, err
			}
		}
		return res, nil
	})
}

func (s *Server) handleTravel(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command := request.GetString("command", "")
	args := request.GetArguments()
	_, hasX := args["x"]
	_, hasY := args["y"]
	if command == "" && hasX && hasY {
		c := intent.Coordinates{X: request.GetInt("x", 0), Y: request.GetInt("y", 0)}
		command = s.hub.Intent(fmt.Sprintf("go to [%d,%d]", c.X, c.Y)).RawCommandText
	}
	return s.macroAction("travel", func() (macro.Report, error) { return s.hub.RunTravel(command) })
}

func (s *Server) handleShortcut(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	then := request.GetString("then", "")
	return s.macroAction("shortcut", func() (macro.Report, error) { return s.hub.RunShortcut(name, then) })
}

func (s *Server) handleIntent(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := s.hub.Intent(request.GetString("text", ""))
	if in == nil {
		return ok("travel_intent", nil), nil
	}
	if !request.GetBool("run", false) {
		return ok("travel_intent", in), nil
	}
	return s.macroAction("travel_intent", func() (macro.Report, error) { return s.hub.RunIntent(in) })
}

// macroAction runs a blocking macro. Macros and ad hoc input share the
// sequencer's gate, so a concurrent trigger or input call is reported as
// busy instead of waiting on the input lock.
func (s *Server) macroAction(action string, run func() (macro.Report, error)) (*mcp.CallToolResult, error) {
	r, err := run()
	if err != nil {
		res := ToolResult{OK: false, Action: action, Error: err.Error()}
		if r.ID != "" {
			res.Data = r
		}
		return mcp.NewToolResultError(resultToText(res)), nil
	}
	return ok(action, r), nil
}

func (s *Server) handleClick(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	x := request.GetInt("x", 0)
	y := request.GetInt("y", 0)
	button, err := platform.ParseMouseButton(request.GetString("button", "left"))
	if err != nil {
		return fail("click", err), nil
	}
	return s.inputAction("click", func() (any, error) {
		return map[string]int{"x": x, "y": y}, s.hub.Click(x, y, button)
	})
}

func (s *Server) handleType(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := request.GetString("text", "")
	return s.inputAction("type", func() (any, error) {
		return map[string]string{"text": text}, s.hub.SendText(text)
	})
}

func (s *Server) handleKey(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := request.GetString("key", "")
	return s.inputAction("key", func() (any, error) {
		return map[string]string{"key": key}, s.hub.SendKey(key)
	})
}

func (s *Server) handleScreenshot(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var zone *platform.Rect
	if z := request.GetString("zone", ""); z != "" {
		r, err := platform.ParseRect(z)
		if err != nil {
			return fail("screenshot", err), nil
		}
		zone = r
	}

	s.inputMu.Lock()
	shot, err := s.hub.Capture(zone)
	s.inputMu.Unlock()
	if err != nil {
		return fail("screenshot", err), nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, shot.Image); err != nil {
		return fail("screenshot", err), nil
	}
	r := shot.Rect()
	caption := fmt.Sprintf("origin %d,%d size %dx%d", r.Left, r.Top, r.Width(), r.Height())
	return mcp.NewToolResultImage(caption, base64.StdEncoding.EncodeToString(buf.Bytes()), "image/png"), nil
}
