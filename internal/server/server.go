// Package server exposes the automation hub as Model Context Protocol
// tools over stdio or streamable HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mj1618/guidepilot/internal/automation"
	"github.com/mj1618/guidepilot/internal/capture"
	"github.com/mj1618/guidepilot/internal/intent"
	"github.com/mj1618/guidepilot/internal/logx"
	"github.com/mj1618/guidepilot/internal/macro"
	"github.com/mj1618/guidepilot/internal/platform"
	"github.com/mj1618/guidepilot/internal/window"
)

// Hub is the automation surface the tools call.
type Hub interface {
	ListWindows() ([]platform.Window, error)
	Bind(partialTitle string) bool
	Bound() (window.Bound, bool)
	EnsureFocus() bool
	Capture(zone *platform.Rect) (*capture.Result, error)
	LocateText(ctx context.Context, req automation.LocateRequest) (automation.LocateResult, error)
	Click(x, y int, button platform.MouseButton) error
	SendKey(name string) error
	SendText(text string) error
	RunTravel(command string) (macro.Report, error)
	RunShortcut(name, followOn string) (macro.Report, error)
	Intent(stepText string) *intent.Intent
	RunIntent(in *intent.Intent) (macro.Report, error)
}

// Config holds MCP server configuration.
type Config struct {
	Transport string
	Port      int
	// WindowTTL caches list_windows results; zero disables the cache.
	WindowTTL time.Duration
	// Metrics, when set, is mounted at /metrics on the HTTP transport.
	Metrics http.Handler
	Version string
	Logger  *slog.Logger
}

// Server wraps the MCP server with the hub.
type Server struct {
	hub     Hub
	windows *WindowCache
	// inputMu serializes tools that synthesize input or capture pixels.
	inputMu sync.Mutex
	mcp     *mcpserver.MCPServer
	cfg     Config
	log     *slog.Logger
}

// New creates and configures an MCP server with all guidepilot tools.
func New(hub Hub, cfg Config) *Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	s := &Server{
		hub:     hub,
		windows: NewWindowCache(cfg.WindowTTL),
		cfg:     cfg,
		log:     logx.Component(cfg.Logger, "mcp"),
	}
	s.mcp = mcpserver.NewMCPServer("guidepilot", cfg.Version, mcpserver.WithRecovery())
	s.registerTools()
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *mcpserver.MCPServer { return s.mcp }

// Serve starts the MCP server with the configured transport.
func (s *Server) Serve(ctx context.Context) error {
	switch s.cfg.Transport {
	case "", "stdio":
		s.log.Info("serving MCP on stdio")
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		return s.serveHTTP(ctx)
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", s.cfg.Transport)
	}
}

func (s *Server) serveHTTP(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.mcp))
	if s.cfg.Metrics != nil {
		mux.Handle("/metrics", s.cfg.Metrics)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("serving MCP over HTTP", "addr", srv.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) registerTools() {
	// list_windows
	s.mcp.AddTool(
		mcp.NewTool("list_windows",
			mcp.WithDescription("List visible top-level windows with their handles and titles"),
		),
		s.handleListWindows,
	)

	// bind
	s.mcp.AddTool(
		mcp.NewTool("bind",
			mcp.WithDescription("Bind the first window whose title contains the given text (case-insensitive)"),
			mcp.WithString("title", mcp.Description("Partial window title, e.g. a character name"), mcp.Required()),
		),
		s.handleBind,
	)

	// focus
	s.mcp.AddTool(
		mcp.NewTool("focus",
			mcp.WithDescription("Bring the bound window to the foreground"),
		),
		s.handleFocus,
	)

	// locate_text
	s.mcp.AddTool(
		mcp.NewTool("locate_text",
			mcp.WithDescription("Capture the bound window (or a zone), recognize text and return the screen coordinates of the best fuzzy match"),
			mcp.WithString("target", mcp.Description("Text to find, e.g. an NPC name"), mcp.Required()),
			mcp.WithNumber("threshold", mcp.Description("Binarization threshold 1-255 (default: configured)")),
			mcp.WithNumber("scale", mcp.Description("Upscale factor 1-8 (default: configured)")),
			mcp.WithString("zone", mcp.Description("Absolute screen region x,y,w,h to read instead of the window")),
			mcp.WithString("hold_key", mcp.Description("Key held during capture, e.g. z")),
			mcp.WithBoolean("click", mcp.Description("Click the match when found")),
		),
		s.handleLocate,
	)

	// travel
	s.mcp.AddTool(
		mcp.NewTool("travel",
			mcp.WithDescription("Type a travel command into the game chat and submit it"),
			mcp.WithString("command", mcp.Description("Chat command, e.g. /travel 4,-18")),
			mcp.WithNumber("x", mcp.Description("Destination X, used with y instead of command")),
			mcp.WithNumber("y", mcp.Description("Destination Y")),
		),
		s.handleTravel,
	)

	// shortcut
	s.mcp.AddTool(
		mcp.NewTool("shortcut",
			mcp.WithDescription("Teleport through the shortcut panel, optionally followed by a travel command"),
			mcp.WithString("name", mcp.Description("Shortcut to pick in the panel")),
			mcp.WithString("then", mcp.Description("Travel command to run after the teleport")),
		),
		s.handleShortcut,
	)

	// travel_intent
	s.mcp.AddTool(
		mcp.NewTool("travel_intent",
			mcp.WithDescription("Extract the travel destination from guide step text (HTML allowed); optionally run it"),
			mcp.WithString("text", mcp.Description("Step text"), mcp.Required()),
			mcp.WithBoolean("run", mcp.Description("Run the matching macro")),
		),
		s.handleIntent,
	)

	// click
	s.mcp.AddTool(
		mcp.NewTool("click",
			mcp.WithDescription("Click at absolute screen coordinates"),
			mcp.WithNumber("x", mcp.Description("X coordinate"), mcp.Required()),
			mcp.WithNumber("y", mcp.Description("Y coordinate"), mcp.Required()),
			mcp.WithString("button", mcp.Description("Mouse button: left, right, middle")),
		),
		s.handleClick,
	)

	// type
	s.mcp.AddTool(
		mcp.NewTool("type",
			mcp.WithDescription("Type text into the bound window"),
			mcp.WithString("text", mcp.Description("Text to type"), mcp.Required()),
		),
		s.handleType,
	)

	// key
	s.mcp.AddTool(
		mcp.NewTool("key",
			mcp.WithDescription("Press a named key in the bound window (enter, space, escape, f1, a, 0x5A...)"),
			mcp.WithString("key", mcp.Description("Key name"), mcp.Required()),
		),
		s.handleKey,
	)

	// screenshot
	s.mcp.AddTool(
		mcp.NewTool("screenshot",
			mcp.WithDescription("Capture the bound window's client area (or a zone) as PNG"),
			mcp.WithString("zone", mcp.Description("Absolute screen region x,y,w,h")),
		),
		s.handleScreenshot,
	)
}
