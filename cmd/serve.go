package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/guidepilot/internal/metrics"
	"github.com/mj1618/guidepilot/internal/server"
	"github.com/mj1618/guidepilot/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing guidepilot tools",
	Long: `Start a Model Context Protocol (MCP) server that exposes window binding,
text location, input and macros as tools.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport on /mcp, with /metrics

Examples:
  guidepilot serve
  guidepilot serve --transport streamable-http --port 8080
  guidepilot serve --window-ttl 0`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
	serveCmd.Flags().Int("window-ttl", 500, "Window list cache TTL in milliseconds (0 to disable)")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	ttlMs, _ := cmd.Flags().GetInt("window-ttl")

	hub, err := openHub(hubOptions{OCR: true})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer hub.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if transport != "streamable-http" {
		serveMetrics(ctx, appConfig.Metrics.Addr)
	}

	srv := server.New(hub, server.Config{
		Transport: transport,
		Port:      port,
		WindowTTL: time.Duration(ttlMs) * time.Millisecond,
		Metrics:   metrics.Handler(metricsRegistry),
		Version:   version.Version,
		Logger:    appLog,
	})
	return srv.Serve(ctx)
}
