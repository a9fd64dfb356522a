package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mj1618/guidepilot/internal/automation"
	"github.com/mj1618/guidepilot/internal/metrics"
	"github.com/mj1618/guidepilot/internal/ocr"
	"github.com/mj1618/guidepilot/internal/platform"
)

// metricsRegistry collects the process metrics served on /metrics.
var metricsRegistry = newRegistry()

var recorder = metrics.NewPrometheusRecorder(metricsRegistry)

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// hubOptions selects what openHub starts.
type hubOptions struct {
	// OCR probes the recognition engine.
	OCR bool
	// RequireBound fails when no window could be bound.
	RequireBound bool
}

// openHub builds the automation hub for one command.
func openHub(opts hubOptions) (*automation.Hub, error) {
	provider, err := platform.NewProvider()
	if err != nil {
		return nil, err
	}
	var engine ocr.Engine
	if opts.OCR {
		engine = ocr.Probe(ocr.EngineOptions{
			Language:  appConfig.OCR.Language,
			Whitelist: appConfig.OCR.Whitelist,
		}, appLog)
	}
	hub, err := automation.New(appConfig, automation.Deps{
		Provider: provider,
		Engine:   engine,
		Recorder: recorder,
		Logger:   appLog,
	})
	if err != nil {
		return nil, err
	}
	if opts.RequireBound {
		if _, ok := hub.Bound(); !ok {
			hub.Close()
			return nil, errNoWindow(appConfig.Window.Title)
		}
	}
	return hub, nil
}

func errNoWindow(title string) error {
	if title == "" {
		return errors.New("no window bound: pass --window or set window.title in the config")
	}
	return fmt.Errorf("no visible window title contains %q", title)
}

// serveMetrics serves /metrics on addr until ctx is done. Empty addr is a
// no-op.
func serveMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(metricsRegistry))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	appLog.Info("serving metrics", "addr", addr)
}

// filterWindows keeps windows whose title contains needle, case-insensitively.
func filterWindows(windows []platform.Window, needle string) []platform.Window {
	needle = strings.ToLower(strings.TrimSpace(needle))
	out := []platform.Window{}
	for _, w := range windows {
		if needle == "" || strings.Contains(strings.ToLower(w.Title), needle) {
			out = append(out, w)
		}
	}
	return out
}

// parseZone parses an optional x,y,w,h flag value.
func parseZone(s string) (*platform.Rect, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return platform.ParseRect(s)
}

func intPtr(v int) *int { return &v }
