// Package metrics records locate attempts and macro runs with Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Locate results.
const (
	LocateFound  = "found"
	LocateMiss   = "miss"
	LocateFailed = "error"
)

// Macro results.
const (
	MacroOK       = "ok"
	MacroFailed   = "error"
	MacroRejected = "rejected"
)

// Recorder receives automation measurements.
type Recorder interface {
	ObserveLocate(result string, d time.Duration)
	ObserveMacro(kind, result string, d time.Duration)
	SetMacroInFlight(inFlight bool)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveLocate(string, time.Duration) {}
func (Nop) ObserveMacro(string, string, time.Duration) {}
func (Nop) SetMacroInFlight(bool) {}

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	locateTotal    *prometheus.CounterVec
	locateDuration prometheus.Histogram
	macroTotal     *prometheus.CounterVec
	macroDuration  *prometheus.HistogramVec
	macroInFlight  prometheus.Gauge
}

// NewPrometheusRecorder registers the collectors with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	f := promauto.With(reg)
	return &PrometheusRecorder{
		locateTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guidepilot_locate_total",
				Help: "Text locate attempts by result",
			},
			[]string{"result"},
		),
		locateDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "guidepilot_locate_duration_seconds",
				Help:    "Capture, preprocess and recognition time per locate attempt",
				Buckets: prometheus.DefBuckets,
			},
		),
		macroTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guidepilot_macro_total",
				Help: "Macro runs by kind and result",
			},
			[]string{"kind", "result"},
		),
		macroDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "guidepilot_macro_duration_seconds",
				Help:    "Wall time of completed macro runs",
				Buckets: []float64{0.1, 0.5, 1, 2, 4, 8},
			},
			[]string{"kind"},
		),
		macroInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "guidepilot_macro_in_flight",
				Help: "1 while a macro is running",
			},
		),
	}
}

// ObserveLocate records one locate attempt.
func (p *PrometheusRecorder) ObserveLocate(result string, d time.Duration) {
	p.locateTotal.WithLabelValues(result).Inc()
	p.locateDuration.Observe(d.Seconds())
}

// ObserveMacro records one macro trigger. Rejected triggers have no duration.
func (p *PrometheusRecorder) ObserveMacro(kind, result string, d time.Duration) {
	p.macroTotal.WithLabelValues(kind, result).Inc()
	if result != MacroRejected {
		p.macroDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// SetMacroInFlight updates the in-flight gauge.
func (p *PrometheusRecorder) SetMacroInFlight(inFlight bool) {
	if inFlight {
		p.macroInFlight.Set(1)
	} else {
		p.macroInFlight.Set(0)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
