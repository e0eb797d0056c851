package observability

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ufotracker/tracker/render"
)

// Collector bundles the tracker's Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	RenderTransitions *prometheus.CounterVec
	SourceFailures    *prometheus.CounterVec
	ChartExports      *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	ViewSessions      prometheus.Gauge
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	transitions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "render_mode_transitions_total",
		Help: "Render mode transitions, labeled by source and target mode.",
	}, []string{"from", "to"}), "render_mode_transitions_total")
	if err != nil {
		return nil, err
	}
	failures, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sightings_source_failures_total",
		Help: "Failed sightings fetches, labeled by source kind.",
	}, []string{"source"}), "sightings_source_failures_total")
	if err != nil {
		return nil, err
	}
	exports, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chart_exports_total",
		Help: "Chart exports, labeled by result.",
	}, []string{"result"}), "chart_exports_total")
	if err != nil {
		return nil, err
	}
	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Handled HTTP requests, labeled by route pattern, method and status code.",
	}, []string{"route", "method", "code"}), "http_requests_total")
	if err != nil {
		return nil, err
	}
	sessions, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "view_sessions_active",
		Help: "Currently mounted sightings views.",
	}), "view_sessions_active")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          gatherer,
		RenderTransitions: transitions,
		SourceFailures:    failures,
		ChartExports:      exports,
		HTTPRequests:      requests,
		ViewSessions:      sessions,
	}, nil
}

// RecordTransition satisfies render.Metrics.
func (c *Collector) RecordTransition(from, to render.Mode) {
	if c == nil || c.RenderTransitions == nil {
		return
	}
	c.RenderTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (c *Collector) RecordSourceFailure(kind string) {
	if c == nil || c.SourceFailures == nil {
		return
	}
	c.SourceFailures.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordChartExport(err error) {
	if c == nil || c.ChartExports == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.ChartExports.WithLabelValues(result).Inc()
}

func (c *Collector) SessionOpened() {
	if c != nil && c.ViewSessions != nil {
		c.ViewSessions.Inc()
	}
}

func (c *Collector) SessionClosed() {
	if c != nil && c.ViewSessions != nil {
		c.ViewSessions.Dec()
	}
}

// Middleware counts requests by their chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if c == nil || c.HTTPRequests == nil {
			return
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	})
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
