// Package telemetry exposes Prometheus metrics. Until InitializeTelemetry
// runs with Prometheus enabled every metric is a no-op, so callers never
// need to check whether metrics are on.
package telemetry

import (
	"net/http"
	"strconv"

	"github.com/blurt-dev/blurt/cfg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "blurt"

var registry *prometheus.Registry

type Histogram interface {
	Observe(float64)
}

type Counter interface {
	Inc()
	Add(float64)
}

type Gauge interface {
	Set(float64)
	Inc()
	Dec()
	Add(float64)
	Sub(float64)
	SetToCurrentTime()
}

// Vec types for labeled metrics
type CounterVec interface {
	With(labels ...string) Counter
}

type GaugeVec interface {
	With(labels ...string) Gauge
}

type HistogramVec interface {
	With(labels ...string) Histogram
}

// NoopStat satisfies every metric interface and discards observations
type NoopStat struct{}

func (NoopStat) Observe(float64)   {}
func (NoopStat) Set(float64)       {}
func (NoopStat) Inc()              {}
func (NoopStat) Dec()              {}
func (NoopStat) Add(float64)       {}
func (NoopStat) Sub(float64)       {}
func (NoopStat) SetToCurrentTime() {}

type noopCounterVec struct{}
type noopGaugeVec struct{}
type noopHistogramVec struct{}

func (noopCounterVec) With(...string) Counter     { return NoopStat{} }
func (noopGaugeVec) With(...string) Gauge         { return NoopStat{} }
func (noopHistogramVec) With(...string) Histogram { return NoopStat{} }

type counterVec struct{ vec *prometheus.CounterVec }
type gaugeVec struct{ vec *prometheus.GaugeVec }
type histogramVec struct{ vec *prometheus.HistogramVec }

func (c counterVec) With(values ...string) Counter     { return c.vec.WithLabelValues(values...) }
func (g gaugeVec) With(values ...string) Gauge         { return g.vec.WithLabelValues(values...) }
func (h histogramVec) With(values ...string) Histogram { return h.vec.WithLabelValues(values...) }

// opts carries the namespace and instance label shared by every metric
func opts(name, help string) prometheus.Opts {
	return prometheus.Opts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		ConstLabels: prometheus.Labels{
			"instance_id": strconv.FormatUint(cfg.Config.InstanceID, 10),
		},
	}
}

func histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	o := opts(name, help)
	return prometheus.HistogramOpts{
		Namespace:   o.Namespace,
		Name:        o.Name,
		Help:        o.Help,
		ConstLabels: o.ConstLabels,
		Buckets:     buckets,
	}
}

func NewCounter(name, help string) Counter {
	if registry == nil {
		return NoopStat{}
	}
	c := prometheus.NewCounter(prometheus.CounterOpts(opts(name, help)))
	registry.MustRegister(c)
	return c
}

func NewGauge(name, help string) Gauge {
	if registry == nil {
		return NoopStat{}
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts(opts(name, help)))
	registry.MustRegister(g)
	return g
}

func NewHistogramWithBuckets(name, help string, buckets []float64) Histogram {
	if registry == nil {
		return NoopStat{}
	}
	h := prometheus.NewHistogram(histogramOpts(name, help, buckets))
	registry.MustRegister(h)
	return h
}

func NewCounterVec(name, help string, labels []string) CounterVec {
	if registry == nil {
		return noopCounterVec{}
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts(opts(name, help)), labels)
	registry.MustRegister(vec)
	return counterVec{vec: vec}
}

func NewGaugeVec(name, help string, labels []string) GaugeVec {
	if registry == nil {
		return noopGaugeVec{}
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts(opts(name, help)), labels)
	registry.MustRegister(vec)
	return gaugeVec{vec: vec}
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) HistogramVec {
	if registry == nil {
		return noopHistogramVec{}
	}
	vec := prometheus.NewHistogramVec(histogramOpts(name, help, buckets), labels)
	registry.MustRegister(vec)
	return histogramVec{vec: vec}
}

// Enabled reports whether a registry is collecting metrics
func Enabled() bool {
	return registry != nil
}

// InitializeTelemetry creates the registry when Prometheus is enabled in
// cfg.Config. Call InitMetrics afterwards to bind the package metrics.
func InitializeTelemetry() {
	if !cfg.Config.Prometheus.Enabled {
		registry = nil
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())

	log.Info().Msg("Prometheus metrics enabled")
}

// GetMetricsHandler returns the HTTP handler for Prometheus metrics
// Returns nil if Prometheus is not enabled
func GetMetricsHandler() http.Handler {
	if registry == nil {
		return nil
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
