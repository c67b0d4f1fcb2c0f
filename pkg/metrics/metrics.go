// Package metrics provides a minimal Prometheus-style metrics registry
// with plain-text exposition for the /metrics endpoint.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
)

// ErrDuplicateMetric is returned when registering a metric with a name that is already registered.
var ErrDuplicateMetric = errors.New("duplicate metric name")

// MetricType represents the type of a metric.
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

// Metric is the interface implemented by all metric types.
type Metric interface {
	// Name returns the metric name.
	Name() string
	// Help returns the help text.
	Help() string
	// Type returns the metric type.
	Type() MetricType
	// Value returns the current value.
	Value() int64
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name string
	help string
	val  atomic.Int64
}

// Name returns the metric name.
func (c *Counter) Name() string { return c.name }

// Help returns the help text.
func (c *Counter) Help() string { return c.help }

// Type returns the metric type.
func (c *Counter) Type() MetricType { return MetricTypeCounter }

// Value returns the current count.
func (c *Counter) Value() int64 { return c.val.Load() }

// Inc increments the counter by one.
func (c *Counter) Inc() { c.val.Add(1) }

// Add increments the counter by delta. Negative deltas are ignored.
func (c *Counter) Add(delta int64) {
	if delta > 0 {
		c.val.Add(delta)
	}
}

// Gauge is a metric that can go up and down.
type Gauge struct {
	name string
	help string
	val  atomic.Int64
}

// Name returns the metric name.
func (g *Gauge) Name() string { return g.name }

// Help returns the help text.
func (g *Gauge) Help() string { return g.help }

// Type returns the metric type.
func (g *Gauge) Type() MetricType { return MetricTypeGauge }

// Value returns the current value.
func (g *Gauge) Value() int64 { return g.val.Load() }

// Set sets the gauge to the given value.
func (g *Gauge) Set(v int64) { g.val.Store(v) }

// Registry holds a set of named metrics for exposition.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
	order   []string
}

// NewRegistry creates an empty metrics registry.
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]Metric)}
}

// NewCounter registers and returns a new counter.
// Registering a duplicate name panics; metric names are program constants.
func (r *Registry) NewCounter(name, help string) *Counter {
	c := &Counter{name: name, help: help}
	r.mustRegister(c)
	return c
}

// NewGauge registers and returns a new gauge.
func (r *Registry) NewGauge(name, help string) *Gauge {
	g := &Gauge{name: name, help: help}
	r.mustRegister(g)
	return g
}

func (r *Registry) mustRegister(m Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.metrics[m.Name()]; exists {
		panic(fmt.Errorf("%w: %s", ErrDuplicateMetric, m.Name()))
	}
	r.metrics[m.Name()] = m
	r.order = append(r.order, m.Name())
}

// Handler returns an http.Handler that serves the registry in
// Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		r.mu.RLock()
		defer r.mu.RUnlock()
		for _, name := range r.order {
			m := r.metrics[name]
			fmt.Fprintf(w, "# HELP %s %s\n", m.Name(), m.Help())
			fmt.Fprintf(w, "# TYPE %s %s\n", m.Name(), m.Type())
			fmt.Fprintf(w, "%s %d\n", m.Name(), m.Value())
		}
	})
}
