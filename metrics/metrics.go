// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics wraps github.com/prometheus/client_golang in the same
// Counter/Gauge/Averager/Registry shape the teacher's utils/metric package
// exposes over github.com/luxfi/metrics. That dependency is not declared in
// this module's go.mod (only prometheus/client_golang is), so this package
// backs the identical interface directly with prometheus primitives instead
// — see DESIGN.md.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrMetricNotFound is returned when a named metric has not been registered.
var ErrMetricNotFound = errors.New("metric not found")

// Counter tracks a monotonically increasing count.
type Counter interface {
	Inc()
	Add(delta float64)
}

// Gauge tracks a value that can move up or down.
type Gauge interface {
	Set(value float64)
	Add(delta float64)
}

// Averager tracks a running average of observed values (workflow durations,
// retry counts, and similar).
type Averager interface {
	Observe(value float64)
	Read() float64
}

type averager struct {
	mu    sync.RWMutex
	sum   float64
	count int64
}

func (a *averager) Observe(value float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sum += value
	a.count++
}

func (a *averager) Read() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

// Registry is a namespaced collection of counters, gauges, and averagers
// registered against a single prometheus.Registerer, mirroring the shape of
// the teacher's utils/metric.Registry.
type Registry struct {
	namespace string
	reg       prometheus.Registerer

	mu        sync.Mutex
	counters  map[string]Counter
	gauges    map[string]Gauge
	averagers map[string]Averager
}

// NewRegistry returns a Registry that registers metrics under namespace
// against reg. Passing prometheus.NewRegistry() keeps metrics isolated per
// cell; passing prometheus.DefaultRegisterer shares the process registry.
func NewRegistry(namespace string, reg prometheus.Registerer) *Registry {
	return &Registry{
		namespace: namespace,
		reg:       reg,
		counters:  make(map[string]Counter),
		gauges:    make(map[string]Gauge),
		averagers: make(map[string]Averager),
	}
}

// NewCounter creates and registers a new counter under name.
func (r *Registry) NewCounter(name, help string) Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      help,
	})
	r.reg.MustRegister(c)

	r.mu.Lock()
	r.counters[name] = c
	r.mu.Unlock()
	return c
}

// NewGauge creates and registers a new gauge under name.
func (r *Registry) NewGauge(name, help string) Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      help,
	})
	r.reg.MustRegister(g)

	r.mu.Lock()
	r.gauges[name] = g
	r.mu.Unlock()
	return g
}

// NewAverager creates and registers a new averager under name.
func (r *Registry) NewAverager(name string) Averager {
	a := &averager{}
	r.mu.Lock()
	r.averagers[name] = a
	r.mu.Unlock()
	return a
}

// GetCounter returns a previously-created counter by name.
func (r *Registry) GetCounter(name string) (Counter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[name]
	if !ok {
		return nil, ErrMetricNotFound
	}
	return c, nil
}

// GetGauge returns a previously-created gauge by name.
func (r *Registry) GetGauge(name string) (Gauge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gauges[name]
	if !ok {
		return nil, ErrMetricNotFound
	}
	return g, nil
}

// GetAverager returns a previously-created averager by name.
func (r *Registry) GetAverager(name string) (Averager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.averagers[name]
	if !ok {
		return nil, ErrMetricNotFound
	}
	return a, nil
}
