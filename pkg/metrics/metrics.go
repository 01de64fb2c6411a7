// Package metrics exposes Prometheus instruments for recycle pools and the
// simulation driver.
//
// # Overview
//
// Instruments are registered against a caller supplied prometheus.Registerer
// so that several independent registries (one per test, one per process) can
// coexist. A nil *PoolMetrics is valid and records nothing, which lets pools
// run without any metrics wiring.
//
// # Basic Usage
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewPoolMetrics(reg)
//	p := pool.New(proto, host, pool.WithMetrics(m))
//
//	timer := metrics.NewTimer("tick")
//	runTick()
//	m.ObserveTick(timer.Stop())
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "spawnpool"

// Result labels for acquisitions.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// PoolMetrics holds the per-pool counters and gauges.
type PoolMetrics struct {
	acquires      *prometheus.CounterVec // Acquire calls by outcome
	releases      *prometheus.CounterVec // Release calls accepted
	staleDiscards *prometheus.CounterVec // idle handles found destroyed
	misuse        *prometheus.CounterVec // rejected releases
	factoryErrors *prometheus.CounterVec // factory failures on Acquire
	idle          *prometheus.GaugeVec   // idle store depth
	tickDuration  prometheus.Histogram   // simulation tick latency
}

// NewPoolMetrics constructs the instruments and registers them with reg. A
// nil reg uses prometheus.DefaultRegisterer.
func NewPoolMetrics(reg prometheus.Registerer) *PoolMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PoolMetrics{
		acquires: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "acquires_total",
				Help:      "Total number of Acquire calls, labeled by pool and result (hit or miss).",
			},
			[]string{"pool", "result"},
		),
		releases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "releases_total",
				Help:      "Total number of handles returned to the idle store.",
			},
			[]string{"pool"},
		),
		staleDiscards: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "stale_discards_total",
				Help:      "Total number of idle handles discarded because they were destroyed externally.",
			},
			[]string{"pool"},
		),
		misuse: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "misuse_total",
				Help:      "Total number of releases rejected by the release guard.",
			},
			[]string{"pool"},
		),
		factoryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "factory_errors_total",
				Help:      "Total number of failed instance creations.",
			},
			[]string{"pool"},
		),
		idle: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "idle",
				Help:      "Current number of handles in the idle store.",
			},
			[]string{"pool"},
		),
		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "simulation",
				Name:      "tick_seconds",
				Help:      "Time spent running one simulation tick.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),
	}
	reg.MustRegister(m.acquires, m.releases, m.staleDiscards, m.misuse, m.factoryErrors, m.idle, m.tickDuration)
	return m
}

// ObserveAcquire counts an Acquire that reused (hit) or created (miss) a handle.
func (m *PoolMetrics) ObserveAcquire(pool string, reused bool) {
	if m == nil {
		return
	}
	result := ResultMiss
	if reused {
		result = ResultHit
	}
	m.acquires.WithLabelValues(pool, result).Inc()
}

// ObserveRelease counts an accepted Release.
func (m *PoolMetrics) ObserveRelease(pool string) {
	if m == nil {
		return
	}
	m.releases.WithLabelValues(pool).Inc()
}

// ObserveStale counts a discarded stale handle.
func (m *PoolMetrics) ObserveStale(pool string) {
	if m == nil {
		return
	}
	m.staleDiscards.WithLabelValues(pool).Inc()
}

// ObserveMisuse counts a rejected Release.
func (m *PoolMetrics) ObserveMisuse(pool string) {
	if m == nil {
		return
	}
	m.misuse.WithLabelValues(pool).Inc()
}

// ObserveFactoryError counts a failed creation.
func (m *PoolMetrics) ObserveFactoryError(pool string) {
	if m == nil {
		return
	}
	m.factoryErrors.WithLabelValues(pool).Inc()
}

// SetIdle records the idle store depth.
func (m *PoolMetrics) SetIdle(pool string, n int) {
	if m == nil {
		return
	}
	m.idle.WithLabelValues(pool).Set(float64(n))
}

// ObserveTick records one simulation tick.
func (m *PoolMetrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the label the timer was created with.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the time elapsed since the timer was created.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
