// Package config defines the configuration of a spawnpool simulation run.
//
// A run is described by a single SimulationConfig, normally loaded from YAML:
//
//	name: arena
//	seed: 42
//	ticks: 1000
//	scene:
//	  max_nodes: 5000
//	prototypes:
//	  - name: Bullet
//	    reserve: 64
//	    preload: 32
//	    spawn_rate: 0.8
//	    despawn_rate: 0.6
//	external_destroy_rate: 0.01
//
// Load applies ${VAR} substitution before parsing; Validate must be called
// before the configuration is used.
package config

import (
	"time"

	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/logger"
	"github.com/ajitpratap0/spawnpool/pkg/observability"
)

// SimulationConfig describes one simulation run.
type SimulationConfig struct {
	// Name identifies the run in logs, traces and the report
	Name string `yaml:"name" json:"name"`
	// Seed makes the run reproducible
	Seed uint64 `yaml:"seed" json:"seed"`
	// Ticks is the number of simulation steps
	Ticks int `yaml:"ticks" json:"ticks"`
	// TickInterval sleeps between ticks; zero runs flat out
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`

	Scene      SceneConfig       `yaml:"scene" json:"scene"`
	Pool       PoolConfig        `yaml:"pool" json:"pool"`
	Prototypes []PrototypeConfig `yaml:"prototypes" json:"prototypes"`

	// ExternalDestroyRate is the per-tick, per-prototype probability that an
	// idle instance is destroyed behind the pool's back
	ExternalDestroyRate float64 `yaml:"external_destroy_rate" json:"external_destroy_rate"`

	Logging logger.Config               `yaml:"logging" json:"logging"`
	Metrics MetricsConfig               `yaml:"metrics" json:"metrics"`
	Tracing observability.TracingConfig `yaml:"tracing" json:"tracing"`
	Report  ReportConfig                `yaml:"report" json:"report"`
}

// SceneConfig configures the in-memory scene hosting the pools.
type SceneConfig struct {
	// MaxNodes caps live instances; zero means unlimited
	MaxNodes int `yaml:"max_nodes" json:"max_nodes"`
}

// PoolConfig holds options shared by every pool of the run.
type PoolConfig struct {
	// ReleaseGuard enables release misuse detection
	ReleaseGuard bool `yaml:"release_guard" json:"release_guard"`
}

// PrototypeConfig describes one pooled prototype.
type PrototypeConfig struct {
	Name string `yaml:"name" json:"name"`
	// Reserve is the idle store capacity hint
	Reserve int `yaml:"reserve" json:"reserve"`
	// Preload instances are created before the first tick
	Preload int `yaml:"preload" json:"preload"`
	// SpawnRate is the per-tick probability of an Acquire
	SpawnRate float64 `yaml:"spawn_rate" json:"spawn_rate"`
	// DespawnRate is the per-tick probability of releasing a live instance
	DespawnRate float64 `yaml:"despawn_rate" json:"despawn_rate"`
	// Tags are copied onto every instance
	Tags map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// ReportConfig configures the run outputs. Both paths are compressed
// according to their extension (.zst, .lz4, .gz, .sz, .s2); empty skips the
// output.
type ReportConfig struct {
	// Output is the JSON report path
	Output string `yaml:"output" json:"output"`
	// Events is the JSON lines pool event log path
	Events string `yaml:"events" json:"events"`
}

// Default returns a small runnable configuration.
func Default() *SimulationConfig {
	return &SimulationConfig{
		Name:  "default",
		Seed:  1,
		Ticks: 1000,
		Prototypes: []PrototypeConfig{
			{
				Name:        "Bullet",
				Reserve:     64,
				Preload:     16,
				SpawnRate:   0.9,
				DespawnRate: 0.7,
			},
			{
				Name:        "Enemy",
				Reserve:     16,
				SpawnRate:   0.3,
				DespawnRate: 0.25,
			},
		},
		ExternalDestroyRate: 0.02,
		Logging:             logger.DefaultConfig(),
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Tracing: observability.DefaultTracingConfig(),
	}
}

// Validate checks the configuration for correctness. Every failure is an
// errors.ErrorTypeConfig error naming the offending field.
func (c *SimulationConfig) Validate() error {
	if c.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "name is required")
	}
	if c.Ticks < 0 {
		return errors.New(errors.ErrorTypeConfig, "ticks cannot be negative")
	}
	if c.TickInterval < 0 {
		return errors.New(errors.ErrorTypeConfig, "tick_interval cannot be negative")
	}
	if c.Scene.MaxNodes < 0 {
		return errors.New(errors.ErrorTypeConfig, "scene.max_nodes cannot be negative")
	}
	if len(c.Prototypes) == 0 {
		return errors.New(errors.ErrorTypeConfig, "at least one prototype is required")
	}
	if !isRate(c.ExternalDestroyRate) {
		return errors.Newf(errors.ErrorTypeConfig, "external_destroy_rate %v not in [0,1]", c.ExternalDestroyRate)
	}

	seen := make(map[string]bool, len(c.Prototypes))
	for i, p := range c.Prototypes {
		if p.Name == "" {
			return errors.Newf(errors.ErrorTypeConfig, "prototypes[%d]: name is required", i)
		}
		if seen[p.Name] {
			return errors.Newf(errors.ErrorTypeConfig, "prototypes[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
		if p.Reserve < 0 {
			return errors.Newf(errors.ErrorTypeConfig, "prototypes[%d]: reserve cannot be negative", i)
		}
		if p.Preload < 0 {
			return errors.Newf(errors.ErrorTypeConfig, "prototypes[%d]: preload cannot be negative", i)
		}
		if !isRate(p.SpawnRate) {
			return errors.Newf(errors.ErrorTypeConfig, "prototypes[%d]: spawn_rate %v not in [0,1]", i, p.SpawnRate)
		}
		if !isRate(p.DespawnRate) {
			return errors.Newf(errors.ErrorTypeConfig, "prototypes[%d]: despawn_rate %v not in [0,1]", i, p.DespawnRate)
		}
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New(errors.ErrorTypeConfig, "metrics.addr is required when metrics are enabled")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return errors.Newf(errors.ErrorTypeConfig, "tracing.sampling_rate %v not in [0,1]", c.Tracing.SamplingRate)
	}
	return nil
}

// TotalPreload returns the number of instances created before the first tick.
func (c *SimulationConfig) TotalPreload() int {
	n := 0
	for _, p := range c.Prototypes {
		n += p.Preload
	}
	return n
}

func isRate(v float64) bool {
	return v >= 0 && v <= 1
}
