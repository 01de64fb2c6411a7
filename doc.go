// Package spawnpool provides recycle pools for host-owned objects: instead of
// creating and destroying an object every time one is needed, a pool
// deactivates released instances and hands them out again, creating new ones
// only when none are idle.
//
// The host that owns the objects (a scene graph, an entity system, anything
// that can clone a prototype) is injected as a small set of capabilities, so
// the pool works with any handle type. Because the host may destroy an idle
// instance behind the pool's back, the pool checks validity when it takes an
// instance out of the idle store and silently drops stale ones.
//
// # Quick Start
//
//	import (
//	    "github.com/ajitpratap0/spawnpool/pkg/geom"
//	    "github.com/ajitpratap0/spawnpool/pkg/pool"
//	    "github.com/ajitpratap0/spawnpool/pkg/scene"
//	)
//
//	world := scene.New("level-1")
//	bullets := pool.New(world.NewPrototype("Bullet", nil), world, pool.WithReserve(64))
//
//	b, err := bullets.Acquire(geom.V(0, 1, 0), geom.Identity(), nil)
//	...
//	bullets.Release(b) // deactivated, next in line for reuse
//
// # Key Packages
//
//	pkg/pool          - RecyclePool and the multi-prototype Set
//	pkg/scene         - In-memory host implementing pool.Host
//	pkg/events        - Typed publish/subscribe bus for pool lifecycle events
//	pkg/registry      - Lazily initialised, explicitly closed shared instances
//	pkg/config        - Simulation configuration (YAML, ${VAR} substitution)
//	pkg/errors        - Structured error handling
//	pkg/logger        - Structured logging
//	pkg/metrics       - Prometheus instruments and the /metrics endpoint
//	pkg/observability - OpenTelemetry tracing
//	pkg/compression   - Extension-selected stream compression for outputs
//	internal/simulation - Game-loop style driver used by the CLI
//
// # Command Line
//
//	spawnpool run --config sim.yaml --seed 42 --metrics-addr :9090 --report out.json.zst
//	spawnpool version
//
// Flags and SPAWNPOOL_* environment variables override the YAML file.
package spawnpool
