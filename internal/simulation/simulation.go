// Package simulation drives recycle pools against an in-memory scene the way
// a game loop would: instances spawn and despawn at configured rates while
// idle instances are occasionally destroyed from outside the pool.
package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/pkg/config"
	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/events"
	"github.com/ajitpratap0/spawnpool/pkg/geom"
	"github.com/ajitpratap0/spawnpool/pkg/json"
	"github.com/ajitpratap0/spawnpool/pkg/metrics"
	"github.com/ajitpratap0/spawnpool/pkg/observability"
	"github.com/ajitpratap0/spawnpool/pkg/pool"
	"github.com/ajitpratap0/spawnpool/pkg/scene"
)

// arenaSize bounds spawn positions on every axis.
const arenaSize = 100.0

// Simulator runs one configured simulation. It is not safe for concurrent use.
type Simulator struct {
	cfg     *config.SimulationConfig
	world   *scene.Scene
	set     *pool.Set[*scene.Node]
	bus     *events.Bus[pool.Event[*scene.Node]]
	protos  []*prototype
	rng     *rand.Rand
	logger  *zap.Logger
	metrics *metrics.PoolMetrics

	counters  Counters
	eventKind map[pool.EventKind]uint64
	eventLog  *json.StreamingEncoder
	tick      int
	peakLive  int
}

type prototype struct {
	cfg  config.PrototypeConfig
	node *scene.Node
	live []*scene.Node
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger used by the simulator and its pools.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records pool and tick metrics on m.
func WithMetrics(m *metrics.PoolMetrics) Option {
	return func(s *Simulator) {
		s.metrics = m
	}
}

// New validates cfg, registers one pool per prototype on world and preloads
// them.
func New(cfg *config.SimulationConfig, world *scene.Scene, opts ...Option) (*Simulator, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "simulation config is nil")
	}
	if world == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "scene is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:       cfg,
		world:     world,
		bus:       events.NewBus[pool.Event[*scene.Node]](),
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		logger:    zap.NewNop(),
		eventKind: make(map[pool.EventKind]uint64),
		tick:      -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("simulation", cfg.Name))

	s.bus.Subscribe(func(e pool.Event[*scene.Node]) {
		s.eventKind[e.Kind]++
		s.logEvent(e)
	})

	s.set = pool.NewSet[*scene.Node](world,
		pool.WithLogger(s.logger),
		pool.WithMetrics(s.metrics),
		pool.WithEvents(s.bus),
		pool.WithReleaseGuard(cfg.Pool.ReleaseGuard),
	)

	for _, pc := range cfg.Prototypes {
		node := world.NewPrototype(pc.Name, pc.Tags)
		p := s.set.Register(node, pool.WithReserve(pc.Reserve))
		if pc.Preload > 0 {
			if err := p.Preload(pc.Preload); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeInternal,
					fmt.Sprintf("preload %s", pc.Name))
			}
		}
		s.protos = append(s.protos, &prototype{cfg: pc, node: node})
	}

	s.logger.Info("simulation ready",
		zap.Int("prototypes", len(s.protos)),
		zap.Int("preloaded", cfg.TotalPreload()),
		zap.Uint64("seed", cfg.Seed))
	return s, nil
}

// Set returns the pools driven by the simulator.
func (s *Simulator) Set() *pool.Set[*scene.Node] {
	return s.set
}

// Events returns the bus carrying every pool lifecycle event.
func (s *Simulator) Events() *events.Bus[pool.Event[*scene.Node]] {
	return s.bus
}

// Run executes the configured number of ticks and returns the report. It
// stops early with ctx's error when ctx is cancelled, and with an
// errors.ErrorTypeInvariant error if an acquired instance is not placed and
// active as requested.
func (s *Simulator) Run(ctx context.Context) (*Report, error) {
	ctx, span := observability.NewSpan(ctx, "simulation.run")
	defer span.End()
	span.SetAttribute("simulation.name", s.cfg.Name)
	span.SetAttribute("simulation.seed", s.cfg.Seed)
	span.SetAttribute("simulation.ticks", s.cfg.Ticks)

	started := time.Now()
	s.logger.Info("simulation started", zap.Int("ticks", s.cfg.Ticks))

	for tick := 0; tick < s.cfg.Ticks; tick++ {
		s.tick = tick
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return nil, err
		}

		timer := metrics.NewTimer("tick")
		if err := s.Step(); err != nil {
			span.RecordError(err)
			s.logger.Error("simulation failed", zap.Int("tick", tick), zap.Error(err))
			return nil, err
		}
		s.metrics.ObserveTick(timer.Stop())

		span.AddEvent("tick",
			attribute.Int("tick", tick),
			attribute.Int("live", s.world.Len()))

		if s.cfg.TickInterval > 0 {
			select {
			case <-ctx.Done():
				span.RecordError(ctx.Err())
				return nil, ctx.Err()
			case <-time.After(s.cfg.TickInterval):
			}
		}
	}

	if s.eventLog != nil {
		err := s.eventLog.Close()
		s.eventLog = nil
		if err != nil {
			span.RecordError(err)
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to write event log")
		}
	}

	report := s.report(time.Since(started))
	span.SetAttribute("simulation.spawned", report.Counters.Spawned)
	span.SetAttribute("simulation.external_destroys", report.Counters.ExternalDestroys)
	span.SetAttribute("simulation.live_nodes", report.LiveNodes)

	s.logger.Info("simulation finished",
		zap.Duration("duration", report.Duration),
		zap.Uint64("spawned", report.Counters.Spawned),
		zap.Uint64("despawned", report.Counters.Despawned),
		zap.Int("live", report.LiveNodes))
	return report, nil
}

// Step runs a single tick over every prototype in configuration order.
func (s *Simulator) Step() error {
	for _, p := range s.protos {
		if s.rng.Float64() < p.cfg.SpawnRate {
			if err := s.spawn(p); err != nil {
				return err
			}
		}
		if len(p.live) > 0 && s.rng.Float64() < p.cfg.DespawnRate {
			if err := s.despawn(p); err != nil {
				return err
			}
		}
		if s.rng.Float64() < s.cfg.ExternalDestroyRate {
			s.destroyIdle(p)
		}
	}
	if n := s.world.Len(); n > s.peakLive {
		s.peakLive = n
	}
	return nil
}

func (s *Simulator) spawn(p *prototype) error {
	pos := geom.V(
		(s.rng.Float64()*2-1)*arenaSize,
		(s.rng.Float64()*2-1)*arenaSize,
		(s.rng.Float64()*2-1)*arenaSize,
	)
	rot := geom.AxisAngle(geom.V(0, 1, 0), s.rng.Float64()*2*math.Pi)

	h, err := s.set.Acquire(p.node, pos, rot, nil)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeCapacity) {
			s.counters.CapacityRejections++
			s.logger.Debug("spawn rejected", zap.String("prototype", p.cfg.Name), zap.Error(err))
			return nil
		}
		return errors.Wrap(err, errors.ErrorTypeInternal, fmt.Sprintf("spawn %s", p.cfg.Name))
	}

	if err := s.checkAcquired(p, h, pos, rot); err != nil {
		return err
	}
	p.live = append(p.live, h)
	s.counters.Spawned++
	return nil
}

func (s *Simulator) checkAcquired(p *prototype, h *scene.Node, pos geom.Vec3, rot geom.Quat) error {
	fail := func(what string) error {
		return errors.Newf(errors.ErrorTypeInvariant, "%s: acquired %s %s", p.cfg.Name, h, what).
			WithDetail("prototype", p.cfg.Name)
	}
	switch {
	case h.Destroyed():
		return fail("is destroyed")
	case !h.Active():
		return fail("is inactive")
	case h.Position() != pos:
		return fail("has wrong position")
	case !h.Rotation().Equal(rot):
		return fail("has wrong rotation")
	case h.Source() != p.node:
		return fail("comes from another prototype")
	}
	for _, other := range p.live {
		if other == h {
			return fail("is already in use")
		}
	}
	return nil
}

func (s *Simulator) despawn(p *prototype) error {
	i := s.rng.IntN(len(p.live))
	h := p.live[i]
	last := len(p.live) - 1
	p.live[i] = p.live[last]
	p.live[last] = nil
	p.live = p.live[:last]

	if err := s.set.Release(h); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInvariant, fmt.Sprintf("despawn %s", p.cfg.Name))
	}
	s.counters.Despawned++
	return nil
}

// destroyIdle destroys a random inactive instance of p behind the pool's back.
func (s *Simulator) destroyIdle(p *prototype) {
	var idle []*scene.Node
	for _, n := range s.world.Inactive() {
		if n.Source() == p.node {
			idle = append(idle, n)
		}
	}
	if len(idle) == 0 {
		return
	}
	victim := idle[s.rng.IntN(len(idle))]
	s.world.Destroy(victim)
	s.counters.ExternalDestroys++
	s.logger.Debug("destroyed idle instance externally", zap.Stringer("node", victim))
}

// Shutdown drains every pool and destroys the drained instances together with
// those still in use. It returns how many nodes were destroyed.
func (s *Simulator) Shutdown() int {
	n := 0
	for _, h := range s.set.Drain() {
		if s.world.IsValid(h) {
			s.world.Destroy(h)
			n++
		}
	}
	for _, p := range s.protos {
		for _, h := range p.live {
			if s.world.IsValid(h) {
				s.world.Destroy(h)
				n++
			}
		}
		p.live = nil
	}
	s.bus.Close()
	s.logger.Debug("simulation shut down", zap.Int("destroyed", n))
	return n
}
