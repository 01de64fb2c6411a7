package pool

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/events"
	"github.com/ajitpratap0/spawnpool/pkg/geom"
	"github.com/ajitpratap0/spawnpool/pkg/metrics"
)

var (
	// ErrForeignHandle is returned by TryRelease when the guard does not know the handle.
	ErrForeignHandle = errors.Sentinel(errors.ErrorTypeMisuse, "handle was not created by this pool")
	// ErrDoubleRelease is returned by TryRelease when the handle is already idle.
	ErrDoubleRelease = errors.Sentinel(errors.ErrorTypeMisuse, "handle released twice")
	// ErrStaleHandle is returned by TryRelease when the handle was destroyed while in use.
	ErrStaleHandle = errors.Sentinel(errors.ErrorTypeDestroyed, "handle no longer valid")
)

// Stats is a snapshot of pool activity.
type Stats struct {
	// Created counts instances produced by the factory.
	Created uint64 `json:"created"`
	// Reused counts Acquire calls served from the idle store.
	Reused uint64 `json:"reused"`
	// Released counts handles pushed on the idle store.
	Released uint64 `json:"released"`
	// StaleDiscarded counts idle handles dropped because they were destroyed.
	StaleDiscarded uint64 `json:"stale_discarded"`
	// FactoryErrors counts failed creations.
	FactoryErrors uint64 `json:"factory_errors"`
	// Misuse counts releases rejected by the guard.
	Misuse uint64 `json:"misuse"`
	// Idle is the current idle store depth.
	Idle int `json:"idle"`
}

// RecyclePool reuses deactivated instances of a single prototype. See the
// package documentation for the algorithm. A RecyclePool must not be used
// from more than one goroutine at a time.
type RecyclePool[T comparable] struct {
	name      string
	prototype T
	host      Host[T]
	idle      []T
	nextID    uint64
	stats     Stats

	logger  *zap.Logger
	metrics *metrics.PoolMetrics
	events  *events.Bus[Event[T]]
	guard   *releaseGuard[T]

	// set by Set to track ownership across pools
	onCreate func(T)
	onForget func(T)
}

// New creates a pool for prototype. It keeps a reference to prototype but
// never modifies it. No instances are created until Acquire or Preload.
// New panics if host is nil.
func New[T comparable](prototype T, host Host[T], opts ...Option) *RecyclePool[T] {
	if host == nil {
		panic("pool: host must be provided")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	name := cfg.name
	if name == "" {
		name = host.Name(prototype)
	}

	p := &RecyclePool[T]{
		name:      name,
		prototype: prototype,
		host:      host,
		idle:      make([]T, 0, cfg.reserve),
		nextID:    1,
		logger:    cfg.logger.With(zap.String("pool", name)),
		metrics:   cfg.metrics,
	}
	if bus, ok := cfg.events.(*events.Bus[Event[T]]); ok {
		p.events = bus
	}
	if cfg.guard {
		p.guard = newReleaseGuard[T]()
	}
	return p
}

// Name returns the pool name.
func (p *RecyclePool[T]) Name() string {
	return p.name
}

// Prototype returns the template the pool creates instances from.
func (p *RecyclePool[T]) Prototype() T {
	return p.prototype
}

// Idle returns the number of handles waiting in the idle store, including
// any that were destroyed externally and not yet discovered.
func (p *RecyclePool[T]) Idle() int {
	return len(p.idle)
}

// Stats returns a snapshot of the pool counters.
func (p *RecyclePool[T]) Stats() Stats {
	s := p.stats
	s.Idle = len(p.idle)
	return s
}

// Acquire returns an active instance placed at position and rotation under
// parent (the zero T for none). The most recently released valid instance is
// reused when there is one; otherwise the factory creates a new instance and
// its error, if any, is returned as is.
func (p *RecyclePool[T]) Acquire(position geom.Vec3, rotation geom.Quat, parent T) (T, error) {
	h, reused, err := p.take(position, rotation)
	if err != nil {
		var zero T
		return zero, err
	}

	p.host.SetTransform(h, position, rotation, parent)
	p.host.SetActive(h, true)

	p.metrics.ObserveAcquire(p.name, reused)
	p.metrics.SetIdle(p.name, len(p.idle))
	if reused {
		p.stats.Reused++
		p.publish(EventReused, h, nil)
	}
	return h, nil
}

// take pops idle handles until a valid one turns up, falling back to
// creation once the store is exhausted. Each iteration consumes one idle
// entry, so the loop always terminates.
func (p *RecyclePool[T]) take(position geom.Vec3, rotation geom.Quat) (T, bool, error) {
	for len(p.idle) > 0 {
		h := p.pop()
		if p.host.IsValid(h) {
			return h, true, nil
		}
		p.discard(h)
	}
	h, err := p.create(position, rotation)
	return h, false, err
}

func (p *RecyclePool[T]) pop() T {
	var zero T
	last := len(p.idle) - 1
	h := p.idle[last]
	p.idle[last] = zero
	p.idle = p.idle[:last]
	p.guard.popped(h)
	return h
}

func (p *RecyclePool[T]) discard(h T) {
	p.stats.StaleDiscarded++
	p.guard.forget(h)
	if p.onForget != nil {
		p.onForget(h)
	}
	p.metrics.ObserveStale(p.name)
	p.logger.Debug("discarded destroyed idle instance", zap.Int("idle", len(p.idle)))
	p.publish(EventStaleDiscarded, h, nil)
}

func (p *RecyclePool[T]) create(position geom.Vec3, rotation geom.Quat) (T, error) {
	h, err := p.host.CreateInstance(p.prototype, position, rotation)
	if err != nil {
		p.stats.FactoryErrors++
		p.metrics.ObserveFactoryError(p.name)
		p.logger.Debug("instance creation failed", zap.Error(err))
		return h, err
	}

	id := p.nextID
	p.nextID++
	p.host.SetName(h, fmt.Sprintf("%s (%d)", p.host.Name(p.prototype), id))

	p.stats.Created++
	p.guard.created(h)
	if p.onCreate != nil {
		p.onCreate(h)
	}
	p.logger.Debug("created instance", zap.Uint64("id", id))
	p.publish(EventCreated, h, nil)
	return h, nil
}

// Release deactivates h and makes it the next candidate for reuse. h must
// come from Acquire on this pool and must not be released twice; with the
// release guard enabled violations are dropped and logged, otherwise the
// behaviour is undefined.
func (p *RecyclePool[T]) Release(h T) {
	_ = p.TryRelease(h)
}

// TryRelease is Release that reports guard rejections. Without the guard it
// always returns nil.
func (p *RecyclePool[T]) TryRelease(h T) error {
	if err := p.guard.check(h, p.host); err != nil {
		p.stats.Misuse++
		p.metrics.ObserveMisuse(p.name)
		p.logger.Warn("rejected release", zap.Error(err))
		p.publish(EventMisuse, h, err)
		return fmt.Errorf("pool %s: %w", p.name, err)
	}

	p.host.SetActive(h, false)
	p.idle = append(p.idle, h)
	p.guard.pushed(h)

	p.stats.Released++
	p.metrics.ObserveRelease(p.name)
	p.metrics.SetIdle(p.name, len(p.idle))
	p.publish(EventReleased, h, nil)
	return nil
}

// Preload creates n instances up front and parks them, inactive, in the idle
// store. It stops at the first factory error and returns it unchanged; the
// instances created before the failure stay idle.
func (p *RecyclePool[T]) Preload(n int) error {
	var zero T
	for i := 0; i < n; i++ {
		h, err := p.create(geom.Zero, geom.Identity())
		if err != nil {
			p.metrics.SetIdle(p.name, len(p.idle))
			return err
		}
		p.host.SetTransform(h, geom.Zero, geom.Identity(), zero)
		p.host.SetActive(h, false)
		p.idle = append(p.idle, h)
		p.guard.pushed(h)
	}
	p.metrics.SetIdle(p.name, len(p.idle))
	p.logger.Debug("preloaded instances", zap.Int("count", n), zap.Int("idle", len(p.idle)))
	return nil
}

// Drain empties the idle store and returns its handles, most recently
// released last. The pool gives up ownership of the returned handles; the
// caller typically destroys them. Stale handles are included.
func (p *RecyclePool[T]) Drain() []T {
	if len(p.idle) == 0 {
		return nil
	}
	drained := p.idle
	p.idle = make([]T, 0, cap(drained))
	for _, h := range drained {
		p.guard.forget(h)
		if p.onForget != nil {
			p.onForget(h)
		}
		p.publish(EventDrained, h, nil)
	}
	p.metrics.SetIdle(p.name, 0)
	p.logger.Debug("drained idle store", zap.Int("count", len(drained)))
	return drained
}

func (p *RecyclePool[T]) publish(kind EventKind, h T, err error) {
	if p.events == nil {
		return
	}
	p.events.Publish(Event[T]{Kind: kind, Pool: p.name, Handle: h, Err: err})
}
