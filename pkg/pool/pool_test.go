package pool

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/events"
	"github.com/ajitpratap0/spawnpool/pkg/geom"
	"github.com/ajitpratap0/spawnpool/pkg/metrics"
)

type object struct {
	name   string
	pos    geom.Vec3
	rot    geom.Quat
	parent *object
	active bool
	dead   bool
}

// fakeHost records every capability call so tests can assert on them.
type fakeHost struct {
	created   []*object
	createErr error
	// validityChecks counts IsValid calls
	validityChecks int
}

func (h *fakeHost) CreateInstance(proto *object, pos geom.Vec3, rot geom.Quat) (*object, error) {
	if h.createErr != nil {
		return nil, h.createErr
	}
	o := &object{name: proto.name + " (Clone)", pos: pos, rot: rot, active: true}
	h.created = append(h.created, o)
	return o, nil
}

func (h *fakeHost) SetActive(o *object, active bool) {
	if o.dead {
		panic("SetActive on destroyed object")
	}
	o.active = active
}

func (h *fakeHost) SetTransform(o *object, pos geom.Vec3, rot geom.Quat, parent *object) {
	if o.dead {
		panic("SetTransform on destroyed object")
	}
	o.pos, o.rot, o.parent = pos, rot, parent
}

func (h *fakeHost) IsValid(o *object) bool {
	h.validityChecks++
	return o != nil && !o.dead
}

func (h *fakeHost) Name(o *object) string          { return o.name }
func (h *fakeHost) SetName(o *object, name string) { o.name = name }

func newTestPool(t *testing.T, opts ...Option) (*RecyclePool[*object], *fakeHost) {
	t.Helper()
	host := &fakeHost{}
	return New(&object{name: "Foo"}, host, opts...), host
}

func acquire(t *testing.T, p *RecyclePool[*object]) *object {
	t.Helper()
	o, err := p.Acquire(geom.Zero, geom.Identity(), nil)
	require.NoError(t, err)
	require.NotNil(t, o)
	return o
}

func TestNewDefaults(t *testing.T) {
	p, host := newTestPool(t)

	assert.Equal(t, "Foo", p.Name())
	assert.Equal(t, "Foo", p.Prototype().name)
	assert.Equal(t, DefaultReserve, cap(p.idle))
	assert.Zero(t, p.Idle())
	assert.Empty(t, host.created, "construction must not create instances")
}

func TestNewOptions(t *testing.T) {
	p, _ := newTestPool(t, WithReserve(16), WithName("bullets"), nil)
	assert.Equal(t, "bullets", p.Name())
	assert.Equal(t, 16, cap(p.idle))

	p, _ = newTestPool(t, WithReserve(-4))
	assert.Zero(t, cap(p.idle))
}

func TestNewPanicsWithoutHost(t *testing.T) {
	assert.Panics(t, func() { New[*object](&object{}, nil) })
}

func TestReuseBeforeCreate(t *testing.T) {
	p, host := newTestPool(t)

	a := acquire(t, p)
	p.Release(a)
	b := acquire(t, p)

	assert.Same(t, a, b)
	assert.Len(t, host.created, 1)
	assert.Equal(t, "Foo (1)", b.name)

	s := p.Stats()
	assert.Equal(t, uint64(1), s.Created)
	assert.Equal(t, uint64(1), s.Reused)
	assert.Equal(t, uint64(1), s.Released)
}

func TestLIFOOrder(t *testing.T) {
	p, _ := newTestPool(t)
	a, b, c := acquire(t, p), acquire(t, p), acquire(t, p)

	p.Release(a)
	p.Release(b)
	p.Release(c)

	assert.Same(t, c, acquire(t, p))
	assert.Same(t, b, acquire(t, p))
	assert.Same(t, a, acquire(t, p))
	assert.Zero(t, p.Idle())
}

func TestNoDuplicateIssue(t *testing.T) {
	p, _ := newTestPool(t)
	inUse := make(map[*object]bool)

	// Interleave acquisitions and releases; a handle may only come back
	// after it was released.
	for round := 0; round < 50; round++ {
		for i := 0; i < round%4+1; i++ {
			o := acquire(t, p)
			require.False(t, inUse[o], "handle %s issued twice", o.name)
			inUse[o] = true
		}
		released := 0
		for o := range inUse {
			if released == round%3 {
				break
			}
			p.Release(o)
			delete(inUse, o)
			released++
		}
	}
}

func TestStaleSkip(t *testing.T) {
	p, host := newTestPool(t)
	a, b, c := acquire(t, p), acquire(t, p), acquire(t, p)

	// idle store bottom→top: A, C, B
	p.Release(a)
	p.Release(c)
	p.Release(b)
	b.dead = true

	got, err := p.Acquire(geom.V(1, 0, 0), geom.Identity(), nil)
	require.NoError(t, err)
	assert.Same(t, c, got)
	assert.Equal(t, []*object{a}, p.idle)

	got = acquire(t, p)
	assert.Same(t, a, got)

	// B is gone for good: the next acquire creates a fresh instance.
	fresh := acquire(t, p)
	assert.NotSame(t, b, fresh)
	assert.Equal(t, "Foo (4)", fresh.name)
	assert.Len(t, host.created, 4)
	assert.Equal(t, uint64(1), p.Stats().StaleDiscarded)
}

func TestStaleSkipExhaustsStoreThenCreates(t *testing.T) {
	p, host := newTestPool(t)
	objs := []*object{acquire(t, p), acquire(t, p), acquire(t, p)}
	for _, o := range objs {
		p.Release(o)
		o.dead = true
	}

	o := acquire(t, p)

	assert.Equal(t, "Foo (4)", o.name)
	assert.Zero(t, p.Idle())
	assert.Len(t, host.created, 4)
	assert.Equal(t, uint64(3), p.Stats().StaleDiscarded)
}

func TestCreationNamingIsMonotonic(t *testing.T) {
	p, _ := newTestPool(t)

	first := acquire(t, p)
	p.Release(first)
	again := acquire(t, p)
	second := acquire(t, p)
	p.Release(again)
	p.Release(second)
	acquire(t, p)
	acquire(t, p)
	third := acquire(t, p)

	assert.Equal(t, "Foo (1)", first.name)
	assert.Equal(t, "Foo (2)", second.name)
	assert.Equal(t, "Foo (3)", third.name)
}

func TestPlacementAndActivation(t *testing.T) {
	p, _ := newTestPool(t)
	parent := &object{name: "Turret"}
	pos := geom.V(3, 4, 5)
	rot := geom.AxisAngle(geom.V(0, 0, 1), 0.5)

	o, err := p.Acquire(pos, rot, parent)
	require.NoError(t, err)
	assert.True(t, o.active)
	assert.Equal(t, pos, o.pos)
	assert.Equal(t, rot, o.rot)
	assert.Same(t, parent, o.parent)

	p.Release(o)
	assert.False(t, o.active)

	pos2 := geom.V(-1, 0, 0)
	o2, err := p.Acquire(pos2, geom.Identity(), nil)
	require.NoError(t, err)
	assert.Same(t, o, o2)
	assert.True(t, o2.active)
	assert.Equal(t, pos2, o2.pos)
	assert.Equal(t, geom.Identity(), o2.rot)
	assert.Nil(t, o2.parent)
}

func TestFactoryErrorPropagatesUnchanged(t *testing.T) {
	p, host := newTestPool(t)
	boom := fmt.Errorf("out of memory")
	host.createErr = boom

	o, err := p.Acquire(geom.Zero, geom.Identity(), nil)
	assert.Nil(t, o)
	assert.Same(t, boom, err)
	assert.Equal(t, uint64(1), p.Stats().FactoryErrors)

	// A failed creation does not consume an id.
	host.createErr = nil
	assert.Equal(t, "Foo (1)", acquire(t, p).name)
}

func TestValidityOnlyCheckedOnPop(t *testing.T) {
	p, host := newTestPool(t)
	o := acquire(t, p)
	assert.Zero(t, host.validityChecks)

	p.Release(o)
	assert.Zero(t, host.validityChecks)

	acquire(t, p)
	assert.Equal(t, 1, host.validityChecks)
}

func TestPrototypeIsNotMutated(t *testing.T) {
	proto := &object{name: "Foo"}
	p := New(proto, &fakeHost{})
	o, err := p.Acquire(geom.V(1, 1, 1), geom.Identity(), nil)
	require.NoError(t, err)
	p.Release(o)

	assert.Equal(t, object{name: "Foo"}, *proto)
}

func TestPreload(t *testing.T) {
	p, host := newTestPool(t)
	require.NoError(t, p.Preload(3))

	assert.Equal(t, 3, p.Idle())
	for _, o := range host.created {
		assert.False(t, o.active)
	}

	// Preloaded instances are handed out most recent first.
	assert.Equal(t, "Foo (3)", acquire(t, p).name)
	assert.Equal(t, uint64(3), p.Stats().Created)
}

func TestPreloadStopsAtFactoryError(t *testing.T) {
	p, host := newTestPool(t)
	require.NoError(t, p.Preload(2))
	boom := fmt.Errorf("quota")
	host.createErr = boom

	assert.Same(t, boom, p.Preload(5))
	assert.Equal(t, 2, p.Idle())
}

func TestDrain(t *testing.T) {
	p, _ := newTestPool(t)
	a, b := acquire(t, p), acquire(t, p)
	p.Release(a)
	p.Release(b)

	drained := p.Drain()

	assert.Equal(t, []*object{a, b}, drained)
	assert.Zero(t, p.Idle())
	assert.Nil(t, p.Drain())
	assert.Equal(t, "Foo (3)", acquire(t, p).name)
}

func TestReleaseGuard(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p, _ := newTestPool(t, WithReleaseGuard(true), WithLogger(zap.New(core)))
	o := acquire(t, p)

	require.NoError(t, p.TryRelease(o))

	err := p.TryRelease(o)
	assert.ErrorIs(t, err, ErrDoubleRelease)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMisuse))
	assert.Equal(t, 1, p.Idle())

	err = p.TryRelease(&object{name: "stranger"})
	assert.ErrorIs(t, err, ErrForeignHandle)

	live := acquire(t, p)
	live.dead = true
	err = p.TryRelease(live)
	assert.ErrorIs(t, err, ErrStaleHandle)
	assert.Zero(t, p.Idle())

	// A forgotten handle stays foreign afterwards.
	assert.ErrorIs(t, p.TryRelease(live), ErrForeignHandle)

	assert.Equal(t, uint64(4), p.Stats().Misuse)
	assert.Equal(t, 4, logs.FilterMessage("rejected release").Len())
}

func TestReleaseGuardAfterStaleDiscard(t *testing.T) {
	p, _ := newTestPool(t, WithReleaseGuard(true))
	o := acquire(t, p)
	p.Release(o)
	o.dead = true
	acquire(t, p)

	assert.ErrorIs(t, p.TryRelease(o), ErrForeignHandle)
}

func TestReleaseWithoutGuardAcceptsAnything(t *testing.T) {
	p, _ := newTestPool(t)
	stranger := &object{name: "stranger"}

	assert.NoError(t, p.TryRelease(stranger))
	assert.Same(t, stranger, acquire(t, p))
}

func TestEvents(t *testing.T) {
	bus := events.NewBus[Event[*object]]()
	var kinds []EventKind
	bus.Subscribe(func(e Event[*object]) {
		assert.Equal(t, "Foo", e.Pool)
		kinds = append(kinds, e.Kind)
	})
	p, _ := newTestPool(t, WithEvents(bus), WithReleaseGuard(true))

	a := acquire(t, p)
	p.Release(a)
	a = acquire(t, p)
	p.Release(a)
	p.Release(a)
	a.dead = true
	acquire(t, p)
	p.Release(acquire(t, p))
	p.Drain()

	assert.Equal(t, []EventKind{
		EventCreated, EventReleased,
		EventReused, EventReleased,
		EventMisuse,
		EventStaleDiscarded, EventCreated,
		EventCreated, EventReleased,
		EventDrained,
	}, kinds)
}

func TestMismatchedEventBusIsIgnored(t *testing.T) {
	bus := events.NewBus[Event[int]]()
	calls := 0
	bus.Subscribe(func(Event[int]) { calls++ })
	p, _ := newTestPool(t, WithEvents(bus))

	p.Release(acquire(t, p))
	assert.Zero(t, calls)
}

func TestMetricsWiring(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, _ := newTestPool(t, WithMetrics(metrics.NewPoolMetrics(reg)))

	a := acquire(t, p)
	p.Release(a)
	acquire(t, p)

	families, err := reg.Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			key := f.GetName()
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" {
					key += "/" + l.GetValue()
				}
			}
			switch {
			case m.GetCounter() != nil:
				got[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				got[key] = m.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, got["spawnpool_pool_acquires_total/miss"])
	assert.Equal(t, 1.0, got["spawnpool_pool_acquires_total/hit"])
	assert.Equal(t, 1.0, got["spawnpool_pool_releases_total"])
	assert.Equal(t, 0.0, got["spawnpool_pool_idle"])
}
