package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/spawnpool/pkg/geom"
)

func TestSetRoutesReleasesToOwningPool(t *testing.T) {
	host := &fakeHost{}
	set := NewSet[*object](host, WithName("ignored"), WithReserve(8))
	bullet := &object{name: "Bullet"}
	rocket := &object{name: "Rocket"}

	b, err := set.Acquire(bullet, geom.Zero, geom.Identity(), nil)
	require.NoError(t, err)
	r, err := set.Acquire(rocket, geom.Zero, geom.Identity(), nil)
	require.NoError(t, err)

	assert.Equal(t, "Bullet (1)", b.name)
	assert.Equal(t, "Rocket (1)", r.name)

	require.NoError(t, set.Release(b))
	require.NoError(t, set.Release(r))

	assert.Equal(t, 1, set.Pool(bullet).Idle())
	assert.Equal(t, 1, set.Pool(rocket).Idle())

	owner, ok := set.Owner(b)
	require.True(t, ok)
	assert.Same(t, set.Pool(bullet), owner)

	pools := set.Pools()
	require.Len(t, pools, 2)
	assert.Equal(t, "Bullet", pools[0].Name())
	assert.Equal(t, "Rocket", pools[1].Name())
	assert.Equal(t, 8, cap(pools[0].idle))

	stats := set.Stats()
	assert.Equal(t, uint64(1), stats["Bullet"].Released)
	assert.Equal(t, uint64(1), stats["Rocket"].Created)
}

func TestSetRejectsForeignHandles(t *testing.T) {
	set := NewSet[*object](&fakeHost{})
	err := set.Release(&object{name: "stranger"})
	assert.ErrorIs(t, err, ErrForeignHandle)
}

func TestSetForgetsStaleAndDrainedHandles(t *testing.T) {
	set := NewSet[*object](&fakeHost{}, WithReleaseGuard(true))
	proto := &object{name: "Coin"}

	a, err := set.Acquire(proto, geom.Zero, geom.Identity(), nil)
	require.NoError(t, err)
	require.NoError(t, set.Release(a))
	a.dead = true
	_, err = set.Acquire(proto, geom.Zero, geom.Identity(), nil)
	require.NoError(t, err)
	_, ok := set.Owner(a)
	assert.False(t, ok, "discarded handle must be forgotten")

	b, err := set.Acquire(proto, geom.Zero, geom.Identity(), nil)
	require.NoError(t, err)
	b.dead = true
	assert.ErrorIs(t, set.Release(b), ErrStaleHandle)
	_, ok = set.Owner(b)
	assert.False(t, ok)

	require.NoError(t, set.Preload(proto, 2))
	drained := set.Drain()
	assert.Len(t, drained, 2)
	for _, h := range drained {
		_, ok := set.Owner(h)
		assert.False(t, ok)
	}
}

func TestNewSetPanicsWithoutHost(t *testing.T) {
	assert.Panics(t, func() { NewSet[*object](nil) })
}

func TestSetRegisterLayersOptions(t *testing.T) {
	set := NewSet[*object](&fakeHost{}, WithReserve(2))
	proto := &object{name: "Crate"}

	p := set.Register(proto, WithReserve(32), WithName("custom"))
	assert.Equal(t, 32, cap(p.idle))
	assert.Equal(t, "Crate", p.Name())

	again := set.Register(proto, WithReserve(1))
	assert.Same(t, p, again)
	assert.Same(t, p, set.Pool(proto))
	assert.Equal(t, 32, cap(again.idle))
}
