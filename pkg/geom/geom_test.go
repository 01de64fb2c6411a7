package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3Add(t *testing.T) {
	assert.Equal(t, V(1, 2, 3), V(0.5, 1, 1).Add(V(0.5, 1, 2)))
	assert.Equal(t, Zero, Vec3{})
}

func TestAxisAngle(t *testing.T) {
	q := AxisAngle(V(0, 2, 0), math.Pi)
	assert.InDelta(t, 0, q.X, 1e-12)
	assert.InDelta(t, 1, q.Y, 1e-12)
	assert.InDelta(t, 0, q.W, 1e-12)

	assert.Equal(t, Identity(), AxisAngle(Zero, 1))
}

func TestNormalize(t *testing.T) {
	q := Quat{W: 2}.Normalize()
	assert.True(t, q.Equal(Identity()))
	assert.Equal(t, Identity(), Quat{}.Normalize())
}
