package pool

import "github.com/ajitpratap0/spawnpool/pkg/geom"

// Factory creates new instances from a prototype. Every call must return a
// distinct handle. Errors are passed through to Acquire's caller unchanged.
type Factory[T any] interface {
	CreateInstance(prototype T, position geom.Vec3, rotation geom.Quat) (T, error)
}

// Activation toggles and places instances. It is only invoked on handles the
// pool believes valid.
type Activation[T any] interface {
	SetActive(handle T, active bool)
	// SetTransform places handle and attaches it to parent. The zero value
	// of T as parent means no parent.
	SetTransform(handle T, position geom.Vec3, rotation geom.Quat, parent T)
}

// Validator reports whether a handle still refers to a live object.
type Validator[T any] interface {
	IsValid(handle T) bool
}

// Namer reads and assigns diagnostic names.
type Namer[T any] interface {
	Name(handle T) string
	SetName(handle T, name string)
}

// Host is the full set of capabilities a pool needs from the object system.
type Host[T any] interface {
	Factory[T]
	Activation[T]
	Validator[T]
	Namer[T]
}
