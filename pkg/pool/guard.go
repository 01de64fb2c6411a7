package pool

// releaseGuard tracks ownership so misuse can be rejected. All methods accept
// a nil receiver, which is how a disabled guard is represented.
type releaseGuard[T comparable] struct {
	owned map[T]struct{}
	idle  map[T]struct{}
}

func newReleaseGuard[T comparable]() *releaseGuard[T] {
	return &releaseGuard[T]{
		owned: make(map[T]struct{}),
		idle:  make(map[T]struct{}),
	}
}

func (g *releaseGuard[T]) created(h T) {
	if g == nil {
		return
	}
	g.owned[h] = struct{}{}
}

func (g *releaseGuard[T]) pushed(h T) {
	if g == nil {
		return
	}
	g.idle[h] = struct{}{}
}

func (g *releaseGuard[T]) popped(h T) {
	if g == nil {
		return
	}
	delete(g.idle, h)
}

func (g *releaseGuard[T]) forget(h T) {
	if g == nil {
		return
	}
	delete(g.idle, h)
	delete(g.owned, h)
}

func (g *releaseGuard[T]) check(h T, v Validator[T]) error {
	if g == nil {
		return nil
	}
	if _, ok := g.owned[h]; !ok {
		return ErrForeignHandle
	}
	if _, ok := g.idle[h]; ok {
		return ErrDoubleRelease
	}
	if !v.IsValid(h) {
		g.forget(h)
		return ErrStaleHandle
	}
	return nil
}
