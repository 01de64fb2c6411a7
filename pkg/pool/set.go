package pool

import (
	"fmt"
	"sort"

	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/geom"
)

// Set manages one RecyclePool per prototype and remembers which pool created
// each handle, so callers can release a handle without knowing its pool.
// Like RecyclePool, a Set is not safe for concurrent use.
type Set[T comparable] struct {
	host  Host[T]
	opts  []Option
	pools map[T]*RecyclePool[T]
	owner map[T]*RecyclePool[T]
}

// NewSet creates an empty set. opts are applied to every pool it creates;
// WithName is ignored so each pool is named after its prototype.
func NewSet[T comparable](host Host[T], opts ...Option) *Set[T] {
	if host == nil {
		panic("pool: host must be provided")
	}
	return &Set[T]{
		host:  host,
		opts:  opts,
		pools: make(map[T]*RecyclePool[T]),
		owner: make(map[T]*RecyclePool[T]),
	}
}

// Pool returns the pool for prototype, creating it on first use.
func (s *Set[T]) Pool(prototype T) *RecyclePool[T] {
	return s.Register(prototype)
}

// Register creates the pool for prototype with extra options layered over the
// set's own. If the pool already exists it is returned and opts are ignored.
func (s *Set[T]) Register(prototype T, opts ...Option) *RecyclePool[T] {
	if p, ok := s.pools[prototype]; ok {
		return p
	}
	all := make([]Option, 0, len(s.opts)+len(opts)+1)
	all = append(all, s.opts...)
	all = append(all, opts...)
	all = append(all, WithName(""))
	p := New(prototype, s.host, all...)
	p.onCreate = func(h T) { s.owner[h] = p }
	p.onForget = func(h T) { delete(s.owner, h) }
	s.pools[prototype] = p
	return p
}

// Acquire takes an instance of prototype from its pool. See RecyclePool.Acquire.
func (s *Set[T]) Acquire(prototype T, position geom.Vec3, rotation geom.Quat, parent T) (T, error) {
	return s.Pool(prototype).Acquire(position, rotation, parent)
}

// Preload parks n fresh instances of prototype in its pool.
func (s *Set[T]) Preload(prototype T, n int) error {
	return s.Pool(prototype).Preload(n)
}

// Release returns h to the pool that created it. Handles the set does not
// know are rejected with ErrForeignHandle and left untouched.
func (s *Set[T]) Release(h T) error {
	p, ok := s.owner[h]
	if !ok {
		return fmt.Errorf("pool set: %w", ErrForeignHandle)
	}
	err := p.TryRelease(h)
	if errors.Is(err, ErrStaleHandle) {
		delete(s.owner, h)
	}
	return err
}

// Owner returns the pool that created h.
func (s *Set[T]) Owner(h T) (*RecyclePool[T], bool) {
	p, ok := s.owner[h]
	return p, ok
}

// Pools returns the pools created so far, sorted by name.
func (s *Set[T]) Pools() []*RecyclePool[T] {
	out := make([]*RecyclePool[T], 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

// Stats returns per-pool stats keyed by pool name.
func (s *Set[T]) Stats() map[string]Stats {
	out := make(map[string]Stats, len(s.pools))
	for _, p := range s.pools {
		out[p.Name()] = p.Stats()
	}
	return out
}

// Drain drains every pool and returns all idle handles.
func (s *Set[T]) Drain() []T {
	var out []T
	for _, p := range s.Pools() {
		out = append(out, p.Drain()...)
	}
	return out
}
