// Package registry provides a lazily initialised, explicitly torn down
// process-wide handle. It replaces ambient global lookups: the owner creates a
// Lazy, passes it to whoever needs the shared value, and closes it at exit.
package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/pkg/errors"
)

// ErrDestroyed is returned by Get once the handle has been closed.
var ErrDestroyed = errors.Sentinel(errors.ErrorTypeDestroyed, "shared instance already destroyed")

// Lazy builds a value of type T on first use and tears it down on Close.
type Lazy[T any] struct {
	name     string
	init     func() (T, error)
	teardown func(T) error
	logger   *zap.Logger

	mu     sync.Mutex
	value  T
	ready  bool
	closed bool
}

// Option configures a Lazy.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used to report access after teardown.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewLazy creates a handle that calls init on the first Get. teardown may be
// nil.
func NewLazy[T any](name string, init func() (T, error), teardown func(T) error, opts ...Option) *Lazy[T] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return &Lazy[T]{
		name:     name,
		init:     init,
		teardown: teardown,
		logger:   o.logger.With(zap.String("shared", name)),
	}
}

// Get returns the shared value, building it on first use. A failed init is
// retried on the next call.
func (l *Lazy[T]) Get() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero T
	if l.closed {
		l.logger.Warn("shared instance requested after teardown")
		return zero, ErrDestroyed
	}
	if l.ready {
		return l.value, nil
	}
	if l.init == nil {
		return zero, errors.Newf(errors.ErrorTypeInternal, "shared instance %q has no initializer", l.name)
	}

	v, err := l.init()
	if err != nil {
		return zero, errors.Wrap(err, errors.ErrorTypeInternal, "initialize shared instance "+l.name)
	}
	l.value = v
	l.ready = true
	l.logger.Debug("shared instance initialized")
	return v, nil
}

// MustGet is Get that panics on error. Intended for program setup code.
func (l *Lazy[T]) MustGet() T {
	v, err := l.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// Initialized reports whether the value has been built and not torn down.
func (l *Lazy[T]) Initialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready && !l.closed
}

// Close runs the teardown hook if the value was built. Later Gets fail with
// ErrDestroyed. Only the first Close does any work.
func (l *Lazy[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if !l.ready {
		return nil
	}
	v := l.value
	var zero T
	l.value = zero
	l.ready = false
	if l.teardown == nil {
		return nil
	}
	if err := l.teardown(v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "tear down shared instance "+l.name)
	}
	return nil
}
