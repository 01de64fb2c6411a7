package pool

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/pkg/events"
	"github.com/ajitpratap0/spawnpool/pkg/metrics"
)

// DefaultReserve is the idle store capacity hint used when WithReserve is not
// given.
const DefaultReserve = 3

type config struct {
	reserve int
	name    string
	logger  *zap.Logger
	metrics *metrics.PoolMetrics
	events  any // *events.Bus[Event[T]]
	guard   bool
}

func defaultConfig() config {
	return config{
		reserve: DefaultReserve,
		logger:  zap.NewNop(),
	}
}

// Option configures a RecyclePool.
type Option func(*config)

// WithReserve sets the initial capacity of the idle store. It is a sizing
// hint only: the pool neither pre-creates instances nor caps its growth.
// Negative values are treated as zero.
func WithReserve(n int) Option {
	return func(c *config) {
		if n < 0 {
			n = 0
		}
		c.reserve = n
	}
}

// WithName overrides the pool name used in logs, metrics and events. The
// default is the prototype's name. Ignored by Set.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records pool activity on m.
func WithMetrics(m *metrics.PoolMetrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithEvents publishes lifecycle events on bus. The bus element type must
// match the pool's handle type; a mismatched bus is ignored.
func WithEvents[T comparable](bus *events.Bus[Event[T]]) Option {
	return func(c *config) {
		c.events = bus
	}
}

// WithReleaseGuard turns on release validation. When enabled the pool
// remembers every handle it created and which of them are idle, and rejects
// releases of foreign, already idle or destroyed handles instead of corrupting
// the idle store. When disabled (the default) such misuse is undefined.
func WithReleaseGuard(enabled bool) Option {
	return func(c *config) {
		c.guard = enabled
	}
}
