package pool

// EventKind identifies a pool lifecycle change.
type EventKind string

const (
	// EventCreated is published after the factory produced a new instance.
	EventCreated EventKind = "created"
	// EventReused is published when Acquire hands out an idle instance.
	EventReused EventKind = "reused"
	// EventReleased is published when an instance enters the idle store.
	EventReleased EventKind = "released"
	// EventStaleDiscarded is published when an idle instance was found destroyed.
	EventStaleDiscarded EventKind = "stale_discarded"
	// EventDrained is published for every instance handed back by Drain.
	EventDrained EventKind = "drained"
	// EventMisuse is published when the release guard rejects a Release.
	EventMisuse EventKind = "misuse"
)

// Event describes one lifecycle change of a pooled handle.
type Event[T any] struct {
	Kind   EventKind
	Pool   string
	Handle T
	// Err is set for EventMisuse.
	Err error
}
