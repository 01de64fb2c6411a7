package simulation

import (
	"io"

	"github.com/ajitpratap0/spawnpool/pkg/json"
	"github.com/ajitpratap0/spawnpool/pkg/pool"
	"github.com/ajitpratap0/spawnpool/pkg/scene"
)

// EventRecord is one line of the event log. Tick is -1 for events raised
// while preloading.
type EventRecord struct {
	Tick  int            `json:"tick"`
	Kind  pool.EventKind `json:"kind"`
	Pool  string         `json:"pool"`
	Node  uint64         `json:"node"`
	Error string         `json:"error,omitempty"`
}

// WithEventLog writes every pool event to w as a JSON line.
func WithEventLog(w io.Writer) Option {
	return func(s *Simulator) {
		if w != nil {
			s.eventLog = json.NewStreamingEncoder(w, false)
		}
	}
}

func (s *Simulator) logEvent(e pool.Event[*scene.Node]) {
	if s.eventLog == nil {
		return
	}
	rec := EventRecord{
		Tick: s.tick,
		Kind: e.Kind,
		Pool: e.Pool,
	}
	if e.Handle != nil {
		rec.Node = e.Handle.ID()
	}
	if e.Err != nil {
		rec.Error = e.Err.Error()
	}
	// the first failure sticks and is reported by Run
	_ = s.eventLog.Encode(rec)
}

// WriteEventLog creates path and returns a writer for WithEventLog, compressed
// according to the path's extension. Closing it flushes and closes the file.
func WriteEventLog(path string) (io.WriteCloser, error) {
	return newFileWriter(path)
}
