package simulation

import (
	"io"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/pkg/compression"
	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/json"
	"github.com/ajitpratap0/spawnpool/pkg/pool"
)

// Counters tallies what the driver did, as opposed to what the pools saw.
type Counters struct {
	Spawned            uint64 `json:"spawned"`
	Despawned          uint64 `json:"despawned"`
	ExternalDestroys   uint64 `json:"external_destroys"`
	CapacityRejections uint64 `json:"capacity_rejections"`
}

// Report summarises a finished run.
type Report struct {
	Name       string                    `json:"name"`
	Seed       uint64                    `json:"seed"`
	Ticks      int                       `json:"ticks"`
	Duration   time.Duration             `json:"duration_ns"`
	Pools      map[string]pool.Stats     `json:"pools"`
	Events     map[pool.EventKind]uint64 `json:"events"`
	Counters   Counters                  `json:"counters"`
	LiveNodes  int                       `json:"live_nodes"`
	IdleNodes  int                       `json:"idle_nodes"`
	PeakLive   int                       `json:"peak_live_nodes"`
	RSSBytes   uint64                    `json:"rss_bytes"`
	FinishedAt time.Time                 `json:"finished_at"`
}

// ReuseRatio returns the share of acquisitions served from idle stores.
func (r *Report) ReuseRatio() float64 {
	var reused, created uint64
	for _, st := range r.Pools {
		reused += st.Reused
		created += st.Created
	}
	if reused+created == 0 {
		return 0
	}
	return float64(reused) / float64(reused+created)
}

func (s *Simulator) report(d time.Duration) *Report {
	events := make(map[pool.EventKind]uint64, len(s.eventKind))
	for k, v := range s.eventKind {
		events[k] = v
	}
	return &Report{
		Name:       s.cfg.Name,
		Seed:       s.cfg.Seed,
		Ticks:      s.cfg.Ticks,
		Duration:   d,
		Pools:      s.set.Stats(),
		Events:     events,
		Counters:   s.counters,
		LiveNodes:  s.world.Len(),
		IdleNodes:  len(s.world.Inactive()),
		PeakLive:   s.peakLive,
		RSSBytes:   s.rss(),
		FinishedAt: time.Now().UTC(),
	}
}

func (s *Simulator) rss() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		s.logger.Warn("failed to inspect process", zap.Error(err))
		return 0
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		s.logger.Warn("failed to read memory info", zap.Error(err))
		return 0
	}
	return mem.RSS
}

// WriteReport encodes r as indented JSON to path, compressed according to
// the path's extension (see compression.FromPath).
func WriteReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode report")
	}

	return writeFile(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// ReadReport decodes a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open report file")
	}
	defer f.Close()

	r, err := compression.NewReader(f, compression.FromPath(path))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create decompressor")
	}
	defer r.Close()

	var report Report
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to decode report")
	}
	return &report, nil
}

// writeFile creates path, hands fn a writer compressing according to the
// path's extension, and flushes and closes the file.
func writeFile(path string, fn func(io.Writer) error) error {
	w, err := newFileWriter(path)
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write file")
	}
	return w.Close()
}

type fileWriter struct {
	f *os.File
	w io.WriteCloser
}

func newFileWriter(path string) (*fileWriter, error) {
	f, err := os.Create(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create file")
	}
	w, err := compression.NewWriter(f, compression.FromPath(path), compression.Default)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create compressor")
	}
	return &fileWriter{f: f, w: w}, nil
}

func (fw *fileWriter) Write(p []byte) (int, error) {
	return fw.w.Write(p)
}

// Close flushes the compressor and closes the file.
func (fw *fileWriter) Close() error {
	werr := fw.w.Close()
	ferr := fw.f.Close()
	if werr != nil {
		return errors.Wrap(werr, errors.ErrorTypeFile, "failed to flush file")
	}
	if ferr != nil {
		return errors.Wrap(ferr, errors.ErrorTypeFile, "failed to close file")
	}
	return nil
}
