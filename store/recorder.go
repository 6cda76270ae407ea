package store

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type RecorderConfig struct {
	OutDir string
	// FlushRows flushes once this many rows are buffered.
	FlushRows int
	// FlushEvery flushes whatever is buffered on this interval.
	FlushEvery time.Duration
	// QueueSize bounds rows waiting for the writer goroutine.
	QueueSize int
}

// RecorderStats are counters since the recorder started.
type RecorderStats struct {
	Rows    int64
	Shards  int64
	Dropped int64
	Failed  int64
}

// Recorder collects DecisionRows off the move path and writes them as
// Parquet shards from a single goroutine.
type Recorder struct {
	cfg RecorderConfig
	log *slog.Logger

	mu     sync.RWMutex
	closed bool
	in     chan DecisionRow
	done   chan struct{}

	rows    atomic.Int64
	shards  atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewRecorder(cfg RecorderConfig, logger *slog.Logger) *Recorder {
	if cfg.FlushRows <= 0 {
		cfg.FlushRows = 1000
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = time.Minute
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4 * cfg.FlushRows
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		cfg:  cfg,
		log:  logger.With("component", "recorder"),
		in:   make(chan DecisionRow, cfg.QueueSize),
		done: make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues row without blocking. It returns false when the row was
// dropped because the queue is full or the recorder is closed.
func (r *Recorder) Record(row DecisionRow) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return false
	}
	select {
	case r.in <- row:
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

// Close stops accepting rows, flushes what is buffered and waits for the
// writer to finish.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.in)
	}
	r.mu.Unlock()
	<-r.done
	return nil
}

func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Rows:    r.rows.Load(),
		Shards:  r.shards.Load(),
		Dropped: r.dropped.Load(),
		Failed:  r.failed.Load(),
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.FlushEvery)
	defer ticker.Stop()

	buf := make([]DecisionRow, 0, r.cfg.FlushRows)
	flush := func(reason string) {
		if len(buf) == 0 {
			return
		}
		path, err := WriteDecisionBatchAtomic(r.cfg.OutDir, buf)
		if err != nil {
			r.failed.Add(int64(len(buf)))
			r.log.Error("decision flush failed", "reason", reason, "rows", len(buf), "err", err)
		} else {
			r.rows.Add(int64(len(buf)))
			r.shards.Add(1)
			r.log.Info("decision flush ok", "reason", reason, "rows", len(buf), "path", path)
		}
		buf = buf[:0]
	}

	for {
		select {
		case row, ok := <-r.in:
			if !ok {
				flush("close")
				return
			}
			buf = append(buf, row)
			if len(buf) >= r.cfg.FlushRows {
				flush("count")
			}
		case <-ticker.C:
			flush("ticker")
		}
	}
}
