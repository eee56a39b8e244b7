package sink

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
	"github.com/Tar-ive/brain-system-sub000/internal/store"
)

// Replicator defaults.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 64
	DefaultTimeout   = 15 * time.Second
)

// StatusRecorder persists per-sink replication state. *store.DB
// satisfies it.
type StatusRecorder interface {
	MarkSync(entryID memory.EntryID, sinkName, status, detail string) error
}

type job struct {
	entry memory.EntryID
	sink  Sink
	note  Note
}

// Replicator fans stored entries out to sinks through a fixed worker
// pool. Enqueue never blocks: when the queue is full the job is
// dropped and recorded as failed, to be retried later.
type Replicator struct {
	sinks    []Sink
	recorder StatusRecorder
	timeout  time.Duration
	queue    chan job
	log      *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// ReplicatorConfig configures the pool. Zero values fall back to the
// package defaults.
type ReplicatorConfig struct {
	Sinks     []Sink
	Recorder  StatusRecorder
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Logger    *slog.Logger
}

func NewReplicator(cfg ReplicatorConfig) *Replicator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Replicator{
		sinks:    cfg.Sinks,
		recorder: cfg.Recorder,
		timeout:  timeout,
		queue:    make(chan job, queueSize),
		log:      logger,
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// SinkNames returns the names of the configured sinks.
func (r *Replicator) SinkNames() []string {
	names := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		names[i] = s.Name()
	}
	return names
}

// Enqueue schedules replication of an entry to every sink. Each pair
// is marked pending before it is queued.
func (r *Replicator) Enqueue(e *memory.Entry) {
	if len(r.sinks) == 0 {
		return
	}
	note := NoteFor(e)
	for _, s := range r.sinks {
		r.enqueue(e.ID, s, note)
	}
}

// EnqueueTo schedules replication of an entry to one named sink.
// Returns false if no sink by that name is configured.
func (r *Replicator) EnqueueTo(sinkName string, e *memory.Entry) bool {
	for _, s := range r.sinks {
		if s.Name() == sinkName {
			r.enqueue(e.ID, s, NoteFor(e))
			return true
		}
	}
	return false
}

func (r *Replicator) enqueue(id memory.EntryID, s Sink, note Note) {
	if err := r.recorder.MarkSync(id, s.Name(), store.SyncPending, ""); err != nil {
		r.log.Warn("mark pending failed", "entry", id, "sink", s.Name(), "error", err)
	}
	select {
	case r.queue <- job{entry: id, sink: s, note: note}:
	default:
		r.log.Warn("replication queue full, dropping job", "entry", id, "sink", s.Name())
		r.markSync(id, s.Name(), store.SyncFailed, "queue full")
	}
}

func (r *Replicator) worker() {
	defer r.wg.Done()
	for j := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := j.sink.WriteNote(ctx, j.note)
		cancel()

		if err != nil {
			r.log.Warn("sink write failed", "entry", j.entry, "sink", j.sink.Name(), "error", err)
			r.markSync(j.entry, j.sink.Name(), store.SyncFailed, err.Error())
			continue
		}
		r.log.Debug("sink write ok", "entry", j.entry, "sink", j.sink.Name())
		r.markSync(j.entry, j.sink.Name(), store.SyncCompleted, "")
	}
}

func (r *Replicator) markSync(id memory.EntryID, sinkName, status, detail string) {
	if err := r.recorder.MarkSync(id, sinkName, status, detail); err != nil {
		r.log.Warn("mark sync failed", "entry", id, "sink", sinkName, "error", err)
	}
}

// Close stops accepting jobs and waits for in-flight work to finish.
// No Enqueue may run concurrently with or after Close.
func (r *Replicator) Close() {
	r.closeOnce.Do(func() { close(r.queue) })
	r.wg.Wait()
}
