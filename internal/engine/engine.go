// Package engine orchestrates the memory system: storing entries with
// dedup, ranked retrieval behind a confidence gate, per-session
// working memory, sink replication, and legacy imports.
package engine

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/importer"
	"github.com/Tar-ive/brain-system-sub000/internal/memory"
	"github.com/Tar-ive/brain-system-sub000/internal/relevance"
	"github.com/Tar-ive/brain-system-sub000/internal/sink"
	"github.com/Tar-ive/brain-system-sub000/internal/store"
	"github.com/Tar-ive/brain-system-sub000/internal/workmem"
)

// Engine defaults.
const (
	DefaultThreshold   = 0.75
	DefaultDedupWindow = time.Hour
)

// RetentionPolicy controls periodic cleanup of stale low-importance
// entries. A zero MaxAge disables cleanup.
type RetentionPolicy struct {
	MaxAge          time.Duration
	ImportanceFloor float64
	Interval        time.Duration
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Threshold   float64
	DedupWindow time.Duration
	Weights     relevance.Weights
	DecayRate   float64
	Sinks       []sink.Sink
	SinkTimeout time.Duration
	SinkWorkers int
	SinkQueue   int
	Retention   RetentionPolicy
	Classifier  memory.Classifier
	Logger      *slog.Logger
}

// DefaultOptions returns the stock configuration: threshold 0.75, one
// hour dedup window, balanced scoring weights, no sinks.
func DefaultOptions() Options {
	return Options{
		Threshold:   DefaultThreshold,
		DedupWindow: DefaultDedupWindow,
		Weights:     relevance.DefaultWeights(),
		DecayRate:   relevance.DefaultDecayRate,
		SinkTimeout: sink.DefaultTimeout,
		Retention:   RetentionPolicy{Interval: 24 * time.Hour},
	}
}

// Engine is the memory system facade. All operations go through it.
type Engine struct {
	DB *store.DB

	threshold   float64
	dedupWindow time.Duration
	scorer      *relevance.Scorer
	classifier  memory.Classifier
	workmem     *workmem.Manager
	replicator  *sink.Replicator
	retention   RetentionPolicy
	log         *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates an Engine on an open store.
func New(db *store.DB, opts Options) (*Engine, error) {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, goerr.Wrap(memory.ErrConfidenceRange, "bad confidence threshold",
			goerr.V("threshold", threshold))
	}

	window := opts.DedupWindow
	if window == 0 {
		window = DefaultDedupWindow
	}
	if window < 0 {
		return nil, goerr.New("dedup window must not be negative",
			goerr.T(memory.TagValidation), goerr.V("window", window))
	}

	weights := opts.Weights
	if weights == (relevance.Weights{}) {
		weights = relevance.DefaultWeights()
	}
	decay := opts.DecayRate
	if decay == 0 {
		decay = relevance.DefaultDecayRate
	}
	scorer, err := relevance.New(weights, decay)
	if err != nil {
		return nil, err
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = memory.NewKeywordClassifier()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retention := opts.Retention
	if retention.Interval <= 0 {
		retention.Interval = 24 * time.Hour
	}

	e := &Engine{
		DB:          db,
		threshold:   threshold,
		dedupWindow: window,
		scorer:      scorer,
		classifier:  classifier,
		workmem:     workmem.NewManager(),
		retention:   retention,
		log:         logger,
		stopCh:      make(chan struct{}),
	}
	e.replicator = sink.NewReplicator(sink.ReplicatorConfig{
		Sinks:     opts.Sinks,
		Recorder:  db,
		Workers:   opts.SinkWorkers,
		QueueSize: opts.SinkQueue,
		Timeout:   opts.SinkTimeout,
		Logger:    logger,
	})
	return e, nil
}

// Threshold returns the configured confidence gate.
func (e *Engine) Threshold() float64 { return e.threshold }

// StoreRequest carries one entry to store. Absent fields are derived:
// importance from content heuristics, dimensions from the classifier,
// connections from [[links]] and @mentions, timestamp from the clock.
type StoreRequest struct {
	Content        string
	Tags           []string
	Dimensions     []string
	Importance     *float64
	ProjectContext string
	ThinkingMode   string
	SourceSystem   string
	Metadata       memory.Metadata
	Timestamp      time.Time

	// SessionID, when set, admits the stored entry into that
	// session's working memory.
	SessionID string
}

// StoreOutcome reports what a Store call did.
type StoreOutcome struct {
	ID           memory.EntryID   `json:"id"`
	Deduplicated bool             `json:"deduplicated"`
	Evicted      []memory.EntryID `json:"evicted,omitempty"`
}

// Store validates, enriches, and persists an entry, then hands it to
// the replicator. Identical content stored again inside the dedup
// window returns the existing ID with Deduplicated set.
func (e *Engine) Store(req StoreRequest) (*StoreOutcome, error) {
	content := strings.TrimSpace(req.Content)

	entry := &memory.Entry{
		ID:             memory.NewEntryID(),
		Content:        content,
		ContentHash:    memory.HashContent(content),
		Tags:           req.Tags,
		Dimensions:     req.Dimensions,
		ProjectContext: req.ProjectContext,
		ThinkingMode:   req.ThinkingMode,
		SourceSystem:   req.SourceSystem,
		Metadata:       req.Metadata,
		Confidence:     1.0,
	}

	entry.Timestamp = req.Timestamp
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = time.UnixMilli(entry.Timestamp.UnixMilli()).UTC()

	if req.Importance != nil {
		entry.Importance = *req.Importance
	} else {
		entry.Importance = memory.ComputeImportance(content, req.Tags)
	}

	if len(entry.Dimensions) == 0 {
		entry.Dimensions = e.classifier.Classify(content, req.Tags).Dimensions
	}
	entry.Connections = memory.ExtractConnections(content)

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	res, err := e.DB.PutEntry(entry, e.dedupWindow)
	if err != nil {
		return nil, err
	}

	outcome := &StoreOutcome{ID: res.ID, Deduplicated: !res.Created}
	if res.Created {
		e.log.Info("entry stored", "id", entry.ID, "dimensions", entry.Dimensions,
			"importance", entry.Importance)
		e.replicator.Enqueue(entry)
	} else {
		e.log.Debug("duplicate skipped", "id", res.ID, "hash", entry.ContentHash)
	}

	if req.SessionID != "" {
		admitted := entry
		if outcome.Deduplicated {
			admitted, err = e.DB.GetEntry(res.ID)
			if err != nil {
				return nil, err
			}
		}
		outcome.Evicted = e.workmem.Admit(req.SessionID, *admitted)
	}
	return outcome, nil
}

// StoreRecord stores one migrated record, reporting whether it created
// a new entry. Satisfies importer.Destination.
func (e *Engine) StoreRecord(rec *importer.Record) (bool, error) {
	out, err := e.Store(StoreRequest{
		Content:        rec.Content,
		Tags:           rec.Tags,
		Dimensions:     rec.Dimensions,
		Importance:     rec.Importance,
		ProjectContext: rec.ProjectContext,
		SourceSystem:   rec.SourceSystem,
		Metadata:       rec.Metadata,
		Timestamp:      rec.Timestamp,
	})
	if err != nil {
		return false, err
	}
	return !out.Deduplicated, nil
}

// Admit places a stored entry into a session's working memory and
// returns the evicted IDs, if any.
func (e *Engine) Admit(sessionID string, entryID memory.EntryID) ([]memory.EntryID, error) {
	if sessionID == "" {
		return nil, goerr.New("session id must not be empty", goerr.T(memory.TagValidation))
	}
	entry, err := e.DB.GetEntry(entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, goerr.Wrap(memory.ErrEntryNotFound, "admit", goerr.V("id", entryID))
	}
	return e.workmem.Admit(sessionID, *entry), nil
}

// WorkingMemory returns the session's current working set, highest
// importance first.
func (e *Engine) WorkingMemory(sessionID string) []memory.Entry {
	return e.workmem.Get(sessionID)
}

// DropSession clears a session's working memory.
func (e *Engine) DropSession(sessionID string) {
	e.workmem.Drop(sessionID)
}

// Migrate imports every record from a legacy source. Reruns dedup
// against already-imported content.
func (e *Engine) Migrate(sourceType, path string) (*importer.Result, error) {
	src, err := importer.Open(sourceType, path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	im := &importer.Importer{Dest: e, Log: e.log}
	return im.Run(src)
}

// SyncStatus reports per-sink replication state for an entry.
func (e *Engine) SyncStatus(entryID memory.EntryID) ([]store.SyncStatus, error) {
	entry, err := e.DB.GetEntry(entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, goerr.Wrap(memory.ErrEntryNotFound, "sync status", goerr.V("id", entryID))
	}
	return e.DB.SyncStatuses(entryID)
}

// RetrySync re-enqueues up to limit failed replications.
func (e *Engine) RetrySync(limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	backlog, err := e.DB.SyncBacklog(store.SyncFailed, limit)
	if err != nil {
		return 0, err
	}

	retried := 0
	for _, s := range backlog {
		entry, err := e.DB.GetEntry(s.EntryID)
		if err != nil {
			return retried, err
		}
		if entry == nil {
			continue
		}
		if e.replicator.EnqueueTo(s.SinkName, entry) {
			retried++
		}
	}
	return retried, nil
}

// Cleanup removes entries older than the retention age whose
// importance sits below the floor. Returns the number removed; zero
// when retention is disabled.
func (e *Engine) Cleanup() (int, error) {
	if e.retention.MaxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-e.retention.MaxAge)
	return e.DB.Cleanup(cutoff, e.retention.ImportanceFloor)
}

// StartRetentionTimer runs cleanup once at startup and then on the
// retention interval until Close.
func (e *Engine) StartRetentionTimer() {
	if removed, err := e.Cleanup(); err != nil {
		e.log.Warn("cleanup error", "error", err)
	} else if removed > 0 {
		e.log.Info("cleanup removed entries", "count", removed)
	}

	go func() {
		ticker := time.NewTicker(e.retention.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed, err := e.Cleanup(); err != nil {
					e.log.Warn("cleanup error", "error", err)
				} else if removed > 0 {
					e.log.Info("cleanup removed entries", "count", removed)
				}
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stats summarizes the engine's state.
type Stats struct {
	Entries       int            `json:"entries"`
	Terms         int            `json:"terms"`
	Sessions      int            `json:"sessions"`
	Sinks         []string       `json:"sinks,omitempty"`
	Sync          map[string]int `json:"sync,omitempty"`
	SchemaVersion int            `json:"schema_version"`
	Threshold     float64        `json:"threshold"`
}

func (e *Engine) Stats() (*Stats, error) {
	entries, err := e.DB.CountEntries()
	if err != nil {
		return nil, err
	}
	terms, err := e.DB.TermCount()
	if err != nil {
		return nil, err
	}
	syncCounts, err := e.DB.CountSyncByStatus()
	if err != nil {
		return nil, err
	}
	version, err := e.DB.SchemaVersion()
	if err != nil {
		return nil, err
	}
	return &Stats{
		Entries:       entries,
		Terms:         terms,
		Sessions:      len(e.workmem.Sessions()),
		Sinks:         e.replicator.SinkNames(),
		Sync:          syncCounts,
		SchemaVersion: version,
		Threshold:     e.threshold,
	}, nil
}

// Close stops background goroutines and drains the replicator. The
// store itself stays open; the caller owns it.
func (e *Engine) Close() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.replicator.Close()
}
