package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// EntryID identifies a stored entry. IDs are never reused, even after
// an entry is removed by a retention pass.
type EntryID string

// NewEntryID returns a fresh random EntryID.
func NewEntryID() EntryID {
	return EntryID(uuid.New().String())
}

func (id EntryID) String() string { return string(id) }

// Entry is the sole persisted record. Once accepted by the store it is
// immutable; per-sink sync bookkeeping lives in a separate table keyed
// by (entry id, sink name).
type Entry struct {
	ID             EntryID   `json:"id"`
	Content        string    `json:"content"`
	ContentHash    string    `json:"content_hash"`
	Tags           []string  `json:"tags,omitempty"`
	Dimensions     []string  `json:"dimensions"`
	Timestamp      time.Time `json:"timestamp"`
	Importance     float64   `json:"importance"`
	Confidence     float64   `json:"confidence"`
	Connections    []string  `json:"connections,omitempty"`
	ProjectContext string    `json:"project_context,omitempty"`
	ThinkingMode   string    `json:"thinking_mode,omitempty"`
	SourceSystem   string    `json:"source_system,omitempty"`
	Metadata       Metadata  `json:"metadata,omitempty"`
}

// HashContent returns the dedup key for a content body: the hex sha256
// of the raw text.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Validate rejects entries the store must never accept.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.Content) == "" {
		return goerr.Wrap(ErrEmptyContent, "validate entry")
	}
	if e.Importance < 0 || e.Importance > 1 {
		return goerr.Wrap(ErrImportanceRange, "validate entry", goerr.V("importance", e.Importance))
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return goerr.Wrap(ErrConfidenceRange, "validate entry", goerr.V("confidence", e.Confidence))
	}
	return nil
}
