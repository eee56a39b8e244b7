package memory

import "github.com/m-mizutani/goerr/v2"

// Error classes. Attached as goerr tags so callers can branch on the
// failure kind without enumerating every sentinel.
var (
	TagValidation  = goerr.NewTag("validation")
	TagStorage     = goerr.NewTag("storage")
	TagSearchQuery = goerr.NewTag("search_query")
	TagSinkSync    = goerr.NewTag("sink_sync")
)

var (
	ErrEmptyContent    = goerr.New("entry content is empty", goerr.T(TagValidation))
	ErrImportanceRange = goerr.New("importance must be within [0,1]", goerr.T(TagValidation))
	ErrConfidenceRange = goerr.New("confidence must be within [0,1]", goerr.T(TagValidation))
	ErrMetadataKind    = goerr.New("unsupported metadata value kind", goerr.T(TagValidation))
	ErrBadWeights      = goerr.New("scoring weights must sum to 1.0", goerr.T(TagValidation))
	ErrEntryNotFound   = goerr.New("entry not found")
)
