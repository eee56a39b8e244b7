package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// SearchResult is one scored entry above the confidence gate.
type SearchResult struct {
	Entry memory.Entry `json:"entry"`
	Score float64      `json:"score"`
}

// SearchOpts controls search behavior. The limit defaults to 20 and
// is capped at 20.
type SearchOpts struct {
	Limit          int
	Dimension      string
	Tag            string
	ProjectContext string
	SourceSystem   string
	MinImportance  float64
	Since          time.Time

	// Threshold overrides the engine's confidence gate for this
	// query when set.
	Threshold *float64
}

const maxSearchLimit = 20

func (o SearchOpts) limit() int {
	if o.Limit <= 0 || o.Limit > maxSearchLimit {
		return maxSearchLimit
	}
	return o.Limit
}

// Search tokenizes the query, pulls candidates from the inverted
// index, filters, scores, and gates on the confidence threshold.
// Results come back highest score first. A result below the threshold
// is never returned, even when that leaves nothing.
func (e *Engine) Search(query string, opts SearchOpts) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, goerr.New("query must not be empty", goerr.T(memory.TagSearchQuery))
	}
	if opts.MinImportance < 0 || opts.MinImportance > 1 {
		return nil, goerr.New("min importance out of range",
			goerr.T(memory.TagSearchQuery), goerr.V("min_importance", opts.MinImportance))
	}

	threshold := e.threshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
		if threshold < 0 || threshold > 1 {
			return nil, goerr.New("threshold out of range",
				goerr.T(memory.TagSearchQuery), goerr.V("threshold", threshold))
		}
	}

	tokens := memory.Tokenize(query)
	if len(tokens) == 0 {
		return nil, goerr.New("query has no searchable terms",
			goerr.T(memory.TagSearchQuery), goerr.V("query", query))
	}

	ids, err := e.DB.CandidatesByTerms(tokens)
	if err != nil {
		return nil, err
	}
	entries, err := e.DB.GetEntriesByIDs(ids)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for i := range entries {
		entry := &entries[i]
		if !matchesFilters(entry, opts) {
			continue
		}
		score := e.scorer.Score(entry, query, opts.ProjectContext)
		if score < threshold {
			continue
		}
		results = append(results, SearchResult{Entry: *entry, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Entry.Importance != results[j].Entry.Importance {
			return results[i].Entry.Importance > results[j].Entry.Importance
		}
		if !results[i].Entry.Timestamp.Equal(results[j].Entry.Timestamp) {
			return results[i].Entry.Timestamp.After(results[j].Entry.Timestamp)
		}
		return results[i].Entry.ID < results[j].Entry.ID
	})

	limit := opts.limit()
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func matchesFilters(e *memory.Entry, opts SearchOpts) bool {
	if opts.Dimension != "" && !containsString(e.Dimensions, opts.Dimension) {
		return false
	}
	if opts.Tag != "" && !containsString(e.Tags, opts.Tag) {
		return false
	}
	if opts.ProjectContext != "" && e.ProjectContext != opts.ProjectContext {
		return false
	}
	if opts.SourceSystem != "" && e.SourceSystem != opts.SourceSystem {
		return false
	}
	if e.Importance < opts.MinImportance {
		return false
	}
	if !opts.Since.IsZero() && e.Timestamp.Before(opts.Since) {
		return false
	}
	return true
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
