package relevance

import (
	"math"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// DefaultDecayRate is the per-day temporal decay base.
const DefaultDecayRate = 0.95

// richnessKeywords feed the connection-density proxy for entries
// without explicit markers.
var richnessKeywords = []string{
	"analysis", "project", "meeting", "deadline", "decision",
	"research", "design", "bug", "plan", "review",
}

// Scorer computes composite relevance scores. ScoreAt is pure and
// deterministic; Score only adds the wall clock, so the same codepath
// ranks search results and working-memory priority.
type Scorer struct {
	weights   Weights
	decayRate float64
	now       func() time.Time
}

// New builds a Scorer, rejecting invalid weights or decay rates.
func New(w Weights, decayRate float64) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if decayRate <= 0 || decayRate > 1 {
		return nil, goerr.Wrap(memory.ErrBadWeights, "decay rate must be in (0,1]",
			goerr.V("decay_rate", decayRate))
	}
	return &Scorer{weights: w, decayRate: decayRate, now: time.Now}, nil
}

// Score rates an entry against a query and optional project context,
// evaluated at the current time.
func (s *Scorer) Score(e *memory.Entry, query, projectContext string) float64 {
	return s.ScoreAt(e, query, projectContext, s.now())
}

// ScoreAt is the pure scoring function:
// wT*temporal + wP*project + wC*connection + wS*similarity, each factor
// in [0,1].
func (s *Scorer) ScoreAt(e *memory.Entry, query, projectContext string, at time.Time) float64 {
	return s.weights.Temporal*s.temporalFactor(e, at) +
		s.weights.Project*projectFactor(e, projectContext) +
		s.weights.Connection*connectionFactor(e) +
		s.weights.Similarity*similarityFactor(e, query)
}

// temporalFactor decays with age: decayRate^days. Entries without a
// timestamp get a neutral 0.5.
func (s *Scorer) temporalFactor(e *memory.Entry, at time.Time) float64 {
	if e.Timestamp.IsZero() {
		return 0.5
	}
	days := at.Sub(e.Timestamp).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Pow(s.decayRate, days)
}

// projectFactor rewards project alignment: 1.0 exact, 0.85 related,
// 0.3 mismatch, 0.5 when the caller supplies no context.
func projectFactor(e *memory.Entry, projectContext string) float64 {
	ctx := strings.ToLower(strings.TrimSpace(projectContext))
	if ctx == "" {
		return 0.5
	}
	own := strings.ToLower(strings.TrimSpace(e.ProjectContext))
	if own == "" {
		return 0.3
	}
	if own == ctx {
		return 1.0
	}
	if relatedProject(own, ctx) {
		return 0.85
	}
	return 0.3
}

// relatedProject treats projects as related when one contains the
// other or they share a first hyphenated segment ("econ-data" and
// "econ-models").
func relatedProject(a, b string) bool {
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	sa, _, okA := strings.Cut(a, "-")
	sb, _, okB := strings.Cut(b, "-")
	return okA && okB && sa == sb
}

// connectionFactor normalizes the explicit marker count, saturating at
// 10 markers. Entries without markers fall back to a damped
// content-richness proxy (word count plus domain keyword hits) capped
// at 0.6, so sparse-but-substantive entries are not zeroed out.
func connectionFactor(e *memory.Entry) float64 {
	if n := len(e.Connections); n > 0 {
		f := float64(n) / 10
		if f > 1 {
			f = 1
		}
		return f
	}

	words := len(strings.Fields(e.Content))
	if words == 0 {
		return 0
	}
	if words > 100 {
		words = 100
	}
	proxy := 0.3 + float64(words)/250
	lower := strings.ToLower(e.Content)
	for _, kw := range richnessKeywords {
		if strings.Contains(lower, kw) {
			proxy += 0.05
		}
	}
	if proxy > 0.6 {
		proxy = 0.6
	}
	return proxy
}

// similarityFactor measures token overlap between the query and the
// entry's content, tags, and context fields, with phrase and
// contextual-alignment boosts, clamped to 1.0.
func similarityFactor(e *memory.Entry, query string) float64 {
	queryTokens := memory.Tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}

	entrySet := memory.TokenSet(memory.IndexTokens(e))
	overlap := 0
	for _, qt := range queryTokens {
		if entrySet[qt] {
			overlap++
		}
	}
	sim := float64(overlap) / float64(len(queryTokens))

	contentLower := strings.ToLower(e.Content)
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if len(queryLower) >= 3 && strings.Contains(contentLower, queryLower) {
		sim += 0.3
	}

	contentBigrams := memory.TokenSet(memory.Bigrams(memory.Tokenize(e.Content)))
	for _, bg := range memory.Bigrams(queryTokens) {
		if contentBigrams[bg] {
			sim += 0.15
		}
	}

	if contextAligned(e, queryTokens) {
		sim += 0.2
	}

	if sim > 1 {
		sim = 1
	}
	return sim
}

// contextAligned reports whether any query token names part of the
// entry's stored context: a tag, source system, or project prefix.
func contextAligned(e *memory.Entry, queryTokens []string) bool {
	var fields []string
	for _, tag := range e.Tags {
		fields = append(fields, strings.ToLower(tag))
	}
	if e.SourceSystem != "" {
		fields = append(fields, strings.ToLower(e.SourceSystem))
	}
	if e.ProjectContext != "" {
		fields = append(fields, strings.ToLower(e.ProjectContext))
	}
	if e.ThinkingMode != "" {
		fields = append(fields, strings.ToLower(e.ThinkingMode))
	}

	for _, qt := range queryTokens {
		for _, f := range fields {
			if f == qt || strings.HasPrefix(f, qt+"-") || strings.HasPrefix(f, qt+"_") {
				return true
			}
		}
	}
	return false
}
