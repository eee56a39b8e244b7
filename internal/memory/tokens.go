package memory

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// stopwords are dropped from search tokens unless a text consists of
// nothing else.
var stopwords = map[string]bool{
	"an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "this": true, "to": true, "was": true, "we": true,
	"were": true, "will": true, "with": true,
}

// Tokenize splits text into lowercase search tokens. Runs of
// [a-z0-9-_] form a token after NFKC folding; single characters and
// stopwords are skipped. If stopword removal would leave nothing, the
// unfiltered tokens are returned so no entry becomes unsearchable.
func Tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))

	var raw []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 1 {
			raw = append(raw, current.String())
		}
		current.Reset()
	}
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if !stopwords[t] {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return raw
	}
	return tokens
}

// TokenSet returns the tokens as a membership set.
func TokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// Bigrams returns the consecutive two-token phrases of a token list.
func Bigrams(tokens []string) []string {
	if len(tokens) < 2 {
		return nil
	}
	grams := make([]string, 0, len(tokens)-1)
	for i := 0; i < len(tokens)-1; i++ {
		grams = append(grams, tokens[i]+" "+tokens[i+1])
	}
	return grams
}

// IndexTokens returns the deduplicated token set an entry is indexed
// under: content, tags, dimensions, project context, and source system.
func IndexTokens(e *Entry) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(tokens []string) {
		for _, t := range tokens {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}

	add(Tokenize(e.Content))
	for _, tag := range e.Tags {
		add(Tokenize(tag))
	}
	for _, dim := range e.Dimensions {
		add(Tokenize(dim))
	}
	add(Tokenize(e.ProjectContext))
	add(Tokenize(e.SourceSystem))
	return out
}
