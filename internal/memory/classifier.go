package memory

import "strings"

// Dimension labels used by the default classifier. Callers may attach
// arbitrary dimensions; these are the inferred set.
const (
	DimPersonal = "personal"
	DimWork     = "work"
	DimResearch = "research"
	DimGeneral  = "general"
)

// ClassifiedBy reports which rule produced a classification.
type ClassifiedBy int

const (
	ClassifiedByTag ClassifiedBy = iota
	ClassifiedByKeyword
	ClassifiedFallback
)

// Classification is the result of dimension inference.
type Classification struct {
	Dimensions []string
	Source     ClassifiedBy
	Hits       []string // tags or keywords that fired; empty for fallback
}

// Classifier infers dimensions for entries stored without any. It is
// pluggable so inference rules can be swapped or tested independently
// of storage.
type Classifier interface {
	Classify(content string, tags []string) Classification
}

// KeywordClassifier is the default Classifier: a fixed keyword list per
// dimension, checked against tags first and content second.
type KeywordClassifier struct {
	rules map[string][]string
}

// NewKeywordClassifier returns a classifier with the built-in rules.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		rules: map[string][]string{
			DimWork: {
				"meeting", "deadline", "boss", "client", "standup", "sprint",
				"review", "budget", "report", "email", "deploy", "release",
			},
			DimPersonal: {
				"family", "home", "health", "friend", "birthday", "weekend",
				"dinner", "vacation", "doctor", "gym",
			},
			DimResearch: {
				"paper", "study", "analysis", "data", "hypothesis",
				"experiment", "benchmark", "survey", "thesis",
			},
		},
	}
}

// Classify infers dimensions from tags and content keywords. A tag that
// names a dimension wins outright; otherwise content keywords vote; the
// catch-all dimension is returned when nothing fires, so the result is
// never empty.
func (c *KeywordClassifier) Classify(content string, tags []string) Classification {
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if _, ok := c.rules[t]; ok || t == DimGeneral {
			return Classification{
				Dimensions: []string{t},
				Source:     ClassifiedByTag,
				Hits:       []string{tag},
			}
		}
	}

	lower := strings.ToLower(content)
	for _, tag := range tags {
		lower += " " + strings.ToLower(tag)
	}

	var dims, hits []string
	for _, dim := range []string{DimWork, DimPersonal, DimResearch} {
		for _, kw := range c.rules[dim] {
			if strings.Contains(lower, kw) {
				dims = append(dims, dim)
				hits = append(hits, kw)
				break
			}
		}
	}
	if len(dims) > 0 {
		return Classification{Dimensions: dims, Source: ClassifiedByKeyword, Hits: hits}
	}
	return Classification{Dimensions: []string{DimGeneral}, Source: ClassifiedFallback}
}
