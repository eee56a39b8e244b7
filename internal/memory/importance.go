package memory

import "strings"

// Keyword and tag boosts for the creation-time importance heuristic.
var (
	importanceKeywords = []string{
		"urgent", "critical", "asap", "important", "deadline",
		"priorit", "must", "remember", "blocker",
	}
	importanceTags = map[string]bool{
		"urgent":    true,
		"critical":  true,
		"important": true,
		"priority":  true,
	}
)

// ComputeImportance derives a default importance for entries stored
// without an explicit value: a 0.5 base with keyword, tag, and length
// boosts, clamped to [0,1]. The result is fixed at creation; search
// relevance is computed separately at query time.
func ComputeImportance(content string, tags []string) float64 {
	score := 0.5

	lower := strings.ToLower(content)
	for _, kw := range importanceKeywords {
		if strings.Contains(lower, kw) {
			score += 0.08
		}
	}
	for _, tag := range tags {
		if importanceTags[strings.ToLower(strings.TrimSpace(tag))] {
			score += 0.1
		}
	}
	if len(content) > 280 {
		score += 0.05
	}

	if score > 1 {
		score = 1
	}
	return score
}
