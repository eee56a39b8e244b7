package memory

import "regexp"

var (
	wikiLinkRe = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	mentionRe  = regexp.MustCompile(`@([A-Za-z0-9][A-Za-z0-9_-]*)`)
)

// ExtractConnections pulls connection markers out of a content body:
// [[target]] wiki links and @name mentions, deduplicated in order of
// first appearance. Connections are a scoring signal only; they carry
// no ownership semantics.
func ExtractConnections(content string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(ref string) {
		if ref != "" && !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}

	for _, m := range wikiLinkRe.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	for _, m := range mentionRe.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	return out
}
