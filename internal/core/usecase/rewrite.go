package usecase

import "strings"

// rewritePrefixes are checked in priority order; the first match is replaced
// with "explain". This is heuristic lexical normalization to collapse
// conversational phrasing into a retrieval-friendly imperative, not a
// language model.
var rewritePrefixes = []string{
	"do you know",
	"what do you mean by",
	"tell me about",
}

const rewriteReplacement = "explain"

// RewriteQuery lower-cases and trims the question, then rewrites at most one
// leading filler prefix.
func RewriteQuery(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, prefix := range rewritePrefixes {
		if strings.HasPrefix(q, prefix) {
			return rewriteReplacement + strings.TrimPrefix(q, prefix)
		}
	}
	return q
}
