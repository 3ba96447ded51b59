// Package budget keeps synthesis prompts inside a model's context window.
// Chat backends use different tokenizers, so this package uses a
// conservative character heuristic: 1 token ≈ 4 characters.
package budget

import (
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// DefaultMaxPromptTokens is the input budget for a single synthesis
	// prompt. It fits 8k-context deployments with room for the answer.
	DefaultMaxPromptTokens = 6000

	// truncationMarker is appended when text is cut.
	truncationMarker = " …"
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for msgs,
// summing role and content plus a small per-message overhead.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// Truncate cuts s so that Estimate(result) <= maxTokens, never splitting a
// UTF-8 sequence. A marker is appended when anything was removed.
func Truncate(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if Estimate(s) <= maxTokens {
		return s
	}
	limit := maxTokens*charsPerToken - len(truncationMarker)
	if limit <= 0 {
		return ""
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + truncationMarker
}

// Fit returns the longest prefix of texts whose combined estimate fits in
// maxTokens. Texts after the first one that overflows are dropped, keeping
// the original order.
func Fit(texts []string, maxTokens int) []string {
	total := 0
	for i, t := range texts {
		total += Estimate(t)
		if total > maxTokens {
			return texts[:i]
		}
	}
	return texts
}
