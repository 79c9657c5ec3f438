// Package summarize provides ports.Summarizer implementations.
package summarize

import (
	"context"
	"strings"

	"memgraph/application/ports"
	pkgerrors "memgraph/pkg/errors"
)

// ConcatSummarizer joins inputs into a single text, truncating each to
// maxPerInput runes. It is the deterministic fallback used when no
// model-backed summarizer is configured; the rollup path only needs
// summaries to be stable, not eloquent.
type ConcatSummarizer struct {
	maxPerInput int
}

// NewConcatSummarizer creates a summarizer that keeps up to
// maxPerInput runes per source. Non-positive values disable truncation.
func NewConcatSummarizer(maxPerInput int) *ConcatSummarizer {
	return &ConcatSummarizer{maxPerInput: maxPerInput}
}

var _ ports.Summarizer = (*ConcatSummarizer)(nil)

// Summarize joins the inputs in order, separated by newlines
func (s *ConcatSummarizer) Summarize(ctx context.Context, inputs []string) (string, error) {
	if len(inputs) == 0 {
		return "", pkgerrors.NewValidationError("nothing to summarize")
	}

	parts := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		parts = append(parts, s.truncate(strings.TrimSpace(in)))
	}

	return strings.Join(parts, "\n"), nil
}

func (s *ConcatSummarizer) truncate(text string) string {
	if s.maxPerInput <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= s.maxPerInput {
		return text
	}
	return string(runes[:s.maxPerInput]) + "..."
}
