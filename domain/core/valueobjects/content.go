package valueobjects

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"memgraph/domain/config"
	pkgerrors "memgraph/pkg/errors"
)

// MemoryContent is a value object for a node's opaque payload.
// Content is immutable post-creation; the similarity key is derived
// from it exactly once.
type MemoryContent struct {
	text string
}

// NewMemoryContent creates content with validation using default configuration
func NewMemoryContent(text string) (MemoryContent, error) {
	return NewMemoryContentWithConfig(text, config.DefaultDomainConfig())
}

// NewMemoryContentWithConfig creates content with validation and configuration
func NewMemoryContentWithConfig(text string, cfg *config.DomainConfig) (MemoryContent, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	text = strings.TrimSpace(text)

	if text == "" {
		return MemoryContent{}, pkgerrors.NewValidationError("content cannot be empty")
	}

	if utf8.RuneCountInString(text) > cfg.MaxContentLength {
		return MemoryContent{}, pkgerrors.NewValidationError(fmt.Sprintf("content exceeds maximum length of %d characters", cfg.MaxContentLength))
	}

	return MemoryContent{text: text}, nil
}

// Text returns the content payload
func (c MemoryContent) Text() string {
	return c.text
}

// IsEmpty checks if content is empty
func (c MemoryContent) IsEmpty() bool {
	return c.text == ""
}

// Equals checks if two contents are equal
func (c MemoryContent) Equals(other MemoryContent) bool {
	return c.text == other.text
}

// WordCount returns the approximate word count
func (c MemoryContent) WordCount() int {
	return len(strings.Fields(c.text))
}

// Summary returns a truncated summary of the content
func (c MemoryContent) Summary(maxLength int) string {
	if maxLength <= 0 {
		return ""
	}

	if utf8.RuneCountInString(c.text) <= maxLength {
		return c.text
	}

	runes := []rune(c.text)
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}
