package summarize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "memgraph/pkg/errors"
)

func TestSummarizeJoinsInputs(t *testing.T) {
	s := NewConcatSummarizer(0)

	out, err := s.Summarize(context.Background(), []string{"  first note ", "second note"})
	require.NoError(t, err)
	assert.Equal(t, "first note\nsecond note", out)
}

func TestSummarizeTruncatesPerInput(t *testing.T) {
	s := NewConcatSummarizer(5)

	out, err := s.Summarize(context.Background(), []string{"abcdefgh", "abc"})
	require.NoError(t, err)
	assert.Equal(t, "abcde...\nabc", out)
}

func TestSummarizeTruncatesOnRuneBoundaries(t *testing.T) {
	s := NewConcatSummarizer(3)

	out, err := s.Summarize(context.Background(), []string{"日本語のメモ"})
	require.NoError(t, err)
	assert.Equal(t, "日本語...", out)
}

func TestSummarizeRejectsEmptyInputs(t *testing.T) {
	s := NewConcatSummarizer(0)

	_, err := s.Summarize(context.Background(), nil)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestSummarizeHonorsCancellation(t *testing.T) {
	s := NewConcatSummarizer(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Summarize(ctx, []string{"one", "two"})
	assert.ErrorIs(t, err, context.Canceled)
}
