package hash

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "memgraph/pkg/errors"
)

func TestEmbedIsDeterministic(t *testing.T) {
	e := NewEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "client prefers morning meetings")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "client prefers morning meetings")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := e.Embed(ctx, "completely unrelated topic")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestEmbedIsUnitLength(t *testing.T) {
	e := NewEmbedder()

	vec, err := e.Embed(context.Background(), "quarterly revenue forecast for the northern region")
	require.NoError(t, err)
	require.Len(t, vec, DefaultDimensions)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestEmbedCaseAndOrderInsensitiveTokens(t *testing.T) {
	e := NewEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "Morning Meetings")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "morning meetings")
	require.NoError(t, err)
	assert.Equal(t, a, b, "tokens are lowercased before hashing")

	// Token accumulation is a sum, so order does not matter either.
	c, err := e.Embed(ctx, "meetings morning")
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestSharedTokensScoreHigherThanDisjoint(t *testing.T) {
	e := NewEmbedder()
	ctx := context.Background()

	query, err := e.Embed(ctx, "quarterly revenue")
	require.NoError(t, err)
	near, err := e.Embed(ctx, "quarterly revenue forecast")
	require.NoError(t, err)
	far, err := e.Embed(ctx, "kitchen supply inventory")
	require.NoError(t, err)

	assert.Greater(t, dot(query, near), dot(query, far))
}

func TestEmbedRejectsEmptyText(t *testing.T) {
	e := NewEmbedder()

	_, err := e.Embed(context.Background(), "   ")
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestNewEmbedderWithDimensions(t *testing.T) {
	e, err := NewEmbedderWithDimensions(64)
	require.NoError(t, err)
	assert.Equal(t, 64, e.Dimensions())

	vec, err := e.Embed(context.Background(), "short vector")
	require.NoError(t, err)
	assert.Len(t, vec, 64)

	_, err = NewEmbedderWithDimensions(0)
	assert.True(t, pkgerrors.IsValidation(err))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
