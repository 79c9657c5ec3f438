// Package hash provides a deterministic, dependency-free embedder.
// The vectors carry no semantics beyond token overlap, which is enough
// for similarity plumbing in local development and tests; production
// deployments swap in a model-backed embedder behind the same port.
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"memgraph/application/ports"
	pkgerrors "memgraph/pkg/errors"
)

// DefaultDimensions matches the small sentence-transformer families so
// the index schema is identical across embedders
const DefaultDimensions = 384

// Embedder derives a unit-length vector from text by seeding a linear
// congruential generator with the FNV-1a hash of each token and
// accumulating its stream. Identical text always yields an identical
// vector.
type Embedder struct {
	dims int
}

// NewEmbedder creates an embedder with DefaultDimensions
func NewEmbedder() *Embedder {
	return &Embedder{dims: DefaultDimensions}
}

// NewEmbedderWithDimensions creates an embedder with a custom width
func NewEmbedderWithDimensions(dims int) (*Embedder, error) {
	if dims <= 0 {
		return nil, pkgerrors.NewValidationError("embedding dimensions must be positive")
	}
	return &Embedder{dims: dims}, nil
}

var _ ports.Embedder = (*Embedder)(nil)

// Dimensions reports the vector width
func (e *Embedder) Dimensions() int {
	return e.dims
}

// Embed converts text to a unit-length vector
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, pkgerrors.NewValidationError("cannot embed empty text")
	}

	vec := make([]float64, e.dims)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		h.Write([]byte(token))
		state := h.Sum64()

		for i := 0; i < e.dims; i++ {
			// Numerical Recipes LCG constants.
			state = state*6364136223846793005 + 1442695040888963407
			// Map the top bits to [-1, 1).
			vec[i] += float64(int64(state>>11))/float64(1<<52) - 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dims)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}
