package ports

import (
	"context"
	"time"

	"memgraph/domain/core/valueobjects"
)

// SearchHit is a single similarity match. Hits carry no consent
// information: ids must be filtered through the facade before they
// reach a caller.
type SearchHit struct {
	NodeID valueobjects.NodeID
	Score  float64
}

// SimilarityIndex maps node ids to a searchable representation for
// nearest-neighbor retrieval. The index is consent-agnostic by
// contract and promises only eventual visibility: an update concurrent
// with a search may or may not be visible in that search's results.
type SimilarityIndex interface {
	// Index inserts a node's position in the search structure. Called
	// once per node at creation; content is immutable afterwards.
	// Importance and creation time are carried for tie-breaking.
	Index(ctx context.Context, id valueobjects.NodeID, key []float32, importance float64, createdAt time.Time) error

	// Remove drops a node's entry. Called on expiry and explicit delete.
	Remove(ctx context.Context, id valueobjects.NodeID) error

	// Search returns up to k hits with score >= minScore, ordered by
	// descending score, ties broken by descending importance then by
	// most recent creation time.
	Search(ctx context.Context, key []float32, k int, minScore float64) ([]SearchHit, error)
}

// Embedder derives the similarity key from node content. The model
// behind it is an injected implementation choice.
type Embedder interface {
	// Embed converts text to its searchable representation
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the representation size
	Dimensions() int
}

// Summarizer combines source node contents into a single summary
// payload during rollup. Implementations may call out to external
// services; the aggregator bounds every call with a deadline and
// abandons the rollup on timeout.
type Summarizer interface {
	Summarize(ctx context.Context, inputs []string) (string, error)
}

// ReleaseFunc releases a held maintenance lock
type ReleaseFunc func()

// MaintenanceLock serializes rollups per (owner, level) tuple. Locks
// are scoped to the tuple, never global, so maintenance for different
// owners and levels proceeds in parallel.
type MaintenanceLock interface {
	// Acquire attempts to take the lock for a tuple key. It returns a
	// CONFLICT error when the lock is already held.
	Acquire(ctx context.Context, key string, holder string, ttl time.Duration) (ReleaseFunc, error)
}
