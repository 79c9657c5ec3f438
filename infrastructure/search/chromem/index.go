// Package chromem implements the similarity index on chromem-go, an
// embeddable vector store.
package chromem

import (
	"context"
	"sort"
	"strconv"
	"time"

	"memgraph/application/ports"
	"memgraph/domain/core/valueobjects"
	pkgerrors "memgraph/pkg/errors"
	"memgraph/pkg/utils"

	chromemgo "github.com/philippgille/chromem-go"
)

const collectionName = "memory-nodes"

// Index implements ports.SimilarityIndex on a chromem collection.
// Importance and creation time ride along as document metadata so
// equal-similarity hits rank deterministically.
type Index struct {
	collection *chromemgo.Collection
}

// NewIndex creates an index backed by an in-process database. An empty
// path keeps everything in memory; otherwise the collection persists
// under path across restarts.
func NewIndex(path string) (*Index, error) {
	var db *chromemgo.DB
	var err error

	if path == "" {
		db = chromemgo.NewDB()
	} else {
		db, err = chromemgo.NewPersistentDB(path, false)
		if err != nil {
			return nil, pkgerrors.NewUnavailableError("chromem", err)
		}
	}

	// Keys are pre-embedded upstream, so the collection never invokes
	// an embedding func of its own.
	collection, err := db.GetOrCreateCollection(collectionName, nil, func(ctx context.Context, text string) ([]float32, error) {
		return nil, pkgerrors.NewInternalError("similarity index received un-embedded content")
	})
	if err != nil {
		return nil, pkgerrors.NewUnavailableError("chromem", err)
	}

	return &Index{collection: collection}, nil
}

var _ ports.SimilarityIndex = (*Index)(nil)

// Index adds or replaces a node's similarity key
func (i *Index) Index(ctx context.Context, id valueobjects.NodeID, key []float32, importance float64, createdAt time.Time) error {
	if len(key) == 0 {
		return pkgerrors.NewValidationError("similarity key cannot be empty")
	}

	doc := chromemgo.Document{
		ID:        id.String(),
		Embedding: key,
		Metadata: map[string]string{
			"importance": strconv.FormatFloat(importance, 'f', -1, 64),
			"created_at": utils.FormatRFC3339(createdAt),
		},
	}

	if err := i.collection.AddDocument(ctx, doc); err != nil {
		return pkgerrors.NewUnavailableError("chromem", err)
	}
	return nil
}

// Remove drops a node from the index; unknown ids are a no-op
func (i *Index) Remove(ctx context.Context, id valueobjects.NodeID) error {
	if err := i.collection.Delete(ctx, nil, nil, id.String()); err != nil {
		return pkgerrors.NewUnavailableError("chromem", err)
	}
	return nil
}

// Search returns up to k hits with similarity >= minScore, ordered by
// similarity, then importance, then recency
func (i *Index) Search(ctx context.Context, key []float32, k int, minScore float64) ([]ports.SearchHit, error) {
	if len(key) == 0 {
		return nil, pkgerrors.NewValidationError("similarity key cannot be empty")
	}
	if k <= 0 {
		return nil, pkgerrors.NewValidationError("result count must be positive")
	}

	count := i.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := i.collection.QueryEmbedding(ctx, key, k, nil, nil)
	if err != nil {
		return nil, pkgerrors.NewUnavailableError("chromem", err)
	}

	type ranked struct {
		hit        ports.SearchHit
		importance float64
		createdAt  time.Time
	}

	hits := make([]ranked, 0, len(results))
	for _, res := range results {
		score := float64(res.Similarity)
		if score < minScore {
			continue
		}

		id, err := valueobjects.NewNodeIDFromString(res.ID)
		if err != nil {
			continue
		}

		importance, _ := strconv.ParseFloat(res.Metadata["importance"], 64)
		createdAt, _ := utils.ParseRFC3339(res.Metadata["created_at"])

		hits = append(hits, ranked{
			hit:        ports.SearchHit{NodeID: id, Score: score},
			importance: importance,
			createdAt:  createdAt,
		})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].hit.Score != hits[b].hit.Score {
			return hits[a].hit.Score > hits[b].hit.Score
		}
		if hits[a].importance != hits[b].importance {
			return hits[a].importance > hits[b].importance
		}
		return hits[a].createdAt.After(hits[b].createdAt)
	})

	out := make([]ports.SearchHit, len(hits))
	for idx, h := range hits {
		out[idx] = h.hit
	}
	return out, nil
}
