package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"memgraph/application/ports"
	"memgraph/domain/core/valueobjects"
	"memgraph/domain/events"
)

// fakeIndex is a brute-force similarity index for tests. Keys from the
// hash embedder are unit length, so the dot product is the cosine.
type fakeIndex struct {
	mu      sync.Mutex
	entries map[valueobjects.NodeID]fakeIndexEntry
}

type fakeIndexEntry struct {
	key        []float32
	importance float64
	createdAt  time.Time
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{entries: make(map[valueobjects.NodeID]fakeIndexEntry)}
}

func (f *fakeIndex) Index(ctx context.Context, id valueobjects.NodeID, key []float32, importance float64, createdAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[id] = fakeIndexEntry{key: key, importance: importance, createdAt: createdAt}
	return nil
}

func (f *fakeIndex) Remove(ctx context.Context, id valueobjects.NodeID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, id)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, key []float32, k int, minScore float64) ([]ports.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	type ranked struct {
		hit        ports.SearchHit
		importance float64
		createdAt  time.Time
	}

	var hits []ranked
	for id, entry := range f.entries {
		var dot float64
		for i := range key {
			if i >= len(entry.key) {
				break
			}
			dot += float64(key[i]) * float64(entry.key[i])
		}
		if dot < minScore {
			continue
		}
		hits = append(hits, ranked{
			hit:        ports.SearchHit{NodeID: id, Score: dot},
			importance: entry.importance,
			createdAt:  entry.createdAt,
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

	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]ports.SearchHit, len(hits))
	for i, h := range hits {
		out[i] = h.hit
	}
	return out, nil
}

func (f *fakeIndex) contains(id valueobjects.NodeID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[id]
	return ok
}

// capturePublisher records published events for assertions
type capturePublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *capturePublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

func (p *capturePublisher) PublishBatch(ctx context.Context, evs []events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return nil
}

func (p *capturePublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.GetEventType()
	}
	return out
}

// mapCache is a minimal synchronous ports.Cache
type mapCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]interface{})}
}

func (c *mapCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// slowSummarizer blocks until its context ends
type slowSummarizer struct{}

func (slowSummarizer) Summarize(ctx context.Context, inputs []string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
