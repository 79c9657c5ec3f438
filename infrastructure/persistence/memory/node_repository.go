// Package memory provides in-process implementations of the
// persistence ports. It is the default driver for local development
// and tests; the dynamodb package is the hosted counterpart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"memgraph/application/ports"
	"memgraph/domain/core/entities"
	"memgraph/domain/core/valueobjects"
	pkgerrors "memgraph/pkg/errors"
)

// NodeRepository is a thread-safe in-memory ports.NodeRepository.
// Each node lives in its own entry with its own lock, so touching or
// updating one node never blocks readers or writers of another.
// Nodes are stored as deep clones on both write and read, so no two
// callers ever share a *MemoryNode and entity mutation stays local
// until the next Save.
type NodeRepository struct {
	nodes sync.Map // valueobjects.NodeID -> *nodeEntry

	ownMu sync.Mutex
	byOwn map[string]map[valueobjects.NodeID]struct{}
}

// nodeEntry guards a single node. gone marks an entry that was removed
// from the map while a concurrent caller still held a reference to it.
type nodeEntry struct {
	mu   sync.RWMutex
	node *entities.MemoryNode
	gone bool
}

// NewNodeRepository creates an empty repository
func NewNodeRepository() *NodeRepository {
	return &NodeRepository{
		byOwn: make(map[string]map[valueobjects.NodeID]struct{}),
	}
}

var _ ports.NodeRepository = (*NodeRepository)(nil)

// Save persists a node (create or update)
func (r *NodeRepository) Save(ctx context.Context, node *entities.MemoryNode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if node == nil {
		return pkgerrors.NewValidationError("node cannot be nil")
	}

	for {
		v, _ := r.nodes.LoadOrStore(node.ID(), &nodeEntry{})
		entry := v.(*nodeEntry)

		entry.mu.Lock()
		if entry.gone {
			// Lost a race with Delete; the map slot is free again.
			entry.mu.Unlock()
			continue
		}
		entry.node = node.Clone()
		// Index under the entry lock so a racing Delete cannot leave a
		// stale owner entry behind. Lock order is always entry then
		// owner index.
		r.indexOwner(node.Owner(), node.ID())
		entry.mu.Unlock()

		return nil
	}
}

// GetByID retrieves a node by its ID
func (r *NodeRepository) GetByID(ctx context.Context, id valueobjects.NodeID) (*entities.MemoryNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, ok := r.loadEntry(id)
	if !ok {
		return nil, pkgerrors.NewNotFoundError("memory node")
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()
	if entry.gone || entry.node == nil {
		return nil, pkgerrors.NewNotFoundError("memory node")
	}
	return entry.node.Clone(), nil
}

// GetByOwner retrieves all nodes created by an owner
func (r *NodeRepository) GetByOwner(ctx context.Context, owner string) ([]*entities.MemoryNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.ownMu.Lock()
	ids := make([]valueobjects.NodeID, 0, len(r.byOwn[owner]))
	for id := range r.byOwn[owner] {
		ids = append(ids, id)
	}
	r.ownMu.Unlock()

	out := make([]*entities.MemoryNode, 0, len(ids))
	for _, id := range ids {
		node, err := r.GetByID(ctx, id)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, node)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})

	return out, nil
}

// GetUnrolled retrieves an owner's parentless nodes at a level
func (r *NodeRepository) GetUnrolled(ctx context.Context, owner string, level valueobjects.MemoryLevel) ([]*entities.MemoryNode, error) {
	all, err := r.GetByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	out := make([]*entities.MemoryNode, 0, len(all))
	for _, node := range all {
		if node.Level() != level {
			continue
		}
		if _, hasParent := node.ParentID(); hasParent {
			continue
		}
		out = append(out, node)
	}
	return out, nil
}

// CountUnrolled counts parentless nodes for an (owner, level) pair
func (r *NodeRepository) CountUnrolled(ctx context.Context, owner string, level valueobjects.MemoryLevel) (int, error) {
	nodes, err := r.GetUnrolled(ctx, owner, level)
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

// Owners lists every owner with at least one node
func (r *NodeRepository) Owners(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.ownMu.Lock()
	defer r.ownMu.Unlock()

	owners := make([]string, 0, len(r.byOwn))
	for owner, ids := range r.byOwn {
		if len(ids) > 0 {
			owners = append(owners, owner)
		}
	}
	sort.Strings(owners)

	return owners, nil
}

// Touch atomically increments access bookkeeping for a node. Only the
// touched node's entry is locked.
func (r *NodeRepository) Touch(ctx context.Context, id valueobjects.NodeID, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry, ok := r.loadEntry(id)
	if !ok {
		return pkgerrors.NewNotFoundError("memory node")
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.gone || entry.node == nil {
		return pkgerrors.NewNotFoundError("memory node")
	}
	entry.node.Touch(now)

	return nil
}

// Delete removes a node
func (r *NodeRepository) Delete(ctx context.Context, id valueobjects.NodeID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry, ok := r.loadEntry(id)
	if !ok {
		return pkgerrors.NewNotFoundError("memory node")
	}

	entry.mu.Lock()
	if entry.gone || entry.node == nil {
		entry.mu.Unlock()
		return pkgerrors.NewNotFoundError("memory node")
	}
	entry.gone = true
	r.unindexOwner(entry.node.Owner(), id)
	entry.node = nil
	entry.mu.Unlock()

	r.nodes.Delete(id)

	return nil
}

// DeleteExpired removes nodes whose TTL elapsed before now and returns
// the removed nodes
func (r *NodeRepository) DeleteExpired(ctx context.Context, now time.Time) ([]*entities.MemoryNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var removed []*entities.MemoryNode
	r.nodes.Range(func(key, v any) bool {
		id := key.(valueobjects.NodeID)
		entry := v.(*nodeEntry)

		entry.mu.Lock()
		if entry.gone || entry.node == nil || !entry.node.IsExpired(now) {
			entry.mu.Unlock()
			return true
		}
		removed = append(removed, entry.node.Clone())
		entry.gone = true
		r.unindexOwner(entry.node.Owner(), id)
		entry.node = nil
		entry.mu.Unlock()

		r.nodes.Delete(id)
		return true
	})

	return removed, nil
}

func (r *NodeRepository) loadEntry(id valueobjects.NodeID) (*nodeEntry, bool) {
	v, ok := r.nodes.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*nodeEntry), true
}

func (r *NodeRepository) indexOwner(owner string, id valueobjects.NodeID) {
	r.ownMu.Lock()
	defer r.ownMu.Unlock()

	owned, ok := r.byOwn[owner]
	if !ok {
		owned = make(map[valueobjects.NodeID]struct{})
		r.byOwn[owner] = owned
	}
	owned[id] = struct{}{}
}

func (r *NodeRepository) unindexOwner(owner string, id valueobjects.NodeID) {
	r.ownMu.Lock()
	defer r.ownMu.Unlock()

	owned, ok := r.byOwn[owner]
	if !ok {
		return
	}
	delete(owned, id)
	if len(owned) == 0 {
		delete(r.byOwn, owner)
	}
}
