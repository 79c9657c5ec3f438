package memory

import (
	"context"
	"sync"
	"time"

	"memgraph/application/ports"
	"memgraph/domain/core/entities"
	"memgraph/domain/core/valueobjects"
	pkgerrors "memgraph/pkg/errors"
)

// GrantRepository is a thread-safe in-memory ports.GrantRepository
type GrantRepository struct {
	mu     sync.RWMutex
	grants map[valueobjects.GrantID]*entities.AccessGrant
	byNode map[valueobjects.NodeID]map[valueobjects.GrantID]struct{}
}

// NewGrantRepository creates an empty repository
func NewGrantRepository() *GrantRepository {
	return &GrantRepository{
		grants: make(map[valueobjects.GrantID]*entities.AccessGrant),
		byNode: make(map[valueobjects.NodeID]map[valueobjects.GrantID]struct{}),
	}
}

var _ ports.GrantRepository = (*GrantRepository)(nil)

// Save persists a grant
func (r *GrantRepository) Save(ctx context.Context, grant *entities.AccessGrant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if grant == nil {
		return pkgerrors.NewValidationError("grant cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.grants[grant.ID()] = grant

	indexed, ok := r.byNode[grant.NodeID()]
	if !ok {
		indexed = make(map[valueobjects.GrantID]struct{})
		r.byNode[grant.NodeID()] = indexed
	}
	indexed[grant.ID()] = struct{}{}

	return nil
}

// GetByID retrieves a grant by its ID
func (r *GrantRepository) GetByID(ctx context.Context, id valueobjects.GrantID) (*entities.AccessGrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	grant, ok := r.grants[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("access grant")
	}
	return grant, nil
}

// GetByNode retrieves all grants referencing a node, expired included
func (r *GrantRepository) GetByNode(ctx context.Context, nodeID valueobjects.NodeID) ([]*entities.AccessGrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byNode[nodeID]
	out := make([]*entities.AccessGrant, 0, len(ids))
	for id := range ids {
		if grant, ok := r.grants[id]; ok {
			out = append(out, grant)
		}
	}
	return out, nil
}

// Delete removes a grant
func (r *GrantRepository) Delete(ctx context.Context, id valueobjects.GrantID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	grant, ok := r.grants[id]
	if !ok {
		return pkgerrors.NewNotFoundError("access grant")
	}

	delete(r.grants, id)
	r.removeNodeIndex(grant.NodeID(), id)

	return nil
}

// DeleteExpired eagerly removes inert grants and returns the count
func (r *GrantRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for id, grant := range r.grants {
		if !grant.IsExpired(now) {
			continue
		}
		delete(r.grants, id)
		r.removeNodeIndex(grant.NodeID(), id)
		count++
	}

	return count, nil
}

func (r *GrantRepository) removeNodeIndex(nodeID valueobjects.NodeID, id valueobjects.GrantID) {
	indexed, ok := r.byNode[nodeID]
	if !ok {
		return
	}
	delete(indexed, id)
	if len(indexed) == 0 {
		delete(r.byNode, nodeID)
	}
}
