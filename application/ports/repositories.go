package ports

import (
	"context"
	"time"

	"memgraph/domain/core/entities"
	"memgraph/domain/core/valueobjects"
	"memgraph/domain/events"
)

// NodeRepository defines the interface for memory node persistence.
// This is a port in hexagonal architecture - the domain doesn't know
// about the implementation. GetByID performs no consent check: it is
// an internal primitive, and the facade is the only caller that uses
// it for enforcement, so consent logic lives in exactly one place.
type NodeRepository interface {
	// Save persists a node (create or update)
	Save(ctx context.Context, node *entities.MemoryNode) error

	// GetByID retrieves a node by its ID; NOT_FOUND if absent
	GetByID(ctx context.Context, id valueobjects.NodeID) (*entities.MemoryNode, error)

	// GetByOwner retrieves all nodes created by an owner
	GetByOwner(ctx context.Context, owner string) ([]*entities.MemoryNode, error)

	// GetUnrolled retrieves an owner's nodes at a level that have not
	// been rolled into a summary yet (no parent assigned)
	GetUnrolled(ctx context.Context, owner string, level valueobjects.MemoryLevel) ([]*entities.MemoryNode, error)

	// CountUnrolled counts un-rolled-up nodes for an (owner, level) pair.
	// Recomputed on every call; rollup idempotence depends on it.
	CountUnrolled(ctx context.Context, owner string, level valueobjects.MemoryLevel) (int, error)

	// Owners lists every owner with at least one live node
	Owners(ctx context.Context) ([]string, error)

	// Touch atomically increments access bookkeeping for a node
	Touch(ctx context.Context, id valueobjects.NodeID, now time.Time) error

	// Delete removes a node
	Delete(ctx context.Context, id valueobjects.NodeID) error

	// DeleteExpired removes nodes whose TTL elapsed before now and
	// returns the removed nodes so callers can clean up indices
	DeleteExpired(ctx context.Context, now time.Time) ([]*entities.MemoryNode, error)
}

// GrantRepository defines the interface for access grant persistence
type GrantRepository interface {
	// Save persists a grant
	Save(ctx context.Context, grant *entities.AccessGrant) error

	// GetByID retrieves a grant by its ID; NOT_FOUND if absent
	GetByID(ctx context.Context, id valueobjects.GrantID) (*entities.AccessGrant, error)

	// GetByNode retrieves all grants referencing a node, expired ones
	// included; expiry filtering is the consent engine's concern
	GetByNode(ctx context.Context, nodeID valueobjects.NodeID) ([]*entities.AccessGrant, error)

	// Delete removes a grant
	Delete(ctx context.Context, id valueobjects.GrantID) error

	// DeleteExpired eagerly removes inert grants and returns the count
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for the hot node read cache
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with a TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error
}
