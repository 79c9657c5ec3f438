package entities

import (
	"fmt"
	"time"

	"memgraph/domain/config"
	"memgraph/domain/core/valueobjects"
	"memgraph/domain/events"
	pkgerrors "memgraph/pkg/errors"
)

// MemoryNode is the atomic unit of knowledge in the graph.
// This is a rich domain model with encapsulated business logic:
// id, owner and level are immutable after creation; content is
// immutable and the similarity key is derived from it exactly once;
// consent is the only externally mutable property besides the
// access bookkeeping fields.
type MemoryNode struct {
	// Private fields ensure encapsulation
	id             valueobjects.NodeID
	owner          string
	level          valueobjects.MemoryLevel
	content        valueobjects.MemoryContent
	similarityKey  []float32
	consent        valueobjects.ConsentLevel
	tags           []string
	importance     valueobjects.Importance
	createdAt      time.Time
	ttl            time.Duration
	accessCount    int64
	lastAccessedAt time.Time
	children       []valueobjects.NodeID
	parent         valueobjects.NodeID
	version        int

	// Domain events that occurred during this aggregate's lifetime
	events []events.DomainEvent
}

// NewMemoryNode creates a new Atomic-level node with full business
// rule validation. Summary nodes are created via NewSummaryNode.
func NewMemoryNode(
	owner string,
	content valueobjects.MemoryContent,
	consent valueobjects.ConsentLevel,
	ttl time.Duration,
	importance valueobjects.Importance,
	tags []string,
	cfg *config.DomainConfig,
) (*MemoryNode, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if owner == "" {
		return nil, pkgerrors.NewValidationError("owner cannot be empty")
	}
	if content.IsEmpty() {
		return nil, pkgerrors.NewValidationError("content cannot be empty")
	}
	if !consent.IsValid() {
		return nil, pkgerrors.NewValidationError("invalid consent level")
	}
	if ttl < 0 {
		return nil, pkgerrors.NewValidationError("ttl cannot be negative")
	}
	if len(tags) > cfg.MaxTagsPerNode {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("maximum tags reached: %d", cfg.MaxTagsPerNode))
	}
	if ttl == 0 {
		ttl = cfg.TTLForLevel(valueobjects.LevelAtomic.String())
	}

	now := time.Now()
	node := &MemoryNode{
		id:             valueobjects.NewNodeID(),
		owner:          owner,
		level:          valueobjects.LevelAtomic,
		content:        content,
		consent:        consent,
		tags:           dedupeTags(tags),
		importance:     importance,
		createdAt:      now,
		ttl:            ttl,
		lastAccessedAt: now,
		version:        1,
		events:         []events.DomainEvent{},
	}

	node.addEvent(events.NewNodeCreated(node.id, owner, node.level, consent, now))

	return node, nil
}

// NewSummaryNode creates a node directly at a coarser level. Only the
// hierarchy aggregator creates these; children reference the source
// nodes that were summarized and are fixed at creation.
func NewSummaryNode(
	owner string,
	level valueobjects.MemoryLevel,
	content valueobjects.MemoryContent,
	consent valueobjects.ConsentLevel,
	ttl time.Duration,
	importance valueobjects.Importance,
	children []valueobjects.NodeID,
	cfg *config.DomainConfig,
) (*MemoryNode, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if owner == "" {
		return nil, pkgerrors.NewValidationError("owner cannot be empty")
	}
	if !level.CanHaveChildren() {
		return nil, pkgerrors.NewValidationError("atomic nodes cannot have children")
	}
	if len(children) == 0 {
		return nil, pkgerrors.NewValidationError("summary node requires at least one source node")
	}
	if content.IsEmpty() {
		return nil, pkgerrors.NewValidationError("content cannot be empty")
	}
	if !consent.IsValid() {
		return nil, pkgerrors.NewValidationError("invalid consent level")
	}
	if ttl <= 0 {
		ttl = cfg.TTLForLevel(level.String())
	}

	now := time.Now()
	node := &MemoryNode{
		id:             valueobjects.NewNodeID(),
		owner:          owner,
		level:          level,
		content:        content,
		consent:        consent,
		importance:     importance,
		createdAt:      now,
		ttl:            ttl,
		lastAccessedAt: now,
		children:       append([]valueobjects.NodeID{}, children...),
		version:        1,
		events:         []events.DomainEvent{},
	}

	node.addEvent(events.NewNodeCreated(node.id, owner, level, consent, now))

	return node, nil
}

// ReconstructMemoryNode rebuilds a node from repository data with
// preserved timestamps and bookkeeping. No events are raised.
func ReconstructMemoryNode(
	id valueobjects.NodeID,
	owner string,
	level valueobjects.MemoryLevel,
	content valueobjects.MemoryContent,
	similarityKey []float32,
	consent valueobjects.ConsentLevel,
	tags []string,
	importance valueobjects.Importance,
	createdAt time.Time,
	ttl time.Duration,
	accessCount int64,
	lastAccessedAt time.Time,
	children []valueobjects.NodeID,
	parent valueobjects.NodeID,
	version int,
) (*MemoryNode, error) {
	if owner == "" {
		return nil, pkgerrors.NewValidationError("owner cannot be empty")
	}
	if !level.IsValid() {
		return nil, pkgerrors.NewValidationError("invalid memory level")
	}
	if !consent.IsValid() {
		return nil, pkgerrors.NewValidationError("invalid consent level")
	}

	return &MemoryNode{
		id:             id,
		owner:          owner,
		level:          level,
		content:        content,
		similarityKey:  append([]float32(nil), similarityKey...),
		consent:        consent,
		tags:           append([]string(nil), tags...),
		importance:     importance,
		createdAt:      createdAt,
		ttl:            ttl,
		accessCount:    accessCount,
		lastAccessedAt: lastAccessedAt,
		children:       append([]valueobjects.NodeID(nil), children...),
		parent:         parent,
		version:        version,
		events:         []events.DomainEvent{},
	}, nil
}

// ID returns the node's unique identifier
func (n *MemoryNode) ID() valueobjects.NodeID {
	return n.id
}

// Owner returns the identifier of the office that created the node
func (n *MemoryNode) Owner() string {
	return n.owner
}

// Level returns the node's position in the hierarchy
func (n *MemoryNode) Level() valueobjects.MemoryLevel {
	return n.level
}

// Content returns the node's payload
func (n *MemoryNode) Content() valueobjects.MemoryContent {
	return n.content
}

// Consent returns the node's current consent level
func (n *MemoryNode) Consent() valueobjects.ConsentLevel {
	return n.consent
}

// Importance returns the retrieval-ranking bias
func (n *MemoryNode) Importance() valueobjects.Importance {
	return n.importance
}

// CreatedAt returns when the node was created
func (n *MemoryNode) CreatedAt() time.Time {
	return n.createdAt
}

// TTL returns the node's time-to-live
func (n *MemoryNode) TTL() time.Duration {
	return n.ttl
}

// ExpiresAt returns the instant the node becomes eligible for eviction
func (n *MemoryNode) ExpiresAt() time.Time {
	return n.createdAt.Add(n.ttl)
}

// IsExpired reports whether the node is past its TTL at the given time
func (n *MemoryNode) IsExpired(now time.Time) bool {
	return now.After(n.ExpiresAt())
}

// AccessCount returns how many times the node was successfully read
func (n *MemoryNode) AccessCount() int64 {
	return n.accessCount
}

// LastAccessedAt returns the time of the last successful read
func (n *MemoryNode) LastAccessedAt() time.Time {
	return n.lastAccessedAt
}

// Version returns the node's version for optimistic locking
func (n *MemoryNode) Version() int {
	return n.version
}

// SimilarityKey returns a copy of the derived search representation
func (n *MemoryNode) SimilarityKey() []float32 {
	return append([]float32(nil), n.similarityKey...)
}

// SetSimilarityKey installs the representation derived from content.
// Content is immutable post-creation, so the key is set exactly once.
func (n *MemoryNode) SetSimilarityKey(key []float32) error {
	if len(n.similarityKey) > 0 {
		return pkgerrors.NewConflictError("similarity key already set")
	}
	if len(key) == 0 {
		return pkgerrors.NewValidationError("similarity key cannot be empty")
	}
	n.similarityKey = append([]float32(nil), key...)
	return nil
}

// GetTags returns a copy of the node's tags
func (n *MemoryNode) GetTags() []string {
	tags := make([]string, len(n.tags))
	copy(tags, n.tags)
	return tags
}

// HasTag reports whether the node carries the given tag
func (n *MemoryNode) HasTag(tag string) bool {
	for _, t := range n.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Children returns a copy of the ordered source node ids. Empty for
// atomic nodes.
func (n *MemoryNode) Children() []valueobjects.NodeID {
	children := make([]valueobjects.NodeID, len(n.children))
	copy(children, n.children)
	return children
}

// ParentID returns the summary node this node was rolled into, if any.
// The reference is weak: an id for lookup, never an ownership edge.
func (n *MemoryNode) ParentID() (valueobjects.NodeID, bool) {
	return n.parent, !n.parent.IsZero()
}

// Touch records a successful read
func (n *MemoryNode) Touch(now time.Time) {
	n.accessCount++
	n.lastAccessedAt = now
}

// ChangeConsent mutates the node's consent level. Authorization is
// the caller's responsibility; the entity only validates the value.
func (n *MemoryNode) ChangeConsent(newConsent valueobjects.ConsentLevel) error {
	if !newConsent.IsValid() {
		return pkgerrors.NewValidationError("invalid consent level")
	}
	if newConsent == n.consent {
		return nil // No change needed
	}

	oldConsent := n.consent
	n.consent = newConsent
	n.version++

	n.addEvent(events.NewConsentChanged(n.id, oldConsent, newConsent, time.Now()))

	return nil
}

// AdjustImportance changes the retrieval-ranking bias
func (n *MemoryNode) AdjustImportance(importance valueobjects.Importance) {
	n.importance = importance
	n.version++
}

// AssignParent records the summary node this node was rolled into.
// A parent is assigned at most once, only at the moment of
// summarization, and only for levels that may have one.
func (n *MemoryNode) AssignParent(parentID valueobjects.NodeID) error {
	if !n.level.CanHaveParent() {
		return pkgerrors.NewValidationError("monthly nodes cannot have a parent")
	}
	if !n.parent.IsZero() {
		return pkgerrors.NewConflictError("node already rolled into a summary")
	}
	if parentID.IsZero() {
		return pkgerrors.NewValidationError("parent id cannot be empty")
	}

	n.parent = parentID
	n.version++

	return nil
}

// ClearParent removes a just-assigned parent reference. Used only to
// compensate a failed rollup commit; a completed rollup never detaches
// its sources.
func (n *MemoryNode) ClearParent() {
	n.parent = valueobjects.NodeID{}
	n.version++
}

// Clone returns a deep copy of the node without pending events.
// Repositories hand clones to callers so that no caller ever holds a
// mutable reference into the store.
func (n *MemoryNode) Clone() *MemoryNode {
	return &MemoryNode{
		id:             n.id,
		owner:          n.owner,
		level:          n.level,
		content:        n.content,
		similarityKey:  append([]float32(nil), n.similarityKey...),
		consent:        n.consent,
		tags:           append([]string(nil), n.tags...),
		importance:     n.importance,
		createdAt:      n.createdAt,
		ttl:            n.ttl,
		accessCount:    n.accessCount,
		lastAccessedAt: n.lastAccessedAt,
		children:       append([]valueobjects.NodeID(nil), n.children...),
		parent:         n.parent,
		version:        n.version,
		events:         []events.DomainEvent{},
	}
}

// GetUncommittedEvents returns all uncommitted domain events
func (n *MemoryNode) GetUncommittedEvents() []events.DomainEvent {
	return n.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (n *MemoryNode) MarkEventsAsCommitted() {
	n.events = []events.DomainEvent{}
}

// addEvent adds a domain event to the uncommitted list
func (n *MemoryNode) addEvent(event events.DomainEvent) {
	n.events = append(n.events, event)
}

// dedupeTags removes duplicates while preserving order
func dedupeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
