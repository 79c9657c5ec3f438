package events

import (
	"time"

	"memgraph/domain/core/valueobjects"
)

// NodeCreated is raised when a new memory node is created, at any level
type NodeCreated struct {
	BaseEvent
	NodeID  valueobjects.NodeID       `json:"node_id"`
	Owner   string                    `json:"owner"`
	Level   valueobjects.MemoryLevel  `json:"level"`
	Consent valueobjects.ConsentLevel `json:"consent"`
}

// NewNodeCreated creates a NodeCreated event
func NewNodeCreated(nodeID valueobjects.NodeID, owner string, level valueobjects.MemoryLevel, consent valueobjects.ConsentLevel, timestamp time.Time) NodeCreated {
	return NodeCreated{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "memory.created",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:  nodeID,
		Owner:   owner,
		Level:   level,
		Consent: consent,
	}
}

// ConsentChanged is raised when a node's consent level is mutated
type ConsentChanged struct {
	BaseEvent
	NodeID     valueobjects.NodeID       `json:"node_id"`
	OldConsent valueobjects.ConsentLevel `json:"old_consent"`
	NewConsent valueobjects.ConsentLevel `json:"new_consent"`
}

// NewConsentChanged creates a ConsentChanged event
func NewConsentChanged(nodeID valueobjects.NodeID, oldConsent, newConsent valueobjects.ConsentLevel, timestamp time.Time) ConsentChanged {
	return ConsentChanged{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "memory.consent_changed",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:     nodeID,
		OldConsent: oldConsent,
		NewConsent: newConsent,
	}
}

// AccessGranted is raised when an owner delegates access to another office
type AccessGranted struct {
	BaseEvent
	GrantID         valueobjects.GrantID `json:"grant_id"`
	NodeID          valueobjects.NodeID  `json:"node_id"`
	GrantingOwner   string               `json:"granting_owner"`
	ReceivingOwner  string               `json:"receiving_owner"`
	CanModify       bool                 `json:"can_modify"`
	GrantExpiresAt  time.Time            `json:"grant_expires_at"`
}

// NewAccessGranted creates an AccessGranted event
func NewAccessGranted(grantID valueobjects.GrantID, nodeID valueobjects.NodeID, grantingOwner, receivingOwner string, canModify bool, expiresAt, timestamp time.Time) AccessGranted {
	return AccessGranted{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "memory.access_granted",
			Timestamp:   timestamp,
			Version:     1,
		},
		GrantID:        grantID,
		NodeID:         nodeID,
		GrantingOwner:  grantingOwner,
		ReceivingOwner: receivingOwner,
		CanModify:      canModify,
		GrantExpiresAt: expiresAt,
	}
}

// AccessRevoked is raised when a grant is revoked before expiry
type AccessRevoked struct {
	BaseEvent
	GrantID valueobjects.GrantID `json:"grant_id"`
	NodeID  valueobjects.NodeID  `json:"node_id"`
}

// NewAccessRevoked creates an AccessRevoked event
func NewAccessRevoked(grantID valueobjects.GrantID, nodeID valueobjects.NodeID, timestamp time.Time) AccessRevoked {
	return AccessRevoked{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "memory.access_revoked",
			Timestamp:   timestamp,
			Version:     1,
		},
		GrantID: grantID,
		NodeID:  nodeID,
	}
}

// NodeRolledUp is raised when source nodes are summarized into a new
// summary node. Sources are never deleted by rollup.
type NodeRolledUp struct {
	BaseEvent
	SummaryID valueobjects.NodeID      `json:"summary_id"`
	Owner     string                   `json:"owner"`
	Level     valueobjects.MemoryLevel `json:"level"`
	SourceIDs []valueobjects.NodeID    `json:"source_ids"`
}

// NewNodeRolledUp creates a NodeRolledUp event
func NewNodeRolledUp(summaryID valueobjects.NodeID, owner string, level valueobjects.MemoryLevel, sourceIDs []valueobjects.NodeID, timestamp time.Time) NodeRolledUp {
	return NodeRolledUp{
		BaseEvent: BaseEvent{
			AggregateID: summaryID.String(),
			EventType:   "memory.rolled_up",
			Timestamp:   timestamp,
			Version:     1,
		},
		SummaryID: summaryID,
		Owner:     owner,
		Level:     level,
		SourceIDs: sourceIDs,
	}
}

// NodeExpired is raised when a node is removed by TTL expiry.
// Expiry is terminal: the node leaves every index and is irrecoverable.
type NodeExpired struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
	Owner  string              `json:"owner"`
}

// NewNodeExpired creates a NodeExpired event
func NewNodeExpired(nodeID valueobjects.NodeID, owner string, timestamp time.Time) NodeExpired {
	return NodeExpired{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "memory.expired",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID: nodeID,
		Owner:  owner,
	}
}
