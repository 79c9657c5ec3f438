package entities

import (
	"time"

	"memgraph/domain/core/valueobjects"
	pkgerrors "memgraph/pkg/errors"
)

// AccessGrant is an explicit, time-bounded permission allowing a
// specific non-owner to read (and optionally modify) a specific node.
// Grants exist independently of the node, are immutable after
// creation, and a grant past its expiry is treated as absent.
type AccessGrant struct {
	id             valueobjects.GrantID
	nodeID         valueobjects.NodeID
	grantingOwner  string
	receivingOwner string
	canModify      bool
	createdAt      time.Time
	expiresAt      time.Time
}

// NewAccessGrant creates a validated grant. Only ownership of the node
// is checked by the consent engine; the entity validates the record
// itself.
func NewAccessGrant(
	nodeID valueobjects.NodeID,
	grantingOwner string,
	receivingOwner string,
	ttl time.Duration,
	canModify bool,
) (*AccessGrant, error) {
	if nodeID.IsZero() {
		return nil, pkgerrors.NewValidationError("node id cannot be empty")
	}
	if grantingOwner == "" {
		return nil, pkgerrors.NewValidationError("granting owner cannot be empty")
	}
	if receivingOwner == "" {
		return nil, pkgerrors.NewValidationError("receiving owner cannot be empty")
	}
	if grantingOwner == receivingOwner {
		return nil, pkgerrors.NewValidationError("cannot grant access to the granting owner")
	}
	if ttl <= 0 {
		return nil, pkgerrors.NewValidationError("grant ttl must be positive")
	}

	now := time.Now()
	return &AccessGrant{
		id:             valueobjects.NewGrantID(),
		nodeID:         nodeID,
		grantingOwner:  grantingOwner,
		receivingOwner: receivingOwner,
		canModify:      canModify,
		createdAt:      now,
		expiresAt:      now.Add(ttl),
	}, nil
}

// ReconstructAccessGrant rebuilds a grant from repository data
func ReconstructAccessGrant(
	id valueobjects.GrantID,
	nodeID valueobjects.NodeID,
	grantingOwner string,
	receivingOwner string,
	canModify bool,
	createdAt time.Time,
	expiresAt time.Time,
) (*AccessGrant, error) {
	if grantingOwner == "" || receivingOwner == "" {
		return nil, pkgerrors.NewValidationError("grant owners cannot be empty")
	}
	return &AccessGrant{
		id:             id,
		nodeID:         nodeID,
		grantingOwner:  grantingOwner,
		receivingOwner: receivingOwner,
		canModify:      canModify,
		createdAt:      createdAt,
		expiresAt:      expiresAt,
	}, nil
}

// ID returns the grant's unique identifier
func (g *AccessGrant) ID() valueobjects.GrantID {
	return g.id
}

// NodeID returns the node the grant applies to
func (g *AccessGrant) NodeID() valueobjects.NodeID {
	return g.nodeID
}

// GrantingOwner returns the office that issued the grant
func (g *AccessGrant) GrantingOwner() string {
	return g.grantingOwner
}

// ReceivingOwner returns the office the grant was issued to
func (g *AccessGrant) ReceivingOwner() string {
	return g.receivingOwner
}

// CanModify reports whether the grant carries modify-rights
func (g *AccessGrant) CanModify() bool {
	return g.canModify
}

// CreatedAt returns when the grant was issued
func (g *AccessGrant) CreatedAt() time.Time {
	return g.createdAt
}

// ExpiresAt returns when the grant becomes inert
func (g *AccessGrant) ExpiresAt() time.Time {
	return g.expiresAt
}

// IsExpired reports whether the grant is inert at the given time
func (g *AccessGrant) IsExpired(now time.Time) bool {
	return now.After(g.expiresAt)
}
