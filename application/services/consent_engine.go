package services

import (
	"context"
	"time"

	"memgraph/application/ports"
	"memgraph/domain/core/entities"
	"memgraph/domain/core/valueobjects"
	pkgerrors "memgraph/pkg/errors"

	"go.uber.org/zap"
)

// ConsentEngine evaluates whether a requesting office may read or
// modify a node. Decisions are pure: every call re-reads the grant
// table instead of caching "currently valid" state, so revocations
// and expiries take effect on the very next access. That re-read is a
// deliberate correctness-over-performance trade-off.
type ConsentEngine struct {
	nodes  ports.NodeRepository
	grants ports.GrantRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewConsentEngine creates a new consent engine
func NewConsentEngine(
	nodes ports.NodeRepository,
	grants ports.GrantRepository,
	logger *zap.Logger,
) *ConsentEngine {
	return &ConsentEngine{
		nodes:  nodes,
		grants: grants,
		logger: logger,
		now:    time.Now,
	}
}

// CanRead reports whether requester may read the node.
//
// The owner always may, regardless of consent level. Public is open
// to everyone. Shared requires an unexpired grant for the requester.
// Restricted additionally requires that the grant was issued by the
// node's current owner. Private is sealed: grants never override it.
func (e *ConsentEngine) CanRead(ctx context.Context, node *entities.MemoryNode, requester string) (bool, error) {
	if requester == node.Owner() {
		return true, nil
	}

	switch node.Consent() {
	case valueobjects.ConsentPublic:
		return true, nil

	case valueobjects.ConsentShared:
		grant, err := e.liveGrantFor(ctx, node.ID(), requester)
		if err != nil {
			return false, err
		}
		return grant != nil, nil

	case valueobjects.ConsentRestricted:
		grant, err := e.liveGrantFor(ctx, node.ID(), requester)
		if err != nil {
			return false, err
		}
		// Re-validated on every call, never cached, so that a
		// revoked or superseded grant stops working immediately.
		return grant != nil && grant.GrantingOwner() == node.Owner(), nil

	default: // private
		return false, nil
	}
}

// CanModify reports whether requester may mutate the node's consent
// level. Only the owner, or the holder of an unexpired grant with
// modify-rights, may do so.
func (e *ConsentEngine) CanModify(ctx context.Context, node *entities.MemoryNode, requester string) (bool, error) {
	if requester == node.Owner() {
		return true, nil
	}

	grants, err := e.grants.GetByNode(ctx, node.ID())
	if err != nil {
		return false, err
	}

	now := e.now()
	for _, g := range grants {
		if g.ReceivingOwner() == requester && g.CanModify() && !g.IsExpired(now) {
			return true, nil
		}
	}
	return false, nil
}

// Grant issues a time-bounded access exception for a node. Only the
// node's owner may delegate access; grants are not transitive.
func (e *ConsentEngine) Grant(
	ctx context.Context,
	nodeID valueobjects.NodeID,
	grantingOwner string,
	receivingOwner string,
	ttl time.Duration,
	canModify bool,
) (*entities.AccessGrant, error) {
	node, err := e.nodes.GetByID(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	if node.Owner() != grantingOwner {
		return nil, pkgerrors.NewForbiddenError("only the node owner may grant access")
	}

	grant, err := entities.NewAccessGrant(nodeID, grantingOwner, receivingOwner, ttl, canModify)
	if err != nil {
		return nil, err
	}

	if err := e.grants.Save(ctx, grant); err != nil {
		return nil, err
	}

	e.logger.Debug("access granted",
		zap.String("nodeID", nodeID.String()),
		zap.String("grantingOwner", grantingOwner),
		zap.String("receivingOwner", receivingOwner),
		zap.Bool("canModify", canModify),
	)

	return grant, nil
}

// Revoke removes a grant before its expiry. Only the original
// granting owner may revoke early; otherwise grants self-expire.
func (e *ConsentEngine) Revoke(ctx context.Context, grantID valueobjects.GrantID, requester string) (*entities.AccessGrant, error) {
	grant, err := e.grants.GetByID(ctx, grantID)
	if err != nil {
		return nil, err
	}

	if grant.GrantingOwner() != requester {
		return nil, pkgerrors.NewForbiddenError("only the granting owner may revoke a grant")
	}

	if err := e.grants.Delete(ctx, grantID); err != nil {
		return nil, err
	}

	return grant, nil
}

// liveGrantFor finds an unexpired grant issued to requester for the
// node, if any
func (e *ConsentEngine) liveGrantFor(ctx context.Context, nodeID valueobjects.NodeID, requester string) (*entities.AccessGrant, error) {
	grants, err := e.grants.GetByNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	for _, g := range grants {
		if g.ReceivingOwner() == requester && !g.IsExpired(now) {
			return g, nil
		}
	}
	return nil, nil
}
