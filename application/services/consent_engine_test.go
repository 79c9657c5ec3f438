package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"memgraph/domain/core/entities"
	"memgraph/domain/core/valueobjects"
	memorypersistence "memgraph/infrastructure/persistence/memory"
	pkgerrors "memgraph/pkg/errors"
)

func newTestConsentEngine(t *testing.T) (*ConsentEngine, *memorypersistence.NodeRepository, *memorypersistence.GrantRepository) {
	t.Helper()
	nodes := memorypersistence.NewNodeRepository()
	grants := memorypersistence.NewGrantRepository()
	return NewConsentEngine(nodes, grants, zap.NewNop()), nodes, grants
}

func saveNode(t *testing.T, nodes *memorypersistence.NodeRepository, owner string, consent valueobjects.ConsentLevel) *entities.MemoryNode {
	t.Helper()
	content, err := valueobjects.NewMemoryContent("observation")
	require.NoError(t, err)
	node, err := entities.NewMemoryNode(owner, content, consent, 0, valueobjects.DefaultImportance(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, nodes.Save(context.Background(), node))
	return node
}

func TestCanReadOwnerAlwaysAllowed(t *testing.T) {
	engine, nodes, _ := newTestConsentEngine(t)
	ctx := context.Background()

	for _, consent := range []valueobjects.ConsentLevel{
		valueobjects.ConsentPrivate,
		valueobjects.ConsentRestricted,
		valueobjects.ConsentShared,
		valueobjects.ConsentPublic,
	} {
		node := saveNode(t, nodes, "office-a", consent)
		allowed, err := engine.CanRead(ctx, node, "office-a")
		require.NoError(t, err)
		assert.True(t, allowed, "owner must read %s nodes", consent)
	}
}

func TestCanReadPublic(t *testing.T) {
	engine, nodes, _ := newTestConsentEngine(t)
	node := saveNode(t, nodes, "office-a", valueobjects.ConsentPublic)

	allowed, err := engine.CanRead(context.Background(), node, "office-b")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCanReadPrivateDeniesEveryoneElse(t *testing.T) {
	engine, nodes, _ := newTestConsentEngine(t)
	ctx := context.Background()
	node := saveNode(t, nodes, "office-a", valueobjects.ConsentPrivate)

	// Even an explicit grant cannot open a private node.
	_, err := engine.Grant(ctx, node.ID(), "office-a", "office-b", time.Hour, false)
	require.NoError(t, err)

	allowed, err := engine.CanRead(ctx, node, "office-b")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCanReadSharedRequiresLiveGrant(t *testing.T) {
	engine, nodes, _ := newTestConsentEngine(t)
	ctx := context.Background()
	node := saveNode(t, nodes, "office-a", valueobjects.ConsentShared)

	allowed, err := engine.CanRead(ctx, node, "office-b")
	require.NoError(t, err)
	assert.False(t, allowed, "no grant yet")

	_, err = engine.Grant(ctx, node.ID(), "office-a", "office-b", time.Hour, false)
	require.NoError(t, err)

	allowed, err = engine.CanRead(ctx, node, "office-b")
	require.NoError(t, err)
	assert.True(t, allowed)

	// Grants are not transitive.
	allowed, err = engine.CanRead(ctx, node, "office-c")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCanReadExpiredGrantDenies(t *testing.T) {
	engine, nodes, _ := newTestConsentEngine(t)
	ctx := context.Background()
	node := saveNode(t, nodes, "office-a", valueobjects.ConsentShared)

	_, err := engine.Grant(ctx, node.ID(), "office-a", "office-b", time.Nanosecond, false)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	allowed, err := engine.CanRead(ctx, node, "office-b")
	require.NoError(t, err)
	assert.False(t, allowed, "expired grants are inert even before cleanup")
}

func TestGrantOnlyByOwner(t *testing.T) {
	engine, nodes, _ := newTestConsentEngine(t)
	ctx := context.Background()
	node := saveNode(t, nodes, "office-a", valueobjects.ConsentShared)

	_, err := engine.Grant(ctx, node.ID(), "office-b", "office-c", time.Hour, false)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsForbidden(err))

	_, err = engine.Grant(ctx, valueobjects.NewNodeID(), "office-a", "office-b", time.Hour, false)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestRevoke(t *testing.T) {
	engine, nodes, grants := newTestConsentEngine(t)
	ctx := context.Background()
	node := saveNode(t, nodes, "office-a", valueobjects.ConsentShared)

	grant, err := engine.Grant(ctx, node.ID(), "office-a", "office-b", time.Hour, false)
	require.NoError(t, err)

	t.Run("only the granting owner may revoke", func(t *testing.T) {
		_, err := engine.Revoke(ctx, grant.ID(), "office-b")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsForbidden(err))
	})

	t.Run("revocation takes effect immediately", func(t *testing.T) {
		_, err := engine.Revoke(ctx, grant.ID(), "office-a")
		require.NoError(t, err)

		allowed, err := engine.CanRead(ctx, node, "office-b")
		require.NoError(t, err)
		assert.False(t, allowed)

		_, err = grants.GetByID(ctx, grant.ID())
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestCanModify(t *testing.T) {
	engine, nodes, _ := newTestConsentEngine(t)
	ctx := context.Background()
	node := saveNode(t, nodes, "office-a", valueobjects.ConsentShared)

	allowed, err := engine.CanModify(ctx, node, "office-a")
	require.NoError(t, err)
	assert.True(t, allowed, "owner may always modify")

	allowed, err = engine.CanModify(ctx, node, "office-b")
	require.NoError(t, err)
	assert.False(t, allowed)

	_, err = engine.Grant(ctx, node.ID(), "office-a", "office-b", time.Hour, false)
	require.NoError(t, err)

	allowed, err = engine.CanModify(ctx, node, "office-b")
	require.NoError(t, err)
	assert.False(t, allowed, "read-only grant does not allow modification")

	_, err = engine.Grant(ctx, node.ID(), "office-a", "office-c", time.Hour, true)
	require.NoError(t, err)

	allowed, err = engine.CanModify(ctx, node, "office-c")
	require.NoError(t, err)
	assert.True(t, allowed)
}
