package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memgraph/domain/core/entities"
	"memgraph/domain/core/valueobjects"
	pkgerrors "memgraph/pkg/errors"
)

func newNode(t *testing.T, owner, text string, ttl time.Duration) *entities.MemoryNode {
	t.Helper()
	content, err := valueobjects.NewMemoryContent(text)
	require.NoError(t, err)
	node, err := entities.NewMemoryNode(owner, content, valueobjects.ConsentPrivate, ttl, valueobjects.DefaultImportance(), nil, nil)
	require.NoError(t, err)
	return node
}

func TestNodeRepositorySaveAndGet(t *testing.T) {
	repo := NewNodeRepository()
	ctx := context.Background()

	node := newNode(t, "office-a", "first fact", 0)
	require.NoError(t, repo.Save(ctx, node))

	got, err := repo.GetByID(ctx, node.ID())
	require.NoError(t, err)
	assert.Equal(t, node.ID(), got.ID())
	assert.Equal(t, "first fact", got.Content().Text())

	_, err = repo.GetByID(ctx, valueobjects.NewNodeID())
	assert.True(t, pkgerrors.IsNotFound(err))

	err = repo.Save(ctx, nil)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestNodeRepositoryClonesOnReadAndWrite(t *testing.T) {
	repo := NewNodeRepository()
	ctx := context.Background()

	node := newNode(t, "office-a", "mutable fact", 0)
	require.NoError(t, repo.Save(ctx, node))

	// Mutating the caller's copy after Save must not leak into the store.
	require.NoError(t, node.ChangeConsent(valueobjects.ConsentPublic))

	stored, err := repo.GetByID(ctx, node.ID())
	require.NoError(t, err)
	assert.Equal(t, valueobjects.ConsentPrivate, stored.Consent())

	// Nor does mutating a read result.
	require.NoError(t, stored.ChangeConsent(valueobjects.ConsentShared))
	again, err := repo.GetByID(ctx, node.ID())
	require.NoError(t, err)
	assert.Equal(t, valueobjects.ConsentPrivate, again.Consent())
}

func TestNodeRepositoryGetByOwnerSortedByCreation(t *testing.T) {
	repo := NewNodeRepository()
	ctx := context.Background()

	var ids []valueobjects.NodeID
	for _, text := range []string{"first", "second", "third"} {
		node := newNode(t, "office-a", text, 0)
		require.NoError(t, repo.Save(ctx, node))
		ids = append(ids, node.ID())
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, repo.Save(ctx, newNode(t, "office-b", "other office", 0)))

	nodes, err := repo.GetByOwner(ctx, "office-a")
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	for i, node := range nodes {
		assert.True(t, node.ID().Equals(ids[i]))
	}

	nodes, err = repo.GetByOwner(ctx, "office-z")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestNodeRepositoryGetUnrolled(t *testing.T) {
	repo := NewNodeRepository()
	ctx := context.Background()

	free := newNode(t, "office-a", "free atom", 0)
	rolled := newNode(t, "office-a", "rolled atom", 0)
	parent := valueobjects.NewNodeID()
	require.NoError(t, rolled.AssignParent(parent))

	require.NoError(t, repo.Save(ctx, free))
	require.NoError(t, repo.Save(ctx, rolled))

	unrolled, err := repo.GetUnrolled(ctx, "office-a", valueobjects.LevelAtomic)
	require.NoError(t, err)
	require.Len(t, unrolled, 1)
	assert.True(t, unrolled[0].ID().Equals(free.ID()))

	count, err := repo.CountUnrolled(ctx, "office-a", valueobjects.LevelAtomic)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.CountUnrolled(ctx, "office-a", valueobjects.LevelDaily)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNodeRepositoryTouch(t *testing.T) {
	repo := NewNodeRepository()
	ctx := context.Background()

	node := newNode(t, "office-a", "touched fact", 0)
	require.NoError(t, repo.Save(ctx, node))

	now := time.Now().UTC()
	require.NoError(t, repo.Touch(ctx, node.ID(), now))
	require.NoError(t, repo.Touch(ctx, node.ID(), now.Add(time.Second)))

	got, err := repo.GetByID(ctx, node.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.AccessCount())

	err = repo.Touch(ctx, valueobjects.NewNodeID(), now)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestNodeRepositoryDeleteExpired(t *testing.T) {
	repo := NewNodeRepository()
	ctx := context.Background()

	keep := newNode(t, "office-a", "durable fact", time.Hour)
	gone := newNode(t, "office-b", "fleeting fact", time.Nanosecond)
	require.NoError(t, repo.Save(ctx, keep))
	require.NoError(t, repo.Save(ctx, gone))

	removed, err := repo.DeleteExpired(ctx, time.Now().Add(time.Millisecond))
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.True(t, removed[0].ID().Equals(gone.ID()))

	_, err = repo.GetByID(ctx, gone.ID())
	assert.True(t, pkgerrors.IsNotFound(err))

	// office-b had only the expired node, so it drops off the owner list.
	owners, err := repo.Owners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"office-a"}, owners)
}

func TestNodeRepositoryConcurrentTouchAndRead(t *testing.T) {
	repo := NewNodeRepository()
	ctx := context.Background()

	const nNodes = 8
	const touchesPerNode = 50

	nodes := make([]*entities.MemoryNode, nNodes)
	for i := range nodes {
		nodes[i] = newNode(t, "office-a", fmt.Sprintf("fact %d", i), 0)
		require.NoError(t, repo.Save(ctx, nodes[i]))
	}

	var wg sync.WaitGroup
	for _, node := range nodes {
		id := node.ID()
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < touchesPerNode; i++ {
				if err := repo.Touch(ctx, id, time.Now()); err != nil {
					t.Error(err)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < touchesPerNode; i++ {
				if _, err := repo.GetByID(ctx, id); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()

	for _, node := range nodes {
		got, err := repo.GetByID(ctx, node.ID())
		require.NoError(t, err)
		assert.Equal(t, int64(touchesPerNode), got.AccessCount())
	}
}

func TestNodeRepositoryConcurrentSaveDelete(t *testing.T) {
	repo := NewNodeRepository()
	ctx := context.Background()

	node := newNode(t, "office-a", "contested fact", 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Save(ctx, node); err != nil {
				t.Error(err)
			}
			err := repo.Delete(ctx, node.ID())
			if err != nil && !pkgerrors.IsNotFound(err) {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	// Whatever interleaving won, the owner index agrees with the map.
	owners, err := repo.Owners(ctx)
	require.NoError(t, err)
	if _, getErr := repo.GetByID(ctx, node.ID()); getErr == nil {
		assert.Equal(t, []string{"office-a"}, owners)
	} else {
		assert.True(t, pkgerrors.IsNotFound(getErr))
		assert.Empty(t, owners)
	}
}

func TestGrantRepositoryLifecycle(t *testing.T) {
	repo := NewGrantRepository()
	ctx := context.Background()
	nodeID := valueobjects.NewNodeID()

	grant, err := entities.NewAccessGrant(nodeID, "office-a", "office-b", time.Hour, false)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, grant))

	got, err := repo.GetByID(ctx, grant.ID())
	require.NoError(t, err)
	assert.Equal(t, "office-b", got.ReceivingOwner())

	byNode, err := repo.GetByNode(ctx, nodeID)
	require.NoError(t, err)
	assert.Len(t, byNode, 1)

	require.NoError(t, repo.Delete(ctx, grant.ID()))
	_, err = repo.GetByID(ctx, grant.ID())
	assert.True(t, pkgerrors.IsNotFound(err))

	byNode, err = repo.GetByNode(ctx, nodeID)
	require.NoError(t, err)
	assert.Empty(t, byNode)
}

func TestGrantRepositoryDeleteExpired(t *testing.T) {
	repo := NewGrantRepository()
	ctx := context.Background()

	live, err := entities.NewAccessGrant(valueobjects.NewNodeID(), "office-a", "office-b", time.Hour, false)
	require.NoError(t, err)
	dead, err := entities.NewAccessGrant(valueobjects.NewNodeID(), "office-a", "office-c", time.Nanosecond, false)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, live))
	require.NoError(t, repo.Save(ctx, dead))

	count, err := repo.DeleteExpired(ctx, time.Now().Add(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = repo.GetByID(ctx, live.ID())
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, dead.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestMaintenanceLock(t *testing.T) {
	lock := NewMaintenanceLock()
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "rollup/office-a/atomic", "pass-1", time.Minute)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, "rollup/office-a/atomic", "pass-2", time.Minute)
	assert.True(t, pkgerrors.IsConflict(err))

	// A different tuple is independent.
	other, err := lock.Acquire(ctx, "rollup/office-b/atomic", "pass-2", time.Minute)
	require.NoError(t, err)
	other()

	release()
	release2, err := lock.Acquire(ctx, "rollup/office-a/atomic", "pass-2", time.Minute)
	require.NoError(t, err)
	release2()
}

func TestMaintenanceLockExpiresStaleHolders(t *testing.T) {
	lock := NewMaintenanceLock()
	ctx := context.Background()

	current := time.Now()
	lock.now = func() time.Time { return current }

	_, err := lock.Acquire(ctx, "rollup/office-a/atomic", "crashed-pass", time.Minute)
	require.NoError(t, err)

	// Still inside the TTL: held.
	current = current.Add(30 * time.Second)
	_, err = lock.Acquire(ctx, "rollup/office-a/atomic", "next-pass", time.Minute)
	assert.True(t, pkgerrors.IsConflict(err))

	// Past the TTL the lock is claimable without an explicit release.
	current = current.Add(31 * time.Second)
	release, err := lock.Acquire(ctx, "rollup/office-a/atomic", "next-pass", time.Minute)
	require.NoError(t, err)
	release()
}

func TestMaintenanceLockValidation(t *testing.T) {
	lock := NewMaintenanceLock()
	ctx := context.Background()

	_, err := lock.Acquire(ctx, "", "holder", time.Minute)
	assert.True(t, pkgerrors.IsValidation(err))
	_, err = lock.Acquire(ctx, "key", "", time.Minute)
	assert.True(t, pkgerrors.IsValidation(err))
	_, err = lock.Acquire(ctx, "key", "holder", 0)
	assert.True(t, pkgerrors.IsValidation(err))
}
