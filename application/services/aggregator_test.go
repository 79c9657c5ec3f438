package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"memgraph/domain/config"
	"memgraph/domain/core/entities"
	"memgraph/domain/core/valueobjects"
	"memgraph/infrastructure/embedding/hash"
	memorypersistence "memgraph/infrastructure/persistence/memory"
	"memgraph/infrastructure/summarize"
	pkgerrors "memgraph/pkg/errors"
)

func testAggregatorConfig() *config.DomainConfig {
	cfg := config.DefaultDomainConfig()
	cfg.AtomicRollupThreshold = 3
	cfg.DailyRollupThreshold = 2
	cfg.WeeklyRollupThreshold = 2
	return cfg
}

type aggregatorFixture struct {
	aggregator *HierarchyAggregator
	nodes      *memorypersistence.NodeRepository
	index      *fakeIndex
	publisher  *capturePublisher
	cfg        *config.DomainConfig
}

func newAggregatorFixture(t *testing.T) *aggregatorFixture {
	t.Helper()
	cfg := testAggregatorConfig()
	nodes := memorypersistence.NewNodeRepository()
	index := newFakeIndex()
	publisher := &capturePublisher{}
	aggregator := NewHierarchyAggregator(
		nodes,
		index,
		hash.NewEmbedder(),
		summarize.NewConcatSummarizer(200),
		publisher,
		cfg,
		zap.NewNop(),
	)
	return &aggregatorFixture{
		aggregator: aggregator,
		nodes:      nodes,
		index:      index,
		publisher:  publisher,
		cfg:        cfg,
	}
}

func (f *aggregatorFixture) addAtomicNodes(t *testing.T, owner string, n int, consent valueobjects.ConsentLevel, importance float64) []*entities.MemoryNode {
	t.Helper()
	out := make([]*entities.MemoryNode, n)
	for i := 0; i < n; i++ {
		content, err := valueobjects.NewMemoryContent(fmt.Sprintf("observation %d", i))
		require.NoError(t, err)
		imp, err := valueobjects.NewImportance(importance)
		require.NoError(t, err)
		node, err := entities.NewMemoryNode(owner, content, consent, 0, imp, nil, f.cfg)
		require.NoError(t, err)
		require.NoError(t, f.nodes.Save(context.Background(), node))
		out[i] = node
	}
	return out
}

func TestCheckRollupTrigger(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()

	triggered, err := f.aggregator.CheckRollupTrigger(ctx, "office-a", valueobjects.LevelAtomic)
	require.NoError(t, err)
	assert.False(t, triggered, "empty store never triggers")

	f.addAtomicNodes(t, "office-a", 2, valueobjects.ConsentPrivate, 0.5)
	triggered, err = f.aggregator.CheckRollupTrigger(ctx, "office-a", valueobjects.LevelAtomic)
	require.NoError(t, err)
	assert.False(t, triggered, "below threshold")

	f.addAtomicNodes(t, "office-a", 1, valueobjects.ConsentPrivate, 0.5)
	triggered, err = f.aggregator.CheckRollupTrigger(ctx, "office-a", valueobjects.LevelAtomic)
	require.NoError(t, err)
	assert.True(t, triggered)

	triggered, err = f.aggregator.CheckRollupTrigger(ctx, "office-a", valueobjects.LevelMonthly)
	require.NoError(t, err)
	assert.False(t, triggered, "monthly is terminal")
}

func TestRollupIsNonDestructive(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()
	sources := f.addAtomicNodes(t, "office-a", 3, valueobjects.ConsentPrivate, 0.5)

	summaryID, err := f.aggregator.Rollup(ctx, "office-a", valueobjects.LevelAtomic)
	require.NoError(t, err)

	summary, err := f.nodes.GetByID(ctx, summaryID)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.LevelDaily, summary.Level())
	assert.Equal(t, "office-a", summary.Owner())
	assert.Len(t, summary.Children(), 3)
	assert.NotEmpty(t, summary.SimilarityKey())
	assert.True(t, f.index.contains(summaryID), "summary must be searchable")

	for _, src := range sources {
		got, err := f.nodes.GetByID(ctx, src.ID())
		require.NoError(t, err, "sources remain retrievable after rollup")

		parentID, ok := got.ParentID()
		require.True(t, ok)
		assert.True(t, parentID.Equals(summaryID))
	}

	assert.Contains(t, f.publisher.eventTypes(), "memory.rolled_up")
}

func TestRollupIdempotence(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()
	f.addAtomicNodes(t, "office-a", 3, valueobjects.ConsentPrivate, 0.5)

	_, err := f.aggregator.Rollup(ctx, "office-a", valueobjects.LevelAtomic)
	require.NoError(t, err)

	// Rolled-up nodes no longer count toward the trigger.
	triggered, err := f.aggregator.CheckRollupTrigger(ctx, "office-a", valueobjects.LevelAtomic)
	require.NoError(t, err)
	assert.False(t, triggered)

	_, err = f.aggregator.Rollup(ctx, "office-a", valueobjects.LevelAtomic)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err), "a second pass has nothing to roll up")
}

func TestRollupBelowThreshold(t *testing.T) {
	f := newAggregatorFixture(t)
	f.addAtomicNodes(t, "office-a", 2, valueobjects.ConsentPrivate, 0.5)

	_, err := f.aggregator.Rollup(context.Background(), "office-a", valueobjects.LevelAtomic)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestRollupMonthlyIsTerminal(t *testing.T) {
	f := newAggregatorFixture(t)

	_, err := f.aggregator.Rollup(context.Background(), "office-a", valueobjects.LevelMonthly)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestSummaryInheritsMostRestrictiveConsentAndMaxImportance(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()

	f.addAtomicNodes(t, "office-a", 1, valueobjects.ConsentPublic, 0.9)
	f.addAtomicNodes(t, "office-a", 1, valueobjects.ConsentRestricted, 0.2)
	f.addAtomicNodes(t, "office-a", 1, valueobjects.ConsentShared, 0.4)

	summaryID, err := f.aggregator.Rollup(ctx, "office-a", valueobjects.LevelAtomic)
	require.NoError(t, err)

	summary, err := f.nodes.GetByID(ctx, summaryID)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.ConsentRestricted, summary.Consent(), "rollup never widens exposure")
	assert.Equal(t, 0.9, summary.Importance().Value())
}

func TestRollupPicksMostRecentSources(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	ids := make([]valueobjects.NodeID, 5)
	for i := 0; i < 5; i++ {
		content, err := valueobjects.NewMemoryContent(fmt.Sprintf("observation %d", i))
		require.NoError(t, err)
		id := valueobjects.NewNodeID()
		node, err := entities.ReconstructMemoryNode(
			id, "office-a", valueobjects.LevelAtomic, content, nil,
			valueobjects.ConsentPrivate, nil, valueobjects.DefaultImportance(),
			base.Add(time.Duration(i)*time.Minute), 24*time.Hour,
			0, base, nil, valueobjects.NodeID{}, 1,
		)
		require.NoError(t, err)
		require.NoError(t, f.nodes.Save(ctx, node))
		ids[i] = id
	}

	summaryID, err := f.aggregator.Rollup(ctx, "office-a", valueobjects.LevelAtomic)
	require.NoError(t, err)

	summary, err := f.nodes.GetByID(ctx, summaryID)
	require.NoError(t, err)

	rolled := make(map[string]bool)
	for _, c := range summary.Children() {
		rolled[c.String()] = true
	}
	assert.True(t, rolled[ids[4].String()])
	assert.True(t, rolled[ids[3].String()])
	assert.True(t, rolled[ids[2].String()])
	assert.False(t, rolled[ids[0].String()], "older nodes wait for the next batch")
}

func TestRollupAbandonedOnSummarizerTimeout(t *testing.T) {
	f := newAggregatorFixture(t)
	f.cfg.SummarizerTimeout = 10 * time.Millisecond
	f.aggregator.summarizer = slowSummarizer{}
	ctx := context.Background()

	f.addAtomicNodes(t, "office-a", 3, valueobjects.ConsentPrivate, 0.5)

	_, err := f.aggregator.Rollup(ctx, "office-a", valueobjects.LevelAtomic)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTimeout(err))

	// Nothing committed: all three sources still un-rolled, no summary.
	all, err := f.nodes.GetByOwner(ctx, "office-a")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	triggered, err := f.aggregator.CheckRollupTrigger(ctx, "office-a", valueobjects.LevelAtomic)
	require.NoError(t, err)
	assert.True(t, triggered, "abandoned batch is retried on the next pass")
}

func TestRollupCancellation(t *testing.T) {
	f := newAggregatorFixture(t)
	f.aggregator.summarizer = slowSummarizer{}
	f.addAtomicNodes(t, "office-a", 3, valueobjects.ConsentPrivate, 0.5)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := f.aggregator.Rollup(ctx, "office-a", valueobjects.LevelAtomic)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	all, err := f.nodes.GetByOwner(context.Background(), "office-a")
	require.NoError(t, err)
	assert.Len(t, all, 3, "cancellation leaves the store untouched")
}

func TestChainedRollupToMonthly(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()

	// Two daily rollups feed one weekly, two weeklies feed one monthly.
	for i := 0; i < 2; i++ {
		f.addAtomicNodes(t, "office-a", 3, valueobjects.ConsentPrivate, 0.5)
		_, err := f.aggregator.Rollup(ctx, "office-a", valueobjects.LevelAtomic)
		require.NoError(t, err)
	}

	weeklyID, err := f.aggregator.Rollup(ctx, "office-a", valueobjects.LevelDaily)
	require.NoError(t, err)

	weekly, err := f.nodes.GetByID(ctx, weeklyID)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.LevelWeekly, weekly.Level())

	for i := 0; i < 2; i++ {
		f.addAtomicNodes(t, "office-a", 3, valueobjects.ConsentPrivate, 0.5)
		_, err := f.aggregator.Rollup(ctx, "office-a", valueobjects.LevelAtomic)
		require.NoError(t, err)
	}
	_, err = f.aggregator.Rollup(ctx, "office-a", valueobjects.LevelDaily)
	require.NoError(t, err)

	monthlyID, err := f.aggregator.Rollup(ctx, "office-a", valueobjects.LevelWeekly)
	require.NoError(t, err)

	monthly, err := f.nodes.GetByID(ctx, monthlyID)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.LevelMonthly, monthly.Level())

	_, ok := monthly.ParentID()
	assert.False(t, ok)
}
