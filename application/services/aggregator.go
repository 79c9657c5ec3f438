package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"memgraph/application/ports"
	"memgraph/application/sagas"
	"memgraph/domain/config"
	"memgraph/domain/core/entities"
	"memgraph/domain/core/valueobjects"
	"memgraph/domain/events"
	pkgerrors "memgraph/pkg/errors"

	"go.uber.org/zap"
)

// maxSummaryInputChars bounds how much of each source node feeds the
// summarizer. Sources stay fully retrievable on their own, so the
// bound costs nothing but summary fidelity.
const maxSummaryInputChars = 2000

// HierarchyAggregator rolls batches of fine-grained nodes into summary
// nodes at the next coarser time granularity (atomic → daily → weekly
// → monthly). Rollup is non-destructive: source nodes keep living
// until their own TTL elapses, preserving raw-data auditability.
type HierarchyAggregator struct {
	nodes      ports.NodeRepository
	index      ports.SimilarityIndex
	embedder   ports.Embedder
	summarizer ports.Summarizer
	publisher  ports.EventPublisher
	cfg        *config.DomainConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewHierarchyAggregator creates a new aggregator
func NewHierarchyAggregator(
	nodes ports.NodeRepository,
	index ports.SimilarityIndex,
	embedder ports.Embedder,
	summarizer ports.Summarizer,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *HierarchyAggregator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &HierarchyAggregator{
		nodes:      nodes,
		index:      index,
		embedder:   embedder,
		summarizer: summarizer,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// CheckRollupTrigger reports whether the count of un-rolled-up nodes
// at level for owner crossed the configured threshold. The count is
// recomputed on every call rather than tracked in a flag that could
// drift, which is what makes repeated maintenance passes idempotent.
func (a *HierarchyAggregator) CheckRollupTrigger(ctx context.Context, owner string, level valueobjects.MemoryLevel) (bool, error) {
	threshold, ok := a.cfg.RollupThreshold(level.String())
	if !ok {
		return false, nil // monthly is terminal
	}

	count, err := a.nodes.CountUnrolled(ctx, owner, level)
	if err != nil {
		return false, err
	}

	return count >= threshold, nil
}

// Rollup summarizes the most recent batch of un-rolled-up nodes at
// level into a single new node at the next coarser level. The summary
// node and all parent back-links commit together or not at all; on
// summarizer timeout or cancellation the sources remain un-rolled and
// are retried on the next maintenance pass.
func (a *HierarchyAggregator) Rollup(ctx context.Context, owner string, level valueobjects.MemoryLevel) (valueobjects.NodeID, error) {
	if owner == "" {
		return valueobjects.NodeID{}, pkgerrors.NewValidationError("owner cannot be empty")
	}
	next, ok := level.Next()
	if !ok {
		return valueobjects.NodeID{}, pkgerrors.NewValidationError("monthly nodes cannot be rolled up")
	}
	threshold, _ := a.cfg.RollupThreshold(level.String())

	sources, err := a.selectSources(ctx, owner, level, threshold)
	if err != nil {
		return valueobjects.NodeID{}, err
	}

	summaryText, err := a.summarize(ctx, sources)
	if err != nil {
		return valueobjects.NodeID{}, err
	}

	summary, err := a.buildSummaryNode(owner, next, summaryText, sources)
	if err != nil {
		return valueobjects.NodeID{}, err
	}

	key, err := a.embedder.Embed(ctx, summaryText)
	if err != nil {
		return valueobjects.NodeID{}, pkgerrors.Wrap(err, "embedding summary content")
	}
	if err := summary.SetSimilarityKey(key); err != nil {
		return valueobjects.NodeID{}, err
	}

	if err := a.commit(ctx, summary, sources); err != nil {
		return valueobjects.NodeID{}, err
	}

	a.publishRollupEvents(ctx, summary, sources, owner, next)

	a.logger.Info("rollup committed",
		zap.String("owner", owner),
		zap.String("sourceLevel", level.String()),
		zap.String("summaryLevel", next.String()),
		zap.String("summaryID", summary.ID().String()),
		zap.Int("sources", len(sources)),
	)

	return summary.ID(), nil
}

// selectSources picks the most recent `threshold` un-rolled-up live
// nodes, importance breaking ties
func (a *HierarchyAggregator) selectSources(ctx context.Context, owner string, level valueobjects.MemoryLevel, threshold int) ([]*entities.MemoryNode, error) {
	unrolled, err := a.nodes.GetUnrolled(ctx, owner, level)
	if err != nil {
		return nil, err
	}

	now := a.now()
	live := unrolled[:0]
	for _, n := range unrolled {
		if !n.IsExpired(now) {
			live = append(live, n)
		}
	}

	if len(live) < threshold {
		return nil, pkgerrors.NewConflictError(
			fmt.Sprintf("rollup threshold not reached: %d of %d", len(live), threshold))
	}

	sort.Slice(live, func(i, j int) bool {
		if !live[i].CreatedAt().Equal(live[j].CreatedAt()) {
			return live[i].CreatedAt().After(live[j].CreatedAt())
		}
		return live[i].Importance().GreaterThan(live[j].Importance())
	})

	return live[:threshold], nil
}

// summarize runs the injected summarizer under the configured
// deadline. A timeout abandons the rollup entirely.
func (a *HierarchyAggregator) summarize(ctx context.Context, sources []*entities.MemoryNode) (string, error) {
	inputs := make([]string, len(sources))
	for i, src := range sources {
		inputs[i] = src.Content().Summary(maxSummaryInputChars)
	}

	sumCtx, cancel := context.WithTimeout(ctx, a.cfg.SummarizerTimeout)
	defer cancel()

	text, err := a.summarizer.Summarize(sumCtx, inputs)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", pkgerrors.NewTimeoutError("rollup summarization").WithCause(err)
		}
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", pkgerrors.Wrap(err, "summarizer failed")
	}

	return text, nil
}

func (a *HierarchyAggregator) buildSummaryNode(
	owner string,
	level valueobjects.MemoryLevel,
	summaryText string,
	sources []*entities.MemoryNode,
) (*entities.MemoryNode, error) {
	content, err := valueobjects.NewMemoryContentWithConfig(summaryText, a.cfg)
	if err != nil {
		return nil, err
	}

	// A summary takes the most restrictive consent among its sources
	// so that rollup can never widen exposure, and the highest
	// importance so a summary ranks at least as well as its best
	// source.
	consents := make([]valueobjects.ConsentLevel, len(sources))
	importance := sources[0].Importance()
	children := make([]valueobjects.NodeID, len(sources))
	for i, src := range sources {
		consents[i] = src.Consent()
		children[i] = src.ID()
		if src.Importance().GreaterThan(importance) {
			importance = src.Importance()
		}
	}

	return entities.NewSummaryNode(
		owner,
		level,
		content,
		valueobjects.MostRestrictiveConsent(consents...),
		a.cfg.TTLForLevel(level.String()),
		importance,
		children,
		a.cfg,
	)
}

// commit persists the summary node and every parent back-link as one
// all-or-nothing unit, compensating on any partial failure
func (a *HierarchyAggregator) commit(ctx context.Context, summary *entities.MemoryNode, sources []*entities.MemoryNode) error {
	saga := sagas.New("rollup-commit", a.logger)

	saga.AddStep(sagas.Step{
		Name: "persist-summary",
		Execute: func(ctx context.Context) error {
			return a.nodes.Save(ctx, summary)
		},
		Compensate: func(ctx context.Context) error {
			return a.nodes.Delete(ctx, summary.ID())
		},
	})

	for _, src := range sources {
		src := src
		saga.AddStep(sagas.Step{
			Name: "link-source-" + src.ID().String(),
			Execute: func(ctx context.Context) error {
				if err := src.AssignParent(summary.ID()); err != nil {
					return err
				}
				return a.nodes.Save(ctx, src)
			},
			Compensate: func(ctx context.Context) error {
				src.ClearParent()
				return a.nodes.Save(ctx, src)
			},
		})
	}

	saga.AddStep(sagas.Step{
		Name: "index-summary",
		Execute: func(ctx context.Context) error {
			return a.index.Index(ctx, summary.ID(), summary.SimilarityKey(), summary.Importance().Value(), summary.CreatedAt())
		},
		Compensate: func(ctx context.Context) error {
			return a.index.Remove(ctx, summary.ID())
		},
	})

	return saga.Execute(ctx)
}

func (a *HierarchyAggregator) publishRollupEvents(ctx context.Context, summary *entities.MemoryNode, sources []*entities.MemoryNode, owner string, level valueobjects.MemoryLevel) {
	evs := summary.GetUncommittedEvents()
	summary.MarkEventsAsCommitted()

	sourceIDs := make([]valueobjects.NodeID, len(sources))
	for i, src := range sources {
		sourceIDs[i] = src.ID()
	}
	evs = append(evs, events.NewNodeRolledUp(summary.ID(), owner, level, sourceIDs, a.now()))

	if err := a.publisher.PublishBatch(ctx, evs); err != nil {
		a.logger.Warn("failed to publish rollup events", zap.Error(err))
	}
}
