package services

import (
	"fmt"
	"time"

	"context"

	"memgraph/application/ports"
	"memgraph/domain/config"
	"memgraph/domain/core/entities"
	"memgraph/domain/core/valueobjects"
	"memgraph/domain/events"
	pkgerrors "memgraph/pkg/errors"

	"go.uber.org/zap"
)

// SystemOwner is the reserved owner identity for graph-generated
// nodes such as cross-office links
const SystemOwner = "system"

// nodeCacheTTL bounds staleness of the hot-read cache. Consent is
// re-evaluated against live grants on every read, and consent-level
// changes invalidate the local entry. The cache is per process: with
// several replicas over a shared store, another replica may serve a
// node's previous consent level for up to this long after a change.
const nodeCacheTTL = 30 * time.Second

// CreateMemoryRequest carries the inputs for creating an atomic node
type CreateMemoryRequest struct {
	Owner      string
	Content    string
	Consent    valueobjects.ConsentLevel
	TTL        time.Duration // 0 means the level default
	Importance *float64      // nil means the default midpoint
	Tags       []string
}

// SearchRequest carries the inputs for similarity search
type SearchRequest struct {
	Query     string
	Requester string
	Limit     int
	MinScore  float64
	Tags      []string // when set, results must carry at least one
}

// SearchResult is a consent-filtered similarity match
type SearchResult struct {
	Node  *entities.MemoryNode
	Score float64
}

// GraphStats summarizes the live graph
type GraphStats struct {
	TotalNodes       int
	NodesByOwner     map[string]int
	NodesByLevel     map[valueobjects.MemoryLevel]int
	TotalAccessCount int64
	AvgAccessCount   float64
}

// MaintenanceReport summarizes one maintenance pass
type MaintenanceReport struct {
	ExpiredNodes   int
	ExpiredGrants  int
	Rollups        int
	RollupTimeouts int
	SkippedLocked  int
}

// MemoryGraph is the single public entry point to the graph. Every
// external collaborator (office agents, the evolution controller, the
// maintenance scheduler) talks only to this facade, so consent
// enforcement lives in exactly one place. The instance is constructed
// once at process start and passed to collaborators by reference;
// there is no ambient global.
type MemoryGraph struct {
	nodes      ports.NodeRepository
	grants     ports.GrantRepository
	consent    *ConsentEngine
	aggregator *HierarchyAggregator
	index      ports.SimilarityIndex
	embedder   ports.Embedder
	lock       ports.MaintenanceLock
	cache      ports.Cache
	publisher  ports.EventPublisher
	cfg        *config.DomainConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewMemoryGraph creates the facade
func NewMemoryGraph(
	nodes ports.NodeRepository,
	grants ports.GrantRepository,
	consent *ConsentEngine,
	aggregator *HierarchyAggregator,
	index ports.SimilarityIndex,
	embedder ports.Embedder,
	lock ports.MaintenanceLock,
	cache ports.Cache,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *MemoryGraph {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &MemoryGraph{
		nodes:      nodes,
		grants:     grants,
		consent:    consent,
		aggregator: aggregator,
		index:      index,
		embedder:   embedder,
		lock:       lock,
		cache:      cache,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateMemory allocates a new atomic-level node owned by req.Owner,
// derives its similarity key from the content, and indexes it.
func (g *MemoryGraph) CreateMemory(ctx context.Context, req CreateMemoryRequest) (valueobjects.NodeID, error) {
	if req.Owner == "" {
		return valueobjects.NodeID{}, pkgerrors.NewValidationError("owner cannot be empty")
	}
	if req.TTL < 0 {
		return valueobjects.NodeID{}, pkgerrors.NewValidationError("ttl cannot be negative")
	}

	content, err := valueobjects.NewMemoryContentWithConfig(req.Content, g.cfg)
	if err != nil {
		return valueobjects.NodeID{}, err
	}

	importance := valueobjects.DefaultImportance()
	if req.Importance != nil {
		importance, err = valueobjects.NewImportance(*req.Importance)
		if err != nil {
			return valueobjects.NodeID{}, err
		}
	}

	node, err := entities.NewMemoryNode(req.Owner, content, req.Consent, req.TTL, importance, req.Tags, g.cfg)
	if err != nil {
		return valueobjects.NodeID{}, err
	}

	key, err := g.embedder.Embed(ctx, content.Text())
	if err != nil {
		return valueobjects.NodeID{}, pkgerrors.Wrap(err, "embedding content")
	}
	if err := node.SetSimilarityKey(key); err != nil {
		return valueobjects.NodeID{}, err
	}

	if err := g.nodes.Save(ctx, node); err != nil {
		return valueobjects.NodeID{}, err
	}

	// Index visibility is eventual: a failed index write leaves the
	// node retrievable by id and is repaired on the next save sweep,
	// so it does not fail the create.
	if err := g.index.Index(ctx, node.ID(), key, importance.Value(), node.CreatedAt()); err != nil {
		g.logger.Warn("failed to index new node",
			zap.String("nodeID", node.ID().String()),
			zap.Error(err),
		)
	}

	g.publishEvents(ctx, node.GetUncommittedEvents())
	node.MarkEventsAsCommitted()

	return node.ID(), nil
}

// ReadMemory fetches a node by id on behalf of requester. Expired
// nodes are lazily evicted and report as NOT_FOUND; consent denials
// report as FORBIDDEN. The two are distinguished on this path because
// the caller already supplied the id, so distinguishing them leaks
// nothing the caller does not possess.
func (g *MemoryGraph) ReadMemory(ctx context.Context, id valueobjects.NodeID, requester string) (*entities.MemoryNode, error) {
	node, err := g.getNode(ctx, id)
	if err != nil {
		return nil, err
	}

	if node.IsExpired(g.now()) {
		g.expireNode(ctx, node)
		return nil, pkgerrors.NewNotFoundError("memory node")
	}

	allowed, err := g.consent.CanRead(ctx, node, requester)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, pkgerrors.NewForbiddenError("requester lacks consent to read this node")
	}

	if err := g.nodes.Touch(ctx, id, g.now()); err != nil {
		g.logger.Warn("failed to record access", zap.String("nodeID", id.String()), zap.Error(err))
	}

	return node, nil
}

// SearchMemories performs a consent-filtered similarity search.
// Forbidden nodes are silently absent so that search can never leak
// the existence of private data. Results are pass-through: filtering
// may return fewer than Limit hits and the facade does not top up.
func (g *MemoryGraph) SearchMemories(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if req.Query == "" {
		return nil, pkgerrors.NewValidationError("query cannot be empty")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > g.cfg.MaxSearchResults {
		limit = g.cfg.MaxSearchResults
	}

	key, err := g.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "embedding query")
	}

	hits, err := g.index.Search(ctx, key, limit, req.MinScore)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		node, err := g.nodes.GetByID(ctx, hit.NodeID)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				// Stale index entry for a deleted node.
				g.removeFromIndex(ctx, hit.NodeID)
				continue
			}
			return nil, err
		}

		if node.IsExpired(g.now()) {
			g.expireNode(ctx, node)
			continue
		}

		allowed, err := g.consent.CanRead(ctx, node, req.Requester)
		if err != nil {
			return nil, err
		}
		if !allowed {
			continue
		}

		if len(req.Tags) > 0 && !hasAnyTag(node, req.Tags) {
			continue
		}

		if err := g.nodes.Touch(ctx, node.ID(), g.now()); err != nil {
			g.logger.Warn("failed to record access", zap.String("nodeID", node.ID().String()), zap.Error(err))
		}

		results = append(results, SearchResult{Node: node, Score: hit.Score})
	}

	return results, nil
}

// GrantAccess issues a time-bounded grant after verifying the node
// exists and is live
func (g *MemoryGraph) GrantAccess(
	ctx context.Context,
	nodeID valueobjects.NodeID,
	grantingOwner string,
	receivingOwner string,
	ttl time.Duration,
	canModify bool,
) (valueobjects.GrantID, error) {
	node, err := g.getNode(ctx, nodeID)
	if err != nil {
		return valueobjects.GrantID{}, err
	}
	if node.IsExpired(g.now()) {
		g.expireNode(ctx, node)
		return valueobjects.GrantID{}, pkgerrors.NewNotFoundError("memory node")
	}

	grant, err := g.consent.Grant(ctx, nodeID, grantingOwner, receivingOwner, ttl, canModify)
	if err != nil {
		return valueobjects.GrantID{}, err
	}

	g.publishEvents(ctx, []events.DomainEvent{
		events.NewAccessGranted(grant.ID(), nodeID, grantingOwner, receivingOwner, canModify, grant.ExpiresAt(), g.now()),
	})

	return grant.ID(), nil
}

// RevokeAccess removes a grant before its expiry
func (g *MemoryGraph) RevokeAccess(ctx context.Context, grantID valueobjects.GrantID, requester string) error {
	grant, err := g.consent.Revoke(ctx, grantID, requester)
	if err != nil {
		return err
	}

	g.publishEvents(ctx, []events.DomainEvent{
		events.NewAccessRevoked(grantID, grant.NodeID(), g.now()),
	})

	return nil
}

// UpdateConsent mutates a node's consent level. Only the owner, or
// the holder of an unexpired grant with modify-rights, may do so.
func (g *MemoryGraph) UpdateConsent(ctx context.Context, nodeID valueobjects.NodeID, requester string, newConsent valueobjects.ConsentLevel) error {
	if !newConsent.IsValid() {
		return pkgerrors.NewValidationError("invalid consent level")
	}

	node, err := g.nodes.GetByID(ctx, nodeID)
	if err != nil {
		return err
	}
	if node.IsExpired(g.now()) {
		g.expireNode(ctx, node)
		return pkgerrors.NewNotFoundError("memory node")
	}

	allowed, err := g.consent.CanModify(ctx, node, requester)
	if err != nil {
		return err
	}
	if !allowed {
		return pkgerrors.NewForbiddenError("requester may not modify this node's consent")
	}

	if err := node.ChangeConsent(newConsent); err != nil {
		return err
	}

	if err := g.nodes.Save(ctx, node); err != nil {
		return err
	}

	g.invalidateCache(ctx, nodeID)
	g.publishEvents(ctx, node.GetUncommittedEvents())
	node.MarkEventsAsCommitted()

	return nil
}

// AdjustImportance changes a node's retrieval-ranking bias. Owner only;
// importance never influences access control.
func (g *MemoryGraph) AdjustImportance(ctx context.Context, nodeID valueobjects.NodeID, requester string, value float64) error {
	importance, err := valueobjects.NewImportance(value)
	if err != nil {
		return err
	}

	node, err := g.nodes.GetByID(ctx, nodeID)
	if err != nil {
		return err
	}
	if node.IsExpired(g.now()) {
		g.expireNode(ctx, node)
		return pkgerrors.NewNotFoundError("memory node")
	}

	if node.Owner() != requester {
		return pkgerrors.NewForbiddenError("only the owner may adjust importance")
	}

	node.AdjustImportance(importance)

	if err := g.nodes.Save(ctx, node); err != nil {
		return err
	}

	g.invalidateCache(ctx, nodeID)

	return nil
}

// LinkOffices records an explicit producer-to-producer relationship as
// a system-owned public node tagged with both offices
func (g *MemoryGraph) LinkOffices(ctx context.Context, officeA, officeB, relation string) (valueobjects.NodeID, error) {
	if officeA == "" || officeB == "" {
		return valueobjects.NodeID{}, pkgerrors.NewValidationError("office identifiers cannot be empty")
	}
	if relation == "" {
		return valueobjects.NodeID{}, pkgerrors.NewValidationError("relation cannot be empty")
	}

	return g.CreateMemory(ctx, CreateMemoryRequest{
		Owner:   SystemOwner,
		Content: fmt.Sprintf("Cross-office link: %s <-> %s (%s)", officeA, officeB, relation),
		Consent: valueobjects.ConsentPublic,
		TTL:     g.cfg.OfficeLinkTTL,
		Tags:    []string{"office_link", officeA, officeB, relation},
	})
}

// Stats reports counts over the live graph
func (g *MemoryGraph) Stats(ctx context.Context) (GraphStats, error) {
	owners, err := g.nodes.Owners(ctx)
	if err != nil {
		return GraphStats{}, err
	}

	stats := GraphStats{
		NodesByOwner: make(map[string]int),
		NodesByLevel: make(map[valueobjects.MemoryLevel]int),
	}

	now := g.now()
	for _, owner := range owners {
		nodes, err := g.nodes.GetByOwner(ctx, owner)
		if err != nil {
			return GraphStats{}, err
		}
		for _, n := range nodes {
			if n.IsExpired(now) {
				continue
			}
			stats.TotalNodes++
			stats.NodesByOwner[owner]++
			stats.NodesByLevel[n.Level()]++
			stats.TotalAccessCount += n.AccessCount()
		}
	}

	if stats.TotalNodes > 0 {
		stats.AvgAccessCount = float64(stats.TotalAccessCount) / float64(stats.TotalNodes)
	}

	return stats, nil
}

// TriggerMaintenance runs one maintenance pass: expired nodes and
// grants are evicted, then every (owner, level) pair is checked for a
// rollup. Rollups for a tuple are serialized by a tuple-scoped lock;
// a pass that loses the lock skips the tuple rather than waiting. The
// pass is re-entrant and callable on any schedule; the facade never
// schedules itself.
func (g *MemoryGraph) TriggerMaintenance(ctx context.Context) (MaintenanceReport, error) {
	report := MaintenanceReport{}

	expired, err := g.nodes.DeleteExpired(ctx, g.now())
	if err != nil {
		return report, err
	}
	for _, node := range expired {
		g.removeFromIndex(ctx, node.ID())
		g.invalidateCache(ctx, node.ID())
		g.publishEvents(ctx, []events.DomainEvent{
			events.NewNodeExpired(node.ID(), node.Owner(), g.now()),
		})
	}
	report.ExpiredNodes = len(expired)

	report.ExpiredGrants, err = g.grants.DeleteExpired(ctx, g.now())
	if err != nil {
		return report, err
	}

	owners, err := g.nodes.Owners(ctx)
	if err != nil {
		return report, err
	}

	levels := []valueobjects.MemoryLevel{
		valueobjects.LevelAtomic,
		valueobjects.LevelDaily,
		valueobjects.LevelWeekly,
	}

	for _, owner := range owners {
		for _, level := range levels {
			if err := g.rollupTuple(ctx, owner, level, &report); err != nil {
				return report, err
			}
		}
	}

	return report, nil
}

// rollupTuple rolls up one (owner, level) pair for as long as the
// trigger keeps firing
func (g *MemoryGraph) rollupTuple(ctx context.Context, owner string, level valueobjects.MemoryLevel, report *MaintenanceReport) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		triggered, err := g.aggregator.CheckRollupTrigger(ctx, owner, level)
		if err != nil {
			return err
		}
		if !triggered {
			return nil
		}

		lockKey := fmt.Sprintf("rollup/%s/%s", owner, level)
		release, err := g.lock.Acquire(ctx, lockKey, "maintenance", g.cfg.MaintenanceLockTTL)
		if err != nil {
			if pkgerrors.IsConflict(err) {
				report.SkippedLocked++
				return nil
			}
			return err
		}

		_, err = g.aggregator.Rollup(ctx, owner, level)
		release()

		switch {
		case err == nil:
			report.Rollups++
		case pkgerrors.IsTimeout(err):
			// Sources remain un-rolled; the next pass retries.
			report.RollupTimeouts++
			g.logger.Warn("rollup abandoned on summarizer timeout",
				zap.String("owner", owner),
				zap.String("level", level.String()),
			)
			return nil
		case pkgerrors.IsConflict(err):
			// A concurrent pass already consumed the batch.
			return nil
		default:
			return err
		}
	}
}

// getNode fetches a node by id, via the hot-read cache when possible.
// Callers always receive a clone. Consent is evaluated afterwards by
// the caller against live grants; the consent level itself is only as
// fresh as the cached node (see nodeCacheTTL).
func (g *MemoryGraph) getNode(ctx context.Context, id valueobjects.NodeID) (*entities.MemoryNode, error) {
	cacheKey := nodeCacheKey(id)

	if cached, ok := g.cache.Get(ctx, cacheKey); ok {
		if node, ok := cached.(*entities.MemoryNode); ok {
			return node.Clone(), nil
		}
	}

	node, err := g.nodes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := g.cache.Set(ctx, cacheKey, node.Clone(), nodeCacheTTL); err != nil {
		g.logger.Debug("node cache set failed", zap.Error(err))
	}

	return node, nil
}

// expireNode lazily evicts a node found past its TTL on a read path,
// so no stale node is ever returned between background sweeps
func (g *MemoryGraph) expireNode(ctx context.Context, node *entities.MemoryNode) {
	if err := g.nodes.Delete(ctx, node.ID()); err != nil && !pkgerrors.IsNotFound(err) {
		g.logger.Warn("lazy expiry failed", zap.String("nodeID", node.ID().String()), zap.Error(err))
		return
	}
	g.removeFromIndex(ctx, node.ID())
	g.invalidateCache(ctx, node.ID())
	g.publishEvents(ctx, []events.DomainEvent{
		events.NewNodeExpired(node.ID(), node.Owner(), g.now()),
	})
}

func (g *MemoryGraph) removeFromIndex(ctx context.Context, id valueobjects.NodeID) {
	if err := g.index.Remove(ctx, id); err != nil {
		g.logger.Warn("failed to remove node from index", zap.String("nodeID", id.String()), zap.Error(err))
	}
}

func (g *MemoryGraph) invalidateCache(ctx context.Context, id valueobjects.NodeID) {
	if err := g.cache.Delete(ctx, nodeCacheKey(id)); err != nil {
		g.logger.Debug("node cache delete failed", zap.Error(err))
	}
}

func (g *MemoryGraph) publishEvents(ctx context.Context, evs []events.DomainEvent) {
	if len(evs) == 0 {
		return
	}
	if err := g.publisher.PublishBatch(ctx, evs); err != nil {
		g.logger.Warn("failed to publish domain events", zap.Int("count", len(evs)), zap.Error(err))
	}
}

func nodeCacheKey(id valueobjects.NodeID) string {
	return "node:" + id.String()
}

func hasAnyTag(node *entities.MemoryNode, tags []string) bool {
	for _, t := range tags {
		if node.HasTag(t) {
			return true
		}
	}
	return false
}
