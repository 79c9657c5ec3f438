//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"memgraph/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideNodeRepository,
	ProvideGrantRepository,
	ProvideMaintenanceLock,
	ProvideSimilarityIndex,
	ProvideEmbedder,
	ProvideSummarizer,
	ProvideCache,
	ProvideEventPublisher,
	ProvideConsentEngine,
	ProvideHierarchyAggregator,
	ProvideMemoryGraph,
	ProvideJWTValidator,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
