// Package di assembles the application with google/wire. Providers
// select infrastructure by the configured persistence driver.
package di

import (
	"context"

	"memgraph/application/ports"
	"memgraph/application/services"
	"memgraph/infrastructure/cache"
	"memgraph/infrastructure/config"
	"memgraph/infrastructure/embedding/hash"
	"memgraph/infrastructure/messaging/eventbridge"
	"memgraph/infrastructure/messaging/noop"
	memorypersistence "memgraph/infrastructure/persistence/memory"
	"memgraph/infrastructure/search/chromem"
	"memgraph/infrastructure/summarize"
	"memgraph/pkg/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	dynamopersistence "memgraph/infrastructure/persistence/dynamodb"
)

// summaryInputChars caps each source's contribution to a concatenated
// summary
const summaryInputChars = 400

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	NodeRepo  ports.NodeRepository
	GrantRepo ports.GrantRepository
	Index     ports.SimilarityIndex
	Embedder  ports.Embedder
	Cache     ports.Cache
	Publisher ports.EventPublisher
	Lock      ports.MaintenanceLock
	Graph     *services.MemoryGraph
	Validator *auth.JWTValidator
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig loads AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideNodeRepository selects the node repository by driver
func ProvideNodeRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.NodeRepository {
	if cfg.PersistenceDriver == config.DriverDynamoDB {
		return dynamopersistence.NewNodeRepository(client, cfg.DynamoDBTable, cfg.IndexName, logger)
	}
	return memorypersistence.NewNodeRepository()
}

// ProvideGrantRepository selects the grant repository by driver
func ProvideGrantRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.GrantRepository {
	if cfg.PersistenceDriver == config.DriverDynamoDB {
		return dynamopersistence.NewGrantRepository(client, cfg.DynamoDBTable, cfg.IndexName, logger)
	}
	return memorypersistence.NewGrantRepository()
}

// ProvideMaintenanceLock selects the lock by driver
func ProvideMaintenanceLock(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.MaintenanceLock {
	if cfg.PersistenceDriver == config.DriverDynamoDB {
		return dynamopersistence.NewMaintenanceLock(client, cfg.DynamoDBTable, logger)
	}
	return memorypersistence.NewMaintenanceLock()
}

// ProvideSimilarityIndex creates the chromem-backed index
func ProvideSimilarityIndex(cfg *config.Config) (ports.SimilarityIndex, error) {
	return chromem.NewIndex(cfg.ChromemPath)
}

// ProvideEmbedder creates the similarity key embedder
func ProvideEmbedder() ports.Embedder {
	return hash.NewEmbedder()
}

// ProvideSummarizer creates the rollup summarizer
func ProvideSummarizer() ports.Summarizer {
	return summarize.NewConcatSummarizer(summaryInputChars)
}

// ProvideCache creates the hot node read cache
func ProvideCache(cfg *config.Config) (ports.Cache, error) {
	return cache.NewRistrettoCache(cfg.CacheMaxItems)
}

// ProvideEventPublisher selects the publisher; with no bus configured
// events are dropped
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return noop.NewPublisher(logger)
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideConsentEngine creates the consent engine
func ProvideConsentEngine(nodes ports.NodeRepository, grants ports.GrantRepository, logger *zap.Logger) *services.ConsentEngine {
	return services.NewConsentEngine(nodes, grants, logger)
}

// ProvideHierarchyAggregator creates the hierarchy aggregator
func ProvideHierarchyAggregator(
	cfg *config.Config,
	nodes ports.NodeRepository,
	index ports.SimilarityIndex,
	embedder ports.Embedder,
	summarizer ports.Summarizer,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *services.HierarchyAggregator {
	return services.NewHierarchyAggregator(nodes, index, embedder, summarizer, publisher, cfg.Domain, logger)
}

// ProvideMemoryGraph creates the facade
func ProvideMemoryGraph(
	cfg *config.Config,
	nodes ports.NodeRepository,
	grants ports.GrantRepository,
	consent *services.ConsentEngine,
	aggregator *services.HierarchyAggregator,
	index ports.SimilarityIndex,
	embedder ports.Embedder,
	lock ports.MaintenanceLock,
	c ports.Cache,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *services.MemoryGraph {
	return services.NewMemoryGraph(nodes, grants, consent, aggregator, index, embedder, lock, c, publisher, cfg.Domain, logger)
}

// ProvideJWTValidator creates the token validator; a nil validator
// switches the auth middleware to the dev header fallback
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewJWTValidator(cfg.JWTSecret, cfg.JWTIssuer)
}
