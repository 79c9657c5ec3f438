// Package dynamodb implements the persistence ports on a single
// DynamoDB table. Nodes and grants share the table; GSI1 provides
// direct lookups by entity id.
package dynamodb

import (
	"context"
	"fmt"
	"time"

	"memgraph/application/ports"
	"memgraph/domain/core/entities"
	"memgraph/domain/core/valueobjects"
	pkgerrors "memgraph/pkg/errors"
	"memgraph/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// NodeRepository implements ports.NodeRepository on DynamoDB
type NodeRepository struct {
	client    *awsdynamodb.Client
	tableName string
	gsi1Name  string
	logger    *zap.Logger
}

// NewNodeRepository creates a DynamoDB-backed node repository
func NewNodeRepository(client *awsdynamodb.Client, tableName, gsi1Name string, logger *zap.Logger) *NodeRepository {
	return &NodeRepository{
		client:    client,
		tableName: tableName,
		gsi1Name:  gsi1Name,
		logger:    logger,
	}
}

var _ ports.NodeRepository = (*NodeRepository)(nil)

// nodeItem is the DynamoDB item structure for a memory node.
// ExpiresAt is stored as RFC3339Nano UTC so string comparison orders
// the same as time comparison.
type nodeItem struct {
	PK             string    `dynamodbav:"PK"`
	SK             string    `dynamodbav:"SK"`
	GSI1PK         string    `dynamodbav:"GSI1PK"`
	GSI1SK         string    `dynamodbav:"GSI1SK"`
	EntityType     string    `dynamodbav:"EntityType"`
	NodeID         string    `dynamodbav:"NodeID"`
	Owner          string    `dynamodbav:"Owner"`
	Level          string    `dynamodbav:"Level"`
	Content        string    `dynamodbav:"Content"`
	SimilarityKey  []float32 `dynamodbav:"SimilarityKey,omitempty"`
	Consent        string    `dynamodbav:"Consent"`
	Tags           []string  `dynamodbav:"Tags,omitempty"`
	Importance     float64   `dynamodbav:"Importance"`
	CreatedAt      string    `dynamodbav:"CreatedAt"`
	TTLNanos       int64     `dynamodbav:"TTLNanos"`
	ExpiresAt      string    `dynamodbav:"ExpiresAt"`
	AccessCount    int64     `dynamodbav:"AccessCount"`
	LastAccessedAt string    `dynamodbav:"LastAccessedAt"`
	Children       []string  `dynamodbav:"Children,omitempty"`
	Parent         string    `dynamodbav:"Parent,omitempty"`
	Version        int       `dynamodbav:"Version"`
}

func nodePK(owner string) string             { return fmt.Sprintf("OWNER#%s", owner) }
func nodeSK(id valueobjects.NodeID) string   { return fmt.Sprintf("NODE#%s", id.String()) }
func nodeGSI1(id valueobjects.NodeID) string { return fmt.Sprintf("NODE#%s", id.String()) }

// Save persists a node (create or update)
func (r *NodeRepository) Save(ctx context.Context, node *entities.MemoryNode) error {
	if node == nil {
		return pkgerrors.NewValidationError("node cannot be nil")
	}

	item, err := attributevalue.MarshalMap(toNodeItem(node))
	if err != nil {
		return pkgerrors.Wrap(err, "marshaling node item")
	}

	_, err = r.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		r.logger.Error("failed to save node",
			zap.Error(err),
			zap.String("nodeID", node.ID().String()),
		)
		return pkgerrors.NewUnavailableError("dynamodb", err)
	}

	return nil
}

// GetByID retrieves a node through the GSI1 id index
func (r *NodeRepository) GetByID(ctx context.Context, id valueobjects.NodeID) (*entities.MemoryNode, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(nodeGSI1(id)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "building query expression")
	}

	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.gsi1Name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, pkgerrors.NewUnavailableError("dynamodb", err)
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("memory node")
	}

	return unmarshalNode(result.Items[0])
}

// GetByOwner retrieves all nodes created by an owner
func (r *NodeRepository) GetByOwner(ctx context.Context, owner string) ([]*entities.MemoryNode, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(nodePK(owner))).
		And(expression.Key("SK").BeginsWith("NODE#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "building query expression")
	}

	return r.queryNodes(ctx, &awsdynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
}

// GetUnrolled retrieves an owner's parentless nodes at a level
func (r *NodeRepository) GetUnrolled(ctx context.Context, owner string, level valueobjects.MemoryLevel) ([]*entities.MemoryNode, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(nodePK(owner))).
		And(expression.Key("SK").BeginsWith("NODE#"))
	filter := expression.Name("Level").Equal(expression.Value(level.String())).
		And(expression.AttributeNotExists(expression.Name("Parent")))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "building query expression")
	}

	return r.queryNodes(ctx, &awsdynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
}

// CountUnrolled counts parentless nodes for an (owner, level) pair
func (r *NodeRepository) CountUnrolled(ctx context.Context, owner string, level valueobjects.MemoryLevel) (int, error) {
	nodes, err := r.GetUnrolled(ctx, owner, level)
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

// Owners lists every owner with at least one node. This scans the
// table; maintenance is the only caller and runs off the request path.
func (r *NodeRepository) Owners(ctx context.Context) ([]string, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("MEMORY_NODE"))
	proj := expression.NamesList(expression.Name("Owner"))
	expr, err := expression.NewBuilder().WithFilter(filter).WithProjection(proj).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "building scan expression")
	}

	seen := make(map[string]struct{})
	var owners []string

	paginator := awsdynamodb.NewScanPaginator(r.client, &awsdynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pkgerrors.NewUnavailableError("dynamodb", err)
		}
		for _, item := range page.Items {
			var row struct {
				Owner string `dynamodbav:"Owner"`
			}
			if err := attributevalue.UnmarshalMap(item, &row); err != nil {
				continue
			}
			if _, ok := seen[row.Owner]; !ok && row.Owner != "" {
				seen[row.Owner] = struct{}{}
				owners = append(owners, row.Owner)
			}
		}
	}

	return owners, nil
}

// Touch atomically increments access bookkeeping for a node
func (r *NodeRepository) Touch(ctx context.Context, id valueobjects.NodeID, now time.Time) error {
	node, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	update := expression.Add(expression.Name("AccessCount"), expression.Value(1)).
		Set(expression.Name("LastAccessedAt"), expression.Value(utils.FormatRFC3339(now)))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return pkgerrors.Wrap(err, "building update expression")
	}

	_, err = r.client.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       nodeKey(node.Owner(), id),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return pkgerrors.NewUnavailableError("dynamodb", err)
	}

	return nil
}

// Delete removes a node
func (r *NodeRepository) Delete(ctx context.Context, id valueobjects.NodeID) error {
	node, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       nodeKey(node.Owner(), id),
	})
	if err != nil {
		return pkgerrors.NewUnavailableError("dynamodb", err)
	}

	return nil
}

// DeleteExpired removes nodes whose TTL elapsed before now. The item's
// ExpiresAt string compares lexicographically in time order.
func (r *NodeRepository) DeleteExpired(ctx context.Context, now time.Time) ([]*entities.MemoryNode, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("MEMORY_NODE")).
		And(expression.Name("ExpiresAt").LessThanEqual(expression.Value(utils.FormatRFC3339(now))))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "building scan expression")
	}

	var removed []*entities.MemoryNode

	paginator := awsdynamodb.NewScanPaginator(r.client, &awsdynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pkgerrors.NewUnavailableError("dynamodb", err)
		}
		for _, item := range page.Items {
			node, err := unmarshalNode(item)
			if err != nil {
				r.logger.Warn("skipping unreadable expired node", zap.Error(err))
				continue
			}

			_, err = r.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
				TableName: aws.String(r.tableName),
				Key:       nodeKey(node.Owner(), node.ID()),
			})
			if err != nil {
				return removed, pkgerrors.NewUnavailableError("dynamodb", err)
			}
			removed = append(removed, node)
		}
	}

	return removed, nil
}

func (r *NodeRepository) queryNodes(ctx context.Context, input *awsdynamodb.QueryInput) ([]*entities.MemoryNode, error) {
	var nodes []*entities.MemoryNode

	paginator := awsdynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pkgerrors.NewUnavailableError("dynamodb", err)
		}
		for _, item := range page.Items {
			node, err := unmarshalNode(item)
			if err != nil {
				r.logger.Warn("skipping unreadable node item", zap.Error(err))
				continue
			}
			nodes = append(nodes, node)
		}
	}

	return nodes, nil
}

func nodeKey(owner string, id valueobjects.NodeID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: nodePK(owner)},
		"SK": &types.AttributeValueMemberS{Value: nodeSK(id)},
	}
}

func toNodeItem(node *entities.MemoryNode) nodeItem {
	children := make([]string, len(node.Children()))
	for i, c := range node.Children() {
		children[i] = c.String()
	}

	parent := ""
	if parentID, ok := node.ParentID(); ok {
		parent = parentID.String()
	}

	return nodeItem{
		PK:             nodePK(node.Owner()),
		SK:             nodeSK(node.ID()),
		GSI1PK:         nodeGSI1(node.ID()),
		GSI1SK:         "METADATA",
		EntityType:     "MEMORY_NODE",
		NodeID:         node.ID().String(),
		Owner:          node.Owner(),
		Level:          node.Level().String(),
		Content:        node.Content().Text(),
		SimilarityKey:  node.SimilarityKey(),
		Consent:        node.Consent().String(),
		Tags:           node.GetTags(),
		Importance:     node.Importance().Value(),
		CreatedAt:      utils.FormatRFC3339(node.CreatedAt()),
		TTLNanos:       node.TTL().Nanoseconds(),
		ExpiresAt:      utils.FormatRFC3339(node.ExpiresAt()),
		AccessCount:    node.AccessCount(),
		LastAccessedAt: utils.FormatRFC3339(node.LastAccessedAt()),
		Children:       children,
		Parent:         parent,
		Version:        node.Version(),
	}
}

func unmarshalNode(item map[string]types.AttributeValue) (*entities.MemoryNode, error) {
	var row nodeItem
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, pkgerrors.Wrap(err, "unmarshaling node item")
	}

	id, err := valueobjects.NewNodeIDFromString(row.NodeID)
	if err != nil {
		return nil, err
	}

	level, err := valueobjects.ParseMemoryLevel(row.Level)
	if err != nil {
		return nil, err
	}

	consent, err := valueobjects.ParseConsentLevel(row.Consent)
	if err != nil {
		return nil, err
	}

	content, err := valueobjects.NewMemoryContent(row.Content)
	if err != nil {
		return nil, err
	}

	importance, err := valueobjects.NewImportance(row.Importance)
	if err != nil {
		return nil, err
	}

	createdAt, err := utils.ParseRFC3339(row.CreatedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "parsing node CreatedAt")
	}

	lastAccessedAt := createdAt
	if row.LastAccessedAt != "" {
		if t, err := utils.ParseRFC3339(row.LastAccessedAt); err == nil {
			lastAccessedAt = t
		}
	}

	children := make([]valueobjects.NodeID, 0, len(row.Children))
	for _, c := range row.Children {
		childID, err := valueobjects.NewNodeIDFromString(c)
		if err != nil {
			continue
		}
		children = append(children, childID)
	}

	var parent valueobjects.NodeID
	if row.Parent != "" {
		parent, err = valueobjects.NewNodeIDFromString(row.Parent)
		if err != nil {
			return nil, err
		}
	}

	return entities.ReconstructMemoryNode(
		id,
		row.Owner,
		level,
		content,
		row.SimilarityKey,
		consent,
		row.Tags,
		importance,
		createdAt,
		time.Duration(row.TTLNanos),
		row.AccessCount,
		lastAccessedAt,
		children,
		parent,
		row.Version,
	)
}
