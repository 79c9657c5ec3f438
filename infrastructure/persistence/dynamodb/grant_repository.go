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

// GrantRepository implements ports.GrantRepository on DynamoDB. Grants
// hang off their node's partition so GetByNode is a single query; GSI1
// resolves a grant id directly.
type GrantRepository struct {
	client    *awsdynamodb.Client
	tableName string
	gsi1Name  string
	logger    *zap.Logger
}

// NewGrantRepository creates a DynamoDB-backed grant repository
func NewGrantRepository(client *awsdynamodb.Client, tableName, gsi1Name string, logger *zap.Logger) *GrantRepository {
	return &GrantRepository{
		client:    client,
		tableName: tableName,
		gsi1Name:  gsi1Name,
		logger:    logger,
	}
}

var _ ports.GrantRepository = (*GrantRepository)(nil)

type grantItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	GSI1PK         string `dynamodbav:"GSI1PK"`
	GSI1SK         string `dynamodbav:"GSI1SK"`
	EntityType     string `dynamodbav:"EntityType"`
	GrantID        string `dynamodbav:"GrantID"`
	NodeID         string `dynamodbav:"NodeID"`
	GrantingOwner  string `dynamodbav:"GrantingOwner"`
	ReceivingOwner string `dynamodbav:"ReceivingOwner"`
	CanModify      bool   `dynamodbav:"CanModify"`
	CreatedAt      string `dynamodbav:"CreatedAt"`
	ExpiresAt      string `dynamodbav:"ExpiresAt"`
}

func grantPK(nodeID valueobjects.NodeID) string { return fmt.Sprintf("NODE#%s", nodeID.String()) }
func grantSK(id valueobjects.GrantID) string    { return fmt.Sprintf("GRANT#%s", id.String()) }
func grantGSI1(id valueobjects.GrantID) string  { return fmt.Sprintf("GRANT#%s", id.String()) }

// Save persists a grant
func (r *GrantRepository) Save(ctx context.Context, grant *entities.AccessGrant) error {
	if grant == nil {
		return pkgerrors.NewValidationError("grant cannot be nil")
	}

	item, err := attributevalue.MarshalMap(grantItem{
		PK:             grantPK(grant.NodeID()),
		SK:             grantSK(grant.ID()),
		GSI1PK:         grantGSI1(grant.ID()),
		GSI1SK:         "METADATA",
		EntityType:     "ACCESS_GRANT",
		GrantID:        grant.ID().String(),
		NodeID:         grant.NodeID().String(),
		GrantingOwner:  grant.GrantingOwner(),
		ReceivingOwner: grant.ReceivingOwner(),
		CanModify:      grant.CanModify(),
		CreatedAt:      utils.FormatRFC3339(grant.CreatedAt()),
		ExpiresAt:      utils.FormatRFC3339(grant.ExpiresAt()),
	})
	if err != nil {
		return pkgerrors.Wrap(err, "marshaling grant item")
	}

	_, err = r.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		r.logger.Error("failed to save grant",
			zap.Error(err),
			zap.String("grantID", grant.ID().String()),
		)
		return pkgerrors.NewUnavailableError("dynamodb", err)
	}

	return nil
}

// GetByID retrieves a grant through the GSI1 id index
func (r *GrantRepository) GetByID(ctx context.Context, id valueobjects.GrantID) (*entities.AccessGrant, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(grantGSI1(id)))
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
		return nil, pkgerrors.NewNotFoundError("access grant")
	}

	return unmarshalGrant(result.Items[0])
}

// GetByNode retrieves all grants referencing a node, expired included
func (r *GrantRepository) GetByNode(ctx context.Context, nodeID valueobjects.NodeID) ([]*entities.AccessGrant, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(grantPK(nodeID))).
		And(expression.Key("SK").BeginsWith("GRANT#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "building query expression")
	}

	var grants []*entities.AccessGrant

	paginator := awsdynamodb.NewQueryPaginator(r.client, &awsdynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pkgerrors.NewUnavailableError("dynamodb", err)
		}
		for _, item := range page.Items {
			grant, err := unmarshalGrant(item)
			if err != nil {
				r.logger.Warn("skipping unreadable grant item", zap.Error(err))
				continue
			}
			grants = append(grants, grant)
		}
	}

	return grants, nil
}

// Delete removes a grant
func (r *GrantRepository) Delete(ctx context.Context, id valueobjects.GrantID) error {
	grant, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: grantPK(grant.NodeID())},
			"SK": &types.AttributeValueMemberS{Value: grantSK(id)},
		},
	})
	if err != nil {
		return pkgerrors.NewUnavailableError("dynamodb", err)
	}

	return nil
}

// DeleteExpired eagerly removes inert grants and returns the count
func (r *GrantRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("ACCESS_GRANT")).
		And(expression.Name("ExpiresAt").LessThanEqual(expression.Value(utils.FormatRFC3339(now))))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return 0, pkgerrors.Wrap(err, "building scan expression")
	}

	count := 0

	paginator := awsdynamodb.NewScanPaginator(r.client, &awsdynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return count, pkgerrors.NewUnavailableError("dynamodb", err)
		}
		for _, item := range page.Items {
			var row struct {
				PK string `dynamodbav:"PK"`
				SK string `dynamodbav:"SK"`
			}
			if err := attributevalue.UnmarshalMap(item, &row); err != nil {
				continue
			}

			_, err := r.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: row.PK},
					"SK": &types.AttributeValueMemberS{Value: row.SK},
				},
			})
			if err != nil {
				return count, pkgerrors.NewUnavailableError("dynamodb", err)
			}
			count++
		}
	}

	return count, nil
}

func unmarshalGrant(item map[string]types.AttributeValue) (*entities.AccessGrant, error) {
	var row grantItem
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, pkgerrors.Wrap(err, "unmarshaling grant item")
	}

	id, err := valueobjects.NewGrantIDFromString(row.GrantID)
	if err != nil {
		return nil, err
	}

	nodeID, err := valueobjects.NewNodeIDFromString(row.NodeID)
	if err != nil {
		return nil, err
	}

	createdAt, err := utils.ParseRFC3339(row.CreatedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "parsing grant CreatedAt")
	}

	expiresAt, err := utils.ParseRFC3339(row.ExpiresAt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "parsing grant ExpiresAt")
	}

	return entities.ReconstructAccessGrant(
		id,
		nodeID,
		row.GrantingOwner,
		row.ReceivingOwner,
		row.CanModify,
		createdAt,
		expiresAt,
	)
}
