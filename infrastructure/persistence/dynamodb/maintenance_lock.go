package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memgraph/application/ports"
	pkgerrors "memgraph/pkg/errors"
	"memgraph/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// MaintenanceLock implements ports.MaintenanceLock with DynamoDB
// conditional writes. A lock item can be stolen once its ExpiresAt has
// lapsed, so a crashed holder never wedges a tuple past the TTL.
type MaintenanceLock struct {
	client    *awsdynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewMaintenanceLock creates a DynamoDB-backed maintenance lock
func NewMaintenanceLock(client *awsdynamodb.Client, tableName string, logger *zap.Logger) *MaintenanceLock {
	return &MaintenanceLock{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

var _ ports.MaintenanceLock = (*MaintenanceLock)(nil)

// Acquire takes the named lock with a conditional put, failing with
// CONFLICT when an unexpired holder exists
func (l *MaintenanceLock) Acquire(ctx context.Context, key, holder string, ttl time.Duration) (ports.ReleaseFunc, error) {
	if key == "" || holder == "" {
		return nil, pkgerrors.NewValidationError("lock key and holder cannot be empty")
	}
	if ttl <= 0 {
		return nil, pkgerrors.NewValidationError("lock ttl must be positive")
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	lockID := fmt.Sprintf("%s_%d", holder, now.UnixNano())
	pk := fmt.Sprintf("LOCK#%s", key)

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: pk},
		"SK":         &types.AttributeValueMemberS{Value: "LOCK"},
		"LockID":     &types.AttributeValueMemberS{Value: lockID},
		"Holder":     &types.AttributeValueMemberS{Value: holder},
		"AcquiredAt": &types.AttributeValueMemberS{Value: utils.FormatRFC3339(now)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: utils.FormatRFC3339(expiresAt)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	_, err := l.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: utils.FormatRFC3339(now)},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return nil, pkgerrors.NewConflictError("lock already held: " + key)
		}
		return nil, pkgerrors.NewUnavailableError("dynamodb", err)
	}

	release := func() {
		// The release must outlive the caller's context.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		_, err := l.client.DeleteItem(rctx, &awsdynamodb.DeleteItemInput{
			TableName: aws.String(l.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: pk},
				"SK": &types.AttributeValueMemberS{Value: "LOCK"},
			},
			ConditionExpression: aws.String("LockID = :lockID"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":lockID": &types.AttributeValueMemberS{Value: lockID},
			},
		})
		if err != nil {
			var conditionFailed *types.ConditionalCheckFailedException
			if errors.As(err, &conditionFailed) {
				// Another holder stole the expired lock; nothing to release.
				return
			}
			l.logger.Warn("failed to release maintenance lock",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}

	return release, nil
}
