package dynamodb

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memgraph/domain/core/entities"
	"memgraph/domain/core/valueobjects"
)

func TestNodeItemRoundTripPreservesSubSecondTTL(t *testing.T) {
	content, err := valueobjects.NewMemoryContent("short-lived observation")
	require.NoError(t, err)

	node, err := entities.NewMemoryNode("office-a", content, valueobjects.ConsentPrivate,
		250*time.Millisecond, valueobjects.DefaultImportance(), []string{"ephemeral"}, nil)
	require.NoError(t, err)
	require.NoError(t, node.SetSimilarityKey([]float32{0.1, 0.2, 0.3}))

	item, err := attributevalue.MarshalMap(toNodeItem(node))
	require.NoError(t, err)

	got, err := unmarshalNode(item)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, got.TTL())
	assert.True(t, got.CreatedAt().Equal(node.CreatedAt()))
	assert.True(t, got.ExpiresAt().Equal(node.ExpiresAt()),
		"reconstructed expiry must match the persisted expiry string")
	assert.Equal(t, node.SimilarityKey(), got.SimilarityKey())
	assert.Equal(t, node.Consent(), got.Consent())
	assert.Equal(t, node.GetTags(), got.GetTags())
}
