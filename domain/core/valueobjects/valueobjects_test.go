package valueobjects

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memgraph/domain/config"
	pkgerrors "memgraph/pkg/errors"
)

func TestParseConsentLevel(t *testing.T) {
	t.Run("accepts all defined levels", func(t *testing.T) {
		for _, s := range []string{"private", "restricted", "shared", "public"} {
			level, err := ParseConsentLevel(s)
			require.NoError(t, err)
			assert.Equal(t, s, level.String())
		}
	})

	t.Run("rejects unknown levels", func(t *testing.T) {
		_, err := ParseConsentLevel("internal")
		assert.Error(t, err)

		_, err = ParseConsentLevel("")
		assert.Error(t, err)
	})
}

func TestConsentOrdering(t *testing.T) {
	assert.True(t, ConsentPrivate.MoreRestrictiveThan(ConsentRestricted))
	assert.True(t, ConsentRestricted.MoreRestrictiveThan(ConsentShared))
	assert.True(t, ConsentShared.MoreRestrictiveThan(ConsentPublic))
	assert.False(t, ConsentPublic.MoreRestrictiveThan(ConsentPrivate))
	assert.False(t, ConsentShared.MoreRestrictiveThan(ConsentShared))
}

func TestMostRestrictiveConsent(t *testing.T) {
	assert.Equal(t, ConsentPrivate, MostRestrictiveConsent(ConsentPublic, ConsentPrivate, ConsentShared))
	assert.Equal(t, ConsentShared, MostRestrictiveConsent(ConsentPublic, ConsentShared))
	assert.Equal(t, ConsentPublic, MostRestrictiveConsent(ConsentPublic))
}

func TestMemoryLevelNext(t *testing.T) {
	next, ok := LevelAtomic.Next()
	require.True(t, ok)
	assert.Equal(t, LevelDaily, next)

	next, ok = LevelDaily.Next()
	require.True(t, ok)
	assert.Equal(t, LevelWeekly, next)

	next, ok = LevelWeekly.Next()
	require.True(t, ok)
	assert.Equal(t, LevelMonthly, next)

	_, ok = LevelMonthly.Next()
	assert.False(t, ok, "monthly is the terminal level")
}

func TestMemoryLevelHierarchyRules(t *testing.T) {
	assert.False(t, LevelAtomic.CanHaveChildren())
	assert.True(t, LevelDaily.CanHaveChildren())
	assert.True(t, LevelMonthly.CanHaveChildren())

	assert.True(t, LevelAtomic.CanHaveParent())
	assert.True(t, LevelWeekly.CanHaveParent())
	assert.False(t, LevelMonthly.CanHaveParent())
}

func TestImportanceBounds(t *testing.T) {
	_, err := NewImportance(-0.1)
	assert.Error(t, err)

	_, err = NewImportance(1.1)
	assert.Error(t, err)

	imp, err := NewImportance(1.0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, imp.Value())

	assert.Equal(t, 0.5, DefaultImportance().Value())
}

func TestMemoryContent(t *testing.T) {
	t.Run("rejects empty and whitespace content", func(t *testing.T) {
		_, err := NewMemoryContent("")
		assert.Error(t, err)

		_, err = NewMemoryContent("   \n\t ")
		assert.Error(t, err)
	})

	t.Run("enforces configured max length", func(t *testing.T) {
		cfg := config.DefaultDomainConfig()
		cfg.MaxContentLength = 10

		_, err := NewMemoryContentWithConfig(strings.Repeat("x", 11), cfg)
		assert.Error(t, err)

		content, err := NewMemoryContentWithConfig(strings.Repeat("x", 10), cfg)
		require.NoError(t, err)
		assert.Equal(t, 10, len(content.Text()))
	})

	t.Run("summary truncates with ellipsis", func(t *testing.T) {
		content, err := NewMemoryContent("the quick brown fox jumps")
		require.NoError(t, err)

		assert.Equal(t, "the quick brown fox jumps", content.Summary(100))
		assert.Equal(t, "the qui...", content.Summary(10))
		assert.Equal(t, "", content.Summary(0))
	})
}

func TestNodeIDRoundTrip(t *testing.T) {
	id := NewNodeID()
	assert.False(t, id.IsZero())

	parsed, err := NewNodeIDFromString(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equals(parsed))

	_, err = NewNodeIDFromString("not-a-uuid")
	assert.Error(t, err)
}

func TestRejectionsCarryValidationType(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.MaxContentLength = 8

	_, err := NewMemoryContentWithConfig(strings.Repeat("x", 9), cfg)
	assert.True(t, pkgerrors.IsValidation(err), "oversized content")

	_, err = NewMemoryContentWithConfig("   ", cfg)
	assert.True(t, pkgerrors.IsValidation(err), "blank content")

	_, err = ParseConsentLevel("banana")
	assert.True(t, pkgerrors.IsValidation(err), "unknown consent level")

	_, err = ParseMemoryLevel("hourly")
	assert.True(t, pkgerrors.IsValidation(err), "unknown memory level")

	_, err = NewNodeIDFromString("not-a-uuid")
	assert.True(t, pkgerrors.IsValidation(err), "malformed node id")

	_, err = NewGrantIDFromString("")
	assert.True(t, pkgerrors.IsValidation(err), "empty grant id")

	_, err = NewImportance(2.0)
	assert.True(t, pkgerrors.IsValidation(err), "out-of-range importance")
}
