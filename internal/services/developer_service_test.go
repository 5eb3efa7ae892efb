package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/internal/repositories"
	"github.com/alimgiray/sprintscope/pkg/database"
)

// newTestStore opens a fresh migrated database in a per-test temp dir
func newTestStore(t *testing.T) *database.Store {
	t.Helper()

	store, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Migrate(filepath.Join("..", "..", "migrations")))
	return store
}

func newTestRegistry(t *testing.T, roster []string) *DeveloperService {
	t.Helper()

	store := newTestStore(t)
	normalizer := NewEmailNormalizerService(map[string]string{
		"example.org": "example.com",
	})
	return NewDeveloperService(
		repositories.NewDeveloperRepository(store),
		repositories.NewEmailAliasRepository(store),
		normalizer,
		roster,
	)
}

func TestResolveOrCreateMergesAliasesAcrossFeeds(t *testing.T) {
	registry := newTestRegistry(t, []string{"jane.doe@example.com"})

	fromTracker, err := registry.ResolveOrCreate("AWSReservedSSO_Role_abc123/jane.doe@example.com", models.FeedSourceTracker, "Jane Doe")
	require.NoError(t, err)
	require.NotNil(t, fromTracker)

	fromRepo, err := registry.ResolveOrCreate("Jane.Doe01@example.org", models.FeedSourceRepo, "")
	require.NoError(t, err)
	require.NotNil(t, fromRepo)

	assert.Equal(t, fromTracker.ID, fromRepo.ID)
	assert.Equal(t, "jane.doe@example.com", fromRepo.CanonicalEmail)
	assert.True(t, fromRepo.IsActive)
}

func TestResolveOrCreateIsOrderIndependent(t *testing.T) {
	identities := []struct {
		raw    string
		source models.FeedSource
		name   string
	}{
		{"AWSReservedSSO_Role_abc123/jane.doe@example.com", models.FeedSourceTracker, "Jane Doe"},
		{"Jane.Doe01@example.org", models.FeedSourceRepo, ""},
		{"jane.doe@example.com", models.FeedSourceRepo, ""},
	}

	run := func(t *testing.T, order []int) (string, string) {
		registry := newTestRegistry(t, nil)
		var developer *models.Developer
		for _, i := range order {
			resolved, err := registry.ResolveOrCreate(identities[i].raw, identities[i].source, identities[i].name)
			require.NoError(t, err)
			require.NotNil(t, resolved)
			if developer == nil {
				developer = resolved
			} else {
				assert.Equal(t, developer.ID, resolved.ID)
			}
		}
		return developer.CanonicalEmail, developer.DisplayName
	}

	forwardEmail, forwardName := run(t, []int{0, 1, 2})
	reverseEmail, reverseName := run(t, []int{2, 1, 0})

	assert.Equal(t, forwardEmail, reverseEmail)
	assert.Equal(t, forwardName, reverseName)
	assert.Equal(t, "Jane Doe", reverseName, "tracker display name wins over derived names")
}

func TestResolveOrCreateAssignsStableIDsAcrossStores(t *testing.T) {
	// A rebuilt registry must assign the same developer the same ID, or
	// materialized rows would drift between rebuilds
	first, err := newTestRegistry(t, nil).ResolveOrCreate("jane.doe@example.com", models.FeedSourceRepo, "")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := newTestRegistry(t, nil).ResolveOrCreate("Jane.Doe@example.com", models.FeedSourceRepo, "")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, first.ID, second.ID)
}

func TestResolveOrCreateReturnsNilForUnresolvableIdentity(t *testing.T) {
	registry := newTestRegistry(t, nil)

	developer, err := registry.ResolveOrCreate("unknown", models.FeedSourceRepo, "")
	require.NoError(t, err)
	assert.Nil(t, developer)
}

func TestResolveOrCreateDerivesNameFromLocalPart(t *testing.T) {
	registry := newTestRegistry(t, nil)

	developer, err := registry.ResolveOrCreate("john_smith@example.com", models.FeedSourceRepo, "John Smith Jr.")
	require.NoError(t, err)
	require.NotNil(t, developer)

	// Repo feed names are derived, never taken from the commit author string
	assert.Equal(t, "John Smith", developer.DisplayName)
	assert.False(t, developer.IsActive, "not on the roster")
}

func TestEnsureUnknownDeveloper(t *testing.T) {
	registry := newTestRegistry(t, nil)

	first, err := registry.EnsureUnknownDeveloper()
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, first.IsUnknown())

	second, err := registry.EnsureUnknownDeveloper()
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestHumanizeLocalPart(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"jane.doe@example.com", "Jane Doe"},
		{"john_smith@example.com", "John Smith"},
		{"mary-ann.lee@example.com", "Mary Ann Lee"},
		{"solo@example.com", "Solo"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, humanizeLocalPart(tc.input))
	}
}
