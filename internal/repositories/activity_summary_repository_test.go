package repositories

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimgiray/sprintscope/internal/models"
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

func createDeveloper(t *testing.T, repo *DeveloperRepository, email, name string, active bool) *models.Developer {
	t.Helper()
	developer := models.NewDeveloper(email, name)
	developer.IsActive = active
	require.NoError(t, repo.Create(developer))
	return developer
}

func TestGetDailyReportKeepsQuietDevelopersVisible(t *testing.T) {
	store := newTestStore(t)
	developerRepo := NewDeveloperRepository(store)
	summaryRepo := NewActivitySummaryRepository(store)

	busy := createDeveloper(t, developerRepo, "busy@example.com", "Busy Dev", true)
	quiet := createDeveloper(t, developerRepo, "quiet@example.com", "Quiet Dev", true)
	createDeveloper(t, developerRepo, "gone@example.com", "Departed Dev", false)

	summary := models.NewActivitySummary("2025-03-10", busy.ID, nil, "08-10")
	summary.JiraCount = 2
	summary.RepoCount = 1
	summary.TotalCount = 3
	require.NoError(t, summaryRepo.ReplaceAll([]*models.ActivitySummary{summary}))

	report, err := summaryRepo.GetDailyReport("2025-03-10")
	require.NoError(t, err)
	require.Len(t, report, 2, "one row per active developer, departed ones excluded")

	byID := make(map[string]*models.DailyReportRow)
	for _, row := range report {
		byID[row.DeveloperID] = row
	}

	require.Contains(t, byID, busy.ID)
	assert.Equal(t, 3, byID[busy.ID].TotalCount)
	assert.Equal(t, "08-10", byID[busy.ID].TimeBucket)

	require.Contains(t, byID, quiet.ID)
	assert.Equal(t, 0, byID[quiet.ID].TotalCount, "a quiet day shows as zeros, not absence")
	assert.Equal(t, "", byID[quiet.ID].TimeBucket)
}

func TestReplaceAllSwapsRowsAtomically(t *testing.T) {
	store := newTestStore(t)
	developerRepo := NewDeveloperRepository(store)
	summaryRepo := NewActivitySummaryRepository(store)

	developer := createDeveloper(t, developerRepo, "dev@example.com", "Dev", true)

	first := models.NewActivitySummary("2025-03-10", developer.ID, nil, "08-10")
	first.TotalCount = 1
	require.NoError(t, summaryRepo.ReplaceAll([]*models.ActivitySummary{first}))

	second := models.NewActivitySummary("2025-03-11", developer.ID, nil, "10-12")
	second.TotalCount = 4
	require.NoError(t, summaryRepo.ReplaceAll([]*models.ActivitySummary{second}))

	gone, err := summaryRepo.GetByDate("2025-03-10")
	require.NoError(t, err)
	assert.Empty(t, gone, "previous rollup rows are replaced, not accumulated")

	total, err := summaryRepo.SumTotalForDate("2025-03-11")
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}
