package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimgiray/sprintscope/internal/feeds"
	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/internal/repositories"
	"github.com/alimgiray/sprintscope/pkg/config"
	"github.com/alimgiray/sprintscope/pkg/database"
)

type stubIssueFeed struct {
	sprints []feeds.SprintRecord
	issues  []feeds.IssueRecord
	err     error
}

func (f *stubIssueFeed) FetchSprints(ctx context.Context) ([]feeds.SprintRecord, error) {
	return f.sprints, f.err
}

func (f *stubIssueFeed) FetchIssues(ctx context.Context) ([]feeds.IssueRecord, error) {
	return f.issues, f.err
}

type stubCommitFeed struct {
	commits []feeds.CommitRecord
	err     error
}

func (f *stubCommitFeed) FetchCommits(ctx context.Context) ([]feeds.CommitRecord, error) {
	return f.commits, f.err
}

func pipelineConfig(dir string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			Path:          filepath.Join(dir, "live.db"),
			MigrationsDir: filepath.Join("..", "..", "migrations"),
		},
		Pipeline: config.PipelineConfig{
			Timezone:         "UTC",
			ActiveRoster:     []string{"jane.doe@example.com"},
			DoneStatuses:     []string{"Done", "Closed"},
			StoryPointFields: []string{"customfield_10016"},
			UnknownPolicy:    UnknownPolicySentinel,
		},
		Backup: config.BackupConfig{
			Dir:    filepath.Join(dir, "backups"),
			Retain: 3,
		},
	}
}

func newRefreshFixture(t *testing.T, issueFeed feeds.IssueFeed, commitFeed feeds.CommitFeed) (*RefreshService, *database.Store, *repositories.RefreshRunRepository) {
	t.Helper()

	cfg := pipelineConfig(t.TempDir())

	live, err := database.Open(cfg.Database.Path)
	require.NoError(t, err)
	t.Cleanup(func() { live.Close() })
	require.NoError(t, live.Migrate(cfg.Database.MigrationsDir))

	runRepo := repositories.NewRefreshRunRepository(live)
	backups := NewBackupService(cfg.Backup.Dir, cfg.Backup.Retain)
	service := NewRefreshService(live, cfg, issueFeed, commitFeed, backups, runRepo)
	return service, live, runRepo
}

func TestRunRebuildsAndSwapsTheLiveStore(t *testing.T) {
	sprintStart := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	sprintEnd := time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC)
	issueCreated := time.Date(2025, 2, 25, 9, 30, 0, 0, time.UTC)
	doneAt := time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC)

	issueFeed := &stubIssueFeed{
		sprints: []feeds.SprintRecord{
			{ID: 101, Name: "Sprint 1", State: "closed", StartAt: &sprintStart, EndAt: &sprintEnd},
		},
		issues: []feeds.IssueRecord{
			{
				Key:              "PROJ-1",
				Summary:          "Add login",
				Status:           "Done",
				CreatorIdentity:  "jane.doe@example.com",
				CreatorName:      "Jane Doe",
				AssigneeIdentity: "jane.doe@example.com",
				AssigneeName:     "Jane Doe",
				CreatedAt:        issueCreated,
				StatusChanges: []feeds.StatusChange{
					{FromStatus: "In Progress", ToStatus: "Done", AuthorIdentity: "jane.doe@example.com", OccurredAt: doneAt},
				},
				SprintIDs: []int64{101},
				RawFields: map[string]interface{}{"customfield_10016": float64(5)},
			},
		},
	}
	commitFeed := &stubCommitFeed{
		commits: []feeds.CommitRecord{
			{SHA: "abc123", AuthorIdentity: "jane.doe@example.com", AuthorName: "Jane Doe", Message: "Implement login", AuthoredAt: doneAt.Add(-time.Hour)},
		},
	}

	service, live, runRepo := newRefreshFixture(t, issueFeed, commitFeed)

	run := models.NewRefreshRun()
	require.NoError(t, runRepo.Create(run))

	require.NoError(t, service.Run(context.Background(), run))

	// The run landed in the swapped store, completed
	stored, err := runRepo.GetByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RefreshStatusCompleted, stored.Status)
	assert.Equal(t, models.RefreshStageDone, stored.Stage)
	assert.Equal(t, 1, stored.IssuesIngested)
	assert.Equal(t, 1, stored.CommitsIngested)
	assert.Equal(t, 0, stored.UnresolvedIdentities)

	// created + status change + commit; no updated event without UpdatedAt
	events, err := repositories.NewEventRepository(live).GetAll()
	require.NoError(t, err)
	require.Len(t, events, 3)
	for _, event := range events {
		assert.NotEmpty(t, event.LocalDate)
		assert.NotEmpty(t, event.TimeBucket)
	}

	// Events inside the sprint window carry its sprint ID
	byDate, err := repositories.NewEventRepository(live).GetByLocalDate("2025-03-14")
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	for _, event := range byDate {
		require.NotNil(t, event.SprintID)
	}

	// The rollup matches the event set
	total, err := repositories.NewActivitySummaryRepository(live).SumTotalForDate("2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// Velocity: 5 points planned before the sprint, done inside it
	velocities, err := repositories.NewSprintVelocityRepository(live).GetAll()
	require.NoError(t, err)
	require.Len(t, velocities, 1)
	assert.Equal(t, 5.0, velocities[0].PlannedPoints)
	assert.Equal(t, 5.0, velocities[0].DeliveredPoints)
	assert.Equal(t, 100.0, velocities[0].CompletionRate)
}

func TestRunProducesIdenticalRollupAcrossRefreshes(t *testing.T) {
	sprintStart := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	sprintEnd := time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC)
	authoredAt := time.Date(2025, 3, 14, 14, 30, 0, 0, time.UTC)

	issueFeed := &stubIssueFeed{
		sprints: []feeds.SprintRecord{
			{ID: 101, Name: "Sprint 1", State: "closed", StartAt: &sprintStart, EndAt: &sprintEnd},
		},
		issues: []feeds.IssueRecord{
			{
				Key:             "PROJ-1",
				Summary:         "Add login",
				Status:          "Done",
				CreatorIdentity: "jane.doe@example.com",
				CreatorName:     "Jane Doe",
				CreatedAt:       time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
				SprintIDs:       []int64{101},
			},
		},
	}
	commitFeed := &stubCommitFeed{
		commits: []feeds.CommitRecord{
			{SHA: "abc123", AuthorIdentity: "jane.doe@example.com", AuthorName: "Jane Doe", Message: "Implement login", AuthoredAt: authoredAt},
		},
	}

	service, live, runRepo := newRefreshFixture(t, issueFeed, commitFeed)
	summaryRepo := repositories.NewActivitySummaryRepository(live)

	first := models.NewRefreshRun()
	require.NoError(t, runRepo.Create(first))
	require.NoError(t, service.Run(context.Background(), first))

	before, err := summaryRepo.GetByDate("2025-03-14")
	require.NoError(t, err)
	require.NotEmpty(t, before)

	// Same feed contents again: the rebuilt rollup must match row for row,
	// IDs included
	second := models.NewRefreshRun()
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second.UpdatedAt = second.CreatedAt
	require.NoError(t, runRepo.Create(second))
	require.NoError(t, service.Run(context.Background(), second))

	after, err := summaryRepo.GetByDate("2025-03-14")
	require.NoError(t, err)
	require.Equal(t, len(before), len(after))

	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].ActivityDate, after[i].ActivityDate)
		assert.Equal(t, before[i].DeveloperID, after[i].DeveloperID)
		assert.Equal(t, before[i].SprintID, after[i].SprintID)
		assert.Equal(t, before[i].TimeBucket, after[i].TimeBucket)
		assert.Equal(t, before[i].JiraCount, after[i].JiraCount)
		assert.Equal(t, before[i].RepoCount, after[i].RepoCount)
		assert.Equal(t, before[i].TotalCount, after[i].TotalCount)
	}
}

func TestRunFeedFailureLeavesLiveStoreUntouched(t *testing.T) {
	issueFeed := &stubIssueFeed{err: errors.New("connection refused")}
	service, live, runRepo := newRefreshFixture(t, issueFeed, &stubCommitFeed{})

	// Pre-existing data that must survive the failed refresh
	existing := models.NewDeveloper("keeper@example.com", "Keeper")
	require.NoError(t, repositories.NewDeveloperRepository(live).Create(existing))

	run := models.NewRefreshRun()
	require.NoError(t, runRepo.Create(run))

	err := service.Run(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extracting")

	stored, err := runRepo.GetByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RefreshStatusFailed, stored.Status)
	assert.Equal(t, models.RefreshStageExtracting, stored.Stage)
	require.NotNil(t, stored.ErrorMessage)

	kept, err := repositories.NewDeveloperRepository(live).GetByEmail("keeper@example.com")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, kept.ID)
}

func TestRunCarriesRunHistoryAcrossSwaps(t *testing.T) {
	service, _, runRepo := newRefreshFixture(t, &stubIssueFeed{}, &stubCommitFeed{})

	past := models.NewRefreshRun()
	past.MarkStarted()
	past.MarkCompleted()
	require.NoError(t, runRepo.Create(past))

	run := models.NewRefreshRun()
	run.CreatedAt = past.CreatedAt.Add(time.Second)
	run.UpdatedAt = run.CreatedAt
	require.NoError(t, runRepo.Create(run))

	require.NoError(t, service.Run(context.Background(), run))

	runs, err := runRepo.GetAll()
	require.NoError(t, err)
	require.Len(t, runs, 2, "earlier runs survive the database swap")
	assert.Equal(t, past.ID, runs[0].ID)
	assert.Equal(t, run.ID, runs[1].ID)
}
