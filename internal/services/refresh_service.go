package services

import (
	"context"
	"fmt"
	"os"

	"github.com/alimgiray/sprintscope/internal/feeds"
	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/internal/repositories"
	"github.com/alimgiray/sprintscope/pkg/config"
	"github.com/alimgiray/sprintscope/pkg/database"
	"github.com/alimgiray/sprintscope/pkg/logger"
)

// RefreshService sequences a full pipeline run: back up the live store, pull
// both feeds, normalize and classify into a freshly created schema at a side
// location, materialize, then atomically swap the rebuilt store in. Any
// failure leaves the previously committed store untouched; readers never see
// a half-built schema.
type RefreshService struct {
	live          *database.Store
	cfg           *config.Config
	issueFeed     feeds.IssueFeed
	commitFeed    feeds.CommitFeed
	backupService *BackupService
	runRepo       *repositories.RefreshRunRepository
}

// NewRefreshService creates a refresh orchestrator bound to the live store
func NewRefreshService(
	live *database.Store,
	cfg *config.Config,
	issueFeed feeds.IssueFeed,
	commitFeed feeds.CommitFeed,
	backupService *BackupService,
	runRepo *repositories.RefreshRunRepository,
) *RefreshService {
	return &RefreshService{
		live:          live,
		cfg:           cfg,
		issueFeed:     issueFeed,
		commitFeed:    commitFeed,
		backupService: backupService,
		runRepo:       runRepo,
	}
}

// Run executes the pipeline for one refresh run, advancing its stage as it
// goes. On success the run is completed and the rebuilt store becomes the
// live one; on failure the run records the failing stage and the live store
// is left exactly as it was.
func (s *RefreshService) Run(ctx context.Context, run *models.RefreshRun) error {
	run.MarkStarted()
	s.advance(run, models.RefreshStageBackingUp)

	if _, err := s.backupService.Snapshot(s.live); err != nil {
		return s.fail(run, err)
	}

	rebuildPath := s.live.Path() + ".rebuild"
	rebuild, err := s.openRebuildStore(rebuildPath)
	if err != nil {
		return s.fail(run, err)
	}
	defer s.discardRebuild(rebuild, rebuildPath)

	s.advance(run, models.RefreshStageExtracting)
	sprintRecords, issueRecords, commitRecords, err := s.extract(ctx)
	if err != nil {
		return s.fail(run, err)
	}
	run.IssuesIngested = len(issueRecords)
	run.CommitsIngested = len(commitRecords)

	s.advance(run, models.RefreshStageNormalizing)
	events, err := s.normalize(rebuild, run, sprintRecords, issueRecords, commitRecords)
	if err != nil {
		return s.fail(run, err)
	}

	s.advance(run, models.RefreshStageClassifying)
	if err := s.classify(rebuild, run, events); err != nil {
		return s.fail(run, err)
	}

	s.advance(run, models.RefreshStageMaterializing)
	if err := s.materialize(rebuild); err != nil {
		return s.fail(run, err)
	}

	if err := s.commit(rebuild, rebuildPath, run); err != nil {
		return s.fail(run, err)
	}

	logger.WithFields(map[string]interface{}{
		"run":        run.ID,
		"issues":     run.IssuesIngested,
		"commits":    run.CommitsIngested,
		"events":     run.EventsCreated,
		"unresolved": run.UnresolvedIdentities,
	}).Info("Refresh completed")
	return nil
}

// extract pulls fresh raw records from both feeds. Full pull, no incremental
// watermark; a feed failure is fatal to this refresh attempt.
func (s *RefreshService) extract(ctx context.Context) ([]feeds.SprintRecord, []feeds.IssueRecord, []feeds.CommitRecord, error) {
	sprintRecords, err := s.issueFeed.FetchSprints(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("issue feed: %w", err)
	}

	issueRecords, err := s.issueFeed.FetchIssues(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("issue feed: %w", err)
	}

	commitRecords, err := s.commitFeed.FetchCommits(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("commit feed: %w", err)
	}

	return sprintRecords, issueRecords, commitRecords, nil
}

// normalize persists sprints and issues into the rebuild store, resolving
// every identity through the registry, and returns the not-yet-classified
// events
func (s *RefreshService) normalize(
	rebuild *database.Store,
	run *models.RefreshRun,
	sprintRecords []feeds.SprintRecord,
	issueRecords []feeds.IssueRecord,
	commitRecords []feeds.CommitRecord,
) ([]*models.Event, error) {
	temporal := NewTemporalService(s.cfg.Pipeline.Timezone)
	sprintRepo := repositories.NewSprintRepository(rebuild)

	sprintsByExternalID := make(map[int64]*models.Sprint, len(sprintRecords))
	for _, record := range sprintRecords {
		sprint := models.NewSprint(record.ID, record.Name, sprintState(record.State), record.StartAt, record.EndAt)
		sprint.LocalizeBoundaries(temporal.Location())
		if !sprint.HasBoundaries() {
			run.SprintsWithoutDates++
		}
		if err := sprintRepo.Create(sprint); err != nil {
			return nil, fmt.Errorf("failed to store sprint %s: %w", record.Name, err)
		}
		sprintsByExternalID[record.ID] = sprint
	}

	normalizer := NewEmailNormalizerService(s.cfg.Pipeline.DomainEquivalences)
	registry := NewDeveloperService(
		repositories.NewDeveloperRepository(rebuild),
		repositories.NewEmailAliasRepository(rebuild),
		normalizer,
		s.cfg.Pipeline.ActiveRoster,
	)
	extractor := NewEventExtractorService(
		registry,
		repositories.NewIssueRepository(rebuild),
		repositories.NewEventRepository(rebuild),
		s.cfg.Pipeline.StoryPointFields,
		s.cfg.Pipeline.UnknownPolicy,
	)

	issueResult, err := extractor.ExtractIssueEvents(issueRecords, sprintsByExternalID)
	if err != nil {
		return nil, err
	}

	commitResult, err := extractor.ExtractCommitEvents(commitRecords)
	if err != nil {
		return nil, err
	}

	run.UnresolvedIdentities = issueResult.UnresolvedIdentities + commitResult.UnresolvedIdentities
	run.DroppedEvents = issueResult.DroppedEvents + commitResult.DroppedEvents

	return append(issueResult.Events, commitResult.Events...), nil
}

// classify stamps every event with its local date, time bucket and sprint,
// then persists it
func (s *RefreshService) classify(rebuild *database.Store, run *models.RefreshRun, events []*models.Event) error {
	temporal := NewTemporalService(s.cfg.Pipeline.Timezone)

	sprints, err := repositories.NewSprintRepository(rebuild).GetWithBoundaries()
	if err != nil {
		return err
	}

	eventRepo := repositories.NewEventRepository(rebuild)
	for _, event := range events {
		event.LocalDate = temporal.LocalDate(event.OccurredAt)
		event.TimeBucket = temporal.BucketFor(event.OccurredAt)
		if sprint := temporal.SprintFor(event.LocalDate, sprints); sprint != nil {
			event.SprintID = &sprint.ID
		}
		if err := eventRepo.Create(event); err != nil {
			return fmt.Errorf("failed to store event: %w", err)
		}
	}

	run.EventsCreated = len(events)
	return nil
}

// materialize rebuilds the daily rollup and the velocity rows in the
// rebuild store
func (s *RefreshService) materialize(rebuild *database.Store) error {
	materializer := NewMaterializerService(
		repositories.NewEventRepository(rebuild),
		repositories.NewActivitySummaryRepository(rebuild),
	)
	if err := materializer.Rebuild(); err != nil {
		return err
	}

	velocity := NewVelocityService(
		repositories.NewSprintRepository(rebuild),
		repositories.NewIssueRepository(rebuild),
		repositories.NewDeveloperRepository(rebuild),
		repositories.NewSprintVelocityRepository(rebuild),
		s.cfg.Pipeline.DoneStatuses,
	)
	return velocity.ComputeAll()
}

// commit carries the run history into the rebuilt store, records this run as
// completed, and swaps the rebuilt file in as the live database
func (s *RefreshService) commit(rebuild *database.Store, rebuildPath string, run *models.RefreshRun) error {
	history, err := s.runRepo.GetAll()
	if err != nil {
		return err
	}

	rebuildRunRepo := repositories.NewRefreshRunRepository(rebuild)
	for _, past := range history {
		if past.ID == run.ID {
			continue
		}
		if err := rebuildRunRepo.Create(past); err != nil {
			return err
		}
	}

	run.MarkCompleted()
	if err := rebuildRunRepo.Create(run); err != nil {
		return err
	}

	if err := rebuild.Close(); err != nil {
		return err
	}

	return s.live.Swap(rebuildPath)
}

func (s *RefreshService) openRebuildStore(rebuildPath string) (*database.Store, error) {
	// Clear leftovers from an earlier aborted refresh
	os.Remove(rebuildPath)
	os.Remove(rebuildPath + "-wal")
	os.Remove(rebuildPath + "-shm")

	rebuild, err := database.Open(rebuildPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open rebuild store: %w", err)
	}

	if err := rebuild.Migrate(s.cfg.Database.MigrationsDir); err != nil {
		rebuild.Close()
		return nil, fmt.Errorf("failed to migrate rebuild store: %w", err)
	}

	return rebuild, nil
}

// discardRebuild removes the side-location files. After a successful swap the
// rebuilt file no longer exists under its side name, so this is a no-op.
func (s *RefreshService) discardRebuild(rebuild *database.Store, rebuildPath string) {
	rebuild.Close()
	os.Remove(rebuildPath)
	os.Remove(rebuildPath + "-wal")
	os.Remove(rebuildPath + "-shm")
}

// fail records the failing stage on the run and reports it. The run's Stage
// field still points at the stage that failed, which is what distinguishes
// an extraction failure from a materialization failure for the operator.
func (s *RefreshService) fail(run *models.RefreshRun, err error) error {
	run.MarkFailed(err.Error())
	if updateErr := s.runRepo.Update(run); updateErr != nil {
		logger.WithError(updateErr).Error("Failed to persist refresh run failure")
	}

	logger.WithError(err).WithField("stage", run.Stage).Error("Refresh failed")
	return fmt.Errorf("refresh failed during %s: %w", run.Stage, err)
}

func (s *RefreshService) advance(run *models.RefreshRun, stage models.RefreshStage) {
	run.Stage = stage
	if err := s.runRepo.Update(run); err != nil {
		logger.WithError(err).Warn("Failed to persist refresh run stage")
	}
}

func sprintState(state string) models.SprintState {
	switch state {
	case "active":
		return models.SprintStateActive
	case "closed":
		return models.SprintStateClosed
	default:
		return models.SprintStateUpcoming
	}
}
