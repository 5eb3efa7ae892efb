package services

import (
	"fmt"
	"sort"

	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/internal/repositories"
	"github.com/google/uuid"
)

// MaterializerService maintains the daily activity rollup that all reporting
// queries read from instead of scanning raw events. The rollup is rebuilt in
// full on every refresh, never incrementally updated.
type MaterializerService struct {
	eventRepo   *repositories.EventRepository
	summaryRepo *repositories.ActivitySummaryRepository
}

// NewMaterializerService creates a materializer
func NewMaterializerService(
	eventRepo *repositories.EventRepository,
	summaryRepo *repositories.ActivitySummaryRepository,
) *MaterializerService {
	return &MaterializerService{
		eventRepo:   eventRepo,
		summaryRepo: summaryRepo,
	}
}

// Rebuild regroups all events into summary rows and replaces the rollup table
// inside a single transaction. Rebuilding from an unchanged event set yields
// identical rows: grouping keys are sorted and row IDs are derived from the
// group key, so nothing depends on processing order or wall-clock time.
func (s *MaterializerService) Rebuild() error {
	events, err := s.eventRepo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	summaries := s.Summarize(events)

	if err := s.summaryRepo.ReplaceAll(summaries); err != nil {
		return fmt.Errorf("failed to replace daily activity: %w", err)
	}

	return nil
}

// Summarize groups events by (local date, developer, sprint, time bucket)
// and emits one row per group with per-feed counts. The output order is
// deterministic.
func (s *MaterializerService) Summarize(events []*models.Event) []*models.ActivitySummary {
	groups := make(map[string]*models.ActivitySummary)

	for _, event := range events {
		sprintKey := ""
		if event.SprintID != nil {
			sprintKey = *event.SprintID
		}
		key := event.LocalDate + "|" + event.DeveloperID + "|" + sprintKey + "|" + event.TimeBucket

		summary, ok := groups[key]
		if !ok {
			summary = models.NewActivitySummary(event.LocalDate, event.DeveloperID, event.SprintID, event.TimeBucket)
			// Derive the row ID from the group key so rebuilds are reproducible
			summary.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
			groups[key] = summary
		}

		if event.Kind.IsRepoKind() {
			summary.RepoCount++
		} else {
			summary.JiraCount++
		}
		summary.TotalCount++
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	summaries := make([]*models.ActivitySummary, 0, len(keys))
	for _, key := range keys {
		summaries = append(summaries, groups[key])
	}

	return summaries
}
