package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimgiray/sprintscope/internal/models"
)

func classifiedEvent(developerID string, kind models.EventKind, localDate, bucket string, sprintID *string) *models.Event {
	event := models.NewEvent(developerID, kind, time.Now())
	event.LocalDate = localDate
	event.TimeBucket = bucket
	event.SprintID = sprintID
	return event
}

func TestSummarizeGroupsByDateDeveloperSprintAndBucket(t *testing.T) {
	materializer := NewMaterializerService(nil, nil)
	sprintA := "sprint-a"

	events := []*models.Event{
		classifiedEvent("dev-1", models.EventKindIssueCreated, "2025-03-10", BucketMorningEarly, &sprintA),
		classifiedEvent("dev-1", models.EventKindStatusChanged, "2025-03-10", BucketMorningEarly, &sprintA),
		classifiedEvent("dev-1", models.EventKindCommit, "2025-03-10", BucketMorningEarly, &sprintA),
		classifiedEvent("dev-1", models.EventKindCommit, "2025-03-10", BucketMidday, &sprintA),
		classifiedEvent("dev-2", models.EventKindCommit, "2025-03-10", BucketMorningEarly, nil),
	}

	summaries := materializer.Summarize(events)
	require.Len(t, summaries, 3)

	byKey := make(map[string]*models.ActivitySummary)
	for _, summary := range summaries {
		sprintKey := ""
		if summary.SprintID != nil {
			sprintKey = *summary.SprintID
		}
		byKey[summary.DeveloperID+"|"+sprintKey+"|"+summary.TimeBucket] = summary
	}

	morning := byKey["dev-1|sprint-a|"+BucketMorningEarly]
	require.NotNil(t, morning)
	assert.Equal(t, 2, morning.JiraCount)
	assert.Equal(t, 1, morning.RepoCount)
	assert.Equal(t, 3, morning.TotalCount)

	midday := byKey["dev-1|sprint-a|"+BucketMidday]
	require.NotNil(t, midday)
	assert.Equal(t, 0, midday.JiraCount)
	assert.Equal(t, 1, midday.RepoCount)

	unassigned := byKey["dev-2||"+BucketMorningEarly]
	require.NotNil(t, unassigned)
	assert.Nil(t, unassigned.SprintID)
	assert.Equal(t, 1, unassigned.TotalCount)
}

func TestSummarizeConservesEventCounts(t *testing.T) {
	materializer := NewMaterializerService(nil, nil)
	sprint := "sprint-a"

	events := []*models.Event{
		classifiedEvent("dev-1", models.EventKindIssueCreated, "2025-03-10", BucketMorningEarly, &sprint),
		classifiedEvent("dev-1", models.EventKindCommit, "2025-03-10", BucketOffHours, nil),
		classifiedEvent("dev-2", models.EventKindIssueUpdated, "2025-03-11", BucketMidday, &sprint),
		classifiedEvent("dev-2", models.EventKindCommit, "2025-03-11", BucketMidday, &sprint),
		classifiedEvent("dev-3", models.EventKindStatusChanged, "2025-03-11", BucketAfternoonLate, nil),
	}

	summaries := materializer.Summarize(events)

	total := 0
	for _, summary := range summaries {
		assert.Equal(t, summary.JiraCount+summary.RepoCount, summary.TotalCount)
		total += summary.TotalCount
	}
	assert.Equal(t, len(events), total)
}

func TestSummarizeIsDeterministic(t *testing.T) {
	materializer := NewMaterializerService(nil, nil)
	sprint := "sprint-a"

	forward := []*models.Event{
		classifiedEvent("dev-1", models.EventKindIssueCreated, "2025-03-10", BucketMorningEarly, &sprint),
		classifiedEvent("dev-2", models.EventKindCommit, "2025-03-10", BucketMidday, nil),
		classifiedEvent("dev-1", models.EventKindCommit, "2025-03-11", BucketOffHours, &sprint),
	}
	reversed := []*models.Event{forward[2], forward[1], forward[0]}

	first := materializer.Summarize(forward)
	second := materializer.Summarize(reversed)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "row IDs must not depend on event order")
		assert.Equal(t, first[i].ActivityDate, second[i].ActivityDate)
		assert.Equal(t, first[i].DeveloperID, second[i].DeveloperID)
		assert.Equal(t, first[i].TimeBucket, second[i].TimeBucket)
		assert.Equal(t, first[i].JiraCount, second[i].JiraCount)
		assert.Equal(t, first[i].RepoCount, second[i].RepoCount)
		assert.Equal(t, first[i].TotalCount, second[i].TotalCount)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	materializer := NewMaterializerService(nil, nil)
	assert.Empty(t, materializer.Summarize(nil))
}
