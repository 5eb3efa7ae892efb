package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimgiray/sprintscope/internal/models"
)

func TestBucketFor(t *testing.T) {
	temporal := NewTemporalService("UTC")

	testCases := []struct {
		name     string
		instant  time.Time
		expected string
	}{
		{
			name:     "Just before the first window is off-hours",
			instant:  time.Date(2025, 3, 10, 7, 59, 59, 0, time.UTC),
			expected: BucketOffHours,
		},
		{
			name:     "Exactly on a boundary opens the window",
			instant:  time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
			expected: BucketMorningEarly,
		},
		{
			name:     "Last second of a window still belongs to it",
			instant:  time.Date(2025, 3, 10, 9, 59, 59, 0, time.UTC),
			expected: BucketMorningEarly,
		},
		{
			name:     "Boundary between windows belongs to the later one",
			instant:  time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
			expected: BucketMorningLate,
		},
		{
			name:     "Midday",
			instant:  time.Date(2025, 3, 10, 13, 30, 0, 0, time.UTC),
			expected: BucketMidday,
		},
		{
			name:     "End of the last window is off-hours",
			instant:  time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
			expected: BucketOffHours,
		},
		{
			name:     "Middle of the night is off-hours",
			instant:  time.Date(2025, 3, 10, 2, 15, 0, 0, time.UTC),
			expected: BucketOffHours,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, temporal.BucketFor(tc.instant))
		})
	}
}

func TestBucketForUsesConfiguredTimezone(t *testing.T) {
	temporal := NewTemporalService("Europe/Istanbul")
	require.False(t, temporal.UsedFallback())

	// 06:30 UTC is 09:30 in Istanbul (UTC+3)
	instant := time.Date(2025, 3, 10, 6, 30, 0, 0, time.UTC)
	assert.Equal(t, BucketMorningEarly, temporal.BucketFor(instant))
	assert.Equal(t, "2025-03-10", temporal.LocalDate(instant))

	// 22:30 UTC is next day 01:30 local
	late := time.Date(2025, 3, 10, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, BucketOffHours, temporal.BucketFor(late))
	assert.Equal(t, "2025-03-11", temporal.LocalDate(late))
}

func TestInvalidTimezoneFallsBackToUTC(t *testing.T) {
	temporal := NewTemporalService("Not/AZone")

	assert.True(t, temporal.UsedFallback())
	assert.Equal(t, time.UTC, temporal.Location())
}

func TestSprintFor(t *testing.T) {
	temporal := NewTemporalService("UTC")

	boundary := func(year, month, day int) *time.Time {
		ts := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		return &ts
	}

	first := &models.Sprint{
		ID:         "sprint-1",
		ExternalID: 101,
		Name:       "Sprint 1",
		StartAt:    boundary(2025, 3, 3),
		EndAt:      boundary(2025, 3, 16),
		StartDate:  "2025-03-03",
		EndDate:    "2025-03-16",
	}
	overlapping := &models.Sprint{
		ID:         "sprint-2",
		ExternalID: 102,
		Name:       "Sprint 2",
		StartAt:    boundary(2025, 3, 10),
		EndAt:      boundary(2025, 3, 23),
		StartDate:  "2025-03-10",
		EndDate:    "2025-03-23",
	}
	unbounded := &models.Sprint{
		ID:         "sprint-3",
		ExternalID: 103,
		Name:       "Backlog",
		StartAt:    boundary(2025, 3, 1),
		StartDate:  "2025-03-01",
	}
	sprints := []*models.Sprint{overlapping, first, unbounded}

	testCases := []struct {
		name      string
		localDate string
		expected  *models.Sprint
	}{
		{
			name:      "Date inside a single sprint",
			localDate: "2025-03-05",
			expected:  first,
		},
		{
			name:      "Overlap resolves to the earlier start date",
			localDate: "2025-03-12",
			expected:  first,
		},
		{
			name:      "Date past the first sprint lands in the second",
			localDate: "2025-03-20",
			expected:  overlapping,
		},
		{
			name:      "Sprint without an end date never matches",
			localDate: "2025-03-02",
			expected:  nil,
		},
		{
			name:      "Date outside all sprints",
			localDate: "2025-04-01",
			expected:  nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, temporal.SprintFor(tc.localDate, sprints))
		})
	}
}

func TestSprintForBreaksFullTieOnExternalID(t *testing.T) {
	temporal := NewTemporalService("UTC")

	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)

	higher := &models.Sprint{ID: "b", ExternalID: 202, StartAt: &start, EndAt: &end, StartDate: "2025-03-03", EndDate: "2025-03-16"}
	lower := &models.Sprint{ID: "a", ExternalID: 201, StartAt: &start, EndAt: &end, StartDate: "2025-03-03", EndDate: "2025-03-16"}

	match := temporal.SprintFor("2025-03-10", []*models.Sprint{higher, lower})
	require.NotNil(t, match)
	assert.Equal(t, int64(201), match.ExternalID)
}
