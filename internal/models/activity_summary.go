package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivitySummary is one materialized row of the daily activity rollup:
// event counts for a (date, developer, sprint, time bucket) group, split by
// originating feed. The sum of TotalCount across a date's rows reconstructs
// the event set for that date exactly.
type ActivitySummary struct {
	ID           string    `json:"id"`
	ActivityDate string    `json:"activity_date"`
	DeveloperID  string    `json:"developer_id"`
	SprintID     *string   `json:"sprint_id"`
	TimeBucket   string    `json:"time_bucket"`
	JiraCount    int       `json:"jira_count"`
	RepoCount    int       `json:"repo_count"`
	TotalCount   int       `json:"total_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewActivitySummary creates a new ActivitySummary with a generated UUID
func NewActivitySummary(activityDate, developerID string, sprintID *string, timeBucket string) *ActivitySummary {
	return &ActivitySummary{
		ID:           uuid.New().String(),
		ActivityDate: activityDate,
		DeveloperID:  developerID,
		SprintID:     sprintID,
		TimeBucket:   timeBucket,
	}
}

// DailyReportRow is the read-path projection of the daily report: one row per
// active developer and bucket, zero counts included so inactive days stay
// visible.
type DailyReportRow struct {
	DeveloperID    string  `json:"developer_id"`
	DeveloperName  string  `json:"developer_name"`
	CanonicalEmail string  `json:"canonical_email"`
	SprintID       *string `json:"sprint_id"`
	TimeBucket     string  `json:"time_bucket"`
	JiraCount      int     `json:"jira_count"`
	RepoCount      int     `json:"repo_count"`
	TotalCount     int     `json:"total_count"`
}
