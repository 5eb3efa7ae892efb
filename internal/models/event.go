package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind represents the kind of activity an event records
type EventKind string

const (
	EventKindIssueCreated  EventKind = "issue_created"
	EventKindIssueUpdated  EventKind = "issue_updated"
	EventKindStatusChanged EventKind = "status_changed"
	EventKindCommit        EventKind = "commit"
)

// IsRepoKind reports whether the kind originates from the version-control feed
func (k EventKind) IsRepoKind() bool {
	return k == EventKindCommit
}

// Event is an immutable fact of developer activity. LocalDate, TimeBucket and
// SprintID are resolved during classification; SprintID stays nil when no
// sprint contains the event's local date.
type Event struct {
	ID          string    `json:"id"`
	DeveloperID string    `json:"developer_id"`
	Kind        EventKind `json:"kind"`
	OccurredAt  time.Time `json:"occurred_at"`
	LocalDate   string    `json:"local_date"`
	TimeBucket  string    `json:"time_bucket"`
	SprintID    *string   `json:"sprint_id"`
	IssueID     *string   `json:"issue_id"`
	CommitSHA   *string   `json:"commit_sha"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEvent creates a new Event with a generated UUID
func NewEvent(developerID string, kind EventKind, occurredAt time.Time) *Event {
	return &Event{
		ID:          uuid.New().String(),
		DeveloperID: developerID,
		Kind:        kind,
		OccurredAt:  occurredAt,
	}
}
