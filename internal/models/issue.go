package models

import (
	"time"

	"github.com/google/uuid"
)

// Issue represents a unit of tracked work from the issue feed
type Issue struct {
	ID              string     `json:"id"`
	Key             string     `json:"key"`
	Summary         string     `json:"summary"`
	Status          string     `json:"status"`
	AssigneeID      *string    `json:"assignee_id"`
	CreatorID       *string    `json:"creator_id"`
	CreatedAtSource time.Time  `json:"created_at_source"`
	UpdatedAtSource *time.Time `json:"updated_at_source"`
	StoryPoints     *float64   `json:"story_points"` // nil means "not estimated", distinct from zero
	CreatedAt       time.Time  `json:"created_at"`
}

// NewIssue creates a new Issue with a generated UUID
func NewIssue(key, summary, status string, createdAtSource time.Time) *Issue {
	return &Issue{
		ID:              uuid.New().String(),
		Key:             key,
		Summary:         summary,
		Status:          status,
		CreatedAtSource: createdAtSource,
	}
}

// IssueTransition represents one status change in an issue's history
type IssueTransition struct {
	ID         string    `json:"id"`
	IssueID    string    `json:"issue_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	AuthorID   *string   `json:"author_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewIssueTransition creates a new IssueTransition with a generated UUID
func NewIssueTransition(issueID, fromStatus, toStatus string, occurredAt time.Time) *IssueTransition {
	return &IssueTransition{
		ID:         uuid.New().String(),
		IssueID:    issueID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		OccurredAt: occurredAt,
	}
}
