package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshStatus represents the status of a refresh run
type RefreshStatus string

const (
	RefreshStatusPending    RefreshStatus = "pending"
	RefreshStatusInProgress RefreshStatus = "in-progress"
	RefreshStatusCompleted  RefreshStatus = "completed"
	RefreshStatusFailed     RefreshStatus = "failed"
)

// RefreshStage represents where in the pipeline a refresh run currently is,
// or where it failed
type RefreshStage string

const (
	RefreshStageIdle          RefreshStage = "idle"
	RefreshStageBackingUp     RefreshStage = "backing_up"
	RefreshStageExtracting    RefreshStage = "extracting"
	RefreshStageNormalizing   RefreshStage = "normalizing"
	RefreshStageClassifying   RefreshStage = "classifying"
	RefreshStageMaterializing RefreshStage = "materializing"
	RefreshStageDone          RefreshStage = "done"
)

// RefreshRun represents one full pipeline execution, including the anomaly
// counters absorbed along the way
type RefreshRun struct {
	ID                   string        `json:"id"`
	Status               RefreshStatus `json:"status"`
	Stage                RefreshStage  `json:"stage"`
	ErrorMessage         *string       `json:"error_message"`
	UnresolvedIdentities int           `json:"unresolved_identities"`
	DroppedEvents        int           `json:"dropped_events"`
	SprintsWithoutDates  int           `json:"sprints_without_dates"`
	IssuesIngested       int           `json:"issues_ingested"`
	CommitsIngested      int           `json:"commits_ingested"`
	EventsCreated        int           `json:"events_created"`
	StartedAt            *time.Time    `json:"started_at"`
	CompletedAt          *time.Time    `json:"completed_at"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// NewRefreshRun creates a new pending RefreshRun with a generated UUID
func NewRefreshRun() *RefreshRun {
	now := time.Now()
	return &RefreshRun{
		ID:        uuid.New().String(),
		Status:    RefreshStatusPending,
		Stage:     RefreshStageIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsPending checks if the run has not started yet
func (r *RefreshRun) IsPending() bool {
	return r.Status == RefreshStatusPending
}

// MarkStarted marks the run as started
func (r *RefreshRun) MarkStarted() {
	now := time.Now()
	r.Status = RefreshStatusInProgress
	r.StartedAt = &now
}

// MarkCompleted marks the run as completed
func (r *RefreshRun) MarkCompleted() {
	now := time.Now()
	r.Status = RefreshStatusCompleted
	r.Stage = RefreshStageDone
	r.CompletedAt = &now
}

// MarkFailed marks the run as failed at its current stage
func (r *RefreshRun) MarkFailed(message string) {
	now := time.Now()
	r.Status = RefreshStatusFailed
	r.ErrorMessage = &message
	r.CompletedAt = &now
}
