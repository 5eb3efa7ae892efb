package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SprintState represents the lifecycle state of a sprint
type SprintState string

const (
	SprintStateUpcoming SprintState = "upcoming"
	SprintStateActive   SprintState = "active"
	SprintStateClosed   SprintState = "closed"
)

// Sprint represents a named iteration with a start and end instant.
// StartDate/EndDate are the local calendar dates of the boundaries in the
// configured timezone, empty when the corresponding instant is missing.
type Sprint struct {
	ID         string      `json:"id"`
	ExternalID int64       `json:"external_id"`
	Name       string      `json:"name"`
	State      SprintState `json:"state"`
	StartAt    *time.Time  `json:"start_at"`
	EndAt      *time.Time  `json:"end_at"`
	StartDate  string      `json:"start_date"`
	EndDate    string      `json:"end_date"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewSprint creates a new Sprint. The ID is derived from the tracker's sprint
// ID, so rebuilding the store assigns every sprint the same ID again.
func NewSprint(externalID int64, name string, state SprintState, startAt, endAt *time.Time) *Sprint {
	return &Sprint{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte("sprint:"+strconv.FormatInt(externalID, 10))).String(),
		ExternalID: externalID,
		Name:       name,
		State:      state,
		StartAt:    startAt,
		EndAt:      endAt,
	}
}

// HasBoundaries reports whether both the start and end instants are present.
// Sprints missing a boundary are excluded from date assignment and velocity.
func (s *Sprint) HasBoundaries() bool {
	return s.StartAt != nil && s.EndAt != nil
}

// LocalizeBoundaries derives the local calendar dates of the sprint
// boundaries in the given location
func (s *Sprint) LocalizeBoundaries(loc *time.Location) {
	if s.StartAt != nil {
		s.StartDate = s.StartAt.In(loc).Format("2006-01-02")
	}
	if s.EndAt != nil {
		s.EndDate = s.EndAt.In(loc).Format("2006-01-02")
	}
}
