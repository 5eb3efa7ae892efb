package models

import (
	"time"

	"github.com/google/uuid"
)

// SprintVelocity represents planned vs delivered story points for one sprint
type SprintVelocity struct {
	ID              string    `json:"id"`
	SprintID        string    `json:"sprint_id"`
	PlannedPoints   float64   `json:"planned_points"`
	DeliveredPoints float64   `json:"delivered_points"`
	CompletionRate  float64   `json:"completion_rate"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewSprintVelocity creates a new SprintVelocity with a generated UUID.
// The completion rate is 0 when nothing was planned.
func NewSprintVelocity(sprintID string, planned, delivered float64) *SprintVelocity {
	v := &SprintVelocity{
		ID:              uuid.New().String(),
		SprintID:        sprintID,
		PlannedPoints:   planned,
		DeliveredPoints: delivered,
	}
	if planned > 0 {
		v.CompletionRate = delivered / planned * 100
	}
	return v
}
