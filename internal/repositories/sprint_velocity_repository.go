package repositories

import (
	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/pkg/database"
)

type SprintVelocityRepository struct {
	store *database.Store
}

func NewSprintVelocityRepository(store *database.Store) *SprintVelocityRepository {
	return &SprintVelocityRepository{store: store}
}

// ReplaceAll truncates and re-inserts all velocity rows in one transaction
func (r *SprintVelocityRepository) ReplaceAll(velocities []*models.SprintVelocity) error {
	tx, err := r.store.DB().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sprint_velocity`); err != nil {
		return err
	}

	query := `
		INSERT INTO sprint_velocity (
			id, sprint_id, planned_points, delivered_points, completion_rate
		) VALUES (?, ?, ?, ?, ?)
	`

	for _, velocity := range velocities {
		_, err := tx.Exec(query,
			velocity.ID, velocity.SprintID, velocity.PlannedPoints,
			velocity.DeliveredPoints, velocity.CompletionRate,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetBySprintID retrieves the velocity row for a sprint
func (r *SprintVelocityRepository) GetBySprintID(sprintID string) (*models.SprintVelocity, error) {
	query := `
		SELECT id, sprint_id, planned_points, delivered_points, completion_rate, created_at
		FROM sprint_velocity WHERE sprint_id = ?
	`

	velocity := &models.SprintVelocity{}
	err := r.store.DB().QueryRow(query, sprintID).Scan(
		&velocity.ID, &velocity.SprintID, &velocity.PlannedPoints,
		&velocity.DeliveredPoints, &velocity.CompletionRate, &velocity.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return velocity, nil
}

// GetAll retrieves all velocity rows joined-ready for reporting
func (r *SprintVelocityRepository) GetAll() ([]*models.SprintVelocity, error) {
	query := `
		SELECT v.id, v.sprint_id, v.planned_points, v.delivered_points, v.completion_rate, v.created_at
		FROM sprint_velocity v
		INNER JOIN sprints s ON s.id = v.sprint_id
		ORDER BY s.start_at
	`

	rows, err := r.store.DB().Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var velocities []*models.SprintVelocity
	for rows.Next() {
		velocity := &models.SprintVelocity{}
		err := rows.Scan(
			&velocity.ID, &velocity.SprintID, &velocity.PlannedPoints,
			&velocity.DeliveredPoints, &velocity.CompletionRate, &velocity.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		velocities = append(velocities, velocity)
	}

	return velocities, rows.Err()
}
