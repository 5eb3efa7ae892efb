package repositories

import (
	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/pkg/database"
)

type SprintRepository struct {
	store *database.Store
}

func NewSprintRepository(store *database.Store) *SprintRepository {
	return &SprintRepository{store: store}
}

// Create creates a new sprint
func (r *SprintRepository) Create(sprint *models.Sprint) error {
	query := `
		INSERT INTO sprints (
			id, external_id, name, state, start_at, end_at, start_date, end_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.store.DB().Exec(query,
		sprint.ID, sprint.ExternalID, sprint.Name, sprint.State,
		sprint.StartAt, sprint.EndAt, nullableString(sprint.StartDate), nullableString(sprint.EndDate),
	)
	return err
}

// GetByID retrieves a sprint by ID
func (r *SprintRepository) GetByID(id string) (*models.Sprint, error) {
	query := `
		SELECT id, external_id, name, state, start_at, end_at, start_date, end_date, created_at
		FROM sprints WHERE id = ?
	`

	sprint := &models.Sprint{}
	var startDate, endDate *string
	err := r.store.DB().QueryRow(query, id).Scan(
		&sprint.ID, &sprint.ExternalID, &sprint.Name, &sprint.State,
		&sprint.StartAt, &sprint.EndAt, &startDate, &endDate, &sprint.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startDate != nil {
		sprint.StartDate = *startDate
	}
	if endDate != nil {
		sprint.EndDate = *endDate
	}
	return sprint, nil
}

// GetAll retrieves all sprints ordered by start instant
func (r *SprintRepository) GetAll() ([]*models.Sprint, error) {
	query := `
		SELECT id, external_id, name, state, start_at, end_at, start_date, end_date, created_at
		FROM sprints ORDER BY start_at, external_id
	`

	return r.querySprints(query)
}

// GetWithBoundaries retrieves sprints that have both a start and an end
// instant, the only ones eligible for date assignment and velocity
func (r *SprintRepository) GetWithBoundaries() ([]*models.Sprint, error) {
	query := `
		SELECT id, external_id, name, state, start_at, end_at, start_date, end_date, created_at
		FROM sprints
		WHERE start_at IS NOT NULL AND end_at IS NOT NULL
		ORDER BY start_at, external_id
	`

	return r.querySprints(query)
}

func (r *SprintRepository) querySprints(query string, args ...interface{}) ([]*models.Sprint, error) {
	rows, err := r.store.DB().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sprints []*models.Sprint
	for rows.Next() {
		sprint := &models.Sprint{}
		var startDate, endDate *string
		err := rows.Scan(
			&sprint.ID, &sprint.ExternalID, &sprint.Name, &sprint.State,
			&sprint.StartAt, &sprint.EndAt, &startDate, &endDate, &sprint.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if startDate != nil {
			sprint.StartDate = *startDate
		}
		if endDate != nil {
			sprint.EndDate = *endDate
		}
		sprints = append(sprints, sprint)
	}

	return sprints, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
