package repositories

import (
	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/pkg/database"
)

type EventRepository struct {
	store *database.Store
}

func NewEventRepository(store *database.Store) *EventRepository {
	return &EventRepository{store: store}
}

// Create creates a new event
func (r *EventRepository) Create(event *models.Event) error {
	query := `
		INSERT INTO events (
			id, developer_id, kind, occurred_at, local_date, time_bucket,
			sprint_id, issue_id, commit_sha, message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.store.DB().Exec(query,
		event.ID, event.DeveloperID, event.Kind, event.OccurredAt, event.LocalDate,
		event.TimeBucket, event.SprintID, event.IssueID, event.CommitSHA, event.Message,
	)
	return err
}

// GetAll retrieves all events in a stable order
func (r *EventRepository) GetAll() ([]*models.Event, error) {
	query := `
		SELECT id, developer_id, kind, occurred_at, local_date, time_bucket,
		       sprint_id, issue_id, commit_sha, message, created_at
		FROM events ORDER BY occurred_at, id
	`

	return r.queryEvents(query)
}

// GetByLocalDate retrieves all events with the given local date
func (r *EventRepository) GetByLocalDate(localDate string) ([]*models.Event, error) {
	query := `
		SELECT id, developer_id, kind, occurred_at, local_date, time_bucket,
		       sprint_id, issue_id, commit_sha, message, created_at
		FROM events WHERE local_date = ? ORDER BY occurred_at, id
	`

	return r.queryEvents(query, localDate)
}

// CountByLocalDate counts all events with the given local date
func (r *EventRepository) CountByLocalDate(localDate string) (int, error) {
	query := `SELECT COUNT(*) FROM events WHERE local_date = ?`
	var count int
	err := r.store.DB().QueryRow(query, localDate).Scan(&count)
	return count, err
}

// ExistsByCommitSHA checks whether a commit event for this hash already exists
func (r *EventRepository) ExistsByCommitSHA(sha string) (bool, error) {
	query := `SELECT COUNT(*) FROM events WHERE commit_sha = ?`
	var count int
	err := r.store.DB().QueryRow(query, sha).Scan(&count)
	return count > 0, err
}

func (r *EventRepository) queryEvents(query string, args ...interface{}) ([]*models.Event, error) {
	rows, err := r.store.DB().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event := &models.Event{}
		err := rows.Scan(
			&event.ID, &event.DeveloperID, &event.Kind, &event.OccurredAt, &event.LocalDate,
			&event.TimeBucket, &event.SprintID, &event.IssueID, &event.CommitSHA,
			&event.Message, &event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
