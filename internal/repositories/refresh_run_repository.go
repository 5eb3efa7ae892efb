package repositories

import (
	"database/sql"

	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/pkg/database"
)

type RefreshRunRepository struct {
	store *database.Store
}

func NewRefreshRunRepository(store *database.Store) *RefreshRunRepository {
	return &RefreshRunRepository{store: store}
}

// Create creates a new refresh run
func (r *RefreshRunRepository) Create(run *models.RefreshRun) error {
	query := `
		INSERT INTO refresh_runs (
			id, status, stage, error_message,
			unresolved_identities, dropped_events, sprints_without_dates,
			issues_ingested, commits_ingested, events_created,
			started_at, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.store.DB().Exec(query,
		run.ID, run.Status, run.Stage, run.ErrorMessage,
		run.UnresolvedIdentities, run.DroppedEvents, run.SprintsWithoutDates,
		run.IssuesIngested, run.CommitsIngested, run.EventsCreated,
		run.StartedAt, run.CompletedAt, run.CreatedAt, run.UpdatedAt,
	)
	return err
}

// Update updates an existing refresh run
func (r *RefreshRunRepository) Update(run *models.RefreshRun) error {
	query := `
		UPDATE refresh_runs SET
			status = ?, stage = ?, error_message = ?,
			unresolved_identities = ?, dropped_events = ?, sprints_without_dates = ?,
			issues_ingested = ?, commits_ingested = ?, events_created = ?,
			started_at = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.store.DB().Exec(query,
		run.Status, run.Stage, run.ErrorMessage,
		run.UnresolvedIdentities, run.DroppedEvents, run.SprintsWithoutDates,
		run.IssuesIngested, run.CommitsIngested, run.EventsCreated,
		run.StartedAt, run.CompletedAt, run.ID,
	)
	return err
}

// GetByID retrieves a refresh run by ID
func (r *RefreshRunRepository) GetByID(id string) (*models.RefreshRun, error) {
	query := selectRefreshRun + ` WHERE id = ?`
	return r.queryOne(query, id)
}

// GetNextPending retrieves the oldest pending refresh run, or nil when none
func (r *RefreshRunRepository) GetNextPending() (*models.RefreshRun, error) {
	query := selectRefreshRun + ` WHERE status = ? ORDER BY created_at LIMIT 1`
	run, err := r.queryOne(query, models.RefreshStatusPending)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// GetLatest retrieves the most recently created refresh run
func (r *RefreshRunRepository) GetLatest() (*models.RefreshRun, error) {
	query := selectRefreshRun + ` ORDER BY created_at DESC LIMIT 1`
	return r.queryOne(query)
}

// HasInProgress checks whether a refresh run is currently executing
func (r *RefreshRunRepository) HasInProgress() (bool, error) {
	query := `SELECT COUNT(*) FROM refresh_runs WHERE status = ?`
	var count int
	err := r.store.DB().QueryRow(query, models.RefreshStatusInProgress).Scan(&count)
	return count > 0, err
}

// GetAll retrieves every refresh run, oldest first
func (r *RefreshRunRepository) GetAll() ([]*models.RefreshRun, error) {
	query := selectRefreshRun + ` ORDER BY created_at`

	rows, err := r.store.DB().Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.RefreshRun
	for rows.Next() {
		run := &models.RefreshRun{}
		err := rows.Scan(
			&run.ID, &run.Status, &run.Stage, &run.ErrorMessage,
			&run.UnresolvedIdentities, &run.DroppedEvents, &run.SprintsWithoutDates,
			&run.IssuesIngested, &run.CommitsIngested, &run.EventsCreated,
			&run.StartedAt, &run.CompletedAt, &run.CreatedAt, &run.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

const selectRefreshRun = `
	SELECT id, status, stage, error_message,
	       unresolved_identities, dropped_events, sprints_without_dates,
	       issues_ingested, commits_ingested, events_created,
	       started_at, completed_at, created_at, updated_at
	FROM refresh_runs`

func (r *RefreshRunRepository) queryOne(query string, args ...interface{}) (*models.RefreshRun, error) {
	run := &models.RefreshRun{}
	err := r.store.DB().QueryRow(query, args...).Scan(
		&run.ID, &run.Status, &run.Stage, &run.ErrorMessage,
		&run.UnresolvedIdentities, &run.DroppedEvents, &run.SprintsWithoutDates,
		&run.IssuesIngested, &run.CommitsIngested, &run.EventsCreated,
		&run.StartedAt, &run.CompletedAt, &run.CreatedAt, &run.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return run, nil
}
