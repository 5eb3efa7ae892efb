package repositories

import (
	"database/sql"
	"strings"

	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/pkg/database"
)

type DeveloperRepository struct {
	store *database.Store
}

func NewDeveloperRepository(store *database.Store) *DeveloperRepository {
	return &DeveloperRepository{store: store}
}

// Create creates a new developer
func (r *DeveloperRepository) Create(developer *models.Developer) error {
	query := `
		INSERT INTO developers (
			id, canonical_email, display_name, is_active
		) VALUES (?, ?, ?, ?)
	`

	_, err := r.store.DB().Exec(query,
		developer.ID, developer.CanonicalEmail, developer.DisplayName, developer.IsActive,
	)
	return err
}

// GetByID retrieves a developer by ID
func (r *DeveloperRepository) GetByID(id string) (*models.Developer, error) {
	query := `
		SELECT id, canonical_email, display_name, is_active, created_at, updated_at
		FROM developers WHERE id = ?
	`

	developer := &models.Developer{}
	err := r.store.DB().QueryRow(query, id).Scan(
		&developer.ID, &developer.CanonicalEmail, &developer.DisplayName,
		&developer.IsActive, &developer.CreatedAt, &developer.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return developer, nil
}

// GetByEmail retrieves a developer by canonical email
func (r *DeveloperRepository) GetByEmail(email string) (*models.Developer, error) {
	query := `
		SELECT id, canonical_email, display_name, is_active, created_at, updated_at
		FROM developers WHERE canonical_email = ?
	`

	developer := &models.Developer{}
	err := r.store.DB().QueryRow(query, email).Scan(
		&developer.ID, &developer.CanonicalEmail, &developer.DisplayName,
		&developer.IsActive, &developer.CreatedAt, &developer.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return developer, nil
}

// GetAll retrieves all developers ordered by canonical email
func (r *DeveloperRepository) GetAll() ([]*models.Developer, error) {
	query := `
		SELECT id, canonical_email, display_name, is_active, created_at, updated_at
		FROM developers ORDER BY canonical_email
	`

	return r.queryDevelopers(query)
}

// GetActive retrieves all developers on the active roster
func (r *DeveloperRepository) GetActive() ([]*models.Developer, error) {
	query := `
		SELECT id, canonical_email, display_name, is_active, created_at, updated_at
		FROM developers WHERE is_active = 1 ORDER BY canonical_email
	`

	return r.queryDevelopers(query)
}

func (r *DeveloperRepository) queryDevelopers(query string, args ...interface{}) ([]*models.Developer, error) {
	rows, err := r.store.DB().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var developers []*models.Developer
	for rows.Next() {
		developer := &models.Developer{}
		err := rows.Scan(
			&developer.ID, &developer.CanonicalEmail, &developer.DisplayName,
			&developer.IsActive, &developer.CreatedAt, &developer.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		developers = append(developers, developer)
	}

	return developers, rows.Err()
}

// Update updates an existing developer
func (r *DeveloperRepository) Update(developer *models.Developer) error {
	query := `
		UPDATE developers SET
			canonical_email = ?, display_name = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.store.DB().Exec(query,
		developer.CanonicalEmail, developer.DisplayName, developer.IsActive, developer.ID,
	)
	return err
}

// GetOrCreate gets a developer by canonical email or creates a new one
func (r *DeveloperRepository) GetOrCreate(developer *models.Developer) (*models.Developer, error) {
	existing, err := r.GetByEmail(developer.CanonicalEmail)
	if err == nil {
		return existing, nil
	}

	if err == sql.ErrNoRows {
		if err := r.Create(developer); err != nil {
			// If creation fails due to unique constraint violation (race condition),
			// try to get the developer again
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				existing, err = r.GetByEmail(developer.CanonicalEmail)
				if err == nil {
					return existing, nil
				}
			}
			return nil, err
		}
		return developer, nil
	}

	return nil, err
}
