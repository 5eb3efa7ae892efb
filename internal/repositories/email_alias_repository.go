package repositories

import (
	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/pkg/database"
)

type EmailAliasRepository struct {
	store *database.Store
}

func NewEmailAliasRepository(store *database.Store) *EmailAliasRepository {
	return &EmailAliasRepository{store: store}
}

// Create creates a new email alias
func (r *EmailAliasRepository) Create(alias *models.EmailAlias) error {
	query := `
		INSERT INTO email_aliases (
			id, developer_id, raw_value, normalized_value, source_feed
		) VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.store.DB().Exec(query,
		alias.ID, alias.DeveloperID, alias.RawValue, alias.NormalizedValue, alias.SourceFeed,
	)
	return err
}

// GetByNormalizedValue retrieves all aliases that normalize to the given value
func (r *EmailAliasRepository) GetByNormalizedValue(normalized string) ([]*models.EmailAlias, error) {
	query := `
		SELECT id, developer_id, raw_value, normalized_value, source_feed, created_at
		FROM email_aliases WHERE normalized_value = ?
	`

	return r.queryAliases(query, normalized)
}

// GetByDeveloperID retrieves all aliases owned by a developer
func (r *EmailAliasRepository) GetByDeveloperID(developerID string) ([]*models.EmailAlias, error) {
	query := `
		SELECT id, developer_id, raw_value, normalized_value, source_feed, created_at
		FROM email_aliases WHERE developer_id = ? ORDER BY raw_value
	`

	return r.queryAliases(query, developerID)
}

// GetAll retrieves every recorded alias
func (r *EmailAliasRepository) GetAll() ([]*models.EmailAlias, error) {
	query := `
		SELECT id, developer_id, raw_value, normalized_value, source_feed, created_at
		FROM email_aliases ORDER BY raw_value
	`

	return r.queryAliases(query)
}

// ExistsByRawValue checks whether a raw alias from a feed is already recorded
func (r *EmailAliasRepository) ExistsByRawValue(rawValue string, sourceFeed models.FeedSource) (bool, error) {
	query := `SELECT COUNT(*) FROM email_aliases WHERE raw_value = ? AND source_feed = ?`
	var count int
	err := r.store.DB().QueryRow(query, rawValue, sourceFeed).Scan(&count)
	return count > 0, err
}

func (r *EmailAliasRepository) queryAliases(query string, args ...interface{}) ([]*models.EmailAlias, error) {
	rows, err := r.store.DB().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []*models.EmailAlias
	for rows.Next() {
		alias := &models.EmailAlias{}
		err := rows.Scan(
			&alias.ID, &alias.DeveloperID, &alias.RawValue,
			&alias.NormalizedValue, &alias.SourceFeed, &alias.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, alias)
	}

	return aliases, rows.Err()
}
