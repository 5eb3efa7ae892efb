package repositories

import (
	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/pkg/database"
)

type ActivitySummaryRepository struct {
	store *database.Store
}

func NewActivitySummaryRepository(store *database.Store) *ActivitySummaryRepository {
	return &ActivitySummaryRepository{store: store}
}

// ReplaceAll truncates the materialized table and inserts the given rows
// inside a single transaction; a failure rolls back and leaves the previous
// rows intact.
func (r *ActivitySummaryRepository) ReplaceAll(summaries []*models.ActivitySummary) error {
	tx, err := r.store.DB().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM daily_activity`); err != nil {
		return err
	}

	query := `
		INSERT INTO daily_activity (
			id, activity_date, developer_id, sprint_id, time_bucket,
			jira_count, repo_count, total_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, summary := range summaries {
		_, err := stmt.Exec(
			summary.ID, summary.ActivityDate, summary.DeveloperID, summary.SprintID,
			summary.TimeBucket, summary.JiraCount, summary.RepoCount, summary.TotalCount,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByDate retrieves the materialized rows for a date in a stable order
func (r *ActivitySummaryRepository) GetByDate(activityDate string) ([]*models.ActivitySummary, error) {
	query := `
		SELECT id, activity_date, developer_id, sprint_id, time_bucket,
		       jira_count, repo_count, total_count, created_at
		FROM daily_activity WHERE activity_date = ?
		ORDER BY developer_id, time_bucket, sprint_id
	`

	rows, err := r.store.DB().Query(query, activityDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*models.ActivitySummary
	for rows.Next() {
		summary := &models.ActivitySummary{}
		err := rows.Scan(
			&summary.ID, &summary.ActivityDate, &summary.DeveloperID, &summary.SprintID,
			&summary.TimeBucket, &summary.JiraCount, &summary.RepoCount, &summary.TotalCount,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

// GetDailyReport returns one row per active developer and observed bucket for
// a date. Active developers without activity that day still appear, with a
// single all-zero row, so they stay visible in reports.
func (r *ActivitySummaryRepository) GetDailyReport(activityDate string) ([]*models.DailyReportRow, error) {
	query := `
		SELECT d.id, d.display_name, d.canonical_email,
		       da.sprint_id,
		       COALESCE(da.time_bucket, ''),
		       COALESCE(da.jira_count, 0),
		       COALESCE(da.repo_count, 0),
		       COALESCE(da.total_count, 0)
		FROM developers d
		LEFT JOIN daily_activity da
		       ON da.developer_id = d.id AND da.activity_date = ?
		WHERE d.is_active = 1
		ORDER BY d.canonical_email, da.time_bucket, da.sprint_id
	`

	rows, err := r.store.DB().Query(query, activityDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report []*models.DailyReportRow
	for rows.Next() {
		row := &models.DailyReportRow{}
		err := rows.Scan(
			&row.DeveloperID, &row.DeveloperName, &row.CanonicalEmail,
			&row.SprintID, &row.TimeBucket, &row.JiraCount, &row.RepoCount, &row.TotalCount,
		)
		if err != nil {
			return nil, err
		}
		report = append(report, row)
	}

	return report, rows.Err()
}

// SumTotalForDate sums total_count across all rows for a date
func (r *ActivitySummaryRepository) SumTotalForDate(activityDate string) (int, error) {
	query := `SELECT COALESCE(SUM(total_count), 0) FROM daily_activity WHERE activity_date = ?`
	var total int
	err := r.store.DB().QueryRow(query, activityDate).Scan(&total)
	return total, err
}
