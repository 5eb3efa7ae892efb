package repositories

import (
	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/pkg/database"
)

type IssueRepository struct {
	store *database.Store
}

func NewIssueRepository(store *database.Store) *IssueRepository {
	return &IssueRepository{store: store}
}

// Create creates a new issue
func (r *IssueRepository) Create(issue *models.Issue) error {
	query := `
		INSERT INTO issues (
			id, issue_key, summary, status, assignee_id, creator_id,
			created_at_source, updated_at_source, story_points
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.store.DB().Exec(query,
		issue.ID, issue.Key, issue.Summary, issue.Status, issue.AssigneeID, issue.CreatorID,
		issue.CreatedAtSource, issue.UpdatedAtSource, issue.StoryPoints,
	)
	return err
}

// GetByKey retrieves an issue by its tracker key
func (r *IssueRepository) GetByKey(key string) (*models.Issue, error) {
	query := `
		SELECT id, issue_key, summary, status, assignee_id, creator_id,
		       created_at_source, updated_at_source, story_points, created_at
		FROM issues WHERE issue_key = ?
	`

	issue := &models.Issue{}
	err := r.store.DB().QueryRow(query, key).Scan(
		&issue.ID, &issue.Key, &issue.Summary, &issue.Status, &issue.AssigneeID, &issue.CreatorID,
		&issue.CreatedAtSource, &issue.UpdatedAtSource, &issue.StoryPoints, &issue.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return issue, nil
}

// GetAll retrieves all issues ordered by key
func (r *IssueRepository) GetAll() ([]*models.Issue, error) {
	query := `
		SELECT id, issue_key, summary, status, assignee_id, creator_id,
		       created_at_source, updated_at_source, story_points, created_at
		FROM issues ORDER BY issue_key
	`

	return r.queryIssues(query)
}

// GetBySprintID retrieves all issues linked to a sprint
func (r *IssueRepository) GetBySprintID(sprintID string) ([]*models.Issue, error) {
	query := `
		SELECT i.id, i.issue_key, i.summary, i.status, i.assignee_id, i.creator_id,
		       i.created_at_source, i.updated_at_source, i.story_points, i.created_at
		FROM issues i
		INNER JOIN issue_sprints isp ON isp.issue_id = i.id
		WHERE isp.sprint_id = ?
		ORDER BY i.issue_key
	`

	return r.queryIssues(query, sprintID)
}

func (r *IssueRepository) queryIssues(query string, args ...interface{}) ([]*models.Issue, error) {
	rows, err := r.store.DB().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []*models.Issue
	for rows.Next() {
		issue := &models.Issue{}
		err := rows.Scan(
			&issue.ID, &issue.Key, &issue.Summary, &issue.Status, &issue.AssigneeID, &issue.CreatorID,
			&issue.CreatedAtSource, &issue.UpdatedAtSource, &issue.StoryPoints, &issue.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}

	return issues, rows.Err()
}

// LinkSprint records an issue's membership in a sprint
func (r *IssueRepository) LinkSprint(issueID, sprintID string) error {
	query := `INSERT OR IGNORE INTO issue_sprints (issue_id, sprint_id) VALUES (?, ?)`
	_, err := r.store.DB().Exec(query, issueID, sprintID)
	return err
}

// CreateTransition records one status change for an issue
func (r *IssueRepository) CreateTransition(transition *models.IssueTransition) error {
	query := `
		INSERT INTO issue_transitions (
			id, issue_id, from_status, to_status, author_id, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.store.DB().Exec(query,
		transition.ID, transition.IssueID, transition.FromStatus,
		transition.ToStatus, transition.AuthorID, transition.OccurredAt,
	)
	return err
}

// GetTransitionsByIssueID retrieves an issue's status history in order
func (r *IssueRepository) GetTransitionsByIssueID(issueID string) ([]*models.IssueTransition, error) {
	query := `
		SELECT id, issue_id, from_status, to_status, author_id, occurred_at
		FROM issue_transitions WHERE issue_id = ?
		ORDER BY occurred_at
	`

	rows, err := r.store.DB().Query(query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []*models.IssueTransition
	for rows.Next() {
		transition := &models.IssueTransition{}
		err := rows.Scan(
			&transition.ID, &transition.IssueID, &transition.FromStatus,
			&transition.ToStatus, &transition.AuthorID, &transition.OccurredAt,
		)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, transition)
	}

	return transitions, rows.Err()
}
