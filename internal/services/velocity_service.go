package services

import (
	"fmt"
	"time"

	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/internal/repositories"
)

// VelocityService computes planned vs delivered story points per sprint from
// issue lifecycle timestamps. It reads raw issue data, not the materialized
// rollup.
type VelocityService struct {
	sprintRepo    *repositories.SprintRepository
	issueRepo     *repositories.IssueRepository
	developerRepo *repositories.DeveloperRepository
	velocityRepo  *repositories.SprintVelocityRepository
	doneStatuses  map[string]bool
}

// NewVelocityService creates a velocity calculator. doneStatuses lists the
// status names treated as "done-like" for delivery accounting.
func NewVelocityService(
	sprintRepo *repositories.SprintRepository,
	issueRepo *repositories.IssueRepository,
	developerRepo *repositories.DeveloperRepository,
	velocityRepo *repositories.SprintVelocityRepository,
	doneStatuses []string,
) *VelocityService {
	done := make(map[string]bool, len(doneStatuses))
	for _, status := range doneStatuses {
		done[status] = true
	}

	return &VelocityService{
		sprintRepo:    sprintRepo,
		issueRepo:     issueRepo,
		developerRepo: developerRepo,
		velocityRepo:  velocityRepo,
		doneStatuses:  done,
	}
}

// ComputeAll recomputes velocity for every sprint and replaces the persisted
// rows. Sprints missing a boundary are excluded entirely rather than
// defaulted to zero.
func (s *VelocityService) ComputeAll() error {
	sprints, err := s.sprintRepo.GetWithBoundaries()
	if err != nil {
		return fmt.Errorf("failed to load sprints: %w", err)
	}

	activeIDs, err := s.activeDeveloperIDs()
	if err != nil {
		return fmt.Errorf("failed to load active developers: %w", err)
	}

	velocities := make([]*models.SprintVelocity, 0, len(sprints))
	for _, sprint := range sprints {
		velocity, err := s.computeSprint(sprint, activeIDs)
		if err != nil {
			return err
		}
		velocities = append(velocities, velocity)
	}

	if err := s.velocityRepo.ReplaceAll(velocities); err != nil {
		return fmt.Errorf("failed to replace sprint velocity: %w", err)
	}

	return nil
}

// computeSprint computes planned and delivered points for one sprint.
// Planned counts issues created strictly before the sprint start, so scope
// added mid-sprint is kept separate from the baseline commitment. Delivered
// counts issues whose status reached a done-like state at or before the
// sprint end.
func (s *VelocityService) computeSprint(sprint *models.Sprint, activeIDs map[string]bool) (*models.SprintVelocity, error) {
	issues, err := s.issueRepo.GetBySprintID(sprint.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load issues of sprint %s: %w", sprint.Name, err)
	}

	var planned, delivered float64
	for _, issue := range issues {
		if issue.StoryPoints == nil || !s.attributedToActive(issue, activeIDs) {
			continue
		}

		if issue.CreatedAtSource.Before(*sprint.StartAt) {
			planned += *issue.StoryPoints
		}

		doneAt, err := s.firstDoneAt(issue)
		if err != nil {
			return nil, err
		}
		if doneAt != nil && !doneAt.After(*sprint.EndAt) {
			delivered += *issue.StoryPoints
		}
	}

	return models.NewSprintVelocity(sprint.ID, planned, delivered), nil
}

// firstDoneAt returns the instant the issue first transitioned into a
// done-like status, or nil when it never did
func (s *VelocityService) firstDoneAt(issue *models.Issue) (*time.Time, error) {
	transitions, err := s.issueRepo.GetTransitionsByIssueID(issue.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transitions of %s: %w", issue.Key, err)
	}

	for _, transition := range transitions {
		if s.doneStatuses[transition.ToStatus] {
			occurredAt := transition.OccurredAt
			return &occurredAt, nil
		}
	}
	return nil, nil
}

// attributedToActive reports whether the issue belongs to an active
// developer, preferring the assignee over the creator
func (s *VelocityService) attributedToActive(issue *models.Issue, activeIDs map[string]bool) bool {
	if issue.AssigneeID != nil {
		return activeIDs[*issue.AssigneeID]
	}
	if issue.CreatorID != nil {
		return activeIDs[*issue.CreatorID]
	}
	return false
}

func (s *VelocityService) activeDeveloperIDs() (map[string]bool, error) {
	developers, err := s.developerRepo.GetActive()
	if err != nil {
		return nil, err
	}

	ids := make(map[string]bool, len(developers))
	for _, developer := range developers {
		ids[developer.ID] = true
	}
	return ids, nil
}
