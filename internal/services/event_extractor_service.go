package services

import (
	"strconv"
	"time"

	"github.com/alimgiray/sprintscope/internal/feeds"
	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/internal/repositories"
	"github.com/alimgiray/sprintscope/pkg/logger"
)

// Unknown-identity policies
const (
	UnknownPolicySentinel = "sentinel"
	UnknownPolicyDrop     = "drop"
)

// updates closer to creation than this are tracker write-back noise, not
// developer activity
const meaningfulUpdateGap = time.Minute

// ExtractionResult carries the extracted events together with the anomaly
// counters absorbed along the way
type ExtractionResult struct {
	Events               []*models.Event
	UnresolvedIdentities int
	DroppedEvents        int
}

// EventExtractorService projects raw feed records into uniform events and
// persists the issue entities they reference. Unresolvable identities are
// counted and either attributed to the sentinel developer or dropped,
// depending on the configured policy; they are never fatal.
type EventExtractorService struct {
	developerService *DeveloperService
	issueRepo        *repositories.IssueRepository
	eventRepo        *repositories.EventRepository
	storyPointFields []string
	unknownPolicy    string

	sentinel *models.Developer
}

// NewEventExtractorService creates an event extractor
func NewEventExtractorService(
	developerService *DeveloperService,
	issueRepo *repositories.IssueRepository,
	eventRepo *repositories.EventRepository,
	storyPointFields []string,
	unknownPolicy string,
) *EventExtractorService {
	if unknownPolicy != UnknownPolicyDrop {
		unknownPolicy = UnknownPolicySentinel
	}
	return &EventExtractorService{
		developerService: developerService,
		issueRepo:        issueRepo,
		eventRepo:        eventRepo,
		storyPointFields: storyPointFields,
		unknownPolicy:    unknownPolicy,
	}
}

// ExtractIssueEvents persists issues, their sprint memberships and status
// history, and emits created/updated/status-changed events
func (s *EventExtractorService) ExtractIssueEvents(records []feeds.IssueRecord, sprintsByExternalID map[int64]*models.Sprint) (*ExtractionResult, error) {
	result := &ExtractionResult{}

	for _, record := range records {
		issue := models.NewIssue(record.Key, record.Summary, record.Status, record.CreatedAt)
		issue.UpdatedAtSource = record.UpdatedAt
		issue.StoryPoints = ExtractStoryPoints(record.RawFields, s.storyPointFields)

		// An absent assignee or creator is normal tracker data, not an
		// unresolvable identity; only non-empty identities go through the
		// registry.
		assignee, err := s.resolveOptional(record.AssigneeIdentity, record.AssigneeName, result)
		if err != nil {
			return nil, err
		}
		if assignee != nil {
			issue.AssigneeID = &assignee.ID
		}

		creator, err := s.resolveOptional(record.CreatorIdentity, record.CreatorName, result)
		if err != nil {
			return nil, err
		}
		if creator != nil {
			issue.CreatorID = &creator.ID
		}

		if err := s.issueRepo.Create(issue); err != nil {
			return nil, err
		}

		for _, externalID := range record.SprintIDs {
			sprint, ok := sprintsByExternalID[externalID]
			if !ok {
				continue
			}
			if err := s.issueRepo.LinkSprint(issue.ID, sprint.ID); err != nil {
				return nil, err
			}
		}

		s.emitIssueEvent(result, creator, models.EventKindIssueCreated, record.CreatedAt, issue)

		// An updated event only when the last update differs meaningfully
		// from creation; the actor behind an update is not recorded by the
		// tracker, so it is attributed to the assignee, falling back to the
		// creator.
		if record.UpdatedAt != nil && record.UpdatedAt.Sub(record.CreatedAt) > meaningfulUpdateGap {
			actor := assignee
			if actor == nil {
				actor = creator
			}
			s.emitIssueEvent(result, actor, models.EventKindIssueUpdated, *record.UpdatedAt, issue)
		}

		for _, change := range record.StatusChanges {
			author, err := s.resolveOptional(change.AuthorIdentity, change.AuthorName, result)
			if err != nil {
				return nil, err
			}

			transition := models.NewIssueTransition(issue.ID, change.FromStatus, change.ToStatus, change.OccurredAt)
			if author != nil {
				transition.AuthorID = &author.ID
			}
			if err := s.issueRepo.CreateTransition(transition); err != nil {
				return nil, err
			}

			s.emitIssueEvent(result, author, models.EventKindStatusChanged, change.OccurredAt, issue)
		}
	}

	return result, nil
}

// ExtractCommitEvents emits exactly one commit event per commit hash.
// Re-extracting the same commit never produces a duplicate event.
func (s *EventExtractorService) ExtractCommitEvents(records []feeds.CommitRecord) (*ExtractionResult, error) {
	result := &ExtractionResult{}
	seen := make(map[string]bool)

	for _, record := range records {
		if record.SHA == "" || seen[record.SHA] {
			continue
		}
		seen[record.SHA] = true

		exists, err := s.eventRepo.ExistsByCommitSHA(record.SHA)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		author, err := s.resolveDeveloper(record.AuthorIdentity, models.FeedSourceRepo, record.AuthorName, result)
		if err != nil {
			return nil, err
		}
		if author == nil {
			result.DroppedEvents++
			continue
		}

		event := models.NewEvent(author.ID, models.EventKindCommit, record.AuthoredAt)
		sha := record.SHA
		event.CommitSHA = &sha
		event.Message = record.Message
		result.Events = append(result.Events, event)
	}

	return result, nil
}

func (s *EventExtractorService) emitIssueEvent(result *ExtractionResult, developer *models.Developer, kind models.EventKind, occurredAt time.Time, issue *models.Issue) {
	if developer == nil {
		result.DroppedEvents++
		return
	}

	event := models.NewEvent(developer.ID, kind, occurredAt)
	event.IssueID = &issue.ID
	event.Message = issue.Key
	result.Events = append(result.Events, event)
}

// resolveOptional resolves a tracker identity field that may legitimately be
// empty
func (s *EventExtractorService) resolveOptional(rawIdentity, displayName string, result *ExtractionResult) (*models.Developer, error) {
	if rawIdentity == "" {
		return nil, nil
	}
	return s.resolveDeveloper(rawIdentity, models.FeedSourceTracker, displayName, result)
}

// resolveDeveloper resolves a raw identity, applying the unknown-identity
// policy when the registry cannot map it to anyone
func (s *EventExtractorService) resolveDeveloper(rawIdentity string, sourceFeed models.FeedSource, displayName string, result *ExtractionResult) (*models.Developer, error) {
	developer, err := s.developerService.ResolveOrCreate(rawIdentity, sourceFeed, displayName)
	if err != nil {
		return nil, err
	}
	if developer != nil {
		return developer, nil
	}

	result.UnresolvedIdentities++
	logger.WithField("identity", rawIdentity).Debug("Unresolvable identity")

	if s.unknownPolicy == UnknownPolicyDrop {
		return nil, nil
	}

	if s.sentinel == nil {
		s.sentinel, err = s.developerService.EnsureUnknownDeveloper()
		if err != nil {
			return nil, err
		}
	}
	return s.sentinel, nil
}

// ExtractStoryPoints probes the tracker's field map through an ordered list
// of candidate field identifiers and returns the first present estimate.
// nil means "not estimated", which stays distinct from an estimate of zero.
func ExtractStoryPoints(fields map[string]interface{}, candidates []string) *float64 {
	for _, candidate := range candidates {
		value, ok := fields[candidate]
		if !ok || value == nil {
			continue
		}

		switch v := value.(type) {
		case float64:
			points := v
			return &points
		case int:
			points := float64(v)
			return &points
		case string:
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return &parsed
			}
		}
	}
	return nil
}
