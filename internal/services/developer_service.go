package services

import (
	"database/sql"
	"strings"

	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/internal/repositories"
)

// DeveloperService is the registry that merges identities observed in both
// feeds into one developer record per person. Merging is order-independent:
// processing tracker records before or after commit records for the same
// person yields the same developer and alias set.
type DeveloperService struct {
	developerRepo *repositories.DeveloperRepository
	aliasRepo     *repositories.EmailAliasRepository
	normalizer    *EmailNormalizerService
	roster        map[string]bool
}

// NewDeveloperService creates a developer registry. The roster lists the
// canonical emails of active developers; the active flag comes only from it,
// never from observed activity.
func NewDeveloperService(
	developerRepo *repositories.DeveloperRepository,
	aliasRepo *repositories.EmailAliasRepository,
	normalizer *EmailNormalizerService,
	activeRoster []string,
) *DeveloperService {
	roster := make(map[string]bool, len(activeRoster))
	for _, email := range activeRoster {
		if canonical := normalizer.Normalize(email); canonical != "" {
			roster[canonical] = true
		}
	}

	return &DeveloperService{
		developerRepo: developerRepo,
		aliasRepo:     aliasRepo,
		normalizer:    normalizer,
		roster:        roster,
	}
}

// ResolveOrCreate maps a raw identity to its developer, creating the
// developer on first sight and recording the raw alias. Returns nil (no
// error) when the identity cannot be resolved to any email.
func (s *DeveloperService) ResolveOrCreate(rawIdentity string, sourceFeed models.FeedSource, displayName string) (*models.Developer, error) {
	normalized := s.normalizer.Normalize(rawIdentity)
	if normalized == "" {
		return nil, nil
	}

	developer, err := s.lookupByNormalized(normalized)
	if err != nil {
		return nil, err
	}

	if developer == nil {
		// Second pass: re-normalize every recorded raw alias. A rewrite rule
		// added since the alias was recorded can reveal a match the stored
		// normalized value misses.
		developer, err = s.fuzzyLookup(normalized)
		if err != nil {
			return nil, err
		}
	}

	if developer == nil {
		developer, err = s.createDeveloper(normalized, sourceFeed, displayName)
		if err != nil {
			return nil, err
		}
	}

	if err := s.recordAlias(developer.ID, rawIdentity, normalized, sourceFeed); err != nil {
		return nil, err
	}

	// Tracker display names win over names derived from commit author
	// strings, regardless of which feed was processed first.
	if sourceFeed == models.FeedSourceTracker && displayName != "" && developer.DisplayName != displayName {
		developer.DisplayName = displayName
		if err := s.developerRepo.Update(developer); err != nil {
			return nil, err
		}
	}

	return developer, nil
}

// EnsureUnknownDeveloper returns the sentinel developer that collects events
// with unresolvable authors, creating it if needed
func (s *DeveloperService) EnsureUnknownDeveloper() (*models.Developer, error) {
	sentinel := models.NewDeveloper(models.UnknownDeveloperEmail, "Unknown")
	return s.developerRepo.GetOrCreate(sentinel)
}

func (s *DeveloperService) lookupByNormalized(normalized string) (*models.Developer, error) {
	// The canonical email itself may already be a developer
	developer, err := s.developerRepo.GetByEmail(normalized)
	if err == nil {
		return developer, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	aliases, err := s.aliasRepo.GetByNormalizedValue(normalized)
	if err != nil {
		return nil, err
	}
	if len(aliases) == 0 {
		return nil, nil
	}

	return s.developerRepo.GetByID(aliases[0].DeveloperID)
}

func (s *DeveloperService) fuzzyLookup(normalized string) (*models.Developer, error) {
	aliases, err := s.aliasRepo.GetAll()
	if err != nil {
		return nil, err
	}

	for _, alias := range aliases {
		if s.normalizer.Normalize(alias.RawValue) == normalized {
			return s.developerRepo.GetByID(alias.DeveloperID)
		}
	}

	return nil, nil
}

func (s *DeveloperService) createDeveloper(normalized string, sourceFeed models.FeedSource, displayName string) (*models.Developer, error) {
	name := displayName
	if sourceFeed != models.FeedSourceTracker || name == "" {
		name = humanizeLocalPart(normalized)
	}

	developer := models.NewDeveloper(normalized, name)
	developer.IsActive = s.roster[normalized]
	return s.developerRepo.GetOrCreate(developer)
}

func (s *DeveloperService) recordAlias(developerID, rawValue, normalized string, sourceFeed models.FeedSource) error {
	exists, err := s.aliasRepo.ExistsByRawValue(rawValue, sourceFeed)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	alias := models.NewEmailAlias(developerID, rawValue, normalized, sourceFeed)
	if err := s.aliasRepo.Create(alias); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil
		}
		return err
	}
	return nil
}

// humanizeLocalPart derives a display name from the local part of an email
// when no tracker display name is available: "jane.doe" becomes "Jane Doe"
func humanizeLocalPart(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}

	tokens := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})

	for i, token := range tokens {
		tokens[i] = strings.ToUpper(token[:1]) + token[1:]
	}

	if len(tokens) == 0 {
		return local
	}
	return strings.Join(tokens, " ")
}
