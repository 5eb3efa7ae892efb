package services

import (
	"time"

	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/pkg/logger"
)

// Time bucket labels. Five fixed two-hour daytime windows plus off-hours.
const (
	BucketMorningEarly   = "08-10"
	BucketMorningLate    = "10-12"
	BucketMidday         = "12-14"
	BucketAfternoonEarly = "14-16"
	BucketAfternoonLate  = "16-18"
	BucketOffHours       = "off-hours"
)

// AllBuckets lists the bucket labels in day order
var AllBuckets = []string{
	BucketMorningEarly,
	BucketMorningLate,
	BucketMidday,
	BucketAfternoonEarly,
	BucketAfternoonLate,
	BucketOffHours,
}

// TemporalService converts instants into local dates and time-bucket labels,
// and resolves which sprint contains a given local date
type TemporalService struct {
	location     *time.Location
	usedFallback bool
}

// NewTemporalService creates a temporal service for the named IANA timezone.
// An invalid timezone falls back to UTC; the fallback is logged, never silent.
func NewTemporalService(timezone string) *TemporalService {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		logger.WithError(err).WithField("timezone", timezone).
			Warn("Invalid timezone configuration, falling back to UTC")
		return &TemporalService{location: time.UTC, usedFallback: true}
	}
	return &TemporalService{location: location}
}

// Location returns the resolved timezone
func (s *TemporalService) Location() *time.Location {
	return s.location
}

// UsedFallback reports whether the configured timezone was invalid and UTC
// was substituted
func (s *TemporalService) UsedFallback() bool {
	return s.usedFallback
}

// BucketFor yields the time-bucket label for an instant. Buckets are
// half-open: a timestamp exactly on a boundary belongs to the bucket it
// opens.
func (s *TemporalService) BucketFor(instant time.Time) string {
	switch hour := instant.In(s.location).Hour(); {
	case hour >= 8 && hour < 10:
		return BucketMorningEarly
	case hour >= 10 && hour < 12:
		return BucketMorningLate
	case hour >= 12 && hour < 14:
		return BucketMidday
	case hour >= 14 && hour < 16:
		return BucketAfternoonEarly
	case hour >= 16 && hour < 18:
		return BucketAfternoonLate
	default:
		return BucketOffHours
	}
}

// LocalDate yields the local calendar date of an instant as YYYY-MM-DD
func (s *TemporalService) LocalDate(instant time.Time) string {
	return instant.In(s.location).Format("2006-01-02")
}

// SprintFor resolves which sprint contains a local date. Sprints missing a
// boundary are never considered. When ranges overlap, the sprint with the
// earliest start date wins, with the smaller external ID breaking remaining
// ties, so assignment is deterministic.
func (s *TemporalService) SprintFor(localDate string, sprints []*models.Sprint) *models.Sprint {
	var match *models.Sprint
	for _, sprint := range sprints {
		if !sprint.HasBoundaries() || sprint.StartDate == "" || sprint.EndDate == "" {
			continue
		}
		if localDate < sprint.StartDate || localDate > sprint.EndDate {
			continue
		}
		if match == nil || betterSprintMatch(sprint, match) {
			match = sprint
		}
	}
	return match
}

func betterSprintMatch(candidate, current *models.Sprint) bool {
	if candidate.StartDate != current.StartDate {
		return candidate.StartDate < current.StartDate
	}
	return candidate.ExternalID < current.ExternalID
}
