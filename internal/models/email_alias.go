package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailAlias represents a raw identity string observed in a feed, owned by
// exactly one developer
type EmailAlias struct {
	ID              string     `json:"id"`
	DeveloperID     string     `json:"developer_id"`
	RawValue        string     `json:"raw_value"`
	NormalizedValue string     `json:"normalized_value"`
	SourceFeed      FeedSource `json:"source_feed"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewEmailAlias creates a new EmailAlias with a generated UUID
func NewEmailAlias(developerID, rawValue, normalizedValue string, sourceFeed FeedSource) *EmailAlias {
	return &EmailAlias{
		ID:              uuid.New().String(),
		DeveloperID:     developerID,
		RawValue:        rawValue,
		NormalizedValue: normalizedValue,
		SourceFeed:      sourceFeed,
	}
}
