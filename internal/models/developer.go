package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedSource identifies which external feed produced a raw identity
type FeedSource string

const (
	FeedSourceTracker FeedSource = "tracker"
	FeedSourceRepo    FeedSource = "repo"
)

// UnknownDeveloperEmail is the canonical address of the sentinel developer
// that collects events whose author could not be resolved.
const UnknownDeveloperEmail = "unknown@unresolved.local"

// Developer represents one canonical person across both feeds
type Developer struct {
	ID             string    `json:"id"`
	CanonicalEmail string    `json:"canonical_email"`
	DisplayName    string    `json:"display_name"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewDeveloper creates a new Developer. The ID is derived from the canonical
// email, so rebuilding the store assigns every developer the same ID again.
func NewDeveloper(canonicalEmail, displayName string) *Developer {
	return &Developer{
		ID:             uuid.NewSHA1(uuid.NameSpaceOID, []byte("developer:"+canonicalEmail)).String(),
		CanonicalEmail: canonicalEmail,
		DisplayName:    displayName,
	}
}

// IsUnknown reports whether this is the sentinel developer
func (d *Developer) IsUnknown() bool {
	return d.CanonicalEmail == UnknownDeveloperEmail
}
