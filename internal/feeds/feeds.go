package feeds

import (
	"context"
	"time"
)

// SprintRecord is a raw sprint as reported by the issue tracker
type SprintRecord struct {
	ID      int64
	Name    string
	State   string
	StartAt *time.Time
	EndAt   *time.Time
}

// StatusChange is one status transition from an issue's changelog
type StatusChange struct {
	FromStatus     string
	ToStatus       string
	AuthorIdentity string
	AuthorName     string
	OccurredAt     time.Time
}

// IssueRecord is a raw issue as reported by the issue tracker. RawFields keeps
// the tracker's field map untouched so the extractor can probe
// configuration-dependent fields such as story point estimates.
type IssueRecord struct {
	Key              string
	Summary          string
	Status           string
	AssigneeIdentity string
	AssigneeName     string
	CreatorIdentity  string
	CreatorName      string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
	StatusChanges    []StatusChange
	SprintIDs        []int64
	RawFields        map[string]interface{}
}

// CommitRecord is a raw commit as reported by the version-control feed
type CommitRecord struct {
	SHA            string
	AuthorIdentity string
	AuthorName     string
	Message        string
	AuthoredAt     time.Time
	Branch         string
}

// IssueFeed yields sprints and issues from the issue tracker
type IssueFeed interface {
	FetchSprints(ctx context.Context) ([]SprintRecord, error)
	FetchIssues(ctx context.Context) ([]IssueRecord, error)
}

// CommitFeed yields commits from every tracked branch of the
// version-control system
type CommitFeed interface {
	FetchCommits(ctx context.Context) ([]CommitRecord, error)
}
