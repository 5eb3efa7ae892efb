package feeds

import (
	"context"
	"fmt"
	"strings"

	"github.com/alimgiray/sprintscope/pkg/config"
	"github.com/alimgiray/sprintscope/pkg/logger"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHubFeed implements CommitFeed over the GitHub API. Commits are collected
// from every branch of every configured repository so no activity is missed,
// and deduplicated by SHA.
type GitHubFeed struct {
	client       *github.Client
	repositories []string
}

// NewGitHubFeed creates a GitHub-backed commit feed
func NewGitHubFeed(cfg config.GitHubConfig) *GitHubFeed {
	client := github.NewClient(nil)
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}

	return &GitHubFeed{
		client:       client,
		repositories: cfg.Repositories,
	}
}

// FetchCommits fetches commits from all branches of all configured repositories
func (f *GitHubFeed) FetchCommits(ctx context.Context) ([]CommitRecord, error) {
	var records []CommitRecord
	seen := make(map[string]bool)

	for _, fullName := range f.repositories {
		owner, name, err := splitRepoFullName(fullName)
		if err != nil {
			return nil, err
		}

		branches, err := f.listBranches(ctx, owner, name)
		if err != nil {
			return nil, fmt.Errorf("failed to list branches of %s: %w", fullName, err)
		}

		for _, branch := range branches {
			commits, err := f.listBranchCommits(ctx, owner, name, branch)
			if err != nil {
				return nil, fmt.Errorf("failed to list commits of %s@%s: %w", fullName, branch, err)
			}

			for _, commit := range commits {
				sha := commit.GetSHA()
				if sha == "" || seen[sha] {
					continue
				}
				seen[sha] = true
				records = append(records, toCommitRecord(commit, branch))
			}
		}

		logger.WithFields(map[string]interface{}{
			"repository": fullName,
			"branches":   len(branches),
		}).Info("Fetched commits")
	}

	return records, nil
}

func (f *GitHubFeed) listBranches(ctx context.Context, owner, name string) ([]string, error) {
	var branches []string

	opt := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		page, resp, err := f.client.Repositories.ListBranches(ctx, owner, name, opt)
		if err != nil {
			return nil, err
		}
		for _, branch := range page {
			branches = append(branches, branch.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return branches, nil
}

func (f *GitHubFeed) listBranchCommits(ctx context.Context, owner, name, branch string) ([]*github.RepositoryCommit, error) {
	var commits []*github.RepositoryCommit

	opt := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		page, resp, err := f.client.Repositories.ListCommits(ctx, owner, name, opt)
		if err != nil {
			return nil, err
		}
		commits = append(commits, page...)
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return commits, nil
}

func toCommitRecord(commit *github.RepositoryCommit, branch string) CommitRecord {
	record := CommitRecord{
		SHA:    commit.GetSHA(),
		Branch: branch,
	}

	if c := commit.GetCommit(); c != nil {
		record.Message = c.GetMessage()
		if author := c.GetAuthor(); author != nil {
			record.AuthorIdentity = author.GetEmail()
			record.AuthorName = author.GetName()
			record.AuthoredAt = author.GetDate().Time
		}
	}

	return record
}

func splitRepoFullName(fullName string) (string, string, error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository name %q, expected owner/name", fullName)
	}
	return parts[0], parts[1], nil
}
