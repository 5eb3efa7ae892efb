package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alimgiray/sprintscope/pkg/config"
	"github.com/alimgiray/sprintscope/pkg/logger"
)

const jiraTimeFormat = "2006-01-02T15:04:05.000-0700"

// JiraFeed implements IssueFeed against the Jira REST and Agile APIs
type JiraFeed struct {
	baseURL string
	email   string
	token   string
	project string
	boardID int
	client  *http.Client
}

// NewJiraFeed creates a Jira-backed issue feed
func NewJiraFeed(cfg config.JiraConfig) *JiraFeed {
	return &JiraFeed{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		email:   cfg.Email,
		token:   cfg.APIToken,
		project: cfg.Project,
		boardID: cfg.BoardID,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchSprints fetches every sprint on the configured board
func (f *JiraFeed) FetchSprints(ctx context.Context) ([]SprintRecord, error) {
	var sprints []SprintRecord

	startAt := 0
	for {
		q := url.Values{}
		q.Set("startAt", fmt.Sprint(startAt))
		q.Set("maxResults", "50")

		var page struct {
			IsLast bool `json:"isLast"`
			Values []struct {
				ID        int64  `json:"id"`
				Name      string `json:"name"`
				State     string `json:"state"`
				StartDate string `json:"startDate"`
				EndDate   string `json:"endDate"`
			} `json:"values"`
		}

		path := fmt.Sprintf("/rest/agile/1.0/board/%d/sprint", f.boardID)
		if err := f.getJSON(ctx, path, q, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch sprints: %w", err)
		}

		for _, v := range page.Values {
			sprints = append(sprints, SprintRecord{
				ID:      v.ID,
				Name:    v.Name,
				State:   v.State,
				StartAt: parseJiraTime(v.StartDate),
				EndAt:   parseJiraTime(v.EndDate),
			})
		}

		if page.IsLast || len(page.Values) == 0 {
			break
		}
		startAt += len(page.Values)
	}

	return sprints, nil
}

// FetchIssues fetches every issue of the configured project with its
// changelog, then resolves sprint memberships per sprint on the board
func (f *JiraFeed) FetchIssues(ctx context.Context) ([]IssueRecord, error) {
	issues, byKey, err := f.searchProjectIssues(ctx)
	if err != nil {
		return nil, err
	}

	sprints, err := f.FetchSprints(ctx)
	if err != nil {
		return nil, err
	}

	// An issue can traverse multiple sprints; memberships come from the
	// agile API, one listing per sprint.
	for _, sprint := range sprints {
		keys, err := f.fetchSprintIssueKeys(ctx, sprint.ID)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			if idx, ok := byKey[key]; ok {
				issues[idx].SprintIDs = append(issues[idx].SprintIDs, sprint.ID)
			}
		}
	}

	return issues, nil
}

func (f *JiraFeed) searchProjectIssues(ctx context.Context) ([]IssueRecord, map[string]int, error) {
	var issues []IssueRecord
	byKey := make(map[string]int)

	startAt := 0
	for {
		q := url.Values{}
		q.Set("jql", fmt.Sprintf("project = %s ORDER BY key", f.project))
		q.Set("expand", "changelog")
		q.Set("fields", "*all")
		q.Set("startAt", fmt.Sprint(startAt))
		q.Set("maxResults", "100")

		var page struct {
			Total  int         `json:"total"`
			Issues []jiraIssue `json:"issues"`
		}

		if err := f.getJSON(ctx, "/rest/api/2/search", q, &page); err != nil {
			return nil, nil, fmt.Errorf("failed to search issues: %w", err)
		}

		for _, raw := range page.Issues {
			record := raw.toRecord()
			byKey[record.Key] = len(issues)
			issues = append(issues, record)
		}

		startAt += len(page.Issues)
		if startAt >= page.Total || len(page.Issues) == 0 {
			break
		}
	}

	return issues, byKey, nil
}

func (f *JiraFeed) fetchSprintIssueKeys(ctx context.Context, sprintID int64) ([]string, error) {
	var keys []string

	startAt := 0
	for {
		q := url.Values{}
		q.Set("fields", "key")
		q.Set("startAt", fmt.Sprint(startAt))
		q.Set("maxResults", "100")

		var page struct {
			Total  int `json:"total"`
			Issues []struct {
				Key string `json:"key"`
			} `json:"issues"`
		}

		path := fmt.Sprintf("/rest/agile/1.0/sprint/%d/issue", sprintID)
		if err := f.getJSON(ctx, path, q, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch issues of sprint %d: %w", sprintID, err)
		}

		for _, issue := range page.Issues {
			keys = append(keys, issue.Key)
		}

		startAt += len(page.Issues)
		if startAt >= page.Total || len(page.Issues) == 0 {
			break
		}
	}

	return keys, nil
}

// getJSON performs one GET with bounded retry on 429/5xx
func (f *JiraFeed) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	if f.baseURL == "" {
		return fmt.Errorf("jira base URL is not configured")
	}

	u := f.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.SetBasicAuth(f.email, f.token)
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				return readErr
			}

			if resp.StatusCode == http.StatusOK {
				return json.Unmarshal(body, out)
			}

			lastErr = fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
			if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
				return lastErr
			}
		}

		time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
	}

	return lastErr
}

type jiraIssue struct {
	Key    string                 `json:"key"`
	Fields map[string]interface{} `json:"fields"`

	Changelog struct {
		Histories []struct {
			Author struct {
				EmailAddress string `json:"emailAddress"`
				DisplayName  string `json:"displayName"`
				AccountID    string `json:"accountId"`
			} `json:"author"`
			Created string `json:"created"`
			Items   []struct {
				Field      string `json:"field"`
				FromString string `json:"fromString"`
				ToString   string `json:"toString"`
			} `json:"items"`
		} `json:"histories"`
	} `json:"changelog"`
}

func (j jiraIssue) toRecord() IssueRecord {
	record := IssueRecord{
		Key:       j.Key,
		Summary:   stringField(j.Fields, "summary"),
		Status:    nestedStringField(j.Fields, "status", "name"),
		RawFields: j.Fields,
	}

	if created := parseJiraTime(stringField(j.Fields, "created")); created != nil {
		record.CreatedAt = *created
	}
	record.UpdatedAt = parseJiraTime(stringField(j.Fields, "updated"))

	record.AssigneeIdentity, record.AssigneeName = userField(j.Fields, "assignee")
	record.CreatorIdentity, record.CreatorName = userField(j.Fields, "creator")

	for _, history := range j.Changelog.Histories {
		occurred := parseJiraTime(history.Created)
		if occurred == nil {
			continue
		}
		for _, item := range history.Items {
			if item.Field != "status" {
				continue
			}
			identity := history.Author.EmailAddress
			if identity == "" {
				identity = history.Author.AccountID
			}
			record.StatusChanges = append(record.StatusChanges, StatusChange{
				FromStatus:     item.FromString,
				ToStatus:       item.ToString,
				AuthorIdentity: identity,
				AuthorName:     history.Author.DisplayName,
				OccurredAt:     *occurred,
			})
		}
	}

	return record
}

func parseJiraTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(jiraTimeFormat, value)
	if err != nil {
		// Sprint endpoints occasionally return bare RFC3339
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			logger.WithField("value", value).Warn("Unparseable Jira timestamp")
			return nil
		}
	}
	return &t
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func nestedStringField(fields map[string]interface{}, key, nested string) string {
	if m, ok := fields[key].(map[string]interface{}); ok {
		if v, ok := m[nested].(string); ok {
			return v
		}
	}
	return ""
}

// userField returns the identity (email when exposed, account payload
// otherwise) and display name of a user-valued issue field
func userField(fields map[string]interface{}, key string) (string, string) {
	m, ok := fields[key].(map[string]interface{})
	if !ok {
		return "", ""
	}

	name, _ := m["displayName"].(string)
	if email, ok := m["emailAddress"].(string); ok && email != "" {
		return email, name
	}

	// Privacy-restricted accounts only expose an accountId payload; hand the
	// raw JSON to the normalizer, which knows how to dig an email out of it.
	raw, err := json.Marshal(m)
	if err != nil {
		return "", name
	}
	return string(raw), name
}
