package clickup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"effort-dashboard/internal/domain"
)

// Client implements the project and task source ports using the ClickUp
// API v2. Projects map to ClickUp lists.
type Client struct {
	baseURL  string
	apiToken string
	teamID   string
	http     *http.Client
	log      *slog.Logger
}

func NewClient(baseURL, apiToken, teamID string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.clickup.com"
	}
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		teamID:   teamID,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// ListProjects fetches the team's lists.
func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var raw struct {
		Lists []rawList `json:"lists"`
	}
	path := fmt.Sprintf("/api/v2/team/%s/list", url.PathEscape(c.teamID))
	if err := c.get(ctx, path, nil, &raw); err != nil {
		return nil, err
	}

	out := make([]domain.Project, 0, len(raw.Lists))
	for _, l := range raw.Lists {
		out = append(out, domain.Project{
			Key:       l.ID,
			Name:      l.Name,
			Archived:  l.Archived,
			Owner:     l.Owner.Username,
			CreatedAt: millisTime(l.DateCreated),
			UpdatedAt: millisTime(l.DateUpdated),
		})
	}
	return out, nil
}

// ListTasks fetches a list's tasks including closed ones, mapping their
// custom fields into typed records. ClickUp delivers field values as JSON
// numbers or numeric strings depending on field type; both are coerced here
// and never re-inspected downstream.
func (c *Client) ListTasks(ctx context.Context, projectKey string) ([]domain.Task, error) {
	var raw struct {
		Tasks []rawTask `json:"tasks"`
	}
	path := fmt.Sprintf("/api/v2/list/%s/task", url.PathEscape(projectKey))
	if err := c.get(ctx, path, url.Values{"include_closed": {"true"}}, &raw); err != nil {
		return nil, err
	}

	out := make([]domain.Task, 0, len(raw.Tasks))
	for _, t := range raw.Tasks {
		task := domain.Task{
			ProjectKey: projectKey,
			Name:       t.Name,
			Completed:  t.Status.Type == "closed" || t.Status.Type == "done",
		}
		for _, f := range t.CustomFields {
			cf := domain.CustomField{Name: f.Name}
			if n, text, ok := coerceValue(f.Value); ok {
				cf.Number = n
				cf.Text = text
			}
			task.Fields = append(task.Fields, cf)
		}
		out = append(out, task)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dst any) error {
	if c.apiToken == "" {
		return errors.New("clickup: missing api token")
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("clickup: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// coerceValue turns a raw custom-field value into a number and/or text.
// Returns ok=false when the value is absent or null.
func coerceValue(v json.RawMessage) (*float64, string, bool) {
	if len(v) == 0 || string(v) == "null" {
		return nil, "", false
	}
	var num float64
	if err := json.Unmarshal(v, &num); err == nil {
		n := num
		return &n, "", true
	}
	var text string
	if err := json.Unmarshal(v, &text); err != nil {
		return nil, "", false
	}
	trimmed := strings.TrimSpace(text)
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		n := f
		return &n, text, true
	}
	return nil, text, true
}

// millisTime parses ClickUp's string-encoded millisecond timestamps.
func millisTime(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// rawList mirrors the JSON from ClickUp v2.
type rawList struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Archived    bool   `json:"archived"`
	DateCreated string `json:"date_created"`
	DateUpdated string `json:"date_updated"`
	Owner       struct {
		Username string `json:"username"`
	} `json:"owner"`
}

type rawTask struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status struct {
		Status string `json:"status"`
		Type   string `json:"type"`
	} `json:"status"`
	CustomFields []rawCustomField `json:"custom_fields"`
}

type rawCustomField struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}
