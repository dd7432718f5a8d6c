package ivanti

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"effort-dashboard/internal/domain"
)

// Client implements the ticket source port against the ITSM tool's REST
// API. Rows come back at task granularity; merging into tickets happens in
// the report engine.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(baseURL, apiKey string, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// ListTicketRows fetches task-level ticket rows whose work date falls in
// [from, to].
func (c *Client) ListTicketRows(ctx context.Context, from, to time.Time) ([]domain.TicketRow, error) {
	if c.apiKey == "" {
		return nil, errors.New("ivanti: missing api key")
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path = "/api/v1/ticket-tasks"
	q := u.Query()
	q.Set("from", from.Format("2006-01-02"))
	q.Set("to", to.Format("2006-01-02"))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "rest_api_key="+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ivanti: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var raw struct {
		Rows []rawTicketRow `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	out := make([]domain.TicketRow, 0, len(raw.Rows))
	for _, r := range raw.Rows {
		out = append(out, domain.TicketRow{
			Number:          r.TicketNumber,
			Category:        r.Category,
			Company:         r.Company,
			Status:          r.Status,
			TaskDescription: r.TaskDescription,
			EffortHours:     r.EffortHours,
		})
	}
	c.log.Debug("ivanti listed ticket rows", slog.Int("count", len(out)))
	return out, nil
}

// rawTicketRow mirrors the JSON from the ITSM API.
type rawTicketRow struct {
	TicketNumber    string  `json:"ticket_number"`
	Category        string  `json:"category"`
	Company         string  `json:"company"`
	Status          string  `json:"status"`
	TaskDescription string  `json:"task_description"`
	EffortHours     float64 `json:"effort_hours"`
}
