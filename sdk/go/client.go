package decisionlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Decisionline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Decision represents the API decision model (partial).
type Decision struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Title      string  `json:"title"`
	Status     string  `json:"status"`
	ReviewDate *string `json:"review_date,omitempty"`
}

// Option represents one alternative of a decision.
type Option struct {
	ID         string   `json:"id"`
	DecisionID string   `json:"decision_id"`
	Name       string   `json:"name"`
	Pros       []string `json:"pros"`
	Cons       []string `json:"cons"`
	Risks      []string `json:"risks"`
	Chosen     bool     `json:"chosen"`
}

// Quality is the six-dimension score.
type Quality struct {
	Frame        int    `json:"frame"`
	Alternatives int    `json:"alternatives"`
	Information  int    `json:"information"`
	Values       int    `json:"values"`
	Reasoning    int    `json:"reasoning"`
	Commitment   int    `json:"commitment"`
	Total        int    `json:"total"`
	Grade        string `json:"grade"`
}

// Summary is the full read model for one decision.
type Summary struct {
	Decision Decision `json:"decision"`
	Options  []Option `json:"options"`
	Quality  Quality  `json:"quality"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	DecisionID string         `json:"decision_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedDecisions wraps list responses with cursors.
type PaginatedDecisions struct {
	Items      []Decision `json:"items"`
	NextCursor string     `json:"next_cursor"`
}

// CreateDecision creates a decision. decisionType may be empty to let the
// server classify from the title and problem statement.
func (c *Client) CreateDecision(ctx context.Context, decisionType, title, problem string) (Decision, error) {
	body := map[string]any{
		"title":             title,
		"problem_statement": problem,
	}
	if decisionType != "" {
		body["type"] = decisionType
	}
	var resp Decision
	err := c.do(ctx, http.MethodPost, "v0/decisions", body, &resp)
	return resp, err
}

// AddOption adds an alternative to a decision.
func (c *Client) AddOption(ctx context.Context, decisionID, name string, pros, cons, risks []string) (Option, error) {
	body := map[string]any{
		"name":  name,
		"pros":  pros,
		"cons":  cons,
		"risks": risks,
	}
	var resp Option
	endpoint := fmt.Sprintf("v0/decisions/%s/options", url.PathEscape(decisionID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Choose marks an option as taken.
func (c *Client) Choose(ctx context.Context, decisionID, optionID, reasoning string) (Decision, error) {
	body := map[string]any{
		"option_id": optionID,
		"reasoning": reasoning,
	}
	var resp Decision
	endpoint := fmt.Sprintf("v0/decisions/%s/choose", url.PathEscape(decisionID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// RecordOutcome records the final outcome of a decided decision.
func (c *Client) RecordOutcome(ctx context.Context, decisionID, actualOutcome, successLevel, lessons string) (Decision, error) {
	body := map[string]any{
		"actual_outcome":  actualOutcome,
		"success_level":   successLevel,
		"lessons_learned": lessons,
	}
	var resp Decision
	endpoint := fmt.Sprintf("v0/decisions/%s/outcome", url.PathEscape(decisionID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Summary fetches the full read model of one decision.
func (c *Client) Summary(ctx context.Context, decisionID string) (Summary, error) {
	var resp Summary
	endpoint := fmt.Sprintf("v0/decisions/%s", url.PathEscape(decisionID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Decisions returns one page of the decision listing.
func (c *Client) Decisions(ctx context.Context, status string, limit int, cursor string) (PaginatedDecisions, error) {
	endpoint := "v0/decisions"
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedDecisions
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
