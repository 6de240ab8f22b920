package sigmasdk

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

// Client is a minimal Sigma demo API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "v0",
		Timeout:  10 * time.Second,
	}
}

// Agent is an agent plus its derived operational state.
type Agent struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Responsibility string `json:"responsibility"`
	Paused         bool   `json:"paused"`
	State          string `json:"state"`
	LastEventAt    int64  `json:"last_event_at,omitempty"`
}

// EventPayload is the event body (partial; unknown members are dropped).
type EventPayload struct {
	Domain            string   `json:"domain,omitempty"`
	Title             string   `json:"title,omitempty"`
	Description       string   `json:"description,omitempty"`
	Level             int      `json:"level,omitempty"`
	Status            string   `json:"status,omitempty"`
	RequiresAttention *bool    `json:"requires_attention,omitempty"`
	UpdatedAt         int64    `json:"updated_at,omitempty"`
	Recommendations   []string `json:"recommendations,omitempty"`
	ClosedBy          string   `json:"closed_by,omitempty"`
	ClosedAt          int64    `json:"closed_at,omitempty"`
	CloseComment      string   `json:"close_comment,omitempty"`
	CloseReason       string   `json:"close_reason,omitempty"`
}

// Event is an event enriched with derived classification and predicates.
type Event struct {
	ID                int64        `json:"id"`
	CreatedAt         int64        `json:"created_at"`
	Msg               EventPayload `json:"msg"`
	AgentID           string       `json:"agent_id,omitempty"`
	Closed            bool         `json:"closed"`
	RequiresAttention bool         `json:"requires_attention"`
}

// ActionLogEntry is one action log record.
type ActionLogEntry struct {
	ID      string `json:"id"`
	AgentID string `json:"agent_id"`
	Action  string `json:"action"`
	TS      int64  `json:"ts"`
	Summary string `json:"summary"`
	EventID int64  `json:"event_id,omitempty"`
	Result  string `json:"result"`
}

// Task is a generated task or decision record.
type Task struct {
	ID       string `json:"id"`
	AgentID  string `json:"agent_id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	DueAt    int64  `json:"due_at,omitempty"`
}

// TimeSeriesPoint is one hourly sample with named metric values.
type TimeSeriesPoint struct {
	TS     int64              `json:"ts"`
	Values map[string]float64 `json:"values"`
}

// EventFilter narrows Events output.
type EventFilter struct {
	AgentID           string
	Status            []string
	RequiresAttention *bool
}

// CloseRequest carries closure metadata.
type CloseRequest struct {
	Status   string `json:"status,omitempty"`
	Comment  string `json:"comment,omitempty"`
	Reason   string `json:"reason,omitempty"`
	ClosedBy string `json:"closed_by,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Agents lists agents with derived state.
func (c *Client) Agents(ctx context.Context) ([]Agent, error) {
	var resp []Agent
	err := c.do(ctx, http.MethodGet, c.apiPath("agents"), nil, &resp)
	return resp, err
}

// Events lists events, optionally filtered.
func (c *Client) Events(ctx context.Context, filter *EventFilter) ([]Event, error) {
	endpoint := c.apiPath("events")
	if filter != nil {
		q := url.Values{}
		if filter.AgentID != "" {
			q.Set("agent_id", filter.AgentID)
		}
		for _, st := range filter.Status {
			q.Add("status", st)
		}
		if filter.RequiresAttention != nil {
			q.Set("requires_attention", fmt.Sprintf("%t", *filter.RequiresAttention))
		}
		if enc := q.Encode(); enc != "" {
			endpoint += "?" + enc
		}
	}
	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// GetEvent fetches one event by id.
func (c *Client) GetEvent(ctx context.Context, id int64) (Event, error) {
	var resp Event
	err := c.do(ctx, http.MethodGet, c.apiPath(fmt.Sprintf("events/%d", id)), nil, &resp)
	return resp, err
}

// CreateEvent adds an event from a loose override definition.
func (c *Client) CreateEvent(ctx context.Context, def map[string]any) (Event, error) {
	var resp Event
	err := c.do(ctx, http.MethodPost, c.apiPath("events"), def, &resp)
	return resp, err
}

// UpdateEvent merges a one-level patch into an event.
func (c *Client) UpdateEvent(ctx context.Context, id int64, patch map[string]any) (Event, error) {
	var resp Event
	err := c.do(ctx, http.MethodPatch, c.apiPath(fmt.Sprintf("events/%d", id)), patch, &resp)
	return resp, err
}

// CloseEvent transitions an event to resolved or closed.
func (c *Client) CloseEvent(ctx context.Context, id int64, req CloseRequest) (Event, error) {
	var resp Event
	err := c.do(ctx, http.MethodPost, c.apiPath(fmt.Sprintf("events/%d/close", id)), req, &resp)
	return resp, err
}

// Actions lists the agent action log, newest first.
func (c *Client) Actions(ctx context.Context) ([]ActionLogEntry, error) {
	var resp struct {
		Items []ActionLogEntry `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, c.apiPath("actions"), nil, &resp)
	return resp.Items, err
}

// AddAction appends an action log entry.
func (c *Client) AddAction(ctx context.Context, entry ActionLogEntry) (ActionLogEntry, error) {
	var resp ActionLogEntry
	err := c.do(ctx, http.MethodPost, c.apiPath("actions"), entry, &resp)
	return resp, err
}

// Tasks lists the generated task and decision records.
func (c *Client) Tasks(ctx context.Context) ([]Task, error) {
	var resp struct {
		Items []Task `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, c.apiPath("tasks"), nil, &resp)
	return resp.Items, err
}

// Timeseries returns one agent's hourly metric series.
func (c *Client) Timeseries(ctx context.Context, agentID string) ([]TimeSeriesPoint, error) {
	var resp struct {
		AgentID string            `json:"agent_id"`
		Points  []TimeSeriesPoint `json:"points"`
	}
	endpoint := c.apiPath(fmt.Sprintf("agents/%s/timeseries", url.PathEscape(agentID)))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Points, err
}

// InjectCritical triggers the critical heating event injection.
func (c *Client) InjectCritical(ctx context.Context) (Event, error) {
	var resp Event
	err := c.do(ctx, http.MethodPost, c.apiPath("demo/critical-event"), nil, &resp)
	return resp, err
}

// SetStale toggles the stale-data simulation for a domain.
func (c *Client) SetStale(ctx context.Context, agentID string, value bool) (Agent, error) {
	var resp Agent
	endpoint := c.apiPath(fmt.Sprintf("demo/agents/%s/stale", url.PathEscape(agentID)))
	err := c.do(ctx, http.MethodPut, endpoint, map[string]bool{"value": value}, &resp)
	return resp, err
}

// SetPaused pauses or resumes a domain.
func (c *Client) SetPaused(ctx context.Context, agentID string, value bool) (Agent, error) {
	var resp Agent
	endpoint := c.apiPath(fmt.Sprintf("demo/agents/%s/paused", url.PathEscape(agentID)))
	err := c.do(ctx, http.MethodPut, endpoint, map[string]bool{"value": value}, &resp)
	return resp, err
}

// Reset reseeds the demo state.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, c.apiPath("reset"), nil, nil)
}

// DevLogin issues a development bearer token and stores it on the client.
func (c *Client) DevLogin(ctx context.Context, actorID string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"actor_id": actorID}
	if err := c.do(ctx, http.MethodPost, c.apiPath("auth/dev/login"), body, &resp); err != nil {
		return "", err
	}
	c.BearerToken = resp.Token
	return resp.Token, nil
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
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
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

func (c *Client) apiPath(p string) string {
	base := strings.Trim(c.BasePath, "/")
	if base == "" {
		base = "v0"
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
