// Package atlas is a Go client for the Atlas conversational API.
package atlas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the Atlas REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Reply is the assistant's answer to a single message together with the
// session state after the turn.
type Reply struct {
	Reply     string `json:"reply"`
	Sentiment string `json:"sentiment"`
	Context   string `json:"context,omitempty"`
	Workflow  string `json:"workflow,omitempty"`
	Step      int    `json:"step"`
}

// Slots holds the values collected by an active workflow or a pending
// conversion.
type Slots struct {
	PendingAmount   float64 `json:"pending_amount,omitempty"`
	PendingCurrency string  `json:"pending_currency,omitempty"`
	CompanyName     string  `json:"company_name,omitempty"`
	PAN             string  `json:"pan,omitempty"`
	GSTIN           string  `json:"gstin,omitempty"`
	TicketIssue     string  `json:"ticket_issue,omitempty"`
	TransactionRef  string  `json:"transaction_ref,omitempty"`
}

// HistoryEntry is one recorded user message.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// SessionInfo is the diagnostic view of a session.
type SessionInfo struct {
	SessionID string         `json:"session_id"`
	Sentiment string         `json:"sentiment"`
	Context   string         `json:"context,omitempty"`
	Workflow  string         `json:"workflow,omitempty"`
	Step      int            `json:"step"`
	Slots     Slots          `json:"slots"`
	History   []HistoryEntry `json:"history"`
	StartedAt time.Time      `json:"started_at"`
	LastSeen  time.Time      `json:"last_seen"`
}

// Ticket is a support ticket raised through the assistant.
type Ticket struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id,omitempty"`
	Issue          string    `json:"issue"`
	TransactionRef string    `json:"transaction_ref"`
	Sentiment      string    `json:"sentiment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Health reports service liveness and whether live rates are loaded.
type Health struct {
	Status      string `json:"status"`
	QuotesReady bool   `json:"quotes_ready"`
	Sessions    int    `json:"sessions"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("atlas api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("atlas api error (%d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// NewClient instantiates a client for the Atlas API. When httpClient is nil, a
// default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// CreateSession opens a new conversation and returns its identifier.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := c.send(ctx, http.MethodPost, "/api/v1/sessions", struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// Send posts a user message to the session and returns the assistant reply.
func (c *Client) Send(ctx context.Context, sessionID, message string) (Reply, error) {
	var reply Reply
	endpoint := "/api/v1/sessions/" + url.PathEscape(sessionID) + "/messages"
	payload := struct {
		Message string `json:"message"`
	}{Message: message}
	if err := c.send(ctx, http.MethodPost, endpoint, payload, &reply); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// Inspect fetches the diagnostic view of a session.
func (c *Client) Inspect(ctx context.Context, sessionID string) (SessionInfo, error) {
	var info SessionInfo
	if err := c.send(ctx, http.MethodGet, "/api/v1/sessions/"+url.PathEscape(sessionID), nil, &info); err != nil {
		return SessionInfo{}, err
	}
	return info, nil
}

// CloseSession deletes the session on the server.
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	return c.send(ctx, http.MethodDelete, "/api/v1/sessions/"+url.PathEscape(sessionID), nil, nil)
}

// Tickets lists the most recent support tickets.
func (c *Client) Tickets(ctx context.Context, limit int) ([]Ticket, error) {
	endpoint := "/api/v1/tickets"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	var tickets []Ticket
	if err := c.send(ctx, http.MethodGet, endpoint, nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// Health calls the health endpoint.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	if err := c.send(ctx, http.MethodGet, "/healthz", nil, &h); err != nil {
		return Health{}, err
	}
	return h, nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	u := *c.baseURL
	u.Path = path.Join(c.baseURL.Path, ref.Path)
	u.RawPath = ""
	u.RawQuery = ref.RawQuery
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr APIError
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &struct {
				Error *APIError `json:"error"`
			}{Error: &apiErr})
			if apiErr.Code == "" && apiErr.Message == "" {
				_ = json.Unmarshal(data, &apiErr)
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
