// Package mailgate provides a Go client for the mailgate tool API.
//
// mailgate sends mail on behalf of a signed-in Microsoft account, but only in
// two steps: a message is first staged as a draft, and is transmitted only
// when the caller confirms that draft by id.
//
// Usage:
//
//	client := mailgate.New("http://localhost:8080", "your-api-key")
//
//	// Stage a draft
//	draft, err := client.Prepare(ctx, mailgate.Message{
//	    To:      []string{"user@example.com"},
//	    Subject: "Hello",
//	    Body:    "World",
//	})
//
//	// Send it
//	out, err := client.Confirm(ctx, draft.DraftID)
package mailgate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client is the mailgate API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client. baseURL is the server root (e.g.
// "http://localhost:8080"). apiKey may be empty when the server runs without
// API keys.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return doRequest[HealthResponse](ctx, c, http.MethodGet, "/healthz", nil, http.StatusOK)
}

// Ready reports the readiness of the server's dependencies. An unhealthy
// server answers 503, which is returned as an *APIError.
func (c *Client) Ready(ctx context.Context) (*HealthResponse, error) {
	return doRequest[HealthResponse](ctx, c, http.MethodGet, "/readyz", nil, http.StatusOK)
}

// --- internal helpers ---

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("mailgate: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func doRequest[T any](ctx context.Context, c *Client, method, path string, body any, expectedStatus int) (*T, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		return nil, parseError(resp)
	}

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("mailgate: decode response: %w", err)
	}
	return &out, nil
}

// doOutcome posts a draft id and decodes the Outcome the server returns with
// any status. Responses without an outcome body (an API-key rejection, a bad
// request) become an *APIError.
func doOutcome(ctx context.Context, c *Client, path, draftID string) (*Outcome, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, draftRequest{DraftID: draftID})
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mailgate: read response: %w", err)
	}

	var out Outcome
	if err := json.Unmarshal(raw, &out); err == nil && out.Status != "" {
		return &out, nil
	}
	return nil, errorFromBody(resp.StatusCode, raw)
}

func parseError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(resp.Body)
	return errorFromBody(resp.StatusCode, raw)
}

func errorFromBody(status int, raw []byte) *APIError {
	e := &APIError{StatusCode: status}
	var body struct {
		Error string `json:"error"`
		Issue *Issue `json:"issue"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		e.Message = body.Error
		e.Issue = body.Issue
	} else {
		e.Message = http.StatusText(status)
	}
	return e
}
