package pco

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pco-tools/pco-mcp-server/pkg/autherr"
)

// DefaultBaseURL is the Planning Center Online API root.
const DefaultBaseURL = "https://api.planningcenteronline.com"

// requestTimeout bounds every API call.
const requestTimeout = 10 * time.Second

// maxErrorBody caps how much of an upstream error body is retained.
const maxErrorBody = 8 << 10

// Request is one API call: method, path relative to the API root (query
// string included), and an optional JSON body.
type Request struct {
	Method string
	Path   string
	Body   any
}

// Document is a JSON:API response. Data, Included, and Meta are kept raw;
// tool handlers pass them through without reshaping.
type Document struct {
	Data     json.RawMessage `json:"data,omitempty"`
	Included json.RawMessage `json:"included,omitempty"`
	Meta     json.RawMessage `json:"meta,omitempty"`
}

// Client talks to the Planning Center API. It knows nothing about tokens
// beyond attaching the one it is handed.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client. An empty baseURL selects production.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Do performs the request with the given access token. Non-2xx responses
// come back as *autherr.UpstreamError carrying the status and a bounded
// copy of the body.
func (c *Client) Do(ctx context.Context, accessToken string, req Request) (*Document, error) {
	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to upstream API failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &autherr.UpstreamError{
			Status: resp.StatusCode,
			Body:   string(errBody),
		}
	}

	if resp.StatusCode == http.StatusNoContent {
		return &Document{}, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &Document{}, nil
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &doc, nil
}

// Body builds a JSON:API request body for the given resource type.
func Body(resourceType string, attributes map[string]any) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"type":       resourceType,
			"attributes": attributes,
		},
	}
}
