// Package atlas is the remote data client for the Atlas REST API.
//
// Every call resolves a bearer token from the injected provider first; a
// missing token fails the call before any network I/O. The client never
// retries: retry policy belongs to the poll scheduler for reads and to the
// mutation coordinator for writes.
package atlas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/credential"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

var (
	// ErrMalformedResponse reports a body that is not valid JSON or not the
	// expected object shape.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrTransport wraps network, DNS and connection failures.
	ErrTransport = errors.New("transport failure")
)

// APIError is a non-2xx response from the Atlas API.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("atlas api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("atlas api: status %d: %s", e.StatusCode, e.Detail)
}

// Is matches domain.ErrNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == domain.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client performs authenticated calls against the Atlas API.
type Client struct {
	baseURL    *url.URL
	provider   credential.Provider
	httpClient *http.Client
	logger     *slog.Logger
	maxBody    int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the API rooted at baseURL
// (for example http://localhost:8000).
func NewClient(baseURL string, provider credential.Provider, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		provider:   provider,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		maxBody:    8 << 20, // 8MB
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Provider returns the credential provider used by the client.
func (c *Client) Provider() credential.Provider { return c.provider }

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do executes one authenticated request and returns the raw 2xx body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, header http.Header) ([]byte, error) {
	if c.provider == nil {
		return nil, credential.ErrMissingCredential
	}
	tok, err := c.provider.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, credential.ErrMissingCredential
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(data)}
	}
	return data, nil
}

// errorDetail extracts the human readable message from an error body. FastAPI
// returns {"detail": "..."} or, for validation errors, {"detail": [...]}.
func errorDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	if len(body.Detail) > 0 {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil {
			return s
		}
		return string(body.Detail)
	}
	return body.Error
}

// getList fetches a list endpoint. A body that is valid JSON but not an array
// degrades to an empty list; invalid JSON fails the call.
func getList[T any](ctx context.Context, c *Client, path string, query url.Values, header http.Header) ([]T, error) {
	data, err := c.do(ctx, http.MethodGet, path, query, nil, header)
	if err != nil {
		return nil, err
	}
	return decodeList[T](c.logger, path, data)
}

func decodeList[T any](logger *slog.Logger, path string, data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: %s: invalid json", ErrMalformedResponse, path)
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		logger.Warn("list endpoint returned a non-array payload, treating as empty", "path", path)
		return []T{}, nil
	}

	// Decode element by element so one bad entry does not drop the list.
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, path, err)
	}
	items := make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			logger.Warn("skipping undecodable list entry", "path", path, "index", i, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeObject(path string, data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: %s: expected object", ErrMalformedResponse, path)
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedResponse, path, err)
	}
	return nil
}
