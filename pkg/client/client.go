// Package client is a Go client for the onboarding service's external
// profile import endpoints.
//
//	c, err := client.New("https://onboarding.example.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := c.Profile(ctx, sessionID)
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned by Profile when the session has no live import.
var ErrNotFound = errors.New("no imported profile for this session")

// Client calls the onboarding service.
type Client struct {
	base       string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		c.httpClient = hc
		return nil
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient.Timeout = d
		return nil
	}
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	c := &Client{
		base:       strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Status reports whether the identity provider is configured on the server.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var out StatusResult
	if _, err := c.do(ctx, http.MethodGet, "/auth/external/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile fetches the imported profile and its onboarding projection.
func (c *Client) Profile(ctx context.Context, sessionID string) (*ProfileResult, error) {
	var out ProfileResult
	status, err := c.do(ctx, http.MethodGet, "/auth/external/profile", url.Values{"session_id": {sessionID}}, &out)
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Purge deletes the imported profile for sessionID. It is idempotent.
func (c *Client) Purge(ctx context.Context, sessionID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/auth/external/profile", url.Values{"session_id": {sessionID}}, nil)
	return err
}

// StartURL returns the URL a browser should open to begin an import.
func (c *Client) StartURL(sessionID, redirectPath string) string {
	q := url.Values{"session_id": {sessionID}}
	if redirectPath != "" {
		q.Set("redirect", redirectPath)
	}
	return c.base + "/auth/external/start?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) (int, error) {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return resp.StatusCode, fmt.Errorf("%s %s: %d: %s", method, path, resp.StatusCode, e.Error)
		}
		return resp.StatusCode, fmt.Errorf("%s %s: %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
