// Package upstream is the HTTP client built-in plugins use to reach
// third-party APIs. Responses are returned as gjson results so plugins can
// pick fields by path.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/pkg/version"
	"github.com/tidwall/gjson"
)

// DefaultTimeout bounds a single upstream call.
const DefaultTimeout = 10 * time.Second

const maxBody = 4 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Client fetches JSON documents.
type Client struct {
	http      *http.Client
	userAgent string
}

// New returns a client with the given per-request timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: "mirror/" + version.Get().GitVersion,
	}
}

// GetJSON fetches rawURL with query and returns the parsed document.
// 401 and 403 responses are reported as credentials errors for plugin.
func (c *Client) GetJSON(ctx context.Context, plugin, rawURL string, query url.Values, header http.Header) (gjson.Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return gjson.Result{}, err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return gjson.Result{}, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return gjson.Result{}, err
	}
	// Keep keys out of logs.
	u.RawQuery = ""
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return gjson.Result{}, errno.NewCredentialsError(plugin, fmt.Sprintf("%s answered %d", u.Host, resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return gjson.Result{}, &StatusError{URL: u.String(), StatusCode: resp.StatusCode, Body: string(body)}
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("GET %s: response is not JSON", u.String())
	}
	return gjson.ParseBytes(body), nil
}
