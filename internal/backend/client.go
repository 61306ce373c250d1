// Package backend is the HTTP client for the recipe REST API.
//
// Every call takes the caller's session token explicitly; when it is
// non-empty the client attaches `Authorization: Bearer <token>`.  Responses
// are JSON.  Non-2xx responses become *APIError carrying the server's
// message, except 401 on authenticated endpoints, which becomes
// ErrUnauthorized so the response layer can end the session.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/recipebox/internal/metrics"
)

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

// New creates a client for baseURL.  A nil logger disables debug output.
func New(baseURL string, timeout time.Duration, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// call describes one request.  endpoint is the route template used for
// metrics and the 401 allow-list; path is the concrete path.
type call struct {
	method   string
	endpoint string
	path     string
	query    url.Values
	token    string
	idemKey  string
	body     any
	out      any
}

// authExempt lists endpoints where 401 means bad credentials rather than an
// expired session.
var authExempt = map[string]bool{
	"POST /auth/login":                       true,
	"POST /users":                            true,
	"POST /auth/forgot-password":             true,
	"POST /auth/send-reset-password":         true,
	"POST /auth/confirm-code-reset-password": true,
}

func (c *Client) do(ctx context.Context, cl call) error {
	if cl.path == "" {
		cl.path = cl.endpoint
	}
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", cl.endpoint, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", cl.endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	if cl.idemKey != "" {
		req.Header.Set("Idempotency-Key", cl.idemKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.BackendRequestSeconds.WithLabelValues(cl.endpoint, "error").Observe(time.Since(start).Seconds())
		c.log.Debugw("backend call failed", "method", cl.method, "endpoint", cl.endpoint, "err", err)
		return fmt.Errorf("%s %s: %w", cl.method, cl.endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	metrics.BackendRequestSeconds.WithLabelValues(cl.endpoint, statusClass(resp.StatusCode)).Observe(time.Since(start).Seconds())
	c.log.Debugw("backend call",
		"method", cl.method,
		"endpoint", cl.endpoint,
		"status", resp.StatusCode,
		"authenticated", cl.token != "",
		"duration", time.Since(start),
	)
	if err != nil {
		return fmt.Errorf("read %s response: %w", cl.endpoint, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && !authExempt[cl.method+" "+cl.endpoint] {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, raw)
	}

	if cl.out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, cl.out); err != nil {
		return fmt.Errorf("decode %s response: %w", cl.endpoint, err)
	}
	return nil
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
