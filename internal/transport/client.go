package transport

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
	"syscall"
	"time"

	"golang.org/x/net/http2"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits; a single applet only ever talks to one or two hosts
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 60 * time.Second
)

// Response holds the result of an HTTP request made by [Client].
//
// Response captures the body (limited to 1MB), status code, latency, any
// error that occurred and, for signal submissions, the id assigned by the
// signal service.
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code (e.g., 200, 404, 500).
	// Zero if the request failed before receiving a response.
	StatusCode int

	// ID is the signal id assigned by the service. Zero when none was assigned.
	ID int64

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error contains any error that occurred during the request, including
	// non-2xx responses.
	Error error
}

// OK reports whether the request completed with a 2xx status and no error.
func (r Response) OK() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is an HTTP client wrapper for the signal service and OAuth2 proxy.
//
// Client relies on the caller's context for cancellation; there is no global
// timeout. HTTPS endpoints negotiate HTTP/2.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a new [Client] for the signal service at baseURL.
//
// A nil logger selects [slog.Default].
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		MaxConnsPerHost:     defaultMaxConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
		DisableKeepAlives:   false,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		logger.Warn("http2 unavailable, using http/1.1", "error", err)
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// BaseURL returns the service base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs an HTTP request and returns a structured [Response].
//
// A non-nil body is encoded as JSON. Query values are appended to rawURL.
// Do always returns a Response; errors are captured in the Error field
// rather than returned separately. Non-2xx statuses are reported as errors
// while keeping the body for diagnostics.
func (c *Client) Do(ctx context.Context, method, rawURL string, query url.Values, body any) Response {
	start := time.Now()

	if method == "" {
		method = http.MethodGet
	}

	if len(query) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Response{
				Latency: time.Since(start),
				Error:   fmt.Errorf("failed to encode request body: %w", err),
			}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	limitedReader := io.LimitReader(resp.Body, maxResponseBodySize)
	respBody, err := io.ReadAll(limitedReader)
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	result := Response{
		Body:       respBody,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Error = &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}
	return result
}

// Close closes all idle connections in the client's connection pool.
// Safe to call multiple times and on a nil client.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// IsConnectionRefused reports whether err was caused by nothing listening on
// the target address.
func IsConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
