package forwarder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxBodyBytes caps the rejected-response body kept in an Outcome.
const MaxBodyBytes = 4 * 1024

const (
	writePath   = "/api/v2/write"
	contentType = "text/plain; charset=utf-8"

	defaultTimeout = 10 * time.Second
)

// Config holds the upstream write target. It is immutable once passed to New.
type Config struct {
	URL       string
	Token     string
	Org       string
	Bucket    string
	Precision string

	// Timeout bounds each request; zero means 10s.
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client posts line protocol points upstream.
// Safe for concurrent use by many connections.
type Client struct {
	writeURL string
	authz    string
	http     *http.Client
}

// New validates cfg and precomputes the write endpoint.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, cfg.URL)
	}
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}

	precision := cfg.Precision
	if precision == "" {
		precision = "ns"
	}

	q := url.Values{}
	q.Set("bucket", cfg.Bucket)
	q.Set("org", cfg.Org)
	q.Set("precision", precision)

	base.Path += writePath
	base.RawQuery = q.Encode()

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		writeURL: base.String(),
		authz:    "Token " + cfg.Token,
		http:     httpClient,
	}, nil
}

// WriteURL returns the full write endpoint including the query string.
func (c *Client) WriteURL() string {
	return c.writeURL
}

// HTTPClient returns the shared transport so other upstream consumers can reuse it.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Forward sends one point. It makes a single attempt and never retries.
func (c *Client) Forward(ctx context.Context, point string) Outcome {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.writeURL, bytes.NewBufferString(point))
	if err != nil {
		return Outcome{Kind: TransportFailure, Err: fmt.Errorf("building request: %w", err), Duration: time.Since(start)}
	}
	req.Header.Set("Authorization", c.authz)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return Outcome{Kind: TransportFailure, Err: err, Duration: time.Since(start)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Drain so the keep-alive connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodyBytes)) //nolint:errcheck // best effort
		return Outcome{Kind: Delivered, Status: resp.StatusCode, Duration: time.Since(start)}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes)) //nolint:errcheck // partial body is fine
	return Outcome{
		Kind:     Rejected,
		Status:   resp.StatusCode,
		Body:     strings.TrimSpace(string(body)),
		Duration: time.Since(start),
	}
}
