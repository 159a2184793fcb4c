// Package protocol implements the wire side of providers: fetching documents
// over HTTP or a headless browser, and the reusable parsers for HTML pages,
// Atom/OPDS feeds and SRU/MODS responses.
package protocol

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/lepinkainen/shelf/internal/cache"
	"github.com/lepinkainen/shelf/internal/errors"
	"github.com/lepinkainen/shelf/internal/ratelimit"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 15 * time.Second

const maxBodySize = 10 << 20

// ErrNotFound is returned when the upstream answers 404.
var ErrNotFound = stdErrors.New("resource not found")

// Fetcher retrieves the raw document behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPDoer is the subset of *http.Client used by Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an HTTP Fetcher with optional rate limiting and response caching.
type Client struct {
	name       string
	httpClient HTTPDoer
	clientOnce sync.Once
	limiter    *ratelimit.Limiter
	headers    http.Header
	cacheTable string
	timeout    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithRateLimit allows at most rps requests per second.
func WithRateLimit(rps int) ClientOption {
	return func(c *Client) {
		c.limiter = ratelimit.New(c.name, rps)
	}
}

// WithRateInterval allows one request per interval.
func WithRateInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval > 0 {
			c.limiter = ratelimit.NewEvery(c.name, interval)
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithCache stores responses in the given cache table. 404 answers are cached
// for the shorter negative TTL.
func WithCache(table string) ClientOption {
	return func(c *Client) {
		c.cacheTable = table
	}
}

// WithTimeout sets the per-request timeout. 0 disables it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a Client. name identifies the provider in logs and errors.
func NewClient(name string, opts ...ClientOption) *Client {
	c := &Client{
		name:    name,
		headers: http.Header{},
		timeout: DefaultTimeout,
	}
	c.headers.Set("User-Agent", "shelf/1.0 (book metadata lookup)")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) getHTTPClient() HTTPDoer {
	c.clientOnce.Do(func() {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
	})
	return c.httpClient
}

// cachedResponse wraps a response body with metadata for caching.
type cachedResponse struct {
	Body     []byte `json:"body"`
	NotFound bool   `json:"not_found"`
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if c.cacheTable == "" {
		return c.fetch(ctx, url)
	}

	cached, fromCache, err := cache.GetOrFetchWithTTL(c.cacheTable, url, func() (*cachedResponse, error) {
		body, err := c.fetch(ctx, url)
		if stdErrors.Is(err, ErrNotFound) {
			return &cachedResponse{NotFound: true}, nil
		}
		if err != nil {
			return nil, err
		}
		return &cachedResponse{Body: body}, nil
	}, cache.SelectNegativeCacheTTL(func(r *cachedResponse) bool {
		return r.NotFound
	}))
	if err != nil {
		return nil, err
	}

	if fromCache {
		slog.Debug("Using cached response", "provider", c.name, "url", url)
	}
	if cached.NotFound {
		return nil, fmt.Errorf("%s %s: %w", c.name, url, ErrNotFound)
	}
	return cached.Body, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", c.name, url, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.NewRateLimitErrorWithRetry(
			fmt.Sprintf("%s rate limit exceeded", c.name),
			parseRetryAfter(resp.Header.Get("Retry-After")),
		)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%s returned status %d", c.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", c.name, err)
	}
	return body, nil
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return time.Until(at).Round(time.Second)
	}
	return 0
}
