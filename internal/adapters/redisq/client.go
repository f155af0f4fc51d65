// Package redisq fetches killmail packages from a RedisQ long-poll endpoint.
package redisq

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/okian/killwatch/internal/domain/model"
	"github.com/okian/killwatch/pkg/metrics"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "killwatch"
	queueIDPrefix    = "killwatch-"
	maxBodyBytes     = 8 << 20
)

// Fetcher retrieves the next upstream package. A nil package with a nil
// error means the upstream had nothing to deliver.
type Fetcher interface {
	Fetch(ctx context.Context) (*model.Package, error)
}

// Client is a RedisQ HTTP client. Redirects follow the http.Client policy.
type Client struct {
	sourceURL string
	queueID   string
	ttw       time.Duration
	timeout   time.Duration
	userAgent string
	http      *http.Client
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a client for sourceURL with configuration options.
func NewClient(sourceURL string, opts ...Option) (*Client, error) {
	if err := ValidateURL(sourceURL); err != nil {
		return nil, fmt.Errorf("redisq: %w", err)
	}
	c := &Client{
		sourceURL: sourceURL,
		queueID:   NewQueueID(),
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// ValidateURL reports whether raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

// NewQueueID returns a fresh queue identifier.
func NewQueueID() string {
	return queueIDPrefix + uuid.NewString()[:8]
}

// QueueID returns the queue identifier sent upstream.
func (c *Client) QueueID() string {
	return c.queueID
}

// URL returns the request URL including queueID and the optional ttw.
func (c *Client) URL() string {
	sep := "?"
	if strings.Contains(c.sourceURL, "?") {
		sep = "&"
	}
	u := c.sourceURL + sep + "queueID=" + url.QueryEscape(c.queueID)
	if c.ttw > 0 {
		u += "&ttw=" + strconv.Itoa(int(c.ttw/time.Second))
	}
	return u
}

// Fetch performs one long-poll request.
func (c *Client) Fetch(ctx context.Context) (*model.Package, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("redisq: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("redisq: fetch: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body := io.Reader(io.LimitReader(resp.Body, maxBodyBytes))
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrDecode, err)
		}
		defer func() { _ = gz.Close() }()
		body = gz
	}

	var doc model.Response
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return doc.Package, nil
}
