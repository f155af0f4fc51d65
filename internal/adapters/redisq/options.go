package redisq

import (
	"net/http"
	"time"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithQueueID sets the queue identifier sent as queueID.
func WithQueueID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.queueID = id
		}
	}
}

// WithTimeToWait asks the upstream to hold the request open for up to d
// (whole seconds) before answering with an empty package.
func WithTimeToWait(d time.Duration) Option {
	return func(c *Client) {
		if d >= time.Second {
			c.ttw = d
		}
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}
