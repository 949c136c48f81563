// Package fetch provides the single HTTP client shared by all scrapers.
// The client is constructed once, passed around explicitly and never stored
// in package state.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"
)

// maxBodySize caps how much of any response we read, publishers do not serve
// articles anywhere near this large
const maxBodySize = 10 * 1024 * 1024

// acceptLanguages contains common browser Accept-Language values
var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.9,es;q=0.8",
	"en-US,en;q=0.9,fr;q=0.8",
	"en-US,en;q=0.9,de;q=0.8",
}

// Client is a thin wrapper around http.Client with browser-like headers.
// Safe for concurrent use.
type Client struct {
	http      *http.Client
	userAgent string
}

// New creates a client with a tuned connection pool. The timeout covers the
// whole request including body read.
func New(timeout time.Duration, userAgent string) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

// Get fetches rawURL following redirects and returns the body together with
// the final URL the chain landed on.
func (c *Client) Get(ctx context.Context, rawURL string) (body []byte, finalURL string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("create request for %s: %w", rawURL, err)
	}
	c.addBrowserHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	finalURL = rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, finalURL, fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, finalURL, fmt.Errorf("read body of %s: %w", rawURL, err)
	}
	return body, finalURL, nil
}

// addBrowserHeaders makes requests look like a regular browser session,
// publishers are more willing to serve those
func (c *Client) addBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	// randomized language
	req.Header.Set("Accept-Language", acceptLanguages[rand.IntN(len(acceptLanguages))])

	// dnt - 30% chance
	if rand.Float32() < 0.3 {
		req.Header.Set("DNT", "1")
	}
}
