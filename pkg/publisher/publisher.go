// Package publisher describes news sources declaratively: where article links
// live, what markup holds the article body, and how aggressively to fetch.
// The scraper executes these definitions; adding a publisher means adding data,
// not code.
package publisher

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Config describes one publisher. Immutable once built, shared read-only.
type Config struct {
	Name string

	// discovery
	IndexURLs     []string       // listing pages scanned for article links
	Hosts         []string       // accepted article hosts
	LinkSelectors []string       // primary then broader structural queries
	LinkPattern   *regexp.Regexp // href-shaped fallback over raw listing bytes
	PathPattern   *regexp.Regexp // accepted article path, nil = any path on accepted host
	FeedURLs      []string       // syndication fallback
	ResolveHosts  []string       // aggregator hosts whose links need resolution

	// extraction
	TitleSelectors []string
	BodySelectors  []string
	DateSelectors  []string // free-text date-bearing elements, tried last

	// limits
	Target      int // stop discovery once this many candidates found
	Cap         int // hard cap on candidates
	Concurrency int // parallel article fetches
}

// Validate checks the definition is executable.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("publisher name is required")
	}
	if len(c.Hosts) == 0 {
		return fmt.Errorf("publisher %s: at least one accepted host is required", c.Name)
	}
	if len(c.IndexURLs) == 0 && len(c.FeedURLs) == 0 {
		return fmt.Errorf("publisher %s: needs index urls or feed urls", c.Name)
	}
	if len(c.IndexURLs) > 0 && len(c.LinkSelectors) == 0 && c.LinkPattern == nil {
		return fmt.Errorf("publisher %s: index urls need link selectors or a link pattern", c.Name)
	}
	if len(c.BodySelectors) == 0 {
		return fmt.Errorf("publisher %s: at least one body selector is required", c.Name)
	}
	if c.Target <= 0 || c.Cap <= 0 {
		return fmt.Errorf("publisher %s: target and cap must be positive", c.Name)
	}
	if c.Target > c.Cap {
		return fmt.Errorf("publisher %s: target %d exceeds cap %d", c.Name, c.Target, c.Cap)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("publisher %s: concurrency must be non-negative", c.Name)
	}
	return nil
}

// AcceptsHost reports whether host belongs to the publisher.
func (c *Config) AcceptsHost(host string) bool {
	return slices.Contains(c.Hosts, strings.ToLower(host))
}

// NeedsResolve reports whether host is an aggregator wrapper whose links
// must be resolved to the real destination.
func (c *Config) NeedsResolve(host string) bool {
	return slices.Contains(c.ResolveHosts, strings.ToLower(host))
}

// AcceptsPath reports whether an article path matches the publisher's pattern.
func (c *Config) AcceptsPath(path string) bool {
	if c.PathPattern == nil {
		return true
	}
	return c.PathPattern.MatchString(path)
}

// Select returns copies of the named built-in publishers, or all of them when
// names is empty. Unknown names are an error, not a silent skip.
func Select(names []string) ([]Config, error) {
	all := Builtins()
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]Config, len(all))
	for _, p := range all {
		byName[p.Name] = p
	}

	res := make([]Config, 0, len(names))
	for _, name := range names {
		p, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown publisher %q", name)
		}
		res = append(res, p)
	}
	return res, nil
}
