// Package scraper executes publisher definitions: index discovery over an
// ordered strategy chain, per-article content extraction with selector
// fallbacks, and bounded-concurrency fetching. One Adapter serves one
// publisher; adapters share a single HTTP client and nothing else.
package scraper

import (
	"context"
	"errors"
	"sync"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/newsdigest/pkg/domain"
	"github.com/umputun/newsdigest/pkg/fetch"
	"github.com/umputun/newsdigest/pkg/publisher"
)

var (
	// ErrWrongOrigin marks a candidate rejected by the origin/path safety filter
	ErrWrongOrigin = errors.New("url outside publisher origin")
	// ErrNoContent marks a fetched page where no extraction strategy produced body text
	ErrNoContent = errors.New("no content found")
)

// Adapter discovers and fetches articles for a single publisher.
type Adapter struct {
	pub     publisher.Config
	client  *fetch.Client
	origins []originSearch
}

// New creates an adapter. defaultWorkers is used when the publisher does not
// set its own fetch concurrency.
func New(pub publisher.Config, client *fetch.Client, defaultWorkers int) *Adapter {
	if pub.Concurrency == 0 {
		pub.Concurrency = defaultWorkers
	}
	if pub.Concurrency <= 0 {
		pub.Concurrency = 1
	}
	return &Adapter{pub: pub, client: client, origins: buildOriginSearches(pub.Hosts)}
}

// Name returns the publisher name.
func (a *Adapter) Name() string { return a.pub.Name }

// FetchAll retrieves the given candidates with at most the publisher's
// concurrency in flight. Failures are logged and skipped, never aborting
// sibling fetches; results arrive in completion order.
func (a *Adapter) FetchAll(ctx context.Context, urls []string) []domain.RawArticle {
	var (
		mu  sync.Mutex
		res []domain.RawArticle
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.pub.Concurrency)

	for _, u := range urls {
		g.Go(func() error {
			art, err := a.Fetch(ctx, u)
			switch {
			case errors.Is(err, ErrWrongOrigin):
				lgr.Printf("[DEBUG] %s: skipped %s, outside accepted origin", a.pub.Name, u)
			case errors.Is(err, ErrNoContent):
				lgr.Printf("[WARN] %s: no content in %s", a.pub.Name, u)
			case err != nil:
				lgr.Printf("[WARN] %s: fetch %s failed: %v", a.pub.Name, u, err)
			default:
				mu.Lock()
				res = append(res, *art)
				mu.Unlock()
			}
			return nil // per-url failures never fail the group
		})
	}
	_ = g.Wait() // workers always return nil

	lgr.Printf("[INFO] %s: fetched %d of %d articles", a.pub.Name, len(res), len(urls))
	return res
}
