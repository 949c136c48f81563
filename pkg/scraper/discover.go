package scraper

import (
	"bytes"
	"context"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// shell page detection: a listing that renders client-side or an anti-bot
// interstitial never contains the article links we want, so discovery should
// go to the syndication feed instead
const shellSizeThreshold = 2048

// interstitialMarkers mean the real listing never arrived
var interstitialMarkers = []string{
	"consent.google.com",
	"unusual traffic from",
	"are you a robot",
	"captcha",
}

// spaMarkers indicate a client-rendered shell, only trusted on small documents
// since fully rendered pages may contain them too
var spaMarkers = []string{
	"data-reactroot",
	`id="root"`,
	`id="app"`,
	"__next",
	"window.__nuxt__",
}

const spaSizeThreshold = 16 * 1024

// feed link extraction when strict parsing fails
var (
	atomLinkRx = regexp.MustCompile(`<link[^>]+href="(https?://[^"]+)"`)
	rssLinkRx  = regexp.MustCompile(`<link[^>]*>\s*(?:<!\[CDATA\[)?\s*(https?://[^\s<\]]+)`)
)

// Index discovers candidate article URLs for the publisher, trying strategies
// in order per listing page and stopping once the target count is reached:
// structural selectors, embedded structured data, a raw href pattern, then the
// syndication feed (which runs first for a page detected as a shell).
// Aggregator wrapper links are resolved to their destinations at the end.
// Per-page failures are logged and skipped; the returned error is only ever
// the context's.
func (a *Adapter) Index(ctx context.Context) ([]string, error) {
	found := newCandidateSet(a.pub)

	for _, indexURL := range a.pub.IndexURLs {
		if ctx.Err() != nil {
			return found.list(), ctx.Err()
		}
		if found.full() {
			break
		}
		a.discoverFromPage(ctx, indexURL, found)
	}

	// feed fallback when the listing pages came up short
	if !found.full() {
		a.discoverFromFeeds(ctx, found)
	}

	urls := a.resolveAll(ctx, found.list())
	lgr.Printf("[INFO] %s: discovered %d candidates", a.pub.Name, len(urls))
	return urls, ctx.Err()
}

// discoverFromPage runs the strategy chain over one listing page.
func (a *Adapter) discoverFromPage(ctx context.Context, indexURL string, found *candidateSet) {
	body, finalURL, err := a.client.Get(ctx, indexURL)
	if err != nil {
		lgr.Printf("[WARN] %s: listing %s failed: %v", a.pub.Name, indexURL, err)
		return
	}
	base, err := url.Parse(finalURL)
	if err != nil {
		lgr.Printf("[WARN] %s: bad final url for %s: %v", a.pub.Name, indexURL, err)
		return
	}

	if isShellPage(body) {
		lgr.Printf("[INFO] %s: %s looks like a client-rendered shell, trying feeds first", a.pub.Name, indexURL)
		a.discoverFromFeeds(ctx, found)
		if found.full() {
			return
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		lgr.Printf("[WARN] %s: parse listing %s: %v", a.pub.Name, indexURL, err)
		return
	}

	// structural selectors, primary first
	for _, sel := range a.pub.LinkSelectors {
		if found.full() {
			return
		}
		before := found.len()
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if href, ok := s.Attr("href"); ok {
				found.add(base, href)
			}
			return !found.full()
		})
		if added := found.len() - before; added > 0 {
			lgr.Printf("[DEBUG] %s: selector %q added %d links", a.pub.Name, sel, added)
		}
	}

	// embedded structured data
	if !found.full() {
		for _, u := range jsonldURLs(doc) {
			if found.full() {
				break
			}
			found.add(base, u)
		}
	}

	// raw href pattern
	if !found.full() && a.pub.LinkPattern != nil {
		for _, m := range a.pub.LinkPattern.FindAllString(string(body), -1) {
			if found.full() {
				break
			}
			found.add(base, m)
		}
	}
}

// discoverFromFeeds parses each feed strictly with gofeed and falls back to a
// raw link-tag scan when a feed yields nothing usable.
func (a *Adapter) discoverFromFeeds(ctx context.Context, found *candidateSet) {
	if len(a.pub.FeedURLs) == 0 {
		return
	}

	parser := gofeed.NewParser()
	sanitize := bluemonday.StrictPolicy()

	for _, feedURL := range a.pub.FeedURLs {
		if found.full() || ctx.Err() != nil {
			return
		}

		body, finalURL, err := a.client.Get(ctx, feedURL)
		if err != nil {
			lgr.Printf("[WARN] %s: feed %s failed: %v", a.pub.Name, feedURL, err)
			continue
		}
		base, err := url.Parse(finalURL)
		if err != nil {
			continue
		}

		added := 0
		feed, err := parser.ParseString(string(body))
		if err == nil && feed != nil {
			for _, item := range feed.Items {
				if found.full() {
					break
				}
				link := strings.TrimSpace(item.Link)
				if link == "" {
					continue
				}
				if found.add(base, link) {
					added++
					lgr.Printf("[DEBUG] %s: feed item %q -> %s", a.pub.Name,
						html.UnescapeString(sanitize.Sanitize(item.Title)), link)
				}
			}
		}

		if added == 0 {
			// strict parse got nothing, scan raw bytes for link tags
			raw := string(body)
			for _, rx := range []*regexp.Regexp{atomLinkRx, rssLinkRx} {
				for _, m := range rx.FindAllStringSubmatch(raw, -1) {
					if found.full() {
						break
					}
					link := strings.TrimSpace(sanitize.Sanitize(html.UnescapeString(m[1])))
					found.add(base, link)
				}
			}
		}
	}
}

// isShellPage applies the client-rendered/interstitial heuristic.
func isShellPage(body []byte) bool {
	if len(body) < shellSizeThreshold {
		return true
	}
	low := strings.ToLower(string(body))
	for _, m := range interstitialMarkers {
		if strings.Contains(low, m) {
			return true
		}
	}
	if len(body) < spaSizeThreshold {
		for _, m := range spaMarkers {
			if strings.Contains(low, m) {
				return true
			}
		}
	}
	return false
}

// candidateSet accumulates normalized candidate URLs in first-seen order.
type candidateSet struct {
	pub  publisher.Config
	seen map[string]struct{}
	urls []string
}

func newCandidateSet(pub publisher.Config) *candidateSet {
	return &candidateSet{pub: pub, seen: make(map[string]struct{})}
}

func (s *candidateSet) len() int   { return len(s.urls) }
func (s *candidateSet) full() bool { return len(s.urls) >= s.pub.Target }

// list returns the candidates capped at the publisher's hard limit.
func (s *candidateSet) list() []string {
	if len(s.urls) > s.pub.Cap {
		return s.urls[:s.pub.Cap]
	}
	return s.urls
}

// add normalizes href against base and keeps it when it belongs to the
// publisher (or to an aggregator host pending resolution). Reports whether
// the URL was added.
func (s *candidateSet) add(base *url.URL, href string) bool {
	norm, ok := normalizeURL(s.pub, base, href, true)
	if !ok {
		return false
	}
	if _, dup := s.seen[norm]; dup {
		return false
	}
	s.seen[norm] = struct{}{}
	s.urls = append(s.urls, norm)
	return true
}

// normalizeURL resolves href against base to an absolute URL, strips query and
// fragment, and validates host and path against the publisher. Aggregator
// hosts pass only when allowAggregator is set, with the path check deferred
// until resolution.
func normalizeURL(pub publisher.Config, base *url.URL, href string, allowAggregator bool) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return "", false
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)

	host := u.Hostname()
	switch {
	case pub.AcceptsHost(host):
		if u.Path == "" || u.Path == "/" || !pub.AcceptsPath(u.Path) {
			return "", false
		}
	case allowAggregator && pub.NeedsResolve(host):
	default:
		return "", false
	}
	return u.String(), true
}
