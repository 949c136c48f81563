package scraper

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"
)

// metaRefreshRx pulls the url= target out of a meta refresh content attribute
var metaRefreshRx = regexp.MustCompile(`(?i)url\s*=\s*['"]?([^'">\s]+)`)

// resolveAll maps aggregator wrapper candidates to their real destinations,
// keeping direct candidates as they are. Order is preserved, unresolvable
// wrappers are dropped, and the result is deduplicated again since two
// wrappers can point at the same article.
func (a *Adapter) resolveAll(ctx context.Context, urls []string) []string {
	needsResolve := false
	for _, raw := range urls {
		if u, err := url.Parse(raw); err == nil && a.pub.NeedsResolve(u.Hostname()) {
			needsResolve = true
			break
		}
	}
	if !needsResolve {
		return urls
	}

	resolved := make([]string, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.pub.Concurrency)

	for i, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if !a.pub.NeedsResolve(u.Hostname()) {
			resolved[i] = raw
			continue
		}
		g.Go(func() error {
			if target, ok := a.resolve(gctx, raw); ok {
				resolved[i] = target
			} else {
				lgr.Printf("[DEBUG] %s: dropped unresolvable aggregator link %s", a.pub.Name, raw)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range resolved {
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// resolve follows one wrapper link to the publisher: HTTP redirects first,
// then the interstitial page's meta refresh, its first publisher-origin
// anchor, its og:url, and finally a raw-byte search for the publisher origin
// in literal, backslash-escaped and percent-encoded form.
func (a *Adapter) resolve(ctx context.Context, wrapped string) (string, bool) {
	body, finalURL, err := a.client.Get(ctx, wrapped)
	if err != nil {
		lgr.Printf("[DEBUG] %s: resolve %s failed: %v", a.pub.Name, wrapped, err)
		return "", false
	}

	// redirects may have landed on the publisher already
	if norm, ok := normalizeURL(a.pub, nil, finalURL, false); ok {
		return norm, true
	}

	base, err := url.Parse(finalURL)
	if err != nil {
		return "", false
	}

	if doc, derr := goquery.NewDocumentFromReader(bytes.NewReader(body)); derr == nil {
		var fromRefresh string
		doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, _ := s.Attr("http-equiv"); !strings.EqualFold(v, "refresh") {
				return true
			}
			content, _ := s.Attr("content")
			if m := metaRefreshRx.FindStringSubmatch(content); m != nil {
				if norm, ok := normalizeURL(a.pub, base, m[1], false); ok {
					fromRefresh = norm
					return false
				}
			}
			return true
		})
		if fromRefresh != "" {
			return fromRefresh, true
		}

		var fromAnchor string
		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			if norm, ok := normalizeURL(a.pub, base, href, false); ok {
				fromAnchor = norm
				return false
			}
			return true
		})
		if fromAnchor != "" {
			return fromAnchor, true
		}

		if content, ok := doc.Find(`meta[property="og:url"]`).Attr("content"); ok {
			if norm, ok2 := normalizeURL(a.pub, base, content, false); ok2 {
				return norm, true
			}
		}
	}

	raw := string(body)
	for _, search := range a.origins {
		if m := search.rx.FindString(raw); m != "" {
			if norm, ok := normalizeURL(a.pub, nil, search.decode(m), false); ok {
				return norm, true
			}
		}
	}
	return "", false
}

// originSearch is one encoded-origin pattern with its decoder.
type originSearch struct {
	rx     *regexp.Regexp
	decode func(string) string
}

// buildOriginSearches prepares, per accepted host, the three patterns used by
// the raw-byte resolution fallback.
func buildOriginSearches(hosts []string) []originSearch {
	var out []originSearch
	for _, host := range hosts {
		q := regexp.QuoteMeta(host) + `(?::\d+)?`
		out = append(out,
			originSearch{
				rx:     regexp.MustCompile(`https?://` + q + `/[^"'\s<>\\]+`),
				decode: func(s string) string { return s },
			},
			originSearch{
				rx:     regexp.MustCompile(`https?:\\/\\/` + q + `(?:\\/[^"'\s<>\\]*)+`),
				decode: func(s string) string { return strings.ReplaceAll(s, `\/`, "/") },
			},
			originSearch{
				rx: regexp.MustCompile(`(?i)https?%3A%2F%2F` + q + `(?:%2F[A-Za-z0-9%._~!$&*+,;=@-]*)+`),
				decode: func(s string) string {
					if d, err := url.QueryUnescape(s); err == nil {
						return d
					}
					return s
				},
			},
		)
	}
	return out
}
