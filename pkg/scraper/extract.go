package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/go-pkgz/lgr"
	"github.com/markusmobius/go-trafilatura"

	"github.com/umputun/newsdigest/pkg/domain"
)

// metaDateSelectors are tried in order after structured data, before
// machine-readable time elements and free-text fallbacks
var metaDateSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[itemprop="datePublished"]`,
	`meta[name="date"]`,
	`meta[property="og:updated_time"]`,
	`meta[name="OriginalPublicationDate"]`,
	`meta[name="Last-Modified"]`,
}

// Fetch retrieves one candidate article and extracts its text. The origin and
// path are re-checked first; a mismatch returns ErrWrongOrigin (a safety
// rejection, not a failure). A page where no body strategy yields text
// returns ErrNoContent.
func (a *Adapter) Fetch(ctx context.Context, rawURL string) (*domain.RawArticle, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !a.pub.AcceptsHost(u.Hostname()) || !a.pub.AcceptsPath(u.Path) {
		return nil, ErrWrongOrigin
	}

	body, finalURL, err := a.client.Get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("retrieve article: %w", err)
	}

	// a redirect off the accepted origin means a consent page or a takedown
	if fu, perr := url.Parse(finalURL); perr == nil && !a.pub.AcceptsHost(fu.Hostname()) {
		return nil, ErrWrongOrigin
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse article %s: %w", rawURL, err)
	}

	title := a.extractTitle(doc)
	published := a.extractPublished(doc)

	text := a.extractBody(doc)
	if text == "" {
		text = a.extractGeneric(body, finalURL)
	}
	if text == "" {
		return nil, ErrNoContent
	}

	return &domain.RawArticle{Source: rawURL, Content: buildContent(title, published, text)}, nil
}

// extractTitle prefers og:title, then publisher selectors, the title tag and
// the first h1.
func (a *Adapter) extractTitle(doc *goquery.Document) string {
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	for _, sel := range a.pub.TitleSelectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractPublished walks the date chain: structured data, known meta tags,
// time elements, then the publisher's free-text selectors. Placeholder values
// (template tokens in brackets) are discarded. The first candidate that
// parses wins and is normalized to RFC3339; with nothing parseable the first
// plausible raw string is kept for display.
func (a *Adapter) extractPublished(doc *goquery.Document) string {
	var candidates []string

	candidates = append(candidates, jsonldDates(doc)...)

	for _, sel := range metaDateSelectors {
		if v, ok := doc.Find(sel).Attr("content"); ok {
			candidates = append(candidates, v)
		}
	}

	doc.Find("time").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if v, ok := s.Attr("datetime"); ok {
			candidates = append(candidates, v)
		} else {
			candidates = append(candidates, s.Text())
		}
		return i < 4 // a handful is plenty
	})

	for _, sel := range a.pub.DateSelectors {
		candidates = append(candidates, doc.Find(sel).First().Text())
	}

	bestRaw := ""
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || isPlaceholder(c) {
			continue
		}
		if ts, err := parseDate(c); err == nil {
			return ts.Format(time.RFC3339)
		}
		if bestRaw == "" {
			bestRaw = c
		}
	}
	return bestRaw
}

// isPlaceholder detects unexpanded template tokens like "[DATE]"
func isPlaceholder(s string) bool {
	return strings.Contains(s, "[") && strings.Contains(s, "]")
}

// parseDate tries the strict format first, then lenient parsing.
func parseDate(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return dateparse.ParseAny(s)
}

// extractBody tries the publisher's body selectors in order; the first one
// yielding non-empty paragraph text wins.
func (a *Adapter) extractBody(doc *goquery.Document) string {
	for _, sel := range a.pub.BodySelectors {
		found := doc.Find(sel)
		if found.Length() == 0 {
			continue
		}
		if text := paragraphText(found); text != "" {
			return text
		}
	}
	return ""
}

// paragraphText joins the paragraph texts of a selection with blank lines.
// Selections of containers contribute their p descendants, or their own text
// when they have none.
func paragraphText(sel *goquery.Selection) string {
	var paras []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "p" {
			if t := strings.TrimSpace(s.Text()); t != "" {
				paras = append(paras, t)
			}
			return
		}
		inner := s.Find("p")
		if inner.Length() == 0 {
			if t := strings.TrimSpace(s.Text()); t != "" {
				paras = append(paras, t)
			}
			return
		}
		inner.Each(func(_ int, p *goquery.Selection) {
			if t := strings.TrimSpace(p.Text()); t != "" {
				paras = append(paras, t)
			}
		})
	})
	return strings.Join(paras, "\n\n")
}

// extractGeneric is the last-resort strategy when every selector misses,
// useful after publishers rework their markup.
func (a *Adapter) extractGeneric(body []byte, pageURL string) string {
	opts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		Deduplicate:     true,
	}
	if u, err := url.Parse(pageURL); err == nil {
		opts.OriginalURL = u
	}

	result, err := trafilatura.Extract(bytes.NewReader(body), opts)
	if err != nil || result == nil {
		lgr.Printf("[DEBUG] %s: generic extraction failed for %s: %v", a.pub.Name, pageURL, err)
		return ""
	}
	return strings.TrimSpace(result.ContentText)
}

// buildContent prepends the title and published-at header lines to the body.
func buildContent(title, published, body string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	if published != "" {
		b.WriteString("published: ")
		b.WriteString(published)
		b.WriteString("\n\n")
	}
	b.WriteString(body)
	return b.String()
}
