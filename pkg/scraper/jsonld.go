package scraper

import (
	"encoding/json"

	"github.com/PuerkitoBio/goquery"
)

// jsonldURLs collects URL-bearing string fields from every structured-data
// block on the page. Publishers embed ItemList shapes with links nested at
// arbitrary depth, so the walk is fully recursive.
func jsonldURLs(doc *goquery.Document) []string {
	var out []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return // malformed blocks are common, skip quietly
		}
		collectURLFields(v, &out)
	})
	return out
}

var urlFieldNames = map[string]bool{
	"url":              true,
	"@id":              true,
	"item":             true,
	"mainEntityOfPage": true,
}

func collectURLFields(v any, out *[]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if urlFieldNames[k] {
				if s, ok := val.(string); ok {
					*out = append(*out, s)
					continue
				}
			}
			collectURLFields(val, out)
		}
	case []any:
		for _, item := range t {
			collectURLFields(item, out)
		}
	}
}

// jsonldDates collects datePublished values first, then dateModified, from
// every structured-data block.
func jsonldDates(doc *goquery.Document) []string {
	var published, modified []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		collectStringField(v, "datePublished", &published)
		collectStringField(v, "dateModified", &modified)
	})
	return append(published, modified...)
}

func collectStringField(v any, field string, out *[]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if k == field {
				if s, ok := val.(string); ok && s != "" {
					*out = append(*out, s)
					continue
				}
			}
			collectStringField(val, field, out)
		}
	case []any:
		for _, item := range t {
			collectStringField(item, field, out)
		}
	}
}
