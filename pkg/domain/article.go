package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// RawArticle is the fetch stage output: the article URL and the extracted
// text with title and published-at header lines prepended.
type RawArticle struct {
	Source  string
	Content string
}

// NamedEntity is a person, organization or other entity the analysis found relevant.
type NamedEntity struct {
	Name      string `json:"name"`
	What      string `json:"whatIsThisEntity"`
	Relevance string `json:"whyIsThisEntityRelevantToTheArticle"`
}

// ImportantDate is a date mentioned in the article with its relevance.
type ImportantDate struct {
	Date      string `json:"dateMentionedInArticle"`
	Relevance string `json:"descriptionOfWhyDateIsRelevant"`
}

// ImportantTimeframe is a period the article refers to with its relevance.
type ImportantTimeframe struct {
	Start     string `json:"approximateTimeFrameStart"`
	End       string `json:"approximateTimeFrameEnd"`
	Relevance string `json:"descriptionOfWhyTimeFrameIsRelevant"`
}

// Analysis is the structured result the enrichment service returns for one
// article, field names matching the response schema verbatim.
type Analysis struct {
	DateOfPublication string               `json:"dateOfPublication"`
	TimeOfPublication string               `json:"timeOfPublication"`
	Title             string               `json:"title"`
	Category          string               `json:"category"`
	Summary           string               `json:"summaryOfNewsArticle"`
	KeyTakeaways      []string             `json:"keyTakeAways"`
	NamedEntities     []NamedEntity        `json:"namedEntities"`
	ImportantDates    []ImportantDate      `json:"importantDates"`
	Timeframes        []ImportantTimeframe `json:"importantTimeframes"`
	Tags              []string             `json:"tags"`
}

// Validate checks the fields rendering cannot do without.
func (a *Analysis) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("analysis missing title")
	}
	if strings.TrimSpace(a.Category) == "" {
		return fmt.Errorf("analysis missing category")
	}
	if strings.TrimSpace(a.Summary) == "" {
		return fmt.Errorf("analysis missing summary")
	}
	return nil
}

// Normalize removes duplicates the enrichment service tends to produce:
// entities by name, dates and timeframes by their relevance description,
// takeaways by exact text. First occurrence wins, order is preserved.
func (a *Analysis) Normalize() {
	if len(a.NamedEntities) > 0 {
		seen := make(map[string]struct{}, len(a.NamedEntities))
		kept := a.NamedEntities[:0]
		for _, e := range a.NamedEntities {
			if _, ok := seen[e.Name]; ok {
				continue
			}
			seen[e.Name] = struct{}{}
			kept = append(kept, e)
		}
		a.NamedEntities = kept
	}

	if len(a.ImportantDates) > 0 {
		seen := make(map[string]struct{}, len(a.ImportantDates))
		kept := a.ImportantDates[:0]
		for _, d := range a.ImportantDates {
			if _, ok := seen[d.Relevance]; ok {
				continue
			}
			seen[d.Relevance] = struct{}{}
			kept = append(kept, d)
		}
		a.ImportantDates = kept
	}

	if len(a.Timeframes) > 0 {
		seen := make(map[string]struct{}, len(a.Timeframes))
		kept := a.Timeframes[:0]
		for _, tf := range a.Timeframes {
			if _, ok := seen[tf.Relevance]; ok {
				continue
			}
			seen[tf.Relevance] = struct{}{}
			kept = append(kept, tf)
		}
		a.Timeframes = kept
	}

	if len(a.KeyTakeaways) > 0 {
		seen := make(map[string]struct{}, len(a.KeyTakeaways))
		kept := a.KeyTakeaways[:0]
		for _, t := range a.KeyTakeaways {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			kept = append(kept, t)
		}
		a.KeyTakeaways = kept
	}
}

// EnrichedArticle is an Analysis tied back to its origin, ready for rendering.
type EnrichedArticle struct {
	Analysis
	Source  string `json:"source"`
	Content string `json:"content"`
}

// SourceTag returns a short label derived from the source host, the
// second-to-last dot-separated label: lite.cnn.com -> "cnn". Single-label
// hosts return that label, unparseable sources return "".
func (e *EnrichedArticle) SourceTag() string {
	u, err := url.Parse(e.Source)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	labels := strings.Split(u.Hostname(), ".")
	if len(labels) < 2 {
		return labels[0]
	}
	return labels[len(labels)-2]
}

// FrontPage aggregates the articles of one (date, bucket) run for the JSON snapshot.
type FrontPage struct {
	LocalDate string            `json:"local_date"`
	TimeOfDay string            `json:"time_of_day"`
	LocalTime string            `json:"local_time"`
	Articles  []EnrichedArticle `json:"articles"`
}
