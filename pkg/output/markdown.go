// Package output renders a finished run into its three artifacts: the JSON
// snapshot, the markdown edition, and the accumulating index documents the
// editions hang off. Index updates go through an idempotent line merger, so
// rerunning an edition never duplicates entries.
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"

	"github.com/umputun/newsdigest/pkg/domain"
)

// RenderEdition renders one front page as a markdown document: a masthead,
// then articles grouped under category headings in alphabetical order.
func RenderEdition(page domain.FrontPage) string {
	var b strings.Builder
	b.WriteString("# The Daily Digest\n\n")
	fmt.Fprintf(&b, "#### Edition published at %s\n\n", page.LocalTime)

	byCat, cats := groupByCategory(page.Articles)
	for _, cat := range cats {
		fmt.Fprintf(&b, "# %s\n\n", cat)
		for i := range byCat[cat] {
			writeArticle(&b, &byCat[cat][i])
		}
	}
	return b.String()
}

// WriteEdition renders the page and writes the edition file under mdDir,
// replacing any previous rendering of the same edition.
func WriteEdition(ctx context.Context, mdDir string, ed domain.Edition, page domain.FrontPage) error {
	path := filepath.Join(mdDir, ed.FileName())
	data := []byte(RenderEdition(page))
	retrier := repeater.NewBackoff(3, 50*time.Millisecond, repeater.WithMaxDelay(time.Second))
	err := retrier.Do(ctx, func() error { return os.WriteFile(path, data, 0o600) })
	if err != nil {
		return fmt.Errorf("write edition %s: %w", path, err)
	}
	lgr.Printf("[INFO] wrote markdown edition %s, %d articles", path, len(page.Articles))
	return nil
}

// writeArticle appends one article's section: heading with optional source
// tag, metadata list, then the structured analysis blocks. Empty blocks are
// omitted entirely.
func writeArticle(b *strings.Builder, a *domain.EnrichedArticle) {
	if tag := a.SourceTag(); tag != "" {
		fmt.Fprintf(b, "## %s - <small>`%s`</small>\n\n", a.Title, tag)
	} else {
		fmt.Fprintf(b, "## %s\n\n", a.Title)
	}

	if a.Source != "" {
		fmt.Fprintf(b, "- [source](%s)\n", a.Source)
	}
	fmt.Fprintf(b, "- _Published: %s %s_\n", a.DateOfPublication, a.TimeOfPublication)
	fmt.Fprintf(b, "- **%s**\n", a.Category)
	if len(a.Tags) > 0 {
		fmt.Fprintf(b, "- <small>tags: `%s`</small>\n\n", strings.Join(a.Tags, ", "))
	} else {
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "### Summary\n\n%s\n\n", strings.TrimSpace(a.Summary))

	if len(a.KeyTakeaways) > 0 {
		b.WriteString("### Key Takeaways\n")
		for _, t := range a.KeyTakeaways {
			fmt.Fprintf(b, "  - %s\n", t)
		}
		b.WriteString("\n")
	}

	if len(a.NamedEntities) > 0 {
		b.WriteString("### Named Entities\n")
		for _, e := range a.NamedEntities {
			fmt.Fprintf(b, "- **%s**\n", e.Name)
			fmt.Fprintf(b, "    - %s\n", e.What)
			fmt.Fprintf(b, "    - %s\n", e.Relevance)
		}
		b.WriteString("\n")
	}

	if len(a.ImportantDates) > 0 {
		b.WriteString("### Important Dates\n")
		for _, d := range a.ImportantDates {
			fmt.Fprintf(b, "  - **%s**\n", d.Date)
			fmt.Fprintf(b, "    - %s\n", d.Relevance)
		}
		b.WriteString("\n")
	}

	if len(a.Timeframes) > 0 {
		b.WriteString("### Important Timeframes\n")
		for _, tf := range a.Timeframes {
			fmt.Fprintf(b, "  - **From _%s_ to _%s_**\n", tf.Start, tf.End)
			fmt.Fprintf(b, "    - %s\n", tf.Relevance)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
}

// groupByCategory buckets articles by category keeping arrival order within
// each, and returns the category names sorted.
func groupByCategory(articles []domain.EnrichedArticle) (map[string][]domain.EnrichedArticle, []string) {
	byCat := map[string][]domain.EnrichedArticle{}
	for _, a := range articles {
		byCat[a.Category] = append(byCat[a.Category], a)
	}
	cats := make([]string, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return byCat, cats
}
