package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/go-pkgz/repeater/v2"

	"github.com/umputun/newsdigest/pkg/domain"
)

// UpdateDateTOC records the edition and its categorized articles in the
// per-date contents file <mdDir>/<date>.md. Each category becomes an indented
// entry under the edition's bucket line, each article a deeper entry linking
// to its heading in the edition file.
func UpdateDateTOC(ctx context.Context, mdDir string, ed domain.Edition, articles []domain.EnrichedArticle) error {
	path := filepath.Join(mdDir, ed.Date+".md")
	layout := Layout{
		Header:      "# Editions published on " + ed.Date + "\n",
		ItemPrefix:  "\t",
		BlankBefore: true,
	}
	group := fmt.Sprintf("- [%s](./%s)", upcase(ed.Bucket), ed.FileName())

	byCat, cats := groupByCategory(articles)
	if len(cats) == 0 {
		if err := Merge(ctx, path, layout, group, "", nil); err != nil {
			return fmt.Errorf("update date contents: %w", err)
		}
		return nil
	}
	for _, cat := range cats {
		item := fmt.Sprintf("\t- [**%s**](%s#%s)", cat, ed.FileName(), slugify(cat))
		details := make([]string, 0, len(byCat[cat]))
		for _, a := range byCat[cat] {
			link := fmt.Sprintf("[%s](%s#%s)", a.Title, ed.FileName(), slugify(a.Title))
			if tag := a.SourceTag(); tag != "" {
				link = fmt.Sprintf("<small>`%s`</small> - %s", tag, link)
			}
			details = append(details, "\t\t- "+link)
		}
		if err := Merge(ctx, path, layout, group, item, details); err != nil {
			return fmt.Errorf("update date contents: %w", err)
		}
	}
	return nil
}

// UpdateChronoIndex records the edition under its date in daily_news.md.
// New dates are inserted right after the title so the index reads newest
// first; buckets within a date accumulate in run order.
func UpdateChronoIndex(ctx context.Context, mdDir string, ed domain.Edition) error {
	path := filepath.Join(mdDir, "daily_news.md")
	layout := Layout{
		Header:      "# News Digest Index\n",
		Anchor:      "# News Digest Index",
		ItemPrefix:  "    - ",
		BlankBefore: true,
	}
	group := fmt.Sprintf("- [**%s**](./%s.md)", ed.Date, ed.Date)
	item := fmt.Sprintf("    - [%s](./%s)", upcase(ed.Bucket), ed.FileName())
	if err := Merge(ctx, path, layout, group, item, nil); err != nil {
		return fmt.Errorf("update chronological index: %w", err)
	}
	return nil
}

// UpdateSummary records the edition in the mdBook navigation file. Dates nest
// under the Daily News entry, newest first.
func UpdateSummary(ctx context.Context, mdDir string, ed domain.Edition) error {
	path := filepath.Join(mdDir, "SUMMARY.md")
	layout := Layout{
		Header:     "# Summary\n\n[Home](./home.md)\n- [Daily News](./daily_news.md)\n",
		Anchor:     "- [Daily News]",
		ItemPrefix: "        - ",
	}
	group := fmt.Sprintf("    - [%s](./%s.md)", ed.Date, ed.Date)
	item := fmt.Sprintf("        - [%s](./%s)", upcase(ed.Bucket), ed.FileName())
	if err := Merge(ctx, path, layout, group, item, nil); err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	return nil
}

// Layout describes one index document's conventions: what a fresh document
// starts with, where new groups are inserted, and how a group's item run is
// recognized.
type Layout struct {
	Header      string // content of a document that does not exist yet
	Anchor      string // substring of the line new groups go after, empty appends at the end
	ItemPrefix  string // indentation marking lines that belong to a group's run
	BlankBefore bool   // separate a new group from the preceding line with a blank
}

// Merge folds a group/item pair into the document at path, creating the
// document from the layout header when missing. The group line is matched
// exactly; if found, the item is inserted at the end of its run unless an
// identical item line is already there. A missing group is inserted as a new
// block at the layout's anchor. Applying the same arguments twice leaves the
// document byte-identical, so reruns of the same edition are safe.
func Merge(ctx context.Context, path string, layout Layout, group, item string, details []string) error {
	lines, err := loadLines(path, layout.Header)
	if err != nil {
		return err
	}

	if gi := slices.Index(lines, group); gi >= 0 {
		if item == "" {
			return writeLines(ctx, path, lines)
		}
		end := gi + 1
		for end < len(lines) && strings.HasPrefix(lines[end], layout.ItemPrefix) {
			if lines[end] == item {
				return writeLines(ctx, path, lines) // already recorded
			}
			end++
		}
		block := append([]string{item}, details...)
		return writeLines(ctx, path, slices.Insert(lines, end, block...))
	}

	block := []string{group}
	if item != "" {
		block = append(block, item)
	}
	block = append(block, details...)
	if layout.BlankBefore {
		block = append([]string{""}, block...)
	}

	at := len(lines)
	if layout.Anchor != "" {
		for i, line := range lines {
			if strings.Contains(line, layout.Anchor) {
				at = i + 1
				break
			}
		}
	}
	return writeLines(ctx, path, slices.Insert(lines, at, block...))
}

// loadLines reads the document split into lines, or seeds it from the header
// when the file does not exist. Trailing newlines are dropped and restored on
// write so merges never accumulate blank tails.
func loadLines(path, header string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from configured output dir
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		data = []byte(header)
	default:
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n"), nil
}

// writeLines writes the document whole, temp file then rename, retrying
// transient filesystem failures.
func writeLines(ctx context.Context, path string, lines []string) error {
	data := []byte(strings.Join(lines, "\n") + "\n")
	tmp := path + ".tmp"
	retrier := repeater.NewBackoff(3, 50*time.Millisecond, repeater.WithMaxDelay(time.Second))
	err := retrier.Do(ctx, func() error {
		if err := os.WriteFile(tmp, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", tmp, err)
		}
		return os.Rename(tmp, path)
	})
	if err != nil {
		return fmt.Errorf("update index %s: %w", path, err)
	}
	return nil
}

// slugify converts a heading to the anchor mdBook generates for it: lowercase,
// non-alphanumerics other than spaces and hyphens removed, spaces turned into
// hyphens. Runs of spaces produce runs of hyphens.
func slugify(heading string) string {
	lower := strings.ToLower(heading)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// upcase capitalizes the first rune, turning a bucket name into its display
// form: morning -> Morning.
func upcase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return string(unicode.ToUpper(r[0])) + string(r[1:])
}
