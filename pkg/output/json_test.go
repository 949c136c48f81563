package output

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/newsdigest/pkg/domain"
)

func TestWriteFrontPage(t *testing.T) {
	dir := t.TempDir()
	ed := domain.Edition{Date: "2026-08-22", Bucket: "morning", Clock: "07:30:05"}
	page := domain.FrontPage{
		LocalDate: "2026-08-22",
		TimeOfDay: "morning",
		LocalTime: "2026-08-22 07:30:05",
		Articles: []domain.EnrichedArticle{
			{
				Analysis: domain.Analysis{
					Title:        "Go 1.23 Released",
					Category:     "Technology",
					Summary:      "Go 1.23 ships with iterator support.",
					KeyTakeaways: []string{"Iterators are stable"},
					Tags:         []string{"go"},
				},
				Source:  "https://text.npr.org/go-123",
				Content: "Go 1.23 Released\n\nbody",
			},
		},
	}

	require.NoError(t, WriteFrontPage(context.Background(), dir, ed, page))

	path := filepath.Join(dir, "2026-08-22", "morning.json")
	data, err := os.ReadFile(path) //nolint:gosec // test file
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"local_date\""), "indented json")

	var got domain.FrontPage
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, page, got)
}

func TestWriteFrontPage_OverwritesBucket(t *testing.T) {
	dir := t.TempDir()
	ed := domain.Edition{Date: "2026-08-22", Bucket: "morning", Clock: "07:30:05"}

	page := domain.FrontPage{
		LocalDate: "2026-08-22",
		TimeOfDay: "morning",
		LocalTime: "2026-08-22 07:30:05",
		Articles: []domain.EnrichedArticle{
			{Analysis: domain.Analysis{Title: "First"}},
			{Analysis: domain.Analysis{Title: "Second"}},
		},
	}
	require.NoError(t, WriteFrontPage(context.Background(), dir, ed, page))

	page.Articles = []domain.EnrichedArticle{{Analysis: domain.Analysis{Title: "Third"}}}
	page.LocalTime = "2026-08-22 07:45:10"
	require.NoError(t, WriteFrontPage(context.Background(), dir, ed, page))

	data, err := os.ReadFile(filepath.Join(dir, "2026-08-22", "morning.json")) //nolint:gosec // test file
	require.NoError(t, err)

	var got domain.FrontPage
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Articles, 1)
	assert.Equal(t, "Third", got.Articles[0].Title)
	assert.Equal(t, "2026-08-22 07:45:10", got.LocalTime)
}
