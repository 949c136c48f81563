package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysis_Validate(t *testing.T) {
	tests := []struct {
		name     string
		analysis Analysis
		wantErr  string
	}{
		{
			name:     "valid",
			analysis: Analysis{Title: "t", Category: "World News", Summary: "s"},
		},
		{
			name:     "missing title",
			analysis: Analysis{Category: "World News", Summary: "s"},
			wantErr:  "missing title",
		},
		{
			name:     "blank category",
			analysis: Analysis{Title: "t", Category: "  ", Summary: "s"},
			wantErr:  "missing category",
		},
		{
			name:     "missing summary",
			analysis: Analysis{Title: "t", Category: "World News"},
			wantErr:  "missing summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.analysis.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAnalysis_NormalizeEntities(t *testing.T) {
	a := Analysis{
		NamedEntities: []NamedEntity{
			{Name: "A", What: "first", Relevance: "r1"},
			{Name: "A", What: "second copy with different text", Relevance: "r2"},
			{Name: "B", What: "kept", Relevance: "r3"},
		},
	}
	a.Normalize()

	require.Len(t, a.NamedEntities, 2)
	assert.Equal(t, "A", a.NamedEntities[0].Name)
	assert.Equal(t, "first", a.NamedEntities[0].What, "first occurrence wins")
	assert.Equal(t, "B", a.NamedEntities[1].Name)
}

func TestAnalysis_NormalizeTakeaways(t *testing.T) {
	a := Analysis{KeyTakeaways: []string{"x", "x", "y"}}
	a.Normalize()
	assert.Equal(t, []string{"x", "y"}, a.KeyTakeaways)
}

func TestAnalysis_NormalizeDatesAndTimeframes(t *testing.T) {
	a := Analysis{
		ImportantDates: []ImportantDate{
			{Date: "2026-01-01", Relevance: "budget deadline"},
			{Date: "January 1st", Relevance: "budget deadline"},
			{Date: "2026-02-02", Relevance: "election day"},
		},
		Timeframes: []ImportantTimeframe{
			{Start: "2020", End: "2024", Relevance: "first term"},
			{Start: "2020-01", End: "2024-01", Relevance: "first term"},
		},
	}
	a.Normalize()

	require.Len(t, a.ImportantDates, 2)
	assert.Equal(t, "2026-01-01", a.ImportantDates[0].Date)
	assert.Equal(t, "election day", a.ImportantDates[1].Relevance)
	require.Len(t, a.Timeframes, 1)
	assert.Equal(t, "2020", a.Timeframes[0].Start)
}

func TestAnalysis_NormalizeEmpty(t *testing.T) {
	a := Analysis{}
	a.Normalize() // no panic on nil slices
	assert.Nil(t, a.NamedEntities)
	assert.Nil(t, a.KeyTakeaways)
}

func TestEnrichedArticle_SourceTag(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"https://lite.cnn.com/2026/08/20/politics/story", "cnn"},
		{"https://text.npr.org/nx-s1-1234", "npr"},
		{"https://www.bbc.com/news/articles/abc123", "bbc"},
		{"https://apnews.com/article/xyz", "apnews"},
		{"http://localhost/x", "localhost"},
		{"::not a url::", ""},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			e := EnrichedArticle{Source: tt.source}
			assert.Equal(t, tt.want, e.SourceTag())
		})
	}
}
