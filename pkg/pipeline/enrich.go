package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/newsdigest/pkg/domain"
	"github.com/umputun/newsdigest/pkg/llm"
)

// enrichResult is the outcome of enriching a single article.
type enrichResult struct {
	article *domain.EnrichedArticle // nil when the article produced no usable analysis
	reasked bool                    // a truncated response triggered a second ask
}

// enrichAll runs the enrichment service over all raw articles with bounded
// concurrency, preserving input order in the result. Stats counters are
// tallied after all workers finish.
func (p *Pipeline) enrichAll(ctx context.Context, raw []domain.RawArticle, stats *Stats) []domain.EnrichedArticle {
	results := make([]enrichResult, len(raw))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, art := range raw {
		g.Go(func() error {
			results[i] = p.enrichOne(gctx, i, art)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // per-article failures never fail the group

	articles := make([]domain.EnrichedArticle, 0, len(raw))
	for _, res := range results {
		if res.reasked {
			stats.Reasked++
		}
		if res.article == nil {
			stats.Failed++
			continue
		}
		stats.Enriched++
		articles = append(articles, *res.article)
	}
	return articles
}

// enrichOne asks the enrichment service about one article and turns the
// response into a validated, normalized EnrichedArticle. Every raw response
// is quarantined. A response truncated mid-object earns exactly one more ask;
// any other parse or validation failure is a permanent skip.
func (p *Pipeline) enrichOne(ctx context.Context, idx int, raw domain.RawArticle) enrichResult {
	resp, err := p.ask(ctx, raw.Content)
	if err != nil {
		lgr.Printf("[WARN] enrichment failed for %s: %v", raw.Source, err)
		return enrichResult{}
	}
	p.quarantine.Save(ctx, idx, raw.Content, resp, 1)

	reasked := false
	analysis, perr := llm.ParseAnalysis(resp)
	if errors.Is(perr, llm.ErrTruncated) {
		lgr.Printf("[WARN] truncated response for %s, asking once more", raw.Source)
		reasked = true
		resp, err = p.ask(ctx, raw.Content)
		if err != nil {
			lgr.Printf("[WARN] truncation re-ask failed for %s: %v", raw.Source, err)
			return enrichResult{reasked: true}
		}
		p.quarantine.Save(ctx, idx, raw.Content, resp, 2)
		analysis, perr = llm.ParseAnalysis(resp)
	}
	if perr != nil {
		lgr.Printf("[WARN] unusable enrichment response for %s: %v", raw.Source, perr)
		return enrichResult{reasked: reasked}
	}

	if verr := analysis.Validate(); verr != nil {
		lgr.Printf("[WARN] enrichment response for %s rejected: %v", raw.Source, verr)
		return enrichResult{reasked: reasked}
	}
	analysis.Normalize()

	lgr.Printf("[DEBUG] enriched %s: %q [%s]", raw.Source, analysis.Title, analysis.Category)
	return enrichResult{
		article: &domain.EnrichedArticle{Analysis: *analysis, Source: raw.Source, Content: raw.Content},
		reasked: reasked,
	}
}

// ask waits for the rate limiter when one is set, then delegates to the
// configured asker.
func (p *Pipeline) ask(ctx context.Context, content string) (string, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return p.asker.Ask(ctx, content)
}
