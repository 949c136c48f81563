// Package pipeline runs one complete digest pass: probe output directories,
// discover candidate articles across publishers, fetch them, enrich each one
// through the analysis service, and render the JSON snapshot, the markdown
// edition and the index documents. Per-article and per-file failures are
// logged and skipped; the only fatal error is an unwritable output directory.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/umputun/newsdigest/pkg/domain"
	"github.com/umputun/newsdigest/pkg/output"
)

// Fetcher discovers and fetches one publisher's articles.
type Fetcher interface {
	Name() string
	Index(ctx context.Context) ([]string, error)
	FetchAll(ctx context.Context, urls []string) []domain.RawArticle
}

// Asker sends one enrichment request and returns the raw response text.
type Asker interface {
	Ask(ctx context.Context, content string) (string, error)
}

// Pipeline ties the stages together. Build with New, run once with Run.
type Pipeline struct {
	fetchers   []Fetcher
	asker      Asker
	limiter    *rate.Limiter // nil = unlimited
	workers    int
	jsonDir    string
	mdDir      string
	quarantine *Quarantine
	dry        bool
	now        func() time.Time
}

// Params holds everything a pipeline needs.
type Params struct {
	Fetchers      []Fetcher
	Asker         Asker
	Workers       int // concurrent enrichment calls
	RatePerMinute int // enrichment rate limit, 0 = unlimited
	JSONDir       string
	MarkdownDir   string
	QuarantineDir string
	Dry           bool             // stop after fetch, write nothing
	Now           func() time.Time // injectable clock, nil = time.Now
}

// Stats summarizes one run.
type Stats struct {
	Edition    domain.Edition
	Publishers int
	Candidates int // deduplicated across publishers
	Fetched    int
	Enriched   int
	Failed     int // articles with no usable analysis
	Reasked    int // truncation-triggered second asks

	Discovery time.Duration
	Fetch     time.Duration
	Enrich    time.Duration
	Render    time.Duration
	Elapsed   time.Duration
}

// New assembles a pipeline from its parts.
func New(p Params) *Pipeline {
	workers := p.Workers
	if workers <= 0 {
		workers = 8
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	var limiter *rate.Limiter
	if p.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(p.RatePerMinute)/60), 1)
	}
	return &Pipeline{
		fetchers:   p.Fetchers,
		asker:      p.Asker,
		limiter:    limiter,
		workers:    workers,
		jsonDir:    p.JSONDir,
		mdDir:      p.MarkdownDir,
		quarantine: NewQuarantine(p.QuarantineDir),
		dry:        p.Dry,
		now:        now,
	}
}

// Run executes one digest pass. The edition (date, bucket, clock) is captured
// once here; a run that crosses midnight keeps the date it started with.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	started := time.Now()
	ed := domain.NewEdition(p.now())
	stats := &Stats{Edition: ed, Publishers: len(p.fetchers)}
	lgr.Printf("[INFO] starting %s %s edition, %d publishers", ed.Date, ed.Bucket, len(p.fetchers))

	// 1. prove output directories are writable before any network work
	for _, dir := range []string{p.jsonDir, p.mdDir, p.quarantine.dir} {
		if err := ensureWritable(dir); err != nil {
			return nil, err
		}
	}

	// 2. discover candidates, publishers in parallel
	t := time.Now()
	plan := p.discover(ctx)
	for _, d := range plan {
		stats.Candidates += len(d.urls)
	}
	stats.Discovery = time.Since(t)
	lgr.Printf("[INFO] discovered %d candidates across %d publishers", stats.Candidates, len(p.fetchers))

	// 3. fetch every claimed candidate
	t = time.Now()
	raw := p.fetch(ctx, plan)
	stats.Fetched = len(raw)
	stats.Fetch = time.Since(t)

	if p.dry {
		lgr.Printf("[INFO] dry run, stopping after fetch: %d candidates, %d fetched", stats.Candidates, stats.Fetched)
		stats.Elapsed = time.Since(started)
		return stats, nil
	}

	// 4. enrich fetched articles, bounded and optionally rate limited
	t = time.Now()
	articles := p.enrichAll(ctx, raw, stats)
	stats.Enrich = time.Since(t)

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	// 5. render all outputs, failures independent of each other
	t = time.Now()
	p.render(ctx, ed, articles)
	stats.Render = time.Since(t)

	stats.Elapsed = time.Since(started)
	lgr.Printf("[INFO] run finished: %d candidates, %d fetched, %d enriched, %d failed, %d re-asked, took %s",
		stats.Candidates, stats.Fetched, stats.Enriched, stats.Failed, stats.Reasked,
		stats.Elapsed.Round(time.Millisecond))
	return stats, nil
}

// discovery holds one publisher's claimed candidates.
type discovery struct {
	fetcher Fetcher
	urls    []string
}

// discover runs Index on every publisher concurrently, then deduplicates
// candidates across publishers: within a publisher URLs are sorted for a
// deterministic fetch order, across publishers the first (in configured
// order) keeps a contested URL.
func (p *Pipeline) discover(ctx context.Context) []discovery {
	plan := make([]discovery, len(p.fetchers))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range p.fetchers {
		plan[i].fetcher = f
		g.Go(func() error {
			urls, err := f.Index(gctx)
			if err != nil {
				lgr.Printf("[WARN] discovery failed for %s: %v", f.Name(), err)
				return nil
			}
			if len(urls) == 0 {
				lgr.Printf("[WARN] no candidates discovered for %s", f.Name())
				return nil
			}
			plan[i].urls = urls
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // per-publisher failures never fail the group

	seen := make(map[string]struct{})
	for i := range plan {
		sort.Strings(plan[i].urls)
		kept := plan[i].urls[:0]
		for _, u := range plan[i].urls {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			kept = append(kept, u)
		}
		plan[i].urls = kept
	}
	return plan
}

// fetch runs FetchAll per publisher concurrently and concatenates the results
// in publisher order.
func (p *Pipeline) fetch(ctx context.Context, plan []discovery) []domain.RawArticle {
	parts := make([][]domain.RawArticle, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range plan {
		if len(d.urls) == 0 {
			continue
		}
		g.Go(func() error {
			parts[i] = d.fetcher.FetchAll(gctx, d.urls)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // per-publisher failures never fail the group

	var raw []domain.RawArticle
	for _, part := range parts {
		raw = append(raw, part...)
	}
	return raw
}

// render writes the JSON snapshot, the markdown edition and the three index
// documents. Each output is attempted regardless of earlier failures.
func (p *Pipeline) render(ctx context.Context, ed domain.Edition, articles []domain.EnrichedArticle) {
	page := domain.FrontPage{
		LocalDate: ed.Date,
		TimeOfDay: ed.Bucket,
		LocalTime: ed.Date + " " + ed.Clock,
		Articles:  articles,
	}

	if err := output.WriteFrontPage(ctx, p.jsonDir, ed, page); err != nil {
		lgr.Printf("[WARN] json snapshot failed: %v", err)
	}
	if err := output.WriteEdition(ctx, p.mdDir, ed, page); err != nil {
		lgr.Printf("[WARN] markdown edition failed: %v", err)
	}
	if err := output.UpdateDateTOC(ctx, p.mdDir, ed, articles); err != nil {
		lgr.Printf("[WARN] date contents update failed: %v", err)
	}
	if err := output.UpdateChronoIndex(ctx, p.mdDir, ed); err != nil {
		lgr.Printf("[WARN] chronological index update failed: %v", err)
	}
	if err := output.UpdateSummary(ctx, p.mdDir, ed); err != nil {
		lgr.Printf("[WARN] summary update failed: %v", err)
	}
}

// ensureWritable proves dir exists and accepts writes by creating and
// removing a probe file.
func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}
	probe := filepath.Join(dir, "..__probe_write__")
	if err := os.WriteFile(probe, []byte("probe"), 0o600); err != nil {
		return fmt.Errorf("output dir %s is not writable: %w", dir, err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("remove probe file from %s: %w", dir, err)
	}
	return nil
}
