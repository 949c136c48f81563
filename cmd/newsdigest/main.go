package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/newsdigest/pkg/config"
	"github.com/umputun/newsdigest/pkg/fetch"
	"github.com/umputun/newsdigest/pkg/llm"
	"github.com/umputun/newsdigest/pkg/pipeline"
	"github.com/umputun/newsdigest/pkg/publisher"
	"github.com/umputun/newsdigest/pkg/scraper"
)

// Opts with all CLI options
type Opts struct {
	JSONDir       string   `short:"j" long:"json-dir" env:"JSON_DIR" default:"./digest/json" description:"directory for json snapshots"`
	MarkdownDir   string   `short:"m" long:"md-dir" env:"MD_DIR" default:"./digest/md" description:"directory for markdown editions and indexes"`
	QuarantineDir string   `long:"quarantine-dir" env:"QUARANTINE_DIR" description:"directory for raw enrichment responses, default <json-dir>/quarantine"`
	Config        string   `short:"c" long:"config" env:"CONFIG" description:"yaml config file"`
	Publishers    []string `short:"p" long:"publisher" description:"publisher to run, repeatable, default all built-ins"`
	Dry           bool     `long:"dry" description:"discover and fetch only, write nothing"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug, opts.NoColor)

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
	if cfg.LLM.APIKey != "" {
		// re-init logging so the key never shows up in output
		setupLog(opts.Debug, opts.NoColor, cfg.LLM.APIKey)
	}

	log.Printf("[INFO] starting newsdigest version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err = run(ctx, opts, cfg)
	cancel()

	if err != nil {
		log.Printf("[ERROR] run failed: %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] all done")
}

// run assembles the pipeline from config and executes one pass.
func run(ctx context.Context, opts Opts, cfg *config.Config) error {
	// CLI selection wins over the config file, empty means all built-ins
	names := opts.Publishers
	if len(names) == 0 {
		names = cfg.Publishers.Enabled
	}
	pubs, err := publisher.Select(names)
	if err != nil {
		return err
	}
	applyOverrides(pubs, cfg.Publishers.Overrides)

	client := fetch.New(cfg.Fetch.Timeout, cfg.Fetch.UserAgent)
	fetchers := make([]pipeline.Fetcher, 0, len(pubs))
	for _, pub := range pubs {
		if err := pub.Validate(); err != nil {
			return err
		}
		fetchers = append(fetchers, scraper.New(pub, client, cfg.Fetch.Workers))
	}

	var asker pipeline.Asker
	if !opts.Dry {
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("llm api key is required, set OPENAI_API_KEY or llm.api_key")
		}
		analyzer := llm.NewAnalyzer(cfg.LLM)
		asker = llm.NewRetrier(analyzer, cfg.LLM.MaxRetries, cfg.LLM.BaseDelay, cfg.LLM.MaxDelay)
	}

	quarantineDir := opts.QuarantineDir
	if quarantineDir == "" {
		quarantineDir = filepath.Join(opts.JSONDir, "quarantine")
	}

	p := pipeline.New(pipeline.Params{
		Fetchers:      fetchers,
		Asker:         asker,
		Workers:       cfg.LLM.Workers,
		RatePerMinute: cfg.LLM.RateRPM,
		JSONDir:       opts.JSONDir,
		MarkdownDir:   opts.MarkdownDir,
		QuarantineDir: quarantineDir,
		Dry:           opts.Dry,
	})
	_, err = p.Run(ctx)
	return err
}

// loadConfig reads the YAML config when given, or falls back to defaults with
// the API key from the environment.
func loadConfig(opts Opts) (*config.Config, error) {
	if opts.Config == "" {
		return config.Default(), nil
	}
	return config.Load(opts.Config)
}

// applyOverrides tunes selected publishers from the config file.
func applyOverrides(pubs []publisher.Config, overrides map[string]config.PublisherOverride) {
	for i := range pubs {
		o, ok := overrides[pubs[i].Name]
		if !ok {
			continue
		}
		if o.Target > 0 {
			pubs[i].Target = o.Target
		}
		if o.Cap > 0 {
			pubs[i].Cap = o.Cap
		}
		if o.Concurrency > 0 {
			pubs[i].Concurrency = o.Concurrency
		}
	}
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
