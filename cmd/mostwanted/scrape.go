package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pevans/mostwanted/config"
	"github.com/pevans/mostwanted/crawl"
	"github.com/pevans/mostwanted/discovery"
	"github.com/pevans/mostwanted/index"
	"github.com/pevans/mostwanted/persons"
	"github.com/pevans/mostwanted/sources"
)

// DefaultSourceCode is crawled when -code is not given.
const DefaultSourceCode = "UK_MWL"

func handleScrape(args []string) {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	configPath := fs.String("config", getEnv("MOSTWANTED_CONFIG", config.DefaultConfigFile), "Path to config file (MOSTWANTED_CONFIG)")
	code := fs.String("code", DefaultSourceCode, "Source code to crawl")
	sourcesFile := fs.String("sources", "", "Path to the source table CSV")
	delay := fs.Duration("delay", 0, "Pause before each detail page")
	out := fs.String("out", "", "Output file (default: <dir>/<code>_persons.json)")
	policy := fs.String("policy", "", "Failure policy: strict or partial")
	dbPath := fs.String("db", getEnv("MOSTWANTED_DB", ""), "Record the run in this index database (MOSTWANTED_DB)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)

	// Flags given on the command line win over the file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sources":
			cfg.SourcesFile = *sourcesFile
		case "delay":
			cfg.Crawl.Delay = *delay
		case "out":
			cfg.Output.Path = *out
		case "policy":
			cfg.Crawl.Policy = *policy
		}
	})
	validate(cfg)

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outPath, report, err := runScrape(ctx, cfg, *code, *dbPath, logger)
	if err != nil {
		var stageErr *crawl.StageError
		if errors.As(err, &stageErr) {
			fmt.Fprintf(os.Stderr, "Error: %s stage failed\n", stageErr.Stage)
			if stageErr.URL != "" {
				fmt.Fprintf(os.Stderr, "  URL: %s\n", stageErr.URL)
			}
			fmt.Fprintf(os.Stderr, "  Cause: %v\n", stageErr.Err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if errors.Is(err, sources.ErrConfigNotFound) {
			if codes := knownCodes(cfg.SourcesFile); len(codes) > 0 {
				fmt.Fprintf(os.Stderr, "  Known codes: %s\n", strings.Join(codes, ", "))
			}
		}
		fmt.Fprintln(os.Stderr, "No output written.")
		os.Exit(1)
	}

	fmt.Printf("✓ Scraped %d persons from %s\n", report.Result.Len(), report.Result.SourceName)
	fmt.Printf("  Output: %s\n", outPath)
	if len(report.Failures) > 0 {
		fmt.Printf("  Skipped %d pages:\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Printf("    %s: %s\n", f.URL, f.Message)
		}
	}
}

// runScrape crawls code and writes the result file. Nothing is written when
// the crawl fails. When dbPath is set the run is recorded in the index,
// whether it failed or not.
func runScrape(ctx context.Context, cfg *config.Config, code, dbPath string, logger *slog.Logger) (string, *crawl.Report, error) {
	policy, err := crawl.ParsePolicy(cfg.Crawl.Policy)
	if err != nil {
		return "", nil, err
	}

	crawler := crawl.New(
		sources.FileResolver{Path: cfg.SourcesFile},
		discovery.NewClient(cfg.HTTP.Timeout, cfg.HTTP.UserAgent),
		crawl.Config{
			Delay:           cfg.Crawl.Delay,
			DelayBeforeList: cfg.Crawl.DelayBeforeList,
			Policy:          policy,
			Scraper:         cfg.Selectors,
		},
		logger,
	)

	report, runErr := crawler.Run(ctx, code)

	if dbPath != "" {
		if err := recordRun(dbPath, code, report, runErr); err != nil {
			logger.Warn("failed to record run", "db", dbPath, "error", err)
		}
	}

	if runErr != nil {
		return "", report, runErr
	}

	outPath := cfg.OutputPath(report.Result.SourceCode)
	if err := persons.Save(outPath, report.Result); err != nil {
		return "", report, err
	}

	logger.Info("wrote result", "path", outPath, "persons", report.Result.Len())

	return outPath, report, nil
}

func recordRun(dbPath, code string, report *crawl.Report, runErr error) error {
	store, err := index.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	run := index.RunFromReport(code, report, runErr)
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}

	return store.RecordRun(run)
}
