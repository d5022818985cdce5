// Package crawl drives a complete scrape of one source: resolve the source,
// fetch the list page, discover detail links, then fetch and extract each
// detail page in order with a fixed delay before every request.
//
// The crawl never runs requests in parallel. The delay is a courtesy to the
// listing site; any caller wanting more throughput has to keep an equivalent
// rate limit in front of the site.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/mostwanted/discovery"
	"github.com/pevans/mostwanted/logging"
	"github.com/pevans/mostwanted/persons"
	"github.com/pevans/mostwanted/scraper"
	"github.com/pevans/mostwanted/sources"
)

// DefaultDelay is the pause before each page request.
const DefaultDelay = 2 * time.Second

// Resolver looks up a source by code.
type Resolver interface {
	Resolve(code string) (*sources.Source, error)
}

// Fetcher retrieves the raw body of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*discovery.Page, error)
}

// Policy decides what happens when a single detail page fails.
type Policy string

const (
	// PolicyStrict aborts the whole run on the first failed detail page.
	PolicyStrict Policy = "strict"
	// PolicyPartial records the failure and moves on to the next link.
	PolicyPartial Policy = "partial"
)

// ErrInvalidPolicy is returned by ParsePolicy for an unknown name.
var ErrInvalidPolicy = errors.New("failure policy must be strict or partial")

// ParsePolicy converts a policy name. The empty string means strict.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyPartial:
		return PolicyPartial, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, name)
	}
}

// Config holds crawl settings.
type Config struct {
	// Pause before each detail page request, including the first
	Delay time.Duration
	// Apply Delay before the list page request too
	DelayBeforeList bool
	Policy          Policy
	Scraper         scraper.ScraperConfig
}

// DefaultConfig returns the default crawl settings.
func DefaultConfig() Config {
	return Config{
		Delay:   DefaultDelay,
		Policy:  PolicyStrict,
		Scraper: scraper.DefaultScraperConfig(),
	}
}

// Stage names the step of a run that failed.
type Stage string

const (
	StageConfig Stage = "config"
	StageList   Stage = "list"
	StageLinks  Stage = "links"
	StageDetail Stage = "detail"
)

// StageError tags a run failure with its stage and, where there is one, the
// URL being processed.
type StageError struct {
	Stage Stage
	URL   string
	Err   error
}

func (e *StageError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s stage failed for %s: %v", e.Stage, e.URL, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// PageFailure is a detail page skipped under PolicyPartial.
type PageFailure struct {
	URL     string `json:"url"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Report is the outcome of a run. Result holds every person extracted so
// far, in link order, even when Run returns an error.
type Report struct {
	Result     *persons.Result `json:"result"`
	Links      []string        `json:"links"`
	Failures   []PageFailure   `json:"failures"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Crawler runs crawls.
type Crawler struct {
	resolver Resolver
	fetcher  Fetcher
	config   Config
	logger   *slog.Logger
}

// New creates a crawler. Empty selector fields in cfg are filled with the
// defaults and an empty policy means strict.
func New(resolver Resolver, fetcher Fetcher, cfg Config, logger *slog.Logger) *Crawler {
	cfg.Scraper = cfg.Scraper.Merge(scraper.DefaultScraperConfig())
	if cfg.Policy == "" {
		cfg.Policy = PolicyStrict
	}

	return &Crawler{
		resolver: resolver,
		fetcher:  fetcher,
		config:   cfg,
		logger:   logging.OrDiscard(logger),
	}
}

// Run crawls the source identified by code. ctx is checked before every
// detail page and while waiting out the delay; on cancellation the persons
// collected so far are returned with the error.
func (c *Crawler) Run(ctx context.Context, code string) (*Report, error) {
	report := &Report{
		Links:     []string{},
		Failures:  []PageFailure{},
		StartedAt: time.Now(),
	}

	fail := func(stage Stage, url string, err error) (*Report, error) {
		report.FinishedAt = time.Now()
		c.logger.Error("crawl aborted", "stage", stage, "url", url, "error", err)
		return report, &StageError{Stage: stage, URL: url, Err: err}
	}

	source, err := c.resolver.Resolve(code)
	if err != nil {
		return fail(StageConfig, "", err)
	}

	report.Result = persons.NewResult(source.Code, source.Name, source.URL)
	logger := c.logger.With("source", source.Code)
	logger.Info("resolved source", "name", source.Name, "url", source.URL)

	if c.config.DelayBeforeList {
		if err := wait(ctx, c.config.Delay); err != nil {
			return fail(StageList, source.URL, err)
		}
	}

	doc, err := c.fetchDocument(ctx, source.URL)
	if err != nil {
		return fail(StageList, source.URL, err)
	}

	links, err := discovery.DiscoverLinks(doc, source.URL, c.config.Scraper.List, logger)
	if err != nil {
		return fail(StageLinks, source.URL, err)
	}
	report.Links = links
	logger.Info("discovered detail pages", "count", len(links))

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			return fail(StageDetail, link, err)
		}

		if err := wait(ctx, c.config.Delay); err != nil {
			return fail(StageDetail, link, err)
		}

		person, err := c.scrapeDetail(ctx, link, logger)
		if err != nil {
			if c.config.Policy != PolicyPartial || ctx.Err() != nil {
				return fail(StageDetail, link, err)
			}

			logger.Warn("skipping failed detail page", "url", link, "error", err)
			report.Failures = append(report.Failures, PageFailure{
				URL:     link,
				Message: err.Error(),
				Err:     err,
			})
			continue
		}

		report.Result.Add(*person)
		logger.Info("extracted person",
			"url", link,
			"position", i+1,
			"total", len(links),
			"lastname", person.Lastname,
		)
	}

	report.FinishedAt = time.Now()
	logger.Info("crawl finished",
		"persons", report.Result.Len(),
		"failures", len(report.Failures),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)

	return report, nil
}

// fetchDocument fetches and parses one page.
func (c *Crawler) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	page, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return discovery.ParsePage(page)
}

// scrapeDetail fetches, parses and extracts one detail page.
func (c *Crawler) scrapeDetail(ctx context.Context, url string, logger *slog.Logger) (*persons.Person, error) {
	doc, err := c.fetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}
	return discovery.ExtractPerson(doc, url, c.config.Scraper.Detail, logger)
}

// wait pauses for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
