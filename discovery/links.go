package discovery

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/mostwanted/logging"
	"github.com/pevans/mostwanted/scraper"
)

// siteRoot returns scheme://host of pageURL.
func siteRoot(pageURL string) (*url.URL, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid page URL: %q has no scheme or host", pageURL)
	}

	return &url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/"}, nil
}

// DiscoverLinks returns the absolute detail-page URLs listed on the list
// page, in the order their entry boxes appear. Entry boxes without an anchor
// or href are skipped.
func DiscoverLinks(doc *goquery.Document, pageURL string, cfg scraper.ListConfig, logger *slog.Logger) ([]string, error) {
	logger = logging.OrDiscard(logger)

	root, err := siteRoot(pageURL)
	if err != nil {
		return nil, err
	}

	container := doc.Find(cfg.ContainerSelector).First()
	if container.Length() == 0 {
		return nil, notFound(cfg.ContainerSelector)
	}

	links := []string{}
	container.Find(cfg.EntrySelector).Each(func(i int, box *goquery.Selection) {
		anchor := box.Find(cfg.AnchorSelector).First()
		if anchor.Length() == 0 {
			logger.Warn("entry has no anchor, skipping", "page", pageURL, "entry", i)
			return
		}

		href, ok := anchor.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			logger.Warn("entry anchor has no href, skipping", "page", pageURL, "entry", i)
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			logger.Warn("entry href is not a URL, skipping", "page", pageURL, "entry", i, "href", href)
			return
		}

		links = append(links, root.ResolveReference(ref).String())
	})

	logger.Debug("discovered detail links", "page", pageURL, "count", len(links))

	return links, nil
}
