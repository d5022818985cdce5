package discovery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// DefaultUserAgent identifies the scraper to the listing site.
const DefaultUserAgent = "mostwanted/1.0 (list and detail page scraper)"

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 30 * time.Second

// MaxBodySize is the largest response body Fetch accepts.
const MaxBodySize = 10 << 20

// Page is a fetched document. URL is always the requested URL, even when the
// server redirected, so relative links resolve against the configured site.
type Page struct {
	URL         string
	ContentType string
	Body        []byte
}

// Client fetches pages over HTTP.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a client with the given timeout and User-Agent. Zero
// values select the defaults.
func NewClient(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// NewClientWithHTTP creates a client around an existing http.Client.
func NewClientWithHTTP(httpClient *http.Client, userAgent string) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{httpClient: httpClient, userAgent: userAgent}
}

// Fetch performs a GET request for url and returns the raw body. Any status
// of 400 or above is returned as an *HTTPError.
func (c *Client) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", url, err)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, url, MaxBodySize)
	}

	return &Page{
		URL:         url,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// ParseHTML parses body into a queryable document. Malformed markup is
// repaired the way browsers do, so only a failing reader produces an error.
func ParseHTML(url string, body io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &ParseError{URL: url, Err: err}
	}
	return doc, nil
}

// ParsePage parses a fetched page, decoding it to UTF-8 first. The encoding
// comes from the Content-Type header, a <meta> charset or a byte sniff, in
// that order.
func ParsePage(page *Page) (*goquery.Document, error) {
	body, err := charset.NewReader(bytes.NewReader(page.Body), page.ContentType)
	if err != nil {
		return nil, &ParseError{URL: page.URL, Err: err}
	}
	return ParseHTML(page.URL, body)
}
