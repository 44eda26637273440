package page

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/nao1215/wikiscrape/internal/fetch"
	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/nao1215/wikiscrape/internal/wikiurl"
)

// Fetcher retrieves a URL. *fetch.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, query url.Values) (*fetch.Response, error)
}

// Result is the outcome of scraping one page. Exactly one of Err and
// Document is set.
type Result struct {
	// Page is the converted page. It is zero when Err is set.
	Page model.ScrapedPage

	// Document is the parsed page, kept for link discovery.
	Document *Document

	// Err describes why the page could not be scraped.
	Err error
}

// OK reports whether the page was scraped successfully.
func (r Result) OK() bool {
	return r.Err == nil
}

// Scraper fetches pages and converts them to Markdown.
type Scraper struct {
	fetcher      Fetcher
	converter    *Converter
	withMetadata bool
	logger       *slog.Logger
}

// ScraperOption configures a Scraper.
type ScraperOption func(*Scraper)

// WithMetadata attaches head metadata to every scraped page.
func WithMetadata(enabled bool) ScraperOption {
	return func(s *Scraper) {
		s.withMetadata = enabled
	}
}

// WithConverter replaces the default Markdown converter.
func WithConverter(c *Converter) ScraperOption {
	return func(s *Scraper) {
		if c != nil {
			s.converter = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ScraperOption {
	return func(s *Scraper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScraper creates a Scraper that fetches through f.
func NewScraper(f Fetcher, opts ...ScraperOption) *Scraper {
	s := &Scraper{
		fetcher:   f,
		converter: NewConverter(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape fetches pageURL, extracts its main content and converts it to
// Markdown. Failures are reported in Result.Err and logged at warn level.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) Result {
	if !wikiurl.Validate(pageURL) {
		return s.fail(pageURL, fmt.Errorf("%w: %q", fetch.ErrInvalidURL, pageURL))
	}
	canonical := wikiurl.Normalize(pageURL)

	resp, err := s.fetcher.Get(ctx, canonical, nil)
	if err != nil {
		return s.fail(canonical, err)
	}

	doc, err := Parse(canonical, resp.ContentType(), bytes.NewReader(resp.Body))
	if err != nil {
		return s.fail(canonical, err)
	}

	title := doc.Title()
	scraped := model.ScrapedPage{
		URL:      canonical,
		Title:    title,
		Markdown: s.converter.Convert(host(canonical), doc.MainContent()),
	}
	if s.withMetadata {
		md := doc.Metadata(title, resp.StatusCode, resp.ContentType())
		scraped.Metadata = &md
	}

	s.logger.Debug("scraped page", "url", canonical, "title", title)
	return Result{Page: scraped, Document: doc}
}

func (s *Scraper) fail(pageURL string, err error) Result {
	s.logger.Warn("failed to scrape page", "url", pageURL, "error", err)
	return Result{Err: err}
}

// host returns the host of rawURL, or "" if it cannot be parsed.
func host(rawURL string) string {
	_, h, err := wikiurl.Origin(rawURL)
	if err != nil {
		return ""
	}
	return h
}
