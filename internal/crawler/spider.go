package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/nao1215/wikiscrape/internal/page"
	"github.com/nao1215/wikiscrape/internal/wikiurl"
)

// ErrInvalidStartURL is returned by Crawl when the start URL lacks a
// scheme or host.
var ErrInvalidStartURL = errors.New("invalid start URL: scheme and host are required")

// DefaultDelay is the pause between two requests of one crawl.
const DefaultDelay = 1 * time.Second

// State is the lifecycle state of a crawl.
type State int

const (
	// StateIdle means no crawl has started.
	StateIdle State = iota
	// StateRunning means a crawl is in progress.
	StateRunning
	// StateCompleted means the frontier was drained or the budget reached.
	StateCompleted
	// StateCancelled means the context was cancelled mid-crawl.
	StateCancelled
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Scraper fetches and converts one page. *page.Scraper implements it.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) page.Result
}

// Discoverer extracts linked page URLs. *discovery.Discoverer implements it.
type Discoverer interface {
	Discover(ctx context.Context, doc *page.Document, pageURL string) []string
}

// Result is the outcome of a crawl.
type Result struct {
	// Pages holds the scraped pages in the order they were fetched.
	Pages []model.ScrapedPage

	// State is StateCompleted or StateCancelled.
	State State

	// Fetched is the number of pages requested.
	Fetched int

	// Failed is the number of requested pages that could not be scraped.
	Failed int
}

// Spider crawls a wiki space breadth-first.
type Spider struct {
	scraper    Scraper
	discoverer Discoverer

	// maxPages limits the number of scraped pages. 0 means unlimited.
	maxPages int

	// delay is the pause between requests.
	delay time.Duration

	// follow enables link discovery. When false only the start URL is
	// scraped.
	follow bool

	ignorePatterns []string
	followPatterns []string

	onPage func(model.ScrapedPage)
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the page budget. 0 means unlimited.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		if maxPages >= 0 {
			s.maxPages = maxPages
		}
	}
}

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithFollowLinks enables or disables link discovery.
func WithFollowLinks(follow bool) SpiderOption {
	return func(s *Spider) {
		s.follow = follow
	}
}

// WithIgnorePatterns skips discovered URLs whose path matches a glob
// pattern such as "/wiki/Archive*".
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts discovered URLs to paths matching at least
// one glob pattern. The start URL is always crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithOnPage registers a hook called after each page is scraped.
func WithOnPage(fn func(model.ScrapedPage)) SpiderOption {
	return func(s *Spider) {
		s.onPage = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider. discoverer may be nil, which disables link
// following.
func NewSpider(scraper Scraper, discoverer Discoverer, opts ...SpiderOption) *Spider {
	s := &Spider{
		scraper:    scraper,
		discoverer: discoverer,
		delay:      DefaultDelay,
		follow:     true,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the state of the most recent crawl.
func (s *Spider) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Spider) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Crawl scrapes startURL and, when following is enabled, every same-host
// wiki page reachable from it, until the frontier is empty or the budget
// is spent.
//
// The only error is ErrInvalidStartURL. Page failures are counted in
// Result.Failed. Cancellation returns the pages gathered so far with
// StateCancelled.
func (s *Spider) Crawl(ctx context.Context, startURL string) (*Result, error) {
	if !wikiurl.Validate(startURL) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartURL, startURL)
	}

	s.setState(StateRunning)
	result := &Result{Pages: make([]model.ScrapedPage, 0)}
	f := newFrontier()
	f.push(wikiurl.Normalize(startURL))

	cancelled := false
	for !f.empty() && s.budgetLeft(len(result.Pages)) {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		u := f.pop()
		if f.isVisited(u) {
			continue
		}
		f.markVisited(u)

		s.logger.Info("scraping page", "url", u, "scraped", len(result.Pages), "queued", f.size())
		// The request in flight completes even if ctx is cancelled meanwhile.
		res := s.scraper.Scrape(context.WithoutCancel(ctx), u)
		result.Fetched++
		if !res.OK() {
			result.Failed++
			continue
		}

		result.Pages = append(result.Pages, res.Page)
		if s.onPage != nil {
			s.onPage(res.Page)
		}

		if s.follow && s.discoverer != nil && s.budgetLeft(len(result.Pages)) {
			added := 0
			for _, link := range s.discoverer.Discover(ctx, res.Document, u) {
				link = wikiurl.Normalize(link)
				if !allowed(link, s.ignorePatterns, s.followPatterns) {
					continue
				}
				if f.push(link) {
					added++
				}
			}
			s.logger.Debug("queued links", "url", u, "added", added)
		}

		if f.empty() || !s.budgetLeft(len(result.Pages)) || s.delay <= 0 {
			continue
		}
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			cancelled = true
		case <-timer.C:
		}
		if cancelled {
			break
		}
	}

	result.State = StateCompleted
	if cancelled {
		result.State = StateCancelled
	}
	s.setState(result.State)
	s.logger.Info("crawl finished",
		"state", result.State.String(),
		"pages", len(result.Pages),
		"fetched", result.Fetched,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *Spider) budgetLeft(scraped int) bool {
	return s.maxPages <= 0 || scraped < s.maxPages
}
