package export

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/wikiscrape/internal/crawler"
	"github.com/nao1215/wikiscrape/internal/discovery"
	"github.com/nao1215/wikiscrape/internal/fetch"
	"github.com/nao1215/wikiscrape/internal/page"
	"github.com/nao1215/wikiscrape/internal/wikitree"
)

// wikiSite is a fake wiki host serving pages under /wiki/{token} and the
// tree API.
type wikiSite struct {
	// pages maps a token to its HTML.
	pages map[string]string
	// tree is the tree API response body. Empty means 404.
	tree string

	mu       sync.Mutex
	hits     map[string]int
	apiCalls int
}

func (s *wikiSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == wikitree.APIPath {
		s.mu.Lock()
		s.apiCalls++
		s.mu.Unlock()
		if s.tree == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, s.tree)
		return
	}

	token, ok := strings.CutPrefix(r.URL.Path, "/wiki/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.mu.Lock()
	if s.hits == nil {
		s.hits = make(map[string]int)
	}
	s.hits[token]++
	s.mu.Unlock()

	body, ok := s.pages[token]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, body)
}

func (s *wikiSite) hitCount(token string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[token]
}

func (s *wikiSite) apiCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiCalls
}

// wikiPage renders a page carrying the space id in an inline script.
func wikiPage(title, body string) string {
	return `<html><head><title>` + title + `</title>
<script>window.__DATA__ = {"space_id":"7001"};</script></head>
<body><article>` + body + `</article></body></html>`
}

// stack is the real scraping pipeline pointed at a test server.
type stack struct {
	url        string
	scraper    *page.Scraper
	builder    *wikitree.Builder
	discoverer *discovery.Discoverer
}

func newStack(t *testing.T, site *wikiSite, wikiHosts ...string) *stack {
	t.Helper()
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)

	client, err := fetch.NewClient(fetch.WithTimeout(5 * time.Second))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	builder := wikitree.NewBuilder(client)
	return &stack{
		url:        srv.URL,
		scraper:    page.NewScraper(client),
		builder:    builder,
		discoverer: discovery.NewDiscoverer(builder, discovery.WithWikiHosts(wikiHosts...)),
	}
}

func (s *stack) spider(opts ...crawler.SpiderOption) *crawler.Spider {
	return crawler.NewSpider(s.scraper, s.discoverer, append([]crawler.SpiderOption{crawler.WithDelay(0)}, opts...)...)
}

func (s *stack) directory(opts ...DirectoryOption) *Directory {
	return NewDirectory(s.scraper, s.builder, s.spider(), append([]DirectoryOption{WithDelay(0)}, opts...)...)
}
