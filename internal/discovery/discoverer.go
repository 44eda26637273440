package discovery

import (
	"context"
	"log/slog"
	"net"
	"regexp"
	"strings"

	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/nao1215/wikiscrape/internal/page"
	"github.com/nao1215/wikiscrape/internal/wikitree"
	"github.com/nao1215/wikiscrape/internal/wikiurl"
)

// DefaultWikiHosts are the domains whose pages expose the space tree API.
var DefaultWikiHosts = []string{"feishu.cn", "larksuite.com"}

// navSelectors match containers that usually hold the space navigation.
const navSelectors = `nav, .sidebar, .navigation, .wiki-nav, .toc, [class*="sidebar"], [class*="nav"], [class*="menu"]`

// minObjTokenLen filters obj_token values that are too short to be page
// tokens.
const minObjTokenLen = 20

var (
	wikiTokenPattern = regexp.MustCompile(`["']?wiki_token["']?\s*[:=]\s*["']([A-Za-z0-9]+)["']`)
	objTokenPattern  = regexp.MustCompile(`["']?obj_token["']?\s*[:=]\s*["']([A-Za-z0-9]+)["']`)
)

// TreeFetcher requests a space tree. *wikitree.Builder implements it.
type TreeFetcher interface {
	Fetch(ctx context.Context, baseURL, spaceID, wikiToken string, withSpace bool) (*model.WikiTree, error)
}

// Discoverer extracts wiki links from pages.
type Discoverer struct {
	tree      TreeFetcher
	wikiHosts []string
	logger    *slog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithWikiHosts adds domain patterns to DefaultWikiHosts. A port in a
// pattern is ignored.
func WithWikiHosts(hosts ...string) Option {
	return func(d *Discoverer) {
		for _, h := range hosts {
			h = hostname(strings.ToLower(strings.TrimSpace(h)))
			if h != "" {
				d.wikiHosts = append(d.wikiHosts, h)
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discoverer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDiscoverer creates a Discoverer. tree may be nil, which disables the
// tree API strategy.
func NewDiscoverer(tree TreeFetcher, opts ...Option) *Discoverer {
	d := &Discoverer{
		tree:      tree,
		wikiHosts: append([]string(nil), DefaultWikiHosts...),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// IsWikiHost reports whether host equals a wiki host pattern or is a
// subdomain of one. A port is ignored.
func (d *Discoverer) IsWikiHost(host string) bool {
	host = hostname(strings.ToLower(host))
	for _, pattern := range d.wikiHosts {
		if host == pattern || strings.HasSuffix(host, "."+pattern) {
			return true
		}
	}
	return false
}

// hostname strips the port from a host[:port] value.
func hostname(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return strings.TrimSuffix(strings.TrimPrefix(hostport, "["), "]")
}

// Discover returns the canonical URLs of wiki pages linked from doc,
// which was fetched from pageURL.
func (d *Discoverer) Discover(ctx context.Context, doc *page.Document, pageURL string) []string {
	if doc == nil {
		return nil
	}
	scheme, host, err := wikiurl.Origin(pageURL)
	if err != nil || host == "" {
		return nil
	}

	if links := d.fromTreeAPI(ctx, doc, pageURL, scheme, host); len(links) > 0 {
		return links
	}

	set := newLinkSet()
	for _, href := range doc.Hrefs(navSelectors) {
		set.addHref(pageURL, href)
	}
	for _, href := range doc.Hrefs("") {
		if strings.Contains(href, "/wiki/") {
			set.addHref(pageURL, href)
		}
	}
	for _, token := range scriptTokens(doc.Scripts()) {
		set.add(wikiurl.PageURL(scheme, host, token), pageURL)
	}
	d.logger.Debug("discovered links from html", "url", pageURL, "count", len(set.urls))
	return set.urls
}

func (d *Discoverer) fromTreeAPI(ctx context.Context, doc *page.Document, pageURL, scheme, host string) []string {
	if d.tree == nil || !d.IsWikiHost(host) {
		return nil
	}
	token := wikiurl.WikiToken(pageURL)
	spaceID := doc.SpaceID()
	if token == "" || spaceID == "" {
		d.logger.Warn("could not extract space id or wiki token", "url", pageURL, "space_id", spaceID, "wiki_token", token)
		return nil
	}

	d.logger.Info("fetching wiki tree", "space_id", spaceID, "wiki_token", token)
	tree, err := d.tree.Fetch(ctx, pageURL, spaceID, token, true)
	if err != nil {
		d.logger.Warn("failed to fetch wiki tree, falling back to html links", "url", pageURL, "error", err)
		return nil
	}

	set := newLinkSet()
	for _, u := range wikitree.URLs(tree, scheme, host) {
		set.add(u, pageURL)
	}
	if len(set.urls) == 0 {
		d.logger.Warn("wiki tree API returned no pages, falling back to html links", "url", pageURL)
		return nil
	}
	d.logger.Info("found pages in wiki tree", "count", len(set.urls))
	return set.urls
}

// scriptTokens returns wiki_token values and long obj_token values from
// scripts, in order of appearance per script.
func scriptTokens(scripts []string) []string {
	var tokens []string
	for _, script := range scripts {
		for _, m := range wikiTokenPattern.FindAllStringSubmatch(script, -1) {
			tokens = append(tokens, m[1])
		}
		for _, m := range objTokenPattern.FindAllStringSubmatch(script, -1) {
			if len(m[1]) >= minObjTokenLen {
				tokens = append(tokens, m[1])
			}
		}
	}
	return tokens
}

// linkSet collects canonical same-host wiki URLs in insertion order.
type linkSet struct {
	seen map[string]bool
	urls []string
}

func newLinkSet() *linkSet {
	return &linkSet{seen: make(map[string]bool)}
}

func (s *linkSet) addHref(pageURL, href string) {
	abs, err := wikiurl.Resolve(pageURL, href)
	if err != nil {
		return
	}
	s.add(abs, pageURL)
}

func (s *linkSet) add(rawURL, pageURL string) {
	canonical := wikiurl.Normalize(rawURL)
	if !wikiurl.Validate(canonical) || !wikiurl.IsWikiLink(canonical) || !wikiurl.SameDomain(canonical, pageURL) {
		return
	}
	if s.seen[canonical] {
		return
	}
	s.seen[canonical] = true
	s.urls = append(s.urls, canonical)
}
