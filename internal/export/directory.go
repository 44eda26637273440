package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/wikiscrape/internal/crawler"
	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/nao1215/wikiscrape/internal/page"
	"github.com/nao1215/wikiscrape/internal/pathmap"
	"github.com/nao1215/wikiscrape/internal/wikiurl"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// ErrInvalidStartURL is returned by Export when the start URL lacks a
// scheme or host.
var ErrInvalidStartURL = errors.New("invalid start URL: scheme and host are required")

// TreeBuilder assembles the wiki tree of a space. *wikitree.Builder
// implements it.
type TreeBuilder interface {
	Build(ctx context.Context, baseURL, spaceID, wikiToken string) (*model.WikiTree, error)
}

// Crawler crawls from a start URL. *crawler.Spider implements it.
type Crawler interface {
	Crawl(ctx context.Context, startURL string) (*crawler.Result, error)
}

// Directory exports a wiki space as a directory of Markdown files.
//
// When the space tree can be retrieved, pages are written in tree order:
// pages with children become <path>/index.md and leaves <parent>/<Title>.md.
// Otherwise Directory crawls the space and writes every page flat into
// the output directory.
type Directory struct {
	scraper crawler.Scraper
	tree    TreeBuilder
	crawler Crawler

	maxPages int
	delay    time.Duration
	summary  bool

	onWrite func(p model.ScrapedPage, file string)
	logger  *slog.Logger
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithMaxPages limits the number of pages written. 0 means unlimited.
func WithMaxPages(n int) DirectoryOption {
	return func(d *Directory) {
		if n >= 0 {
			d.maxPages = n
		}
	}
}

// WithDelay sets the pause between page requests in tree mode.
func WithDelay(delay time.Duration) DirectoryOption {
	return func(d *Directory) {
		if delay >= 0 {
			d.delay = delay
		}
	}
}

// WithSummary enables writing SUMMARY.md into the output directory.
func WithSummary(enabled bool) DirectoryOption {
	return func(d *Directory) {
		d.summary = enabled
	}
}

// WithOnWrite registers a hook called after each file is written. file is
// the absolute or output-relative path passed to the filesystem.
func WithOnWrite(fn func(p model.ScrapedPage, file string)) DirectoryOption {
	return func(d *Directory) {
		d.onWrite = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DirectoryOption {
	return func(d *Directory) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDirectory creates a Directory. tree may be nil, which always selects
// the flat fallback.
func NewDirectory(scraper crawler.Scraper, tree TreeBuilder, c Crawler, opts ...DirectoryOption) *Directory {
	d := &Directory{
		scraper: scraper,
		tree:    tree,
		crawler: c,
		delay:   crawler.DefaultDelay,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Export writes the space reachable from startURL into outDir and returns
// the number of files written.
//
// Page fetch failures are logged and skipped. A failure to create a
// directory or write a file ends the export with an error. Cancellation
// ends it early without an error.
func (d *Directory) Export(ctx context.Context, startURL, outDir string) (int, error) {
	if !wikiurl.Validate(startURL) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStartURL, startURL)
	}
	startURL = wikiurl.Normalize(startURL)

	start := d.scraper.Scrape(ctx, startURL)
	tree := d.loadTree(ctx, startURL, start)
	if tree.IsEmpty() {
		d.logger.Warn("could not get tree structure, falling back to flat directory output", "url", startURL)
		return d.exportFlat(ctx, startURL, outDir)
	}
	return d.exportTree(ctx, tree, start, outDir)
}

// loadTree builds the tree of the space containing the already scraped
// start page. It returns nil when the tree cannot be retrieved.
func (d *Directory) loadTree(ctx context.Context, startURL string, start page.Result) *model.WikiTree {
	if d.tree == nil || !start.OK() {
		return nil
	}
	token := wikiurl.WikiToken(startURL)
	spaceID := start.Document.SpaceID()
	if token == "" || spaceID == "" {
		d.logger.Warn("could not extract space id or wiki token for tree structure",
			"space_id", spaceID, "wiki_token", token)
		return nil
	}
	tree, err := d.tree.Build(ctx, startURL, spaceID, token)
	if err != nil {
		d.logger.Warn("failed to build wiki tree", "error", err)
		return nil
	}
	return tree
}

func (d *Directory) exportTree(ctx context.Context, tree *model.WikiTree, start page.Result, outDir string) (int, error) {
	layout := pathmap.NewLayout(tree)
	if layout.SpaceRoot != "" {
		d.logger.Info("skipping space root container", "wiki_token", layout.SpaceRoot)
	}
	if err := os.MkdirAll(outDir, dirPerm); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	var entries []SummaryEntry
	count := 0
	for i, token := range layout.Order {
		if d.maxPages > 0 && count >= d.maxPages {
			break
		}
		if ctx.Err() != nil {
			d.logger.Info("export cancelled", "written", count)
			break
		}

		node := tree.Nodes[token]
		if node.URL == "" {
			d.logger.Warn("skipping tree node without a page URL", "wiki_token", token)
			continue
		}
		res := start
		if node.URL != start.Page.URL {
			res = d.scraper.Scrape(context.WithoutCancel(ctx), node.URL)
		}
		if !res.OK() {
			continue
		}

		fallback := firstNonEmpty(res.Page.Title, node.Title, pathmap.Untitled)
		rel := layout.File(token, fallback)
		file := filepath.Join(outDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(file), dirPerm); err != nil {
			return count, fmt.Errorf("failed to create directory for %s: %w", rel, err)
		}
		if err := os.WriteFile(file, []byte(PageDocument(res.Page)), filePerm); err != nil {
			return count, fmt.Errorf("failed to write %s: %w", rel, err)
		}
		count++
		entries = append(entries, SummaryEntry{Title: res.Page.Title, URL: res.Page.URL, File: rel})
		d.logger.Info("saved page", "file", file, "count", count)
		if d.onWrite != nil {
			d.onWrite(res.Page, file)
		}

		if i < len(layout.Order)-1 && !sleep(ctx, d.delay) {
			d.logger.Info("export cancelled", "written", count)
			break
		}
	}

	if err := d.writeSummary(outDir, tree.SpaceName, entries); err != nil {
		return count, err
	}
	d.logger.Info("export complete", "written", count, "dir", outDir)
	return count, nil
}

func (d *Directory) exportFlat(ctx context.Context, startURL, outDir string) (int, error) {
	if d.crawler == nil {
		return 0, nil
	}
	result, err := d.crawler.Crawl(ctx, startURL)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(outDir, dirPerm); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	var entries []SummaryEntry
	count := 0
	for _, p := range result.Pages {
		file, err := createUnique(outDir, pathmap.SanitizeFilename(p.Title), []byte(PageDocument(p)))
		if err != nil {
			return count, err
		}
		count++
		entries = append(entries, SummaryEntry{Title: p.Title, URL: p.URL, File: filepath.Base(file)})
		d.logger.Info("saved page", "file", file, "count", count)
		if d.onWrite != nil {
			d.onWrite(p, file)
		}
	}

	if err := d.writeSummary(outDir, "", entries); err != nil {
		return count, err
	}
	d.logger.Info("export complete", "written", count, "dir", outDir)
	return count, nil
}

func (d *Directory) writeSummary(outDir, title string, entries []SummaryEntry) error {
	if !d.summary {
		return nil
	}
	file := filepath.Join(outDir, SummaryFile)
	f, err := os.OpenFile(filepath.Clean(file), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create summary: %w", err)
	}
	if err := WriteSummary(f, title, entries); err != nil {
		_ = f.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return f.Close()
}

// createUnique writes data to dir/name.md, or to dir/name_N.md with the
// smallest free N when the name is taken.
func createUnique(dir, name string, data []byte) (string, error) {
	for i := 0; ; i++ {
		base := name
		if i > 0 {
			base = name + "_" + strconv.Itoa(i)
		}
		file := filepath.Join(dir, base+".md")
		f, err := os.OpenFile(file, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", file, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close() //nolint:errcheck // write error takes precedence
			return "", fmt.Errorf("failed to write %s: %w", file, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", file, err)
		}
		return file, nil
	}
}

// sleep waits for d or until ctx is done. It reports whether the wait
// completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
