package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/wikiscrape/internal/crawler"
	"github.com/nao1215/wikiscrape/internal/database"
	"github.com/nao1215/wikiscrape/internal/discovery"
	"github.com/nao1215/wikiscrape/internal/export"
	"github.com/nao1215/wikiscrape/internal/fetch"
	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/nao1215/wikiscrape/internal/page"
	"github.com/nao1215/wikiscrape/internal/pathmap"
	"github.com/nao1215/wikiscrape/internal/wikitree"
	"github.com/nao1215/wikiscrape/internal/wikiurl"
)

// targetSettings are the effective settings for one start URL: the config
// file entry for its host overlaid with the command-line flags.
type targetSettings struct {
	cookies  map[string]string
	headers  map[string]string
	delay    time.Duration
	maxPages int
	wikiHost bool
	ignore   []string
	follow   []string
}

// writtenPage is a scraped page and the file it was written to, if any.
type writtenPage struct {
	page model.ScrapedPage
	file string
}

func scrapedPages(pages []writtenPage) []model.ScrapedPage {
	out := make([]model.ScrapedPage, len(pages))
	for i, p := range pages {
		out[i] = p.page
	}
	return out
}

// pipeline is the scraping stack for one start URL.
type pipeline struct {
	scraper    *page.Scraper
	builder    *wikitree.Builder
	discoverer *discovery.Discoverer
	settings   *targetSettings
}

// runner executes a scrape invocation.
type runner struct {
	opts    *scrapeOptions
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
	limiter *fetch.HostLimiter
	archive *database.Archive
	prog    *progress
}

func newRunner(opts *scrapeOptions, logger *slog.Logger, stdout, stderr io.Writer, showSpinner bool) *runner {
	r := &runner{
		opts:   opts,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
		prog:   newProgress(stderr, showSpinner),
	}
	if opts.cfg.RateLimit > 0 {
		r.limiter = fetch.NewHostLimiter(opts.cfg.RateLimit, 1)
	}
	if opts.cfg.SaveToDB {
		archive, err := database.Open(opts.cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("archive disabled: failed to open database", "dir", opts.cfg.DBDir, "error", err)
		} else {
			r.archive = archive
		}
	}
	return r
}

func (r *runner) close() {
	if r.archive == nil {
		return
	}
	if err := r.archive.Close(); err != nil {
		r.logger.Warn("failed to close archive", "error", err)
	}
}

// run scrapes every target and writes the output. It fails when nothing
// was written.
func (r *runner) run(ctx context.Context) error {
	cfg := r.opts.cfg
	r.logger.Info("starting scrape",
		"targets", len(cfg.Targets),
		"format", r.opts.format,
		"output", cfg.Output,
		"follow_links", cfg.FollowLinks,
		"batch", cfg.BatchSize,
	)
	start := time.Now()

	r.prog.start()
	var (
		written int
		err     error
	)
	if r.opts.format == export.FormatDirectory {
		written, err = r.runDirectory(ctx)
	} else {
		written, err = r.runStream(ctx)
	}
	r.prog.stop()
	if err != nil {
		return err
	}
	if written == 0 {
		return errNoPages
	}

	dest := cfg.Output
	if r.opts.toStdout {
		dest = "stdout"
	}
	fmt.Fprintf(r.stderr, "Scraped %d pages to %s in %s\n", written, dest, elapsedSince(start))
	if ctx.Err() != nil {
		fmt.Fprintln(r.stderr, "Interrupted: output contains the pages scraped before cancellation.")
	}
	return nil
}

// settings merges the config file entry for target's host with the flags.
func (r *runner) settings(target string) *targetSettings {
	cfg := r.opts.cfg
	_, host, _ := wikiurl.Origin(target) //nolint:errcheck // targets are validated
	site := cfg.Site(strings.ToLower(host))

	t := &targetSettings{
		cookies:  mergeMaps(site.Cookies, cfg.Cookies),
		headers:  mergeMaps(site.Headers, cfg.Headers),
		delay:    cfg.Delay,
		maxPages: cfg.MaxPages,
		wikiHost: site.WikiHost,
		ignore:   site.IgnorePatterns,
		follow:   site.FollowPatterns,
	}
	if !r.opts.delaySet && site.Delay > 0 {
		t.delay = site.Delay
	}
	if !r.opts.maxPagesSet && site.MaxPages > 0 {
		t.maxPages = site.MaxPages
	}
	return t
}

// mergeMaps returns a copy of base overlaid with override.
func mergeMaps(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)
	return out
}

// pipeline builds the scraping stack for target. Each target gets its own
// HTTP client because cookies are per host; the rate limiter is shared.
func (r *runner) pipeline(target string) (*pipeline, error) {
	cfg := r.opts.cfg
	t := r.settings(target)
	logTarget(r.logger, target, t)

	clientOpts := []fetch.Option{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithCookies(t.cookies),
		fetch.WithHeaders(t.headers),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxRedirects(cfg.MaxRedirects),
		fetch.WithRobots(cfg.RespectRobots),
		fetch.WithLogger(r.logger),
	}
	if cfg.ProxyAddress != "" {
		clientOpts = append(clientOpts, fetch.WithProxy(cfg.ProxyAddress))
	}
	if r.limiter != nil {
		clientOpts = append(clientOpts, fetch.WithHostLimiter(r.limiter))
	}
	client, err := fetch.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	builder := wikitree.NewBuilder(client,
		wikitree.WithExpansionDelay(t.delay/2),
		wikitree.WithExpansionRounds(cfg.ExpandRounds),
		wikitree.WithLogger(r.logger),
	)

	wikiHosts := cfg.WikiHosts
	if t.wikiHost {
		_, host, _ := wikiurl.Origin(target) //nolint:errcheck // targets are validated
		wikiHosts = append(append([]string(nil), wikiHosts...), host)
	}

	return &pipeline{
		scraper: page.NewScraper(client,
			page.WithMetadata(r.opts.format == export.FormatFirecrawl),
			page.WithLogger(r.logger),
		),
		builder:    builder,
		discoverer: discovery.NewDiscoverer(builder, discovery.WithWikiHosts(wikiHosts...), discovery.WithLogger(r.logger)),
		settings:   t,
	}, nil
}

func (p *pipeline) spider(logger *slog.Logger, onPage func(model.ScrapedPage), follow bool) *crawler.Spider {
	return crawler.NewSpider(p.scraper, p.discoverer,
		crawler.WithMaxPages(p.settings.maxPages),
		crawler.WithDelay(p.settings.delay),
		crawler.WithFollowLinks(follow),
		crawler.WithIgnorePatterns(p.settings.ignore),
		crawler.WithFollowPatterns(p.settings.follow),
		crawler.WithOnPage(onPage),
		crawler.WithLogger(logger),
	)
}

// runStream crawls all targets and writes one combined document. Pages
// found from several targets are written once, in target order.
func (r *runner) runStream(ctx context.Context) (int, error) {
	cfg := r.opts.cfg
	pipelines := make(map[string]*pipeline, len(cfg.Targets))
	for _, target := range cfg.Targets {
		p, err := r.pipeline(target)
		if err != nil {
			return 0, err
		}
		pipelines[target] = p
	}

	results := crawler.RunBatch(ctx, cfg.Targets, func(target string) *crawler.Spider {
		return pipelines[target].spider(r.logger, r.prog.page, cfg.FollowLinks)
	}, cfg.BatchSize, r.logger)

	seen := make(map[string]bool)
	var pages []writtenPage
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(r.stderr, "Scrape error for %s: %v\n", res.URL, res.Err)
			continue
		}
		var own []writtenPage
		for _, p := range res.Result.Pages {
			if seen[p.URL] {
				continue
			}
			seen[p.URL] = true
			own = append(own, writtenPage{page: p})
		}
		pages = append(pages, own...)
		r.record(ctx, res.URL, res.Result.State.String(), own, res.Result.Failed)
	}
	if len(pages) == 0 {
		return 0, nil
	}

	if r.opts.toStdout {
		return len(pages), writeStream(r.stdout, r.opts.format, pages)
	}
	f, err := createOutputFile(cfg.Output)
	if err != nil {
		return 0, err
	}
	if err := writeStream(f, r.opts.format, pages); err != nil {
		_ = f.Close() //nolint:errcheck // write error takes precedence
		return 0, fmt.Errorf("failed to write %s: %w", cfg.Output, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", cfg.Output, err)
	}
	return len(pages), nil
}

// runDirectory exports every target as a directory tree. With several
// targets each one gets a subdirectory named after its page token.
func (r *runner) runDirectory(ctx context.Context) (int, error) {
	cfg := r.opts.cfg
	var (
		mu    sync.Mutex
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.BatchSize)

	for _, target := range cfg.Targets {
		outDir := cfg.Output
		if len(cfg.Targets) > 1 {
			outDir = filepath.Join(cfg.Output, targetDirName(target))
		}
		g.Go(func() error {
			n, err := r.exportTarget(gctx, target, outDir)
			mu.Lock()
			total += n
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()
	return total, err
}

func (r *runner) exportTarget(ctx context.Context, target, outDir string) (int, error) {
	p, err := r.pipeline(target)
	if err != nil {
		return 0, err
	}

	var (
		mu      sync.Mutex
		written []writtenPage
	)
	dir := export.NewDirectory(p.scraper, p.builder, p.spider(r.logger, nil, r.opts.cfg.FollowLinks),
		export.WithMaxPages(p.settings.maxPages),
		export.WithDelay(p.settings.delay),
		export.WithSummary(r.opts.cfg.Summary),
		export.WithOnWrite(func(pg model.ScrapedPage, file string) {
			r.prog.page(pg)
			mu.Lock()
			written = append(written, writtenPage{page: pg, file: file})
			mu.Unlock()
		}),
		export.WithLogger(r.logger),
	)

	n, err := dir.Export(ctx, target, outDir)
	state := crawler.StateCompleted.String()
	switch {
	case err != nil:
		state = "failed"
	case ctx.Err() != nil:
		state = crawler.StateCancelled.String()
	}
	r.record(ctx, target, state, written, 0)
	if err != nil {
		return n, fmt.Errorf("export %s: %w", target, err)
	}
	return n, nil
}

// targetDirName names the subdirectory of a target in a multi-target
// directory export.
func targetDirName(target string) string {
	if token := wikiurl.WikiToken(target); token != "" {
		return pathmap.SanitizeFilename(token)
	}
	_, host, _ := wikiurl.Origin(target) //nolint:errcheck // targets are validated
	return pathmap.SanitizeFilename(host)
}

// record archives one target's run. Archive failures are logged and never
// fail the scrape.
func (r *runner) record(ctx context.Context, target, state string, pages []writtenPage, failed int) {
	if r.archive == nil {
		return
	}
	// Pages scraped before an interrupt are still archived.
	ctx = context.WithoutCancel(ctx)

	run, err := r.archive.StartRun(ctx, target, string(r.opts.format), r.opts.cfg.Output)
	if err != nil {
		r.logger.Warn("failed to archive run", "url", target, "error", err)
		return
	}
	changed := 0
	for _, p := range pages {
		if c, err := r.archive.Changed(ctx, run.ID, p.page); err == nil && c {
			changed++
		}
		if err := r.archive.SavePage(ctx, run.ID, p.page, p.file); err != nil {
			r.logger.Warn("failed to archive page", "url", p.page.URL, "error", err)
		}
	}
	if err := r.archive.FinishRun(ctx, run.ID, state, len(pages), failed); err != nil {
		r.logger.Warn("failed to finish archived run", "run", run.ID, "error", err)
	}
	r.logger.Info("archived run", "run", run.ID, "url", target, "pages", len(pages), "changed", changed)
}

// Compile-time checks that the wiring matches the consumer interfaces.
var (
	_ crawler.Scraper    = (*page.Scraper)(nil)
	_ crawler.Discoverer = (*discovery.Discoverer)(nil)
	_ export.TreeBuilder = (*wikitree.Builder)(nil)
	_ export.Crawler     = (*crawler.Spider)(nil)
)
