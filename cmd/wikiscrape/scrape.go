package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/wikiscrape/internal/config"
	"github.com/nao1215/wikiscrape/internal/export"
)

// stdoutPath selects standard output for the stream formats.
const stdoutPath = "-"

var (
	// errNoPages is returned when a run produced no output.
	errNoPages = errors.New("no pages were scraped")

	// errStdoutDirectory is returned for directory output to stdout.
	errStdoutDirectory = errors.New("directory output cannot be written to stdout")
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape URL [URL...]",
		Short: "Scrape wiki pages into Markdown, JSON or a directory tree",
		Long: `Scrape crawls a wiki space breadth-first from each URL and converts every
page to Markdown.

The output format follows --format, or the output path when no format is
given: a path ending in "/", an existing directory or a path without an
extension writes one file per page mirroring the wiki hierarchy; ".json"
writes a JSON array; anything else writes one Markdown file. JSON and
Firecrawl output goes to stdout unless --output is given.

Examples:
  # Scrape a space into output.md
  wikiscrape scrape https://acme.feishu.cn/wiki/AbCdEf

  # Mirror the space hierarchy into docs/
  wikiscrape scrape -o docs/ https://acme.feishu.cn/wiki/AbCdEf

  # Private space, Firecrawl envelope on stdout
  wikiscrape scrape --firecrawl --cookies '{"session":"..."}' URL

  # Only the given page
  wikiscrape scrape --no-sidebar -o page.md URL

  # Two spaces at once, at most 2 requests per second per host
  wikiscrape scrape -b 2 --rate 2 -o all.json URL1 URL2`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrapeCmd,
	}

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutput, "Output file or directory (\"-\" for stdout)")
	cmd.Flags().StringP("format", "f", "", "Output format: markdown, json, firecrawl or directory (default: detect from --output)")
	cmd.Flags().Bool("json", false, "Shorthand for --format json")
	cmd.Flags().Bool("firecrawl", false, "Shorthand for --format firecrawl")
	cmd.Flags().Bool("summary", false, "Write SUMMARY.md in directory mode")

	// Crawl flags
	cmd.Flags().IntP("max-pages", "p", 0, "Maximum number of pages per URL (0 = unlimited)")
	cmd.Flags().Bool("no-sidebar", false, "Scrape only the given URLs without following links")
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay, "Delay between requests")
	cmd.Flags().StringSlice("wiki-host", nil, "Extra domains that serve the wiki tree API")
	cmd.Flags().Int("expand-rounds", config.DefaultExpandRounds, "Subtree expansion passes for incomplete trees (0 = off)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize, "Number of URLs crawled concurrently")

	// Transport flags
	cmd.Flags().String("cookies", "", "Cookies as a JSON object")
	cmd.Flags().String("headers", "", "Extra request headers as a JSON object")
	cmd.Flags().Duration("timeout", config.DefaultTimeout, "Timeout for each request")
	cmd.Flags().Int("max-redirects", config.DefaultMaxRedirects, "Maximum redirects per request")
	cmd.Flags().String("user-agent", "", "User-Agent header (default: desktop browser)")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (host:port)")
	cmd.Flags().Float64("rate", 0, "Requests per second per host across all URLs (0 = off)")
	cmd.Flags().Bool("respect-robots", false, "Honour robots.txt")

	// Archive and configuration
	cmd.Flags().Bool("no-db", false, "Do not archive scraped pages")
	cmd.Flags().String("db-dir", "", "Archive directory (default: XDG data directory)")
	cmd.Flags().StringP("config", "c", "", "Configuration file path (default: .wikiscrape in current or home directory)")

	return cmd
}

// scrapeOptions is a validated scrape invocation.
type scrapeOptions struct {
	cfg    *config.Config
	format export.Format

	// toStdout writes stream formats to the command's stdout.
	toStdout bool

	// delaySet and maxPagesSet report explicit flags, which take
	// precedence over the config file.
	delaySet    bool
	maxPagesSet bool
}

func runScrapeCmd(cmd *cobra.Command, args []string) error {
	opts, err := buildScrapeOptions(cmd, args)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	showSpinner := cmd.ErrOrStderr() == os.Stderr && !boolFlag(cmd, "verbose") && !boolFlag(cmd, "log-json")
	r := newRunner(opts, logger, cmd.OutOrStdout(), cmd.ErrOrStderr(), showSpinner)
	defer r.close()

	return r.run(ctx)
}

// buildScrapeOptions creates the configuration from flags, arguments and
// the config file. Every input error is reported before any request.
func buildScrapeOptions(cmd *cobra.Command, args []string) (*scrapeOptions, error) {
	cfg := config.NewConfig()
	cfg.Targets = args
	flags := cmd.Flags()

	var err error
	if cfg.Output, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Summary, err = flags.GetBool("summary"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	noSidebar, err := flags.GetBool("no-sidebar")
	if err != nil {
		return nil, err
	}
	cfg.FollowLinks = !noSidebar
	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.WikiHosts, err = flags.GetStringSlice("wiki-host"); err != nil {
		return nil, err
	}
	if cfg.ExpandRounds, err = flags.GetInt("expand-rounds"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxRedirects, err = flags.GetInt("max-redirects"); err != nil {
		return nil, err
	}
	ua, err := flags.GetString("user-agent")
	if err != nil {
		return nil, err
	}
	if ua != "" {
		cfg.UserAgent = ua
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool("respect-robots"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	cfg.Verbose = boolFlag(cmd, "verbose")
	cfg.LogJSON = boolFlag(cmd, "log-json")

	for name, dst := range map[string]*map[string]string{"--cookies": &cfg.Cookies, "--headers": &cfg.Headers} {
		raw, err := flags.GetString(strings.TrimPrefix(name, "--"))
		if err != nil {
			return nil, err
		}
		if *dst, err = config.ParseJSONMap(name, raw); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if err := loadSiteConfigs(cfg); err != nil {
		return nil, err
	}

	opts := &scrapeOptions{
		cfg:         cfg,
		delaySet:    flags.Changed("delay"),
		maxPagesSet: flags.Changed("max-pages"),
	}
	if err := resolveOutput(cmd, opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// loadSiteConfigs reads the config file. A missing file is an error only
// when its path was given explicitly.
func loadSiteConfigs(cfg *config.Config) error {
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}
	file, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	cfg.SiteConfigs = file
	return nil
}

// resolveOutput settles the format and destination.
func resolveOutput(cmd *cobra.Command, opts *scrapeOptions) error {
	flags := cmd.Flags()
	name, err := flags.GetString("format")
	if err != nil {
		return err
	}
	jsonFlag, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	firecrawlFlag, err := flags.GetBool("firecrawl")
	if err != nil {
		return err
	}

	format, err := selectFormat(name, jsonFlag, firecrawlFlag)
	if err != nil {
		return err
	}

	cfg := opts.cfg
	outputSet := flags.Changed("output")
	switch {
	case cfg.Output == stdoutPath:
		if format == "" {
			format = export.FormatMarkdown
		}
		if format == export.FormatDirectory {
			return errStdoutDirectory
		}
		opts.toStdout = true
	case format == "":
		format = export.DetectFormat(cfg.Output)
	case (format == export.FormatJSON || format == export.FormatFirecrawl) && !outputSet:
		opts.toStdout = true
	case format == export.FormatDirectory && !outputSet:
		cfg.Output = strings.TrimSuffix(cfg.Output, filepath.Ext(cfg.Output))
	}

	opts.format = format
	cfg.Format = string(format)
	return nil
}

// selectFormat merges --format, --json and --firecrawl. An empty result
// means the format is detected from the output path.
func selectFormat(name string, jsonFlag, firecrawlFlag bool) (export.Format, error) {
	format, err := export.ParseFormat(name)
	if err != nil {
		return "", err
	}
	for _, shorthand := range []struct {
		set    bool
		format export.Format
	}{
		{jsonFlag, export.FormatJSON},
		{firecrawlFlag, export.FormatFirecrawl},
	} {
		if !shorthand.set {
			continue
		}
		if format != "" && format != shorthand.format {
			return "", config.ErrConflictingFormats
		}
		format = shorthand.format
	}
	return format, nil
}

// writeStream writes pages in a stream format to w.
func writeStream(w io.Writer, format export.Format, pages []writtenPage) error {
	writer, err := export.NewWriter(format, w)
	if err != nil {
		return err
	}
	_, err = writer.Write(scrapedPages(pages))
	return err
}

// createOutputFile creates path and its parent directories.
func createOutputFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

func elapsedSince(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}

// logTarget logs the effective settings of one target.
func logTarget(logger *slog.Logger, target string, t *targetSettings) {
	logger.Debug("target settings",
		"url", target,
		"delay", t.delay,
		"max_pages", t.maxPages,
		"wiki_host", t.wikiHost,
	)
}
