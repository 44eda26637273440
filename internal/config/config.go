package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/wikiscrape/internal/crawler"
	"github.com/nao1215/wikiscrape/internal/fetch"
	"github.com/nao1215/wikiscrape/internal/wikitree"
	"github.com/nao1215/wikiscrape/internal/wikiurl"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "wikiscrape"

	// DefaultOutput is the output path when none is given.
	DefaultOutput = "output.md"

	// DefaultDelay is the politeness delay between requests.
	DefaultDelay = crawler.DefaultDelay

	// DefaultTimeout is the per-request transport timeout.
	DefaultTimeout = fetch.DefaultTimeout

	// DefaultMaxRedirects bounds redirects per request.
	DefaultMaxRedirects = fetch.DefaultMaxRedirects

	// DefaultBatchSize is the number of start URLs crawled at once.
	DefaultBatchSize = crawler.DefaultConcurrency

	// DefaultExpandRounds is the number of subtree expansion passes.
	DefaultExpandRounds = wikitree.DefaultExpansionRounds
)

// Config holds all configuration options for wikiscrape.
// It is populated from CLI flags and the config file and passed through the
// application rather than kept in global state.
type Config struct {
	// Targets are the start URLs.
	Targets []string

	// Output is the output file or directory. "-" writes stream formats to
	// stdout.
	Output string

	// Format is the output format name. Empty means detect from Output.
	Format string

	// MaxPages is the page budget per target. 0 means unlimited.
	MaxPages int

	// FollowLinks enables link discovery. When false only the start URL is
	// scraped.
	FollowLinks bool

	// Delay is the politeness delay between requests. Tree expansion calls
	// use half of it.
	Delay time.Duration

	// Cookies and Headers are sent with every request.
	Cookies map[string]string
	Headers map[string]string

	// Timeout is the per-request transport timeout.
	Timeout time.Duration

	// MaxRedirects bounds redirects per request.
	MaxRedirects int

	// UserAgent is the User-Agent header.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// RateLimit is the aggregate requests per second allowed per host
	// across all concurrent crawls. 0 disables the limiter.
	RateLimit float64

	// RespectRobots enables robots.txt checks.
	RespectRobots bool

	// WikiHosts are extra domains whose pages expose the tree API.
	WikiHosts []string

	// ExpandRounds caps the subtree expansion passes.
	ExpandRounds int

	// BatchSize is the number of targets crawled concurrently.
	BatchSize int

	// Summary writes SUMMARY.md in directory mode.
	Summary bool

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches the log output to JSON.
	LogJSON bool

	// SaveToDB archives scraped pages in the SQLite database.
	SaveToDB bool

	// DBDir is the archive directory. Defaults to the XDG data directory.
	DBDir string

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches for .wikiscrape in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds the loaded configuration file, if any.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Output:       DefaultOutput,
		FollowLinks:  true,
		Delay:        DefaultDelay,
		Cookies:      make(map[string]string),
		Headers:      make(map[string]string),
		Timeout:      DefaultTimeout,
		MaxRedirects: DefaultMaxRedirects,
		UserAgent:    fetch.DefaultUserAgent,
		ExpandRounds: DefaultExpandRounds,
		BatchSize:    DefaultBatchSize,
		SaveToDB:     true,
		DBDir:        XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for wikiscrape.
// On Linux: ~/.local/share/wikiscrape
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for wikiscrape.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	for _, target := range c.Targets {
		if !wikiurl.Validate(target) {
			return fmt.Errorf("%w: %q", ErrInvalidURL, target)
		}
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}
	if c.RateLimit < 0 {
		return ErrInvalidRate
	}
	if c.ExpandRounds < 0 {
		return ErrInvalidExpandRounds
	}
	return nil
}

// ExpansionDelay is the pause between tree expansion calls.
func (c *Config) ExpansionDelay() time.Duration {
	return c.Delay / 2
}

// Site returns the file configuration for host merged over the defaults,
// or an empty SiteConfig when no file was loaded.
func (c *Config) Site(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(host)
}

// ParseJSONMap decodes a --cookies or --headers value. The value must be a
// JSON object; string, number and boolean members are accepted.
func ParseJSONMap(name, value string) (map[string]string, error) {
	result := make(map[string]string)
	if strings.TrimSpace(value) == "" {
		return result, nil
	}

	dec := json.NewDecoder(strings.NewReader(value))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrInvalidJSON, name, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w for %s: expected an object", ErrInvalidJSON, name)
	}

	for k, v := range raw {
		switch v := v.(type) {
		case string:
			result[k] = v
		case json.Number:
			result[k] = v.String()
		case bool:
			result[k] = fmt.Sprintf("%t", v)
		default:
			return nil, fmt.Errorf("%w for %s: value of %q must be a string, number or boolean", ErrInvalidJSON, name, k)
		}
	}
	return result, nil
}
