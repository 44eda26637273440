package config

import (
	"maps"
	"time"
)

// SiteConfig holds configuration for a single wiki host.
type SiteConfig struct {
	// Cookies are sent with requests to this host. Session cookies are
	// usually required for private spaces.
	Cookies map[string]string `yaml:"cookies,omitempty"`

	// Headers are custom HTTP headers to include in requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Delay overrides the politeness delay for this host.
	Delay time.Duration `yaml:"delay,omitempty"`

	// MaxPages overrides the page budget for this host.
	MaxPages int `yaml:"maxPages,omitempty"`

	// WikiHost marks the host as serving the tree API even when its domain
	// is not a known wiki domain.
	WikiHost bool `yaml:"wikiHost,omitempty"`

	// IgnorePatterns are URL path globs to skip during crawling.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict crawling to matching URL paths.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .wikiscrape configuration file.
type File struct {
	// Sites maps a host (e.g. "acme.feishu.cn") to its configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the
// defaults. Maps are copied, so the result can be modified freely.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Cookies = maps.Clone(cf.Defaults.Cookies)
	result.Headers = maps.Clone(cf.Defaults.Headers)

	site, ok := cf.Sites[host]
	if !ok {
		return result
	}
	result.Cookies = mergeMaps(result.Cookies, site.Cookies)
	result.Headers = mergeMaps(result.Headers, site.Headers)
	if site.Delay != 0 {
		result.Delay = site.Delay
	}
	if site.MaxPages != 0 {
		result.MaxPages = site.MaxPages
	}
	if site.WikiHost {
		result.WikiHost = true
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	return result
}

func mergeMaps(base, override map[string]string) map[string]string {
	if len(override) == 0 {
		return base
	}
	if base == nil {
		base = make(map[string]string, len(override))
	}
	maps.Copy(base, override)
	return base
}
