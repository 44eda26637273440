// Package config provides configuration structures and utilities for
// wikiscrape. It defines the crawl, transport and output options, their
// defaults and validation, and the optional .wikiscrape YAML file holding
// per-host cookies and headers.
package config
