package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate and by the flag parsers and
// are checked with errors.Is.
var (
	// ErrNoTarget is returned when no start URL is given.
	ErrNoTarget = errors.New("no target specified: provide a wiki page URL")

	// ErrInvalidURL is returned when a start URL lacks a scheme or host.
	ErrInvalidURL = errors.New("invalid URL: scheme and host are required")

	// ErrInvalidJSON is returned when --cookies or --headers is not a JSON
	// object of scalar values.
	ErrInvalidJSON = errors.New("invalid JSON object")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidDelay is returned when the delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxPages is returned when the page budget is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative (0 means unlimited)")

	// ErrInvalidMaxRedirects is returned when the redirect bound is negative.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be non-negative")

	// ErrInvalidRate is returned when the per-host rate is negative.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative")

	// ErrInvalidExpandRounds is returned when the expansion round count is
	// negative.
	ErrInvalidExpandRounds = errors.New("invalid expand rounds: must be non-negative")

	// ErrConflictingFormats is returned when more than one output format is
	// requested.
	ErrConflictingFormats = errors.New("conflicting output formats: choose one of --format, --json and --firecrawl")
)
