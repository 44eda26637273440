// Package export writes scraped pages to their output formats.
//
// This package contains writers for the following formats:
//   - MarkdownWriter: all pages concatenated into one Markdown document
//   - JSONWriter: a JSON array of {url, title, markdown} records
//   - FirecrawlWriter: the Firecrawl crawl response envelope
//   - Directory: one Markdown file per page, nested like the wiki tree
//
// The stream writers implement Writer so the CLI can pick one by Format.
// Directory drives its own fetching because the tree decides which pages
// are written and where.
package export
