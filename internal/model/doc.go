// Package model defines the core data structures used throughout wikiscrape.
//
// This package contains the following main types:
//   - ScrapedPage: A fetched page converted to Markdown
//   - PageMetadata: Head/meta information attached in metadata-rich mode
//   - WikiNode and WikiTree: The hierarchy reconstructed from the tree API
//   - FirecrawlResponse: The Firecrawl-compatible JSON envelope
//
// Models live in their own package because the crawler, the tree builder,
// the exporters and the database all exchange them.
package model
