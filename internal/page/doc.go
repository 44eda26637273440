// Package page turns fetched wiki pages into Markdown.
//
// Document wraps a parsed HTML page and answers the questions the rest of
// wikiscrape asks about it: title, main content, inline scripts, embedded
// space id and head metadata. Scraper combines fetching, parsing and
// conversion and reports the outcome as an explicit Result.
package page
