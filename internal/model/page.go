package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// DefaultTitle is used when a page has no <title> element.
const DefaultTitle = "Untitled"

// DefaultContentType is reported for pages whose response carried no
// Content-Type header.
const DefaultContentType = "text/html; charset=utf-8"

// ScrapedPage is a successfully fetched page converted to Markdown.
// It is created once per page and not modified afterwards.
type ScrapedPage struct {
	// URL is the canonical (fragment-free) page URL.
	URL string `json:"url"`

	// Title is the text of the page's <title> element, or DefaultTitle.
	Title string `json:"title"`

	// Markdown is the converted main content of the page.
	Markdown string `json:"markdown"`

	// Metadata holds head/meta information.
	// It is excluded from the simple JSON output and consumed by the
	// Firecrawl envelope instead.
	Metadata *PageMetadata `json:"-"`
}

// ContentHash returns the hex SHA-256 of the page's Markdown body.
// The archive uses it to detect content changes between runs.
// An empty body has an empty hash.
func (p ScrapedPage) ContentHash() string {
	if p.Markdown == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(p.Markdown))
	return hex.EncodeToString(sum[:])
}

// PageMetadata describes a page in the Firecrawl metadata format.
type PageMetadata struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	SourceURL   string `json:"sourceURL"`
	StatusCode  int    `json:"statusCode"`
	ContentType string `json:"contentType"`

	Keywords    string `json:"keywords,omitempty"`
	Description string `json:"description,omitempty"`
	OGType      string `json:"ogType,omitempty"`
	OGImage     string `json:"ogImage,omitempty"`
	Language    string `json:"language,omitempty"`
}

// MinimalMetadata synthesizes metadata for a page that was scraped without
// metadata extraction.
func MinimalMetadata(p ScrapedPage) PageMetadata {
	title := p.Title
	if title == "" {
		title = DefaultTitle
	}
	return PageMetadata{
		URL:         p.URL,
		Title:       title,
		SourceURL:   p.URL,
		StatusCode:  200,
		ContentType: DefaultContentType,
	}
}
