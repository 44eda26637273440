package page

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/wikiscrape/internal/model"
)

// contentSelectors are tried in order to locate the main content area.
var contentSelectors = []string{
	"main",
	"article",
	`[class*="content"]`,
	`[class*="wiki-content"]`,
	`[role="main"]`,
	".main-content",
}

// strippedElements are removed from the main content before conversion.
const strippedElements = "script, style, nav, header, footer"

// spaceIDPatterns match the numeric wiki space id embedded in page scripts.
var spaceIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`["']space_id["']:\s*["'](\d+)["']`),
	regexp.MustCompile(`spaceId:\s*["'](\d+)["']`),
	regexp.MustCompile(`["']spaceId["']:\s*["'](\d+)["']`),
}

// Document is a parsed HTML page.
type Document struct {
	url string
	doc *goquery.Document
}

// Parse reads an HTML page. The body is decoded to UTF-8 using the charset
// from contentType or the document's meta tags.
func Parse(pageURL, contentType string, r io.Reader) (*Document, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{url: pageURL, doc: doc}, nil
}

// ParseString parses UTF-8 HTML.
func ParseString(pageURL, html string) (*Document, error) {
	return Parse(pageURL, "text/html; charset=utf-8", bytes.NewReader([]byte(html)))
}

// URL returns the URL the document was fetched from.
func (d *Document) URL() string {
	return d.url
}

// Title returns the trimmed <title> text, or model.DefaultTitle when the
// page has no title element.
func (d *Document) Title() string {
	sel := d.doc.Find("title").First()
	if sel.Length() == 0 {
		return model.DefaultTitle
	}
	return strings.TrimSpace(sel.Text())
}

// Find runs a CSS selector against the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Hrefs returns the href attribute of every a[href] element inside the
// elements matched by containers, in document order. An empty containers
// selector searches the whole document.
func (d *Document) Hrefs(containers string) []string {
	var anchors *goquery.Selection
	if containers == "" {
		anchors = d.doc.Find("a[href]")
	} else {
		anchors = d.doc.Find(containers).Find("a[href]")
	}
	hrefs := make([]string, 0, anchors.Length())
	anchors.Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}

// Scripts returns the text of every <script> element.
func (d *Document) Scripts() []string {
	scripts := d.doc.Find("script")
	texts := make([]string, 0, scripts.Length())
	scripts.Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})
	return texts
}

// SpaceID returns the wiki space id embedded in the page scripts, or "".
// Scripts are checked in document order and each pattern in turn.
func (d *Document) SpaceID() string {
	for _, script := range d.Scripts() {
		for _, re := range spaceIDPatterns {
			if m := re.FindStringSubmatch(script); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

// MainContent returns a detached copy of the page's main content with
// scripts, styles and page chrome removed. It falls back to <body> and
// returns an empty selection when neither exists.
func (d *Document) MainContent() *goquery.Selection {
	var content *goquery.Selection
	for _, selector := range contentSelectors {
		if sel := d.doc.Find(selector).First(); sel.Length() > 0 {
			content = sel
			break
		}
	}
	if content == nil {
		content = d.doc.Find("body").First()
	}
	if content.Length() == 0 {
		return content
	}

	clone := content.Clone()
	clone.Find(strippedElements).Remove()
	return clone
}

// Metadata extracts head metadata in the Firecrawl format.
// Later meta tags override earlier ones, so og:description wins over a
// preceding description.
func (d *Document) Metadata(title string, statusCode int, contentType string) model.PageMetadata {
	if contentType == "" {
		contentType = model.DefaultContentType
	}
	md := model.PageMetadata{
		URL:         d.url,
		Title:       title,
		SourceURL:   d.url,
		StatusCode:  statusCode,
		ContentType: contentType,
	}

	d.doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name := strings.ToLower(s.AttrOr("name", ""))
		property := strings.ToLower(s.AttrOr("property", ""))
		content := s.AttrOr("content", "")

		switch {
		case name == "keywords":
			md.Keywords = content
		case name == "description" || property == "og:description":
			md.Description = content
		case property == "og:type":
			md.OGType = content
		case property == "og:image":
			md.OGImage = content
		}
	})

	if lang, ok := d.doc.Find("html").First().Attr("lang"); ok && lang != "" {
		md.Language = lang
	}
	return md
}
