package page

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// Converter renders HTML selections as Markdown.
type Converter struct {
	opts *md.Options
}

// NewConverter returns a Converter producing ATX headings, fenced code
// blocks and inline links.
func NewConverter() *Converter {
	return &Converter{
		opts: &md.Options{
			HeadingStyle:     "atx",
			CodeBlockStyle:   "fenced",
			BulletListMarker: "*",
			LinkStyle:        "inlined",
		},
	}
}

// Convert renders sel as Markdown. Relative links and images are made
// absolute against the host domain when it is non-empty. An empty
// selection yields "".
func (c *Converter) Convert(domain string, sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	conv := md.NewConverter(domain, true, c.opts)
	return strings.TrimSpace(conv.Convert(sel))
}
