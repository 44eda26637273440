package export

import (
	"io"
	"net/url"
	"strconv"

	"github.com/nao1215/markdown"
)

// SummaryFile is the name of the table of contents written next to a
// directory export.
const SummaryFile = "SUMMARY.md"

// SummaryEntry describes one exported page.
type SummaryEntry struct {
	// Title is the page title.
	Title string
	// URL is the page URL.
	URL string
	// File is the slash-separated path relative to the export root.
	File string
}

// WriteSummary writes a Markdown table of contents linking every exported
// file to its source page.
func WriteSummary(output io.Writer, title string, entries []SummaryEntry) error {
	if title == "" {
		title = "Wiki Export"
	}
	md := markdown.NewMarkdown(output)
	md.H1(title)
	md.PlainText("")

	if len(entries) == 0 {
		md.Note("No pages were exported.")
		return md.Build()
	}

	md.PlainTextf("Exported pages: %d", len(entries))
	md.PlainText("")

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			markdown.Link(e.Title, (&url.URL{Path: e.File}).String()),
			e.URL,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Page", "Source"},
		Rows:   rows,
	})
	md.PlainText("")
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [wikiscrape](https://github.com/nao1215/wikiscrape)*")
	return md.Build()
}
