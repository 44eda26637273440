package export

import (
	"io"
	"strings"

	"github.com/nao1215/wikiscrape/internal/model"
)

// pageSeparator is placed between two pages of the flat Markdown output.
const pageSeparator = "\n\n---\n\n"

// MarkdownWriter writes all pages into one Markdown document.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the pages separated by horizontal rules.
func (w *MarkdownWriter) Write(pages []model.ScrapedPage) (int, error) {
	return io.WriteString(w.output, RenderMarkdown(pages))
}

// RenderMarkdown renders pages as one Markdown document. Each page starts
// with its title as a level 1 heading followed by a Source line.
func RenderMarkdown(pages []model.ScrapedPage) string {
	docs := make([]string, len(pages))
	for i, p := range pages {
		docs[i] = PageDocument(p)
	}
	return strings.Join(docs, pageSeparator)
}

// PageDocument renders a single page as written to its own file.
func PageDocument(p model.ScrapedPage) string {
	var sb strings.Builder
	sb.Grow(len(p.Title) + len(p.URL) + len(p.Markdown) + 16)
	sb.WriteString("# ")
	sb.WriteString(p.Title)
	sb.WriteString("\n\nSource: ")
	sb.WriteString(p.URL)
	sb.WriteString("\n\n")
	sb.WriteString(p.Markdown)
	sb.WriteString("\n")
	return sb.String()
}
