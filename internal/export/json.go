package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nao1215/wikiscrape/internal/model"
)

// JSONWriter writes pages as a JSON array of {url, title, markdown}.
// HTML in page bodies is not escaped.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the page array.
func (w *JSONWriter) Write(pages []model.ScrapedPage) (int, error) {
	if pages == nil {
		pages = []model.ScrapedPage{}
	}
	return w.encode(pages)
}

func (w *JSONWriter) encode(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}
	if err := enc.Encode(v); err != nil {
		return 0, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return w.output.Write(buf.Bytes())
}

// WriteJSON writes pages as an indented JSON array.
func WriteJSON(output io.Writer, pages []model.ScrapedPage) error {
	_, err := NewJSONWriter(output, WithPrettyPrint()).Write(pages)
	return err
}

// FirecrawlWriter writes pages wrapped in a Firecrawl crawl response.
type FirecrawlWriter struct {
	json   *JSONWriter
	status string
}

// NewFirecrawlWriter creates a FirecrawlWriter reporting status.
func NewFirecrawlWriter(output io.Writer, status string) *FirecrawlWriter {
	return &FirecrawlWriter{
		json:   NewJSONWriter(output, WithPrettyPrint()),
		status: status,
	}
}

// Write outputs the envelope.
func (w *FirecrawlWriter) Write(pages []model.ScrapedPage) (int, error) {
	return w.json.encode(RenderFirecrawl(pages, w.status))
}

// RenderFirecrawl wraps pages in a Firecrawl envelope. Pages scraped
// without metadata get minimal metadata built from their URL and title.
// An empty status means StatusCompleted.
func RenderFirecrawl(pages []model.ScrapedPage, status string) model.FirecrawlResponse {
	if status == "" {
		status = model.StatusCompleted
	}
	data := make([]model.FirecrawlDocument, 0, len(pages))
	for _, p := range pages {
		meta := model.MinimalMetadata(p)
		if p.Metadata != nil {
			meta = *p.Metadata
		}
		data = append(data, model.FirecrawlDocument{
			Markdown: p.Markdown,
			Metadata: meta,
		})
	}
	return model.FirecrawlResponse{
		Success:   true,
		Status:    status,
		Completed: len(data),
		Total:     len(data),
		Data:      data,
	}
}

// WriteFirecrawl writes pages as an indented Firecrawl envelope.
func WriteFirecrawl(output io.Writer, pages []model.ScrapedPage, status string) error {
	_, err := NewFirecrawlWriter(output, status).Write(pages)
	return err
}
