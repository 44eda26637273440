package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/wikiscrape/internal/model"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output format name.
type Format string

const (
	// FormatMarkdown concatenates all pages into one Markdown file.
	FormatMarkdown Format = "markdown"
	// FormatJSON writes a JSON array of pages.
	FormatJSON Format = "json"
	// FormatFirecrawl writes a Firecrawl-compatible JSON envelope.
	FormatFirecrawl Format = "firecrawl"
	// FormatDirectory writes one file per page in a directory tree.
	FormatDirectory Format = "directory"
)

// Formats lists the supported formats.
var Formats = []Format{FormatMarkdown, FormatJSON, FormatFirecrawl, FormatDirectory}

// ParseFormat validates a format name. An empty name is returned as is
// and means the format is detected from the output path.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if f == "" {
		return "", nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// DetectFormat picks a format from the output path. A trailing separator,
// an existing directory or a missing extension selects the directory tree.
// ".json" selects JSON and anything else Markdown.
func DetectFormat(output string) Format {
	if strings.HasSuffix(output, "/") || strings.HasSuffix(output, string(filepath.Separator)) {
		return FormatDirectory
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return FormatDirectory
	}
	switch strings.ToLower(filepath.Ext(output)) {
	case "":
		return FormatDirectory
	case ".json":
		return FormatJSON
	default:
		return FormatMarkdown
	}
}

// Writer writes a list of pages in one format.
type Writer interface {
	// Write outputs pages in crawl order and returns the number of bytes
	// written.
	Write(pages []model.ScrapedPage) (int, error)
}

// NewWriter returns the Writer for a stream format.
func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatFirecrawl:
		return NewFirecrawlWriter(output, model.StatusCompleted), nil
	default:
		return nil, fmt.Errorf("%w: %q is not a stream format", ErrUnknownFormat, format)
	}
}

// baseWriter holds the destination shared by the stream writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
