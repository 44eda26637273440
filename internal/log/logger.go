package log

import (
	"io"
	"log/slog"

	charmlog "github.com/charmbracelet/log"
)

// Options selects the logger output.
type Options struct {
	// Verbose lowers the level from Warn to Debug.
	Verbose bool

	// JSON writes one JSON object per record instead of terminal text.
	JSON bool
}

// Level returns the minimum level for opts.
func (o Options) Level() slog.Level {
	if o.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewLogger returns a sanitizing logger writing to w.
func NewLogger(w io.Writer, opts Options) *slog.Logger {
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level()})
	} else {
		handler = newTerminalHandler(w, opts.Level())
	}
	return slog.New(NewSecureHandler(handler))
}

func newTerminalHandler(w io.Writer, level slog.Level) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "wikiscrape",
	})
}
