// Package log builds the slog loggers used by wikiscrape.
//
// Every logger is wrapped in a SecureHandler that masks session cookies,
// authorization headers and similar secrets before they reach the output.
// Wiki scraping usually needs a logged-in session cookie, and verbose logs
// are often pasted into bug reports.
//
// Terminal output is rendered by github.com/charmbracelet/log; JSON output
// uses slog's JSON handler.
//
//	logger := log.NewLogger(os.Stderr, log.Options{Verbose: true})
//	logger.Info("fetching", "url", u, "cookie", "session=abc") // cookie=***REDACTED***
package log
