package crawler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of start URLs crawled at once.
const DefaultConcurrency = 1

// BatchResult is the outcome of one start URL in a batch.
type BatchResult struct {
	// URL is the start URL.
	URL string

	// Result is nil when Err is set or the crawl never started.
	Result *Result

	// Err is the error returned by Crawl.
	Err error
}

// RunBatch crawls every start URL with a Spider from newSpider, at most
// concurrency at a time. Results keep the order of startURLs. A failing
// crawl does not stop the others.
func RunBatch(ctx context.Context, startURLs []string, newSpider func(startURL string) *Spider, concurrency int, logger *slog.Logger) []BatchResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Info("starting batch crawl", "targets", len(startURLs), "concurrency", concurrency)
	start := time.Now()

	results := make([]BatchResult, len(startURLs))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, startURL := range startURLs {
		results[i].URL = startURL
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i].Err = ctx.Err()
				return nil
			}
			res, err := newSpider(startURL).Crawl(ctx, startURL)
			results[i].Result = res
			results[i].Err = err
			if err != nil {
				logger.Warn("crawl failed", "url", startURL, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines record errors in results

	logger.Info("batch crawl complete", "targets", len(startURLs), "elapsed", time.Since(start))
	return results
}
