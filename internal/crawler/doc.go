// Package crawler walks a wiki space breadth-first from a starting page.
//
// # Architecture
//
// The Spider pops canonical URLs from a per-crawl frontier, scrapes each
// page once, asks a link discoverer for more pages, and pauses between
// requests. Crawl state lives in the frontier created by each Crawl call,
// so a Spider can be reused and several Spiders can run side by side.
//
// # Components
//
//   - Spider: coordinates the crawl and enforces the page budget
//   - frontier: FIFO queue with queued and visited sets
//   - RunBatch: crawls several start URLs concurrently
//
// # Politeness
//
//   - A fixed delay separates consecutive requests of one crawl
//   - A shared fetch.HostLimiter paces concurrent crawls of one host
//   - robots.txt is honoured by the transport when enabled
//
// # Cancellation
//
// Cancelling the context stops the crawl between pages. The request in
// flight is allowed to finish, and the pages gathered so far are returned
// with StateCancelled.
//
// # Usage
//
//	spider := crawler.NewSpider(scraper, discoverer, crawler.WithMaxPages(50))
//	result, err := spider.Crawl(ctx, "https://example.feishu.cn/wiki/abc")
package crawler
