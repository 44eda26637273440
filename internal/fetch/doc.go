// Package fetch provides the HTTP transport used by wikiscrape.
//
// A Client carries the session state of a scrape: default browser-like
// headers, user supplied headers and cookies, a redirect bound, an optional
// SOCKS5 proxy, an optional per-host rate limiter shared across concurrent
// crawls, and optional robots.txt enforcement.
//
// Every request goes through Client.Get, which returns the full body or an
// error. Responses with status 400 and above are reported as *StatusError so
// callers can log and drop the URL.
package fetch
