// Package database provides the SQLite page archive of wikiscrape.
//
// Every scrape is recorded as a run identified by a UUID. The pages written
// by a run are stored with their Markdown body and a content hash, so later
// runs can tell which pages changed and the history command can list past
// runs.
//
// The archive uses modernc.org/sqlite, a CGO-free driver, and keeps the
// whole database in a single file under the XDG data directory.
package database
