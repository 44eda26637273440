package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/wikiscrape/internal/model"
)

// FileName is the archive file name inside the database directory.
const FileName = "wikiscrape.db"

var (
	// ErrRunNotFound is returned when a run ID is unknown.
	ErrRunNotFound = errors.New("run not found")

	// ErrArchiveNotFound is returned by Open when the database file is
	// missing and may not be created.
	ErrArchiveNotFound = errors.New("archive database not found")
)

// Archive stores scrape runs and their pages.
type Archive struct {
	db     *sql.DB
	dbPath string
}

// Options configures Archive behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the archive in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned and nothing is created.
func Open(dbDir string, opts Options) (*Archive, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrArchiveNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	a := &Archive{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // the WAL error is reported
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := a.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // the schema error is reported
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return a, nil
}

// Path returns the database file path.
func (a *Archive) Path() string {
	return a.dbPath
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		start_url TEXT NOT NULL,
		format TEXT NOT NULL DEFAULT '',
		output TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT 'running',
		pages INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		markdown TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL DEFAULT '',
		status_code INTEGER NOT NULL DEFAULT 0,
		content_type TEXT NOT NULL DEFAULT '',
		file TEXT NOT NULL DEFAULT '',
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	`
	_, err := a.db.ExecContext(context.Background(), schema)
	return err
}

// Run is a recorded scrape.
type Run struct {
	ID         string
	StartURL   string
	Format     string
	Output     string
	State      string
	Pages      int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// PageRecord is a stored page.
type PageRecord struct {
	ID          int64
	RunID       string
	URL         string
	Title       string
	Markdown    string
	ContentHash string
	StatusCode  int
	ContentType string
	File        string
	FetchedAt   time.Time
}

// StartRun records a new run in the running state and returns it.
func (a *Archive) StartRun(ctx context.Context, startURL, format, output string) (*Run, error) {
	run := &Run{
		ID:       uuid.NewString(),
		StartURL: startURL,
		Format:   format,
		Output:   output,
		State:    "running",
	}
	query := `INSERT INTO runs (id, start_url, format, output, state) VALUES (?, ?, ?, ?, ?)`
	if _, err := a.db.ExecContext(ctx, query, run.ID, run.StartURL, run.Format, run.Output, run.State); err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	return run, nil
}

// FinishRun stores the final state and counters of a run.
func (a *Archive) FinishRun(ctx context.Context, runID, state string, pages, failed int) error {
	query := `
	UPDATE runs SET state = ?, pages = ?, failed = ?, finished_at = CURRENT_TIMESTAMP
	WHERE id = ?
	`
	result, err := a.db.ExecContext(ctx, query, state, pages, failed, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// SavePage stores a page of a run. Saving the same URL twice in one run
// replaces the earlier record. file is the path the page was written to,
// empty for single-file outputs.
func (a *Archive) SavePage(ctx context.Context, runID string, p model.ScrapedPage, file string) error {
	meta := model.MinimalMetadata(p)
	if p.Metadata != nil {
		meta = *p.Metadata
	}

	query := `
	INSERT INTO pages (run_id, url, title, markdown, content_hash, status_code, content_type, file)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		title = excluded.title,
		markdown = excluded.markdown,
		content_hash = excluded.content_hash,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		file = excluded.file,
		fetched_at = CURRENT_TIMESTAMP
	`
	_, err := a.db.ExecContext(ctx, query,
		runID,
		p.URL,
		p.Title,
		p.Markdown,
		p.ContentHash(),
		meta.StatusCode,
		meta.ContentType,
		file,
	)
	if err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}
	return nil
}

// GetRun returns the run with the given ID, or ErrRunNotFound.
func (a *Archive) GetRun(ctx context.Context, runID string) (*Run, error) {
	query := `
	SELECT id, start_url, format, output, state, pages, failed, started_at, finished_at
	FROM runs WHERE id = ?
	`
	run, err := scanRun(a.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (a *Archive) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, start_url, format, output, state, pages, failed, started_at, finished_at
	FROM runs
	ORDER BY started_at DESC, rowid DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRunPages returns the pages of a run in the order they were saved.
func (a *Archive) GetRunPages(ctx context.Context, runID string) ([]PageRecord, error) {
	query := `
	SELECT id, run_id, url, title, markdown, content_hash, status_code, content_type, file, fetched_at
	FROM pages WHERE run_id = ?
	ORDER BY id
	`
	rows, err := a.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

// LatestPage returns the most recent record of url stored by a run other
// than excludeRunID, or nil when there is none.
func (a *Archive) LatestPage(ctx context.Context, url, excludeRunID string) (*PageRecord, error) {
	query := `
	SELECT id, run_id, url, title, markdown, content_hash, status_code, content_type, file, fetched_at
	FROM pages WHERE url = ? AND run_id != ?
	ORDER BY id DESC
	LIMIT 1
	`
	p, err := scanPage(a.db.QueryRowContext(ctx, query, url, excludeRunID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest page: %w", err)
	}
	return p, nil
}

// PreviousPage returns the record of p.URL archived last before p, or nil
// when p is the first copy.
func (a *Archive) PreviousPage(ctx context.Context, p PageRecord) (*PageRecord, error) {
	query := `
	SELECT id, run_id, url, title, markdown, content_hash, status_code, content_type, file, fetched_at
	FROM pages WHERE url = ? AND id < ? AND run_id != ?
	ORDER BY id DESC
	LIMIT 1
	`
	prev, err := scanPage(a.db.QueryRowContext(ctx, query, p.URL, p.ID, p.RunID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous page: %w", err)
	}
	return prev, nil
}

// Changed reports whether p differs from the latest copy archived by
// another run. A page never archived before counts as changed.
func (a *Archive) Changed(ctx context.Context, runID string, p model.ScrapedPage) (bool, error) {
	prev, err := a.LatestPage(ctx, p.URL, runID)
	if err != nil {
		return false, err
	}
	return prev == nil || prev.ContentHash != p.ContentHash(), nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var started string
	var finished sql.NullString
	if err := s.Scan(&run.ID, &run.StartURL, &run.Format, &run.Output, &run.State,
		&run.Pages, &run.Failed, &started, &finished); err != nil {
		return nil, err
	}
	run.StartedAt = parseTimestamp(started)
	if finished.Valid {
		run.FinishedAt = parseTimestamp(finished.String)
	}
	return &run, nil
}

func scanPage(s scanner) (*PageRecord, error) {
	var p PageRecord
	var fetched string
	if err := s.Scan(&p.ID, &p.RunID, &p.URL, &p.Title, &p.Markdown, &p.ContentHash,
		&p.StatusCode, &p.ContentType, &p.File, &fetched); err != nil {
		return nil, err
	}
	p.FetchedAt = parseTimestamp(fetched)
	return &p, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a SQLite timestamp, returning the zero time when
// no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
