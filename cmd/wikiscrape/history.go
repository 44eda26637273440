package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/wikiscrape/internal/config"
	"github.com/nao1215/wikiscrape/internal/database"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// timeLayout formats archive timestamps.
const timeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show archived scrape runs",
		Long: `History lists the scrape runs stored in the archive database, newest first.

With --run it shows the pages of a single run, the file each page was written
to and whether its content changed since the previous run that archived it.

Examples:
  # List the last 20 runs
  wikiscrape history

  # Show the pages of one run
  wikiscrape history --run 3f2c9a5e-...`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("run", "", "Show the pages of the run with this ID")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of runs to list")
	cmd.Flags().String("db-dir", "", "Archive directory (default: XDG data directory)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	archive, err := database.Open(dbDir, opts)
	if errors.Is(err, database.ErrArchiveNotFound) && runID == "" {
		return renderRuns(cmd.OutOrStdout(), nil)
	}
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if runID != "" {
		return showRun(ctx, cmd.OutOrStdout(), archive, runID)
	}
	return listRuns(ctx, cmd.OutOrStdout(), archive, limit)
}

func listRuns(ctx context.Context, w io.Writer, archive *database.Archive, limit int) error {
	runs, err := archive.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	return renderRuns(w, runs)
}

func renderRuns(w io.Writer, runs []database.Run) error {
	md := markdown.NewMarkdown(w)
	md.H1("Scrape history")
	md.PlainText("")
	if len(runs) == 0 {
		md.Note("No runs archived yet. Run `wikiscrape scrape` first.")
		return md.Build()
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID,
			formatTime(r.StartedAt),
			r.State,
			strconv.Itoa(r.Pages),
			strconv.Itoa(r.Failed),
			r.Format,
			r.StartURL,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Started", "State", "Pages", "Failed", "Format", "Start URL"},
		Rows:   rows,
	})
	return md.Build()
}

func showRun(ctx context.Context, w io.Writer, archive *database.Archive, runID string) error {
	run, err := archive.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			return fmt.Errorf("%w (see 'wikiscrape history')", err)
		}
		return err
	}
	pages, err := archive.GetRunPages(ctx, runID)
	if err != nil {
		return err
	}

	md := markdown.NewMarkdown(w)
	md.H1("Run " + run.ID)
	md.PlainText("")
	md.BulletList(
		"Start URL: "+run.StartURL,
		"State: "+run.State,
		"Format: "+run.Format,
		"Output: "+run.Output,
		"Started: "+formatTime(run.StartedAt),
		"Finished: "+formatTime(run.FinishedAt),
		fmt.Sprintf("Pages: %d (failed: %d)", run.Pages, run.Failed),
	)
	md.PlainText("")
	if len(pages) == 0 {
		md.Note("This run archived no pages.")
		return md.Build()
	}

	rows := make([][]string, len(pages))
	for i, p := range pages {
		changed := "yes"
		prev, err := archive.PreviousPage(ctx, p)
		if err != nil {
			return err
		}
		if prev != nil && prev.ContentHash == p.ContentHash {
			changed = "no"
		}
		rows[i] = []string{strconv.Itoa(i + 1), p.Title, p.URL, p.File, changed}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Title", "URL", "File", "Changed"},
		Rows:   rows,
	})
	return md.Build()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
