package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/wikiscrape/internal/log"
)

// NewRootCmd creates the root command for wikiscrape.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wikiscrape",
		Short: "Scrape Feishu/Lark wiki spaces into Markdown",
		Long: `wikiscrape crawls a Feishu/Lark wiki space starting from a page URL and
converts every reachable page to Markdown.

Pages are discovered through the space tree API when the host is a known wiki
domain, and through navigation links and inline page data otherwise. Private
spaces need a session cookie (--cookies or the .wikiscrape config file).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// boolFlag reads a local or inherited boolean flag.
func boolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// newLogger builds the logger selected by the global flags.
func newLogger(cmd *cobra.Command) *slog.Logger {
	return log.NewLogger(cmd.ErrOrStderr(), log.Options{
		Verbose: boolFlag(cmd, "verbose"),
		JSON:    boolFlag(cmd, "log-json"),
	})
}
