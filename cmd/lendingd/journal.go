package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"libralend/internal/config"
	"libralend/internal/journal"
)

var (
	journalFrom  int64
	journalLimit int
)

var journalCmd = &cobra.Command{
	Use:   "journal [item]",
	Short: "Print recorded lending transitions",
	Long: `Without an item, prints every journal entry after --from, up to --limit
entries. With an item, prints that item's full history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Journal.DSN == "" {
			return errors.New("journal requires journal.dsn or DATABASE_URL")
		}

		db, err := sql.Open("postgres", cfg.Journal.DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		j := journal.New(db, nil)

		var entries []journal.Entry
		if len(args) == 1 {
			entries, err = j.Load(cmd.Context(), args[0])
		} else {
			entries, err = j.Stream(cmd.Context(), journalFrom, journalLimit)
		}
		if err != nil {
			return err
		}

		printEntries(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	journalCmd.Flags().Int64Var(&journalFrom, "from", 0, "print entries with an id greater than this")
	journalCmd.Flags().IntVar(&journalLimit, "limit", 100, "maximum number of entries")
	rootCmd.AddCommand(journalCmd)
}

func printEntries(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no journal entries")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%6d  %s  %-24s %s -> %s (%s)\n",
			e.ID, e.OccurredAt.Format(time.RFC3339Nano), e.Item, e.FromStatus, e.ToStatus, e.Cause)
	}
}
