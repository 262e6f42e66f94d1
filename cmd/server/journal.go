package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"signal_relay/internal/database"
	"signal_relay/internal/repository"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the signal journal",
	Long: `Query and prune the SQLite signal journal written by "relay serve" when
JOURNAL_PATH is set.

Subcommands:
  list   - List recent signals, newest first
  show   - Print one signal as JSON
  prune  - Delete signals older than a given age

Examples:
  relay journal list --page 2
  relay journal show 01J9Z6Q8M3X4T1V7B2N5K0C8RD
  relay journal prune --older-than 720h`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent signals",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <signal-id>",
	Short: "Print one signal as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old signals",
	Args:  cobra.NoArgs,
	RunE:  runJournalPrune,
}

var (
	journalDBPath    string
	journalPage      int
	journalPerPage   int
	journalOlderThan time.Duration
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalPruneCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal (default $JOURNAL_PATH)")
	journalListCmd.Flags().IntVarP(&journalPage, "page", "p", 1, "page number")
	journalListCmd.Flags().IntVarP(&journalPerPage, "limit", "n", repository.DefaultLimit, "signals per page")
	journalPruneCmd.Flags().DurationVar(&journalOlderThan, "older-than", 30*24*time.Hour, "delete signals received before now minus this age")
}

func openJournal() (*database.DB, *repository.SignalRepository, error) {
	path := journalDBPath
	if path == "" {
		cfg, _, err := loadConfig()
		if err != nil {
			return nil, nil, err
		}
		path = cfg.Journal.Path
	}
	if path == "" {
		return nil, nil, errors.New("no journal configured: pass --db or set JOURNAL_PATH")
	}

	db, err := database.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}
	return db, repository.NewSignalRepository(db), nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	db, repo, err := openJournal()
	if err != nil {
		return err
	}
	defer db.Close()

	page, err := repo.List(repository.PageToPagination(journalPage, journalPerPage))
	if err != nil {
		return fmt.Errorf("list signals: %w", err)
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRECEIVED\tACTION\tSYMBOL\tSIZE\tSTAGE\tSTATUS\tERROR")
	for _, s := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.ReceivedAt.Format(time.RFC3339), s.Action, s.Symbol, s.Size, s.Stage, s.Status, s.ErrorCategory)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "page %d of %d (%d signals)\n", page.Page, page.TotalPages, page.Total)
	return nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	db, repo, err := openJournal()
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := repo.GetByID(args[0])
	if err != nil {
		return fmt.Errorf("get signal: %w", err)
	}
	if s == nil {
		return fmt.Errorf("signal %s not found", args[0])
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func runJournalPrune(cmd *cobra.Command, args []string) error {
	db, repo, err := openJournal()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := repo.DeleteOlderThan(time.Now().Add(-journalOlderThan))
	if err != nil {
		return fmt.Errorf("prune signals: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d signals\n", n)
	return nil
}
