package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/relayfetch/internal/config"
	"github.com/nao1215/relayfetch/internal/history"
)

// defaultHistoryLimit caps how many records the history command prints
// when --limit is not given.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past fetch outcomes from the history database",
		Long: `History lists fetch outcomes previously saved with 'fetch --save',
newest first.

Examples:
  # Show the 20 most recent fetches
  relayfetch history

  # Show the last 50 fetches made through the "work" profile
  relayfetch history --profile work --limit 50`,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of records to show")
	cmd.Flags().StringP("profile", "p", "",
		"Only show fetches made through this profile")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}

	profile, err := cmd.Flags().GetString("profile")
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

	// Inspecting history must never create an empty database.
	db, err := history.Open(dbDir, history.Options{})
	if err != nil {
		return fmt.Errorf("no fetch history available: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	var records []history.Record
	if profile != "" {
		records, err = db.ByProfile(ctx, profile, limit)
	} else {
		records, err = db.Recent(ctx, limit)
	}
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No fetch records found.")
		return nil
	}

	for _, rec := range records {
		printRecord(cmd, rec)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d record(s)\n", len(records))

	return nil
}

// printRecord writes one history record in a compact one-line-per-fetch
// format.
func printRecord(cmd *cobra.Command, rec history.Record) {
	status := "ERR"
	if rec.Error == "" && rec.StatusCode != 0 {
		status = fmt.Sprintf("%d", rec.StatusCode)
	}

	route := "direct"
	switch {
	case rec.FellBack:
		route = "fallback"
	case rec.ViaProxy:
		route = "proxy"
	}

	profile := rec.Profile
	if profile == "" {
		profile = "-"
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s  %-4s %-8s %-12s %s\n",
		rec.Timestamp.Local().Format(time.DateTime),
		status,
		route,
		profile,
		rec.URL,
	)
	if rec.Error != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%21s %s\n", "error:", rec.Error)
	}
}
