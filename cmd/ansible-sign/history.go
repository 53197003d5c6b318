package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/config"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/history"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	Long: `View the history of sign, verify and checksum runs.

Each run records the project, the digest algorithm, how many files were
covered and how it ended.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than history.retention_days.`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func openJournal() (*history.Journal, error) {
	j, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return j, nil
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history entries found.")
		fmt.Fprintln(out, "Run 'ansible-sign project gpg-sign <path>' to sign a project.")
		return nil
	}

	if err := output.WriteHistory(out, entries, time.Now()); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Fprintln(out, "Use 'ansible-sign history show <id>' for details on a specific entry.")
	return nil
}

// runHistoryShow displays one run.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	entry, err := j.Get(args[0])
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no history entry with id %q", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}
	return output.WriteHistoryEntry(cmd.OutOrStdout(), entry)
}

// runHistoryClean removes entries past the retention period.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cleaning history entries older than %d days...\n", retentionDays)

	removed, err := j.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	fmt.Fprintf(out, "Removed %d entries.\n", removed)
	return nil
}
