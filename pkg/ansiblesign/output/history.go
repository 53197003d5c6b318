package output

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/history"
)

// WriteHistory prints journal entries as an aligned table.
func WriteHistory(w io.Writer, entries []history.Entry, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tOPERATION\tOUTCOME\tFILES\tROOT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.ID,
			humanize.RelTime(e.Timestamp, now, "ago", "from now"),
			e.Operation,
			e.Outcome,
			e.Files,
			e.Root,
		)
	}
	return tw.Flush()
}

// WriteHistoryEntry prints one entry in full.
func WriteHistoryEntry(w io.Writer, e *history.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", e.ID)
	fmt.Fprintf(tw, "Time:\t%s\n", e.Timestamp.Local().Format(time.RFC3339))
	fmt.Fprintf(tw, "Operation:\t%s\n", e.Operation)
	fmt.Fprintf(tw, "Root:\t%s\n", e.Root)
	fmt.Fprintf(tw, "Algorithm:\t%s\n", e.Algorithm)
	fmt.Fprintf(tw, "Outcome:\t%s\n", e.Outcome)
	fmt.Fprintf(tw, "Files:\t%d (%s)\n", e.Files, humanize.IBytes(uint64(e.Bytes)))
	if e.Detail != "" {
		fmt.Fprintf(tw, "Detail:\t%s\n", e.Detail)
	}
	return tw.Flush()
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
