package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter writes one "STATUS<TAB>PATH" row per problem file after a
// summary line. No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	fmt.Fprintf(w, "%s\t%s\t%s\t%d files\t%d bytes\n", r.Kind, r.Algorithm, r.Root, r.Files, r.Bytes)

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, p := range r.Added {
		fmt.Fprintf(tw, "added\t%s\n", p)
	}
	for _, p := range r.Removed {
		fmt.Fprintf(tw, "removed\t%s\n", p)
	}
	for _, m := range r.Mismatches {
		fmt.Fprintf(tw, "changed\t%s\t%s\t%s\n", m.Path, m.Expected, m.Actual)
	}
	if r.Signature != nil {
		fmt.Fprintf(tw, "signature\t%s\n", r.Signature.Summary)
	}
	if r.Error != "" {
		fmt.Fprintf(tw, "error\t%s\n", r.Error)
	}
	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
