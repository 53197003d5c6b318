package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build-time variables set by go build -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version, commit hash, and build date of ansible-sign.`,
	Args:  cobra.NoArgs,
	Run:   runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ansible-sign %s\n", version)
	fmt.Fprintf(out, "  commit:  %s\n", commit)
	fmt.Fprintf(out, "  built:   %s\n", date)
	fmt.Fprintf(out, "  go:      %s\n", runtime.Version())
	fmt.Fprintf(out, "  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
