package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/filelist"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/logging"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/scanner"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch PROJECT_ROOT",
	Short: "Re-validate checksums whenever the project changes",
	Long: `Watch the project tree and validate it against its checksum manifest after
every burst of changes. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("debounce", watcher.DefaultDebounce, "quiet period before re-validating")
	projectCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	coord, closeJournal, err := newCoordinator(false)
	if err != nil {
		return err
	}
	defer closeJournal()

	root := args[0]
	debounce, _ := cmd.Flags().GetDuration("debounce")
	exclude := append([]string{filelist.MetadataDir}, scanner.DefaultExclusions...)

	w, err := watcher.New(watcher.Options{
		Exclude:  exclude,
		Debounce: debounce,
		Logger:   logging.Get("watcher"),
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	if err := w.Watch(root); err != nil {
		return err
	}

	rep := reporter(cmd)
	validate := func() {
		_, err := coord.ValidateChecksums(cmd.Context(), root)
		printChecksumResult(rep, err)
	}

	rep.Note("Watching %s (%d directories). Press Ctrl+C to stop.", root, w.Watched())
	validate()

	w.Run(cmd.Context(), func(changed []string) {
		rep.Note("Changed: %s", summarize(changed, 3))
		validate()
	})
	return nil
}

// summarize lists up to n paths and counts the rest.
func summarize(paths []string, n int) string {
	if len(paths) <= n {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(paths[:n], ", "), len(paths)-n)
}
