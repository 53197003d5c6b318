// Package main provides the entry point for the ansible-sign CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := Execute(ctx)
	stop()
	_ = logging.Close()

	if err != nil {
		if !isReported(err) {
			printError("%v", err)
		}
		os.Exit(ExitCodeForError(err))
	}
}
