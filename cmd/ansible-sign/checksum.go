package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/filelist"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/project"
)

var checksumCmd = &cobra.Command{
	Use:   "checksum",
	Short: "Generate or validate a checksum manifest without signing",
}

var checksumGenerateCmd = &cobra.Command{
	Use:   "generate PROJECT_ROOT",
	Short: "Generate the checksum manifest",
	Long: `Hash every file selected by MANIFEST.in and write the manifest.

By default the manifest goes to .ansible-sign/<algorithm>sum.txt inside the
project. Use -o - to print it instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runChecksumGenerate,
}

var checksumValidateCmd = &cobra.Command{
	Use:   "validate PROJECT_ROOT",
	Short: "Validate the project against its checksum manifest",
	Long: `Check that the project's files match the checksum manifest. The signature
is not checked; use gpg-verify for that.`,
	Args: cobra.ExactArgs(1),
	RunE: runChecksumValidate,
}

func init() {
	checksumGenerateCmd.Flags().StringP("output", "o", "", "write the manifest to FILE, or - for stdout")
	checksumValidateCmd.Flags().String("output", "", "report format (pretty, plain, json, yaml; default: status lines)")

	checksumCmd.AddCommand(checksumGenerateCmd)
	checksumCmd.AddCommand(checksumValidateCmd)
	projectCmd.AddCommand(checksumCmd)
}

func runChecksumGenerate(cmd *cobra.Command, args []string) error {
	coord, closeJournal, err := newCoordinator(true)
	if err != nil {
		return err
	}
	defer closeJournal()

	dest, _ := cmd.Flags().GetString("output")
	dest, m, err := coord.Export(cmd.Context(), args[0], cmd.OutOrStdout(), dest)
	if errors.Is(err, filelist.ErrNotFound) {
		printManifestInMissing(cmd.OutOrStdout())
		return reported(err)
	}
	if err != nil {
		return err
	}

	if dest != project.Stdout {
		reporter(cmd).OK("Wrote checksum manifest: %s (%d files)", dest, m.Len())
	}
	return nil
}

func runChecksumValidate(cmd *cobra.Command, args []string) error {
	coord, closeJournal, err := newCoordinator(true)
	if err != nil {
		return err
	}
	defer closeJournal()

	root := args[0]
	start := time.Now()
	outcome, err := coord.ValidateChecksums(cmd.Context(), root)

	if format := stringFlag(cmd, "output", cfg.Output); format != "" {
		layout, _ := project.Discover(root, coord.Engine.Algorithm)
		r := checksumReport(layout, outcome, err, time.Since(start))
		if rerr := renderReport(cmd.OutOrStdout(), format, r); rerr != nil {
			return rerr
		}
		return reported(err)
	}

	printChecksumResult(reporter(cmd), err)
	return reported(err)
}
