package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/checksum"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/config"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/digest"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/history"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/logging"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/output"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/project"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/signing"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/tuner"
)

var (
	cfgFile string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config

	// configFileUsed is empty when no config file was found.
	configFileUsed string

	rootCmd = &cobra.Command{
		Use:   "ansible-sign",
		Short: "Sign and verify Ansible content",
		Long: `ansible-sign builds a checksum manifest of an Ansible project, signs it
with GnuPG, and verifies both the signature and the checksums later.

The files that make up a project are selected by its MANIFEST.in.

Examples:
  ansible-sign project gpg-sign .                 # Generate manifest and sign it
  ansible-sign project gpg-verify .               # Verify signature and checksums
  ansible-sign project checksum validate .        # Verify checksums only
  ansible-sign project checksum generate -o - .   # Print the manifest
  ansible-sign history                            # View past runs`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/ansible-sign/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "print debug output")
	rootCmd.PersistentFlags().Bool("nocolor", false, "disable color output")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "override hashing worker count (0=auto)")
	rootCmd.PersistentFlags().String("algorithm", "", "digest algorithm for new manifests (sha256, sha512, blake2b, blake3)")
	rootCmd.PersistentFlags().String("differ", "", "file selection strategy (manifest-in, walk)")
	rootCmd.PersistentFlags().Bool("all-mismatches", false, "report every changed file instead of the first")
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"debug":          "debug",
	"nocolor":        "nocolor",
	"workers":        "workers",
	"algorithm":      "algorithm",
	"differ":         "differ",
	"all-mismatches": "all_mismatches",
}

// setup loads configuration and starts logging.
func setup(cmd *cobra.Command, _ []string) error {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd); err != nil {
		return err
	}
	if err := config.Read(v); err != nil {
		return err
	}

	cfg, err = config.Decode(v)
	if err != nil {
		return err
	}
	configFileUsed = v.ConfigFileUsed()

	logCfg, err := cfg.LoggingConfig()
	if err != nil {
		return err
	}
	logCfg.ConsoleWriter = cmd.ErrOrStderr()
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	logging.Get("cli").Debug("starting", "command", cmd.CommandPath(), "config", configFileUsed)
	return nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	flags := cmd.Flags()
	for flag, key := range flagKeys {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// newCoordinator wires the engine, GnuPG backend and journal from cfg. The
// returned close function releases the journal.
func newCoordinator(withJournal bool) (*project.Coordinator, func(), error) {
	alg, err := digest.Lookup(cfg.Algorithm)
	if err != nil {
		return nil, nil, err
	}

	tune := tuner.Auto(cfg.Workers)
	differ, err := checksum.NewDiffer(cfg.Differ, tune.WalkWorkers, cfg.Exclude)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.Get("cli")
	logger.Debug("tuned workers", "walk", tune.WalkWorkers, "hash", tune.HashWorkers, "differ", differ.Name())

	gpg := signing.NewGPG(cfg.GPG.Binary, cfg.GPG.Timeout)
	coord := &project.Coordinator{
		Engine: checksum.New(
			checksum.WithAlgorithm(alg),
			checksum.WithDiffer(differ),
			checksum.WithWorkers(tune.HashWorkers),
			checksum.WithCollectAll(cfg.AllMismatches),
		),
		Signer:   gpg,
		Verifier: gpg,
		Logger:   logging.Get("project"),
	}

	closeFn := func() {}
	if withJournal && cfg.History.Enabled {
		journal, err := history.Open(cfg.History.Path)
		if err != nil {
			// A broken journal never blocks signing or verification.
			logger.Warn("history disabled", "path", cfg.History.Path, "error", err)
		} else {
			coord.Journal = journal
			closeFn = func() {
				if err := journal.Close(); err != nil {
					logger.Warn("failed to close history", "error", err)
				}
			}
		}
	}

	return coord, closeFn, nil
}

// reporter returns the status line printer for cmd's output.
func reporter(cmd *cobra.Command) *output.Reporter {
	return output.NewReporter(cmd.OutOrStdout(), cfg.NoColor)
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
