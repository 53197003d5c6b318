package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/config"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage ansible-sign configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/ansible-sign/config.yaml (if set)
  2. ~/.config/ansible-sign/config.yaml

Environment variables can override config file settings using the
ANSIBLE_SIGN_ prefix:
  ANSIBLE_SIGN_ALGORITHM=blake3
  ANSIBLE_SIGN_WORKERS=8
  ANSIBLE_SIGN_GPG_HOME=/srv/gnupg

NO_COLOR disables colored output.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the configuration after merging the file, environment and flags.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if configFileUsed != "" {
		fmt.Fprintf(out, "Config file: %s\n\n", configFileUsed)
	} else {
		fmt.Fprintln(out, "Config file: (using defaults, no file found)")
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintln(out, "----------------------")
	writeConfig(out, cfg)

	fmt.Fprintln(out, "\nEnvironment Overrides:")
	fmt.Fprintln(out, "----------------------")
	anyOverrides := false
	for _, name := range envOverrides {
		if val := os.Getenv(name); val != "" {
			fmt.Fprintf(out, "%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Fprintln(out, "(none)")
	}
	return nil
}

var envOverrides = []string{
	"ANSIBLE_SIGN_ALGORITHM",
	"ANSIBLE_SIGN_WORKERS",
	"ANSIBLE_SIGN_DIFFER",
	"ANSIBLE_SIGN_OUTPUT",
	"ANSIBLE_SIGN_GPG_BINARY",
	"ANSIBLE_SIGN_GPG_HOME",
	"ANSIBLE_SIGN_GPG_KEYRING",
	"ANSIBLE_SIGN_GPG_FINGERPRINT",
	"ANSIBLE_SIGN_HISTORY_ENABLED",
	"ANSIBLE_SIGN_HISTORY_PATH",
	"ANSIBLE_SIGN_LOGGING_LEVEL",
	"ANSIBLE_SIGN_LOGGING_PATH",
	"NO_COLOR",
}

func writeConfig(w io.Writer, c *config.Config) {
	logPath := c.Logging.Path
	if logPath == "" {
		logPath = logging.DefaultLogPath()
	}

	fmt.Fprintf(w, "algorithm:              %s\n", c.Algorithm)
	fmt.Fprintf(w, "workers:                %d\n", c.Workers)
	fmt.Fprintf(w, "differ:                 %s\n", c.Differ)
	fmt.Fprintf(w, "exclude:                %v\n", c.Exclude)
	fmt.Fprintf(w, "all_mismatches:         %t\n", c.AllMismatches)
	fmt.Fprintf(w, "nocolor:                %t\n", c.NoColor)
	fmt.Fprintf(w, "output:                 %q\n", c.Output)
	fmt.Fprintf(w, "gpg.binary:             %s\n", c.GPG.Binary)
	fmt.Fprintf(w, "gpg.home:               %s\n", c.GPG.Home)
	fmt.Fprintf(w, "gpg.keyring:            %s\n", c.GPG.Keyring)
	fmt.Fprintf(w, "gpg.fingerprint:        %s\n", c.GPG.Fingerprint)
	fmt.Fprintf(w, "gpg.timeout:            %s\n", c.GPG.Timeout)
	fmt.Fprintf(w, "history.enabled:        %t\n", c.History.Enabled)
	fmt.Fprintf(w, "history.path:           %s\n", c.History.Path)
	fmt.Fprintf(w, "history.retention_days: %d\n", c.History.RetentionDays)
	fmt.Fprintf(w, "logging.level:          %s\n", c.Logging.Level)
	fmt.Fprintf(w, "logging.path:           %s\n", logPath)
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath, _, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	logging.Get("cli").Debug("opening config", "path", configPath, "editor", editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, created, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	out := cmd.OutOrStdout()
	if !created {
		fmt.Fprintf(out, "Config file already exists: %s\n", configPath)
		fmt.Fprintln(out, "Use 'ansible-sign config edit' to modify it.")
		return nil
	}
	fmt.Fprintf(out, "Created default config file: %s\n", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	if configFileUsed != "" {
		fmt.Fprintln(cmd.OutOrStdout(), configFileUsed)
		return nil
	}
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), configPath)
	return nil
}
