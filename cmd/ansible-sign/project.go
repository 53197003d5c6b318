package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/filelist"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/project"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Act on an Ansible project directory",
}

var gpgSignCmd = &cobra.Command{
	Use:   "gpg-sign PROJECT_ROOT",
	Short: "Generate a checksum manifest and GPG sign it",
	Long: `Generate a checksum manifest of the files selected by MANIFEST.in, write it
to .ansible-sign/ and create a detached GnuPG signature next to it.`,
	Args: cobra.ExactArgs(1),
	RunE: runGPGSign,
}

var gpgVerifyCmd = &cobra.Command{
	Use:   "gpg-verify PROJECT_ROOT",
	Short: "Perform signature validation AND checksum verification on the checksum manifest",
	Long: `Verify the detached signature of the project's checksum manifest. When the
signature is good, every file is then checked against the manifest.`,
	Args: cobra.ExactArgs(1),
	RunE: runGPGVerify,
}

func init() {
	gpgSignCmd.Flags().String("fingerprint", "", "GPG private key fingerprint to sign with (default: first usable key in the keyring)")
	gpgSignCmd.Flags().BoolP("prompt-passphrase", "p", false, "prompt for a GPG key passphrase")
	gpgSignCmd.Flags().String("gnupg-home", "", "GnuPG home directory (default: usually ~/.gnupg)")

	gpgVerifyCmd.Flags().String("keyring", "", "GPG keyring file holding the public key (default: the user's keyring)")
	gpgVerifyCmd.Flags().String("gnupg-home", "", "GnuPG home directory (default: usually ~/.gnupg)")
	gpgVerifyCmd.Flags().String("output", "", "report format (pretty, plain, json, yaml; default: status lines)")

	projectCmd.AddCommand(gpgSignCmd)
	projectCmd.AddCommand(gpgVerifyCmd)
	rootCmd.AddCommand(projectCmd)
}

// stringFlag returns the flag value when set on the command line, else fallback.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

func runGPGSign(cmd *cobra.Command, args []string) error {
	coord, closeJournal, err := newCoordinator(true)
	if err != nil {
		return err
	}
	defer closeJournal()

	opts := project.SignOptions{
		Fingerprint: stringFlag(cmd, "fingerprint", cfg.GPG.Fingerprint),
		Home:        stringFlag(cmd, "gnupg-home", cfg.GPG.Home),
	}
	if prompt, _ := cmd.Flags().GetBool("prompt-passphrase"); prompt {
		opts.Passphrase, err = readPassphrase()
		if err != nil {
			return err
		}
	}

	report, err := coord.Sign(cmd.Context(), args[0], opts)
	out := cmd.OutOrStdout()
	if errors.Is(err, filelist.ErrNotFound) {
		printManifestInMissing(out)
		return reported(err)
	}
	var sigErr *project.SignatureError
	if err != nil && !errors.As(err, &sigErr) {
		return err
	}

	rep := reporter(cmd)
	if err == nil {
		rep.OK("GPG signing successful!")
	} else {
		rep.Error("GPG signing FAILED!")
		rep.Note(debugHint)
	}
	rep.Note("Checksum manifest: %s", report.Layout.ManifestPath())
	switch {
	case report.Result != nil:
		rep.Note("GPG summary: %s", report.Result.Summary)
	case sigErr != nil && sigErr.Err != nil:
		rep.Note("GPG summary: %v", sigErr.Err)
	}
	return reported(err)
}

// readPassphrase prompts on the terminal with echo disabled.
func readPassphrase() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for the passphrase prompt")
	}

	fmt.Fprint(os.Stderr, "GPG Key Passphrase: ")
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

func runGPGVerify(cmd *cobra.Command, args []string) error {
	coord, closeJournal, err := newCoordinator(true)
	if err != nil {
		return err
	}
	defer closeJournal()

	report, err := coord.Verify(cmd.Context(), args[0], project.VerifyOptions{
		Keyring: stringFlag(cmd, "keyring", cfg.GPG.Keyring),
		Home:    stringFlag(cmd, "gnupg-home", cfg.GPG.Home),
	})

	if format := stringFlag(cmd, "output", cfg.Output); format != "" {
		r := checksumReport(report.Layout, report.Outcome, err, report.Elapsed).WithSignature(report.Signature)
		if rerr := renderReport(cmd.OutOrStdout(), format, r); rerr != nil {
			return rerr
		}
		return reported(err)
	}

	rep := reporter(cmd)
	if printSignatureFailure(rep, err) {
		return reported(err)
	}
	if report.Signature != nil {
		rep.OK("%s", report.Signature.Summary)
	}
	printChecksumResult(rep, err)
	return reported(err)
}
