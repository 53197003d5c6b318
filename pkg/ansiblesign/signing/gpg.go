package signing

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/logging"
)

// DefaultTimeout bounds a single gpg invocation.
const DefaultTimeout = 2 * time.Minute

// DefaultBinary is looked up on PATH when GPG.Binary is empty.
const DefaultBinary = "gpg"

const statusPrefix = "[GNUPG:] "

// GPG signs and verifies by running the gpg binary.
type GPG struct {
	// Binary is the gpg executable name or path.
	Binary string

	// Timeout bounds each invocation. Zero means DefaultTimeout.
	Timeout time.Duration

	Logger *logging.Logger
}

var (
	_ Signer   = (*GPG)(nil)
	_ Verifier = (*GPG)(nil)
)

// NewGPG returns a GPG backend using binary (DefaultBinary when empty).
func NewGPG(binary string, timeout time.Duration) *GPG {
	return &GPG{
		Binary:  binary,
		Timeout: timeout,
		Logger:  logging.Get("signing"),
	}
}

// Sign writes an ASCII-armored detached signature to req.SignaturePath.
func (g *GPG) Sign(ctx context.Context, req SignRequest) (*Result, error) {
	args := g.baseArgs(req.Home)
	args = append(args, "--yes", "--armor", "--detach-sign", "--output", req.SignaturePath)
	if req.Fingerprint != "" {
		args = append(args, "--local-user", req.Fingerprint)
	}

	var stdin []byte
	if req.Passphrase != "" {
		args = append(args, "--pinentry-mode", "loopback", "--passphrase-fd", "0")
		stdin = []byte(req.Passphrase + "\n")
	}
	args = append(args, req.ManifestPath)

	run, err := g.run(ctx, args, stdin)
	if err != nil {
		return nil, err
	}
	return signResult(run), nil
}

// Verify checks req.SignaturePath against req.ManifestPath.
func (g *GPG) Verify(ctx context.Context, req VerifyRequest) (*Result, error) {
	args := g.baseArgs(req.Home)
	if req.Keyring != "" {
		keyring, err := filepath.Abs(req.Keyring)
		if err != nil {
			return nil, fmt.Errorf("resolving keyring %s: %w", req.Keyring, err)
		}
		args = append(args, "--no-default-keyring", "--keyring", keyring)
	}
	args = append(args, "--verify", req.SignaturePath, req.ManifestPath)

	run, err := g.run(ctx, args, nil)
	if err != nil {
		return nil, err
	}
	return verifyResult(run), nil
}

func (g *GPG) baseArgs(home string) []string {
	args := []string{"--batch", "--no-tty", "--status-fd", "1"}
	if home != "" {
		args = append(args, "--homedir", home)
	}
	return args
}

// runOutput is a finished gpg invocation.
type runOutput struct {
	status   []StatusLine
	stderr   string
	exitCode int
}

func (g *GPG) run(ctx context.Context, args []string, stdin []byte) (*runOutput, error) {
	binary := g.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, binary, err)
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	logger := g.logger()
	logger.Debug("running gpg", "binary", path, "args", strings.Join(args, " "))

	runErr := cmd.Run()
	out := &runOutput{
		status: ParseStatus(stdout.Bytes()),
		stderr: strings.TrimSpace(stderr.String()),
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		out.exitCode = exitErr.ExitCode()
	case ctx.Err() != nil:
		return nil, fmt.Errorf("gpg: %w", ctx.Err())
	default:
		return nil, fmt.Errorf("%w: running %s: %w", ErrUnavailable, path, runErr)
	}

	logger.Debug("gpg finished", "exit", out.exitCode, "status_lines", len(out.status))
	return out, nil
}

func (g *GPG) logger() *logging.Logger {
	if g.Logger == nil {
		return logging.Discard()
	}
	return g.Logger
}

// StatusLine is one "[GNUPG:] KEYWORD args..." line from --status-fd.
type StatusLine struct {
	Keyword string
	Args    []string
}

// ParseStatus extracts the machine-readable status lines from gpg output.
// Anything not prefixed with "[GNUPG:] " is ignored.
func ParseStatus(out []byte) []StatusLine {
	var lines []StatusLine
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		text, ok := strings.CutPrefix(sc.Text(), statusPrefix)
		if !ok {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, StatusLine{Keyword: fields[0], Args: fields[1:]})
	}
	return lines
}

func findStatus(lines []StatusLine, keyword string) (StatusLine, bool) {
	for _, l := range lines {
		if l.Keyword == keyword {
			return l, true
		}
	}
	return StatusLine{}, false
}

func signResult(run *runOutput) *Result {
	res := &Result{ExtraInformation: run.stderr}

	if _, ok := findStatus(run.status, "SIG_CREATED"); ok && run.exitCode == 0 {
		res.Success = true
		res.Summary = "signature created"
		return res
	}

	switch {
	case hasStatus(run.status, "BAD_PASSPHRASE"):
		res.Summary = "bad passphrase"
	case hasStatus(run.status, "MISSING_PASSPHRASE"):
		res.Summary = "missing passphrase"
	case hasStatus(run.status, "NO_SECKEY") || hasStatus(run.status, "INV_SGNR"):
		res.Summary = "no usable secret key"
	case hasStatus(run.status, "KEYEXPIRED"):
		res.Summary = "signing key expired"
	case hasStatus(run.status, "KEYREVOKED"):
		res.Summary = "signing key revoked"
	default:
		res.Summary = fmt.Sprintf("gpg exited with status %d", run.exitCode)
	}
	return res
}

func verifyResult(run *runOutput) *Result {
	res := &Result{ExtraInformation: run.stderr}

	switch {
	case hasStatus(run.status, "BADSIG"):
		res.Summary = "signature bad"
	case hasStatus(run.status, "NO_PUBKEY"):
		res.Summary = "no public key"
	case hasStatus(run.status, "EXPKEYSIG"):
		res.Summary = "signing key has expired"
	case hasStatus(run.status, "REVKEYSIG"):
		res.Summary = "signing key was revoked"
	case hasStatus(run.status, "EXPSIG"):
		res.Summary = "signature expired"
	case hasStatus(run.status, "ERRSIG"):
		res.Summary = "signature error"
	case hasStatus(run.status, "NODATA"):
		res.Summary = "no signature found"
	default:
		good, hasGood := findStatus(run.status, "GOODSIG")
		valid, hasValid := findStatus(run.status, "VALIDSIG")
		if hasGood && hasValid && run.exitCode == 0 {
			res.Success = true
			res.Summary = "signature valid"
			if len(good.Args) > 1 {
				res.Summary += " (" + strings.Join(good.Args[1:], " ") + ")"
			}
			if len(valid.Args) > 0 {
				res.ExtraInformation = strings.TrimSpace("fingerprint " + valid.Args[0] + "\n" + res.ExtraInformation)
			}
			return res
		}
		res.Summary = fmt.Sprintf("gpg exited with status %d", run.exitCode)
	}
	return res
}

func hasStatus(lines []StatusLine, keyword string) bool {
	_, ok := findStatus(lines, keyword)
	return ok
}
