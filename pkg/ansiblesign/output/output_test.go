package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/checksum"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/history"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/signing"
)

func TestReporterNoColor(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)

	r.OK("Checksum validation succeeded.")
	r.Error("Checksum validation failed.")
	r.Note("See the documentation for more information.")

	assert.Equal(t,
		"[OK   ] Checksum validation succeeded.\n"+
			"[ERROR] Checksum validation failed.\n"+
			"[NOTE ] See the documentation for more information.\n",
		buf.String())
	assert.True(t, r.NoColor())
}

func TestReporterFormatsArgs(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf, false).Error("Signature file does not exist: %s", "/p/.ansible-sign/sha256sum.txt.sig")

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "["), out)
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "] Signature file does not exist: /p/.ansible-sign/sha256sum.txt.sig\n")
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"json", "plain", "pretty", "yaml"}, Available())

	_, err := Get("xml")
	assert.True(t, errors.Is(err, ErrUnknownFormatter))

	reg := NewRegistry()
	reg.Register("plain", func() Formatter { return &PlainFormatter{} })
	f, err := reg.Get("plain")
	require.NoError(t, err)
	assert.IsType(t, &PlainFormatter{}, f)
}

func mismatchReport() *Report {
	outcome := &checksum.Outcome{
		Kind:  checksum.KindChecksumMismatch,
		Files: 3,
		Bytes: 2048,
		Mismatches: []checksum.Mismatch{
			{Path: "roles/web/tasks/main.yml", Expected: "aaaa", Actual: "bbbb"},
		},
	}
	err := &checksum.ChecksumMismatchError{Mismatches: outcome.Mismatches}
	return NewReport("/proj", "sha256", outcome, err)
}

func TestNewReport(t *testing.T) {
	r := mismatchReport()
	assert.Equal(t, "checksum_mismatch", r.Kind)
	assert.False(t, r.Success())
	assert.Contains(t, r.Error, "roles/web/tasks/main.yml")

	ok := NewReport("/proj", "sha256", &checksum.Outcome{Kind: checksum.KindSuccess, Files: 2}, nil)
	assert.True(t, ok.Success())

	failed := NewReport("/proj", "sha256", nil, errors.New("boom"))
	assert.Equal(t, KindError, failed.Kind)

	bad := NewReport("/proj", "sha256", nil, nil).WithSignature(&signing.Result{Summary: "signature bad"})
	assert.Equal(t, KindSignatureInvalid, bad.Kind)
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, mismatchReport()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "checksum_mismatch", doc["kind"])
	assert.Equal(t, false, doc["success"])
	assert.Equal(t, "2.0 KiB", doc["bytes_human"])

	mismatches, ok := doc["mismatches"].([]any)
	require.True(t, ok)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "roles/web/tasks/main.yml", mismatches[0].(map[string]any)["path"])
}

func TestYAMLFormatter(t *testing.T) {
	r := NewReport("/proj", "blake3", &checksum.Outcome{
		Kind: checksum.KindStructuralMismatch,
		Diff: checksum.DiffResult{Added: []string{"new.yml"}, Removed: []string{"old.yml"}},
	}, nil)

	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, r))

	var doc document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "structural_mismatch", doc.Kind)
	assert.Equal(t, []string{"new.yml"}, doc.Added)
	assert.Equal(t, []string{"old.yml"}, doc.Removed)
	assert.Equal(t, "blake3", doc.Algorithm)
}

func TestPlainFormatter(t *testing.T) {
	r := mismatchReport().WithSignature(&signing.Result{Success: true, Summary: "signature valid"})
	r.Kind = string(checksum.KindChecksumMismatch)

	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, r))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, "checksum_mismatch\tsha256\t/proj\t3 files\t2048 bytes", lines[0])
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"changed", "roles/web/tasks/main.yml", "aaaa", "bbbb"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"signature", "signature", "valid"}, strings.Fields(lines[2]))
	assert.True(t, strings.HasPrefix(lines[3], "error"), lines[3])
}

func TestPrettyFormatter(t *testing.T) {
	f := &PrettyFormatter{}
	f.DisableColor()

	var buf bytes.Buffer
	r := mismatchReport()
	r.Duration = 1500 * time.Millisecond
	require.NoError(t, f.Format(&buf, r))

	out := buf.String()
	assert.Contains(t, out, "/proj")
	assert.Contains(t, out, "Checksum validation failed")
	assert.Contains(t, out, "roles/web/tasks/main.yml")
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "1.5s")
	assert.NotContains(t, out, "\x1b[", "no escape codes with color disabled")

	buf.Reset()
	require.NoError(t, f.Format(&buf, NewReport("/proj", "sha256", &checksum.Outcome{Kind: checksum.KindSuccess}, nil)))
	assert.Contains(t, buf.String(), "Checksum validation succeeded")
}

func TestWriteHistory(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []history.Entry{
		{ID: "id-1", Timestamp: now.Add(-2 * time.Hour), Operation: history.OpVerify, Outcome: "success", Files: 4, Root: "/proj"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHistory(&buf, entries, now))
	out := buf.String()
	assert.Contains(t, out, "OPERATION")
	assert.Contains(t, out, "id-1")
	assert.Contains(t, out, "2 hours ago")

	buf.Reset()
	require.NoError(t, WriteHistoryEntry(&buf, &history.Entry{ID: "id-2", Bytes: 1024, Detail: "checksum mismatch"}))
	assert.Contains(t, buf.String(), "1.0 KiB")
	assert.Contains(t, buf.String(), "checksum mismatch")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}
