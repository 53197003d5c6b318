package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/checksum"
)

// PrettyFormatter renders a boxed, colored report for terminals.
type PrettyFormatter struct {
	NoColor bool
}

// ColorDisabler is implemented by formatters that can emit color.
type ColorDisabler interface {
	DisableColor()
}

// DisableColor turns styling off.
func (f *PrettyFormatter) DisableColor() { f.NoColor = true }

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	var renderer *lipgloss.Renderer
	if f.NoColor {
		renderer = newRenderer(w, true)
	} else {
		renderer = lipgloss.DefaultRenderer()
	}
	s := newStyles(renderer)

	w.WriteString(f.formatHeader(s, r))
	w.WriteString("\n")
	w.WriteString(f.formatBody(s, r))
	w.WriteString(f.formatFooter(s, r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatHeader(s styles, r *Report) string {
	lines := []string{
		fmt.Sprintf("%s %s", s.label.Render("Project:"), s.value.Render(r.Root)),
		fmt.Sprintf("%s %s", s.label.Render("Algorithm:"), s.value.Render(r.Algorithm)),
	}
	if r.Signature != nil {
		sig := s.success.Render(r.Signature.Summary)
		if !r.Signature.Success {
			sig = s.danger.Render(r.Signature.Summary)
		}
		lines = append(lines, fmt.Sprintf("%s %s", s.label.Render("Signature:"), sig))
	}
	return s.header.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatBody(s styles, r *Report) string {
	var sb strings.Builder

	if r.Success() {
		sb.WriteString(s.success.Render("  Checksum validation succeeded"))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(s.danger.Bold(true).Render("  " + kindTitle(r.Kind)))
	sb.WriteString("\n")

	for _, p := range r.Added {
		sb.WriteString(fmt.Sprintf("  %s %s\n", s.warning.Render("added  "), s.path.Render(p)))
	}
	for _, p := range r.Removed {
		sb.WriteString(fmt.Sprintf("  %s %s\n", s.warning.Render("removed"), s.path.Render(p)))
	}
	for _, m := range r.Mismatches {
		sb.WriteString(fmt.Sprintf("  %s %s\n", s.danger.Render("changed"), s.path.Render(m.Path)))
		sb.WriteString(s.muted.Render(fmt.Sprintf("          expected %s\n          actual   %s", m.Expected, m.Actual)))
		sb.WriteString("\n")
	}
	if r.Error != "" && len(r.Added)+len(r.Removed)+len(r.Mismatches) == 0 {
		sb.WriteString("  " + s.muted.Render(r.Error) + "\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(s styles, r *Report) string {
	parts := []string{
		fmt.Sprintf("%s %s", s.label.Render("Files:"), s.value.Render(fmt.Sprintf("%d", r.Files))),
		fmt.Sprintf("%s %s", s.label.Render("Total:"), s.title.Render(humanize.IBytes(uint64(r.Bytes)))),
	}
	if r.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%s %s", s.label.Render("Took:"), s.value.Render(formatDuration(r.Duration))))
	}
	return s.footer.Render(strings.Join(parts, "  "))
}

func kindTitle(kind string) string {
	switch kind {
	case string(checksum.KindStructuralMismatch):
		return "Files differ from the declared file list"
	case string(checksum.KindChecksumMismatch):
		return "Checksum validation failed"
	case KindSignatureInvalid:
		return "Signature verification failed"
	case KindSigningFailed:
		return "Signing failed"
	default:
		return "Validation failed"
	}
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var (
	_ Formatter     = (*PrettyFormatter)(nil)
	_ ColorDisabler = (*PrettyFormatter)(nil)
)
