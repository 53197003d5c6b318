package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Reporter prints one-line status messages with a bracketed label.
type Reporter struct {
	w       io.Writer
	noColor bool
	styles  styles
}

// NewReporter returns a Reporter writing to w. With noColor set the labels
// are plain text regardless of the terminal.
func NewReporter(w io.Writer, noColor bool) *Reporter {
	return &Reporter{w: w, noColor: noColor, styles: newStyles(newRenderer(w, noColor))}
}

func newRenderer(w io.Writer, noColor bool) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// OK prints "[OK   ] msg".
func (r *Reporter) OK(format string, args ...any) {
	r.line("OK   ", r.styles.success, format, args...)
}

// Error prints "[ERROR] msg".
func (r *Reporter) Error(format string, args ...any) {
	r.line("ERROR", r.styles.danger, format, args...)
}

// Note prints "[NOTE ] msg".
func (r *Reporter) Note(format string, args ...any) {
	r.line("NOTE ", r.styles.note, format, args...)
}

// Writer returns the underlying writer.
func (r *Reporter) Writer() io.Writer {
	return r.w
}

// NoColor reports whether color is disabled.
func (r *Reporter) NoColor() bool {
	return r.noColor
}

func (r *Reporter) line(label string, style lipgloss.Style, format string, args ...any) {
	if !r.noColor {
		label = style.Render(label)
	}
	_, _ = fmt.Fprintf(r.w, "[%s] %s\n", label, fmt.Sprintf(format, args...))
}
