package output

import "github.com/charmbracelet/lipgloss"

// Color constants using the ANSI 256-color palette.
const (
	ColorPrimary = lipgloss.Color("39")
	ColorSuccess = lipgloss.Color("42")
	ColorWarning = lipgloss.Color("214")
	ColorDanger  = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("245")
)

// styles holds every style used by the pretty formatter and the reporter,
// built from one renderer so color can be switched off in one place.
type styles struct {
	header  lipgloss.Style
	footer  lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	danger  lipgloss.Style
	muted   lipgloss.Style
	path    lipgloss.Style
	note    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		header: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1),
		footer: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1),
		title:   r.NewStyle().Bold(true).Foreground(ColorPrimary),
		label:   r.NewStyle().Foreground(ColorMuted),
		value:   r.NewStyle().Foreground(lipgloss.Color("255")),
		success: r.NewStyle().Foreground(ColorSuccess),
		warning: r.NewStyle().Foreground(ColorWarning),
		danger:  r.NewStyle().Foreground(ColorDanger),
		muted:   r.NewStyle().Foreground(ColorMuted),
		path:    r.NewStyle().Foreground(lipgloss.Color("255")),
		note:    r.NewStyle().Foreground(ColorPrimary),
	}
}
