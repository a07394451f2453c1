package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles for the diagnostic labels written to stderr. They are bound to the
// stderr writer so pipes and files get plain text.
type styles struct {
	verbose lipgloss.Style
	usage   lipgloss.Style
	errors  lipgloss.Style
	dim     lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)

	return styles{
		verbose: r.NewStyle().Foreground(lipgloss.Color("5")), // magenta
		usage:   r.NewStyle().Foreground(lipgloss.Color("6")), // cyan
		errors:  r.NewStyle().Foreground(lipgloss.Color("1")), // red
		dim:     r.NewStyle().Foreground(lipgloss.Color("8")), // gray
	}
}
