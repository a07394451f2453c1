package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownFunc renders an answer for display.
type MarkdownFunc func(text string) (string, error)

// NewMarkdown returns a glamour-backed MarkdownFunc wrapping at width
// columns (100 when width is not positive).
func NewMarkdown(width int) (MarkdownFunc, error) {
	if width <= 0 {
		width = 100
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}

	return func(text string) (string, error) {
		out, err := r.Render(text)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(out, "\n") + "\n", nil
	}, nil
}
