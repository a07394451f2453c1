// Package prompt decides where the main prompt comes from and assembles the
// final user message from its segments.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/germanamz/mpipe/pkg/config"
)

// Source tells where the main prompt was read from.
type Source string

const (
	SourceArgument Source = "argument"
	SourceStdin    Source = "stdin"
)

var (
	// ErrNoPrompt is returned when no argument is given and stdin is a terminal.
	ErrNoPrompt = errors.New("no prompt provided: pass an argument or pipe stdin")
	// ErrEmptyPrompt is returned when piped stdin holds only whitespace.
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// Input is the resolved main prompt.
type Input struct {
	Text   string
	Source Source
}

// Resolve returns the argument verbatim when one is given. Otherwise it reads
// all of stdin and trims surrounding whitespace. Stdin is never read when it
// is interactive.
func Resolve(arg config.Optional[string], stdin io.Reader, interactive bool) (Input, error) {
	if text, ok := arg.Get(); ok {
		return Input{Text: text, Source: SourceArgument}, nil
	}

	if interactive || stdin == nil {
		return Input{}, ErrNoPrompt
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return Input{}, fmt.Errorf("read stdin: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return Input{}, ErrEmptyPrompt
	}

	return Input{Text: text, Source: SourceStdin}, nil
}

// Compose joins the present segments with a blank line between each pair.
// Blank pre and post segments are treated as absent.
func Compose(pre config.Optional[string], main string, post config.Optional[string]) string {
	parts := make([]string, 0, 3)

	if v, ok := pre.Get(); ok && strings.TrimSpace(v) != "" {
		parts = append(parts, v)
	}
	parts = append(parts, main)
	if v, ok := post.Get(); ok && strings.TrimSpace(v) != "" {
		parts = append(parts, v)
	}

	return strings.Join(parts, "\n\n")
}
