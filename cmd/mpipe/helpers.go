package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/germanamz/mpipe/pkg/config"
	"github.com/germanamz/mpipe/pkg/pipeline"
	"github.com/joho/godotenv"
	"golang.org/x/term"
)

// streams is everything the commands read from or write to the process.
type streams struct {
	in     io.Reader
	out    io.Writer
	err    io.Writer
	inTTY  bool
	outTTY bool
	errTTY bool
	width  int

	lookupEnv config.LookupEnv

	// Test hooks; nil means the real implementation.
	providers pipeline.ProviderFunc
	wizard    func(name string, current config.Profile) (config.Profile, error)
	confirm   func(title string) (bool, error)
}

func osStreams() streams {
	width := 0
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil { //nolint:gosec // fd fits in int
		width = w
	}

	return streams{
		in:        os.Stdin,
		out:       os.Stdout,
		err:       os.Stderr,
		inTTY:     isTerminal(os.Stdin),
		outTTY:    isTerminal(os.Stdout),
		errTTY:    isTerminal(os.Stderr),
		width:     width,
		lookupEnv: os.LookupEnv,
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// loadDotEnv layers the variables of the .env file at path under lookup.
// Variables that are already set win. Missing files are ignored.
func loadDotEnv(path string, lookup config.LookupEnv) (config.LookupEnv, error) {
	if path == "" {
		return lookup, nil
	}

	vars, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return lookup, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}, nil
}

// newLogger logs to w at debug level when verbose, otherwise warnings only.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
