package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/germanamz/mpipe/pkg/render"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.built=...".
var (
	version = "dev"
	commit  = "none"
	built   = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := execute(ctx, os.Args[1:], osStreams())

	cancel()
	os.Exit(code)
}

// execute runs the command tree and returns the process exit status.
func execute(ctx context.Context, args []string, s streams) int {
	cmd := newRootCmd(s)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		return render.New(s.out, s.err).Fail(err)
	}

	return 0
}

func versionString() string {
	return fmt.Sprintf("%s\ncommit: %s\nbuilt: %s", version, commit, built)
}
