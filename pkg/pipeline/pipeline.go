// Package pipeline runs one invocation end to end: resolve options, build the
// provider request, execute it with retries and render the result.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/germanamz/mpipe/pkg/config"
	"github.com/germanamz/mpipe/pkg/prompt"
	"github.com/germanamz/mpipe/pkg/providers"
	"github.com/germanamz/mpipe/pkg/render"
	"github.com/germanamz/mpipe/pkg/retry"
	"github.com/google/uuid"
)

// ProviderFunc returns the provider registered under name.
type ProviderFunc func(name string, client *http.Client) (providers.Provider, error)

// ProgressFunc shows that a request is in flight and returns a function that
// clears the indicator. It must only ever write to stderr.
type ProgressFunc func(label string) (stop func())

// Invocation holds the per-run inputs that come from the command line.
type Invocation struct {
	// Flags is the command line layer; its Name is set during resolution.
	Flags   config.Layer
	Profile string
	DryRun  bool
	Verbose bool
	Save    string
}

// Pipeline holds the process-level dependencies. Zero values fall back to
// sensible defaults except for the streams and LookupEnv.
type Pipeline struct {
	Stdin            io.Reader
	StdinInteractive bool
	Stdout           io.Writer
	Stderr           io.Writer
	LookupEnv        config.LookupEnv

	Providers    ProviderFunc
	HTTPClient   *http.Client
	Logger       *slog.Logger
	Progress     ProgressFunc
	Markdown     render.MarkdownFunc
	NewRequestID func() string

	// sleep is used for testing; nil keeps the executor's default.
	sleep func(ctx context.Context, d time.Duration) error
}

// SetSleepFunc overrides the backoff sleep (for testing).
func (p *Pipeline) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	p.sleep = fn
}

// Run executes inv. Every failure is returned for the caller to report; on
// success the answer (or the dry-run payload) has been written to Stdout.
func (p *Pipeline) Run(ctx context.Context, inv Invocation) error {
	r := render.New(p.Stdout, p.Stderr)
	if p.Markdown != nil {
		r.SetMarkdown(p.Markdown)
	}

	opts, err := config.Resolve(inv.Flags, inv.Profile, p.LookupEnv)
	if err != nil {
		return err
	}

	lookup := p.Providers
	if lookup == nil {
		lookup = providers.Lookup
	}

	provider, err := lookup(opts.Provider, p.HTTPClient)
	if err != nil {
		return err
	}

	in, err := prompt.Resolve(opts.Main, p.Stdin, p.StdinInteractive)
	if err != nil {
		return err
	}

	requestID := p.requestID()

	req, err := providers.BuildRequest(provider, opts, prompt.Compose(opts.Preprompt, in.Text, opts.Postprompt), providers.BuildOptions{
		DryRun:    inv.DryRun,
		LookupEnv: p.LookupEnv,
		RequestID: requestID,
	})
	if err != nil {
		return err
	}

	if inv.Verbose {
		_, present := providers.APIKey(provider, p.LookupEnv)
		r.Verbose(render.Verbose{
			Options:       opts,
			Request:       req,
			PromptSource:  string(in.Source),
			DryRun:        inv.DryRun,
			APIKeyPresent: present,
			RequestID:     requestID,
		})
	}

	if inv.DryRun {
		return r.DryRun(req, opts, inv.Save)
	}

	exec := retry.New(retry.Policy{
		Retries:     opts.Retries,
		Delay:       opts.RetryDelay,
		Timeout:     opts.Timeout.OrElse(0),
		FailOnEmpty: opts.FailOnEmpty,
	})
	if p.Logger != nil {
		exec.SetLogger(p.Logger.With("request_id", requestID))
	}
	if p.sleep != nil {
		exec.SetSleepFunc(p.sleep)
	}

	stop := func() {}
	if p.Progress != nil {
		stop = p.Progress("asking " + opts.Provider + "/" + opts.Model)
	}

	res := exec.Run(ctx, provider, req)
	stop()

	return r.Render(res, opts, inv.Save)
}

func (p *Pipeline) requestID() string {
	if p.NewRequestID != nil {
		return p.NewRequestID()
	}
	return uuid.NewString()
}
