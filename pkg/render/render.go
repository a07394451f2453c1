// Package render turns execution results into the bytes a user sees: the
// answer on stdout, and usage, verbose diagnostics and errors on stderr.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/germanamz/mpipe/pkg/atomicfile"
	"github.com/germanamz/mpipe/pkg/config"
	"github.com/germanamz/mpipe/pkg/modeladapter"
	"github.com/germanamz/mpipe/pkg/modeladapter/usage"
	"github.com/germanamz/mpipe/pkg/outcome"
)

// ExitFailure is the process exit status for any failure.
const ExitFailure = 1

// Renderer writes results to a pair of streams. Every payload is built in
// full before the single write to stdout.
type Renderer struct {
	stdout   io.Writer
	stderr   io.Writer
	styles   styles
	markdown MarkdownFunc
}

// New creates a Renderer for the given streams.
func New(stdout, stderr io.Writer) *Renderer {
	return &Renderer{
		stdout: stdout,
		stderr: stderr,
		styles: newStyles(stderr),
	}
}

// SetMarkdown enables markdown rendering of text answers. A saved file gets
// the same rendered bytes as stdout.
func (r *Renderer) SetMarkdown(fn MarkdownFunc) { r.markdown = fn }

type jsonRequest struct {
	Temperature  *float64 `json:"temperature"`
	MaxTokens    *int     `json:"max_tokens"`
	TimeoutSecs  *int64   `json:"timeout_secs"`
	Retries      int      `json:"retries"`
	RetryDelayMS int64    `json:"retry_delay_ms"`
}

type jsonOutput struct {
	Provider  string       `json:"provider"`
	Model     string       `json:"model"`
	Answer    string       `json:"answer"`
	LatencyMS int64        `json:"latency_ms"`
	Request   jsonRequest  `json:"request"`
	Usage     *usage.Usage `json:"usage"`
}

type dryRunOutput struct {
	DryRun        bool                   `json:"dry_run"`
	Provider      string                 `json:"provider"`
	Endpoint      string                 `json:"endpoint"`
	Model         string                 `json:"model"`
	Messages      []modeladapter.Message `json:"messages"`
	Request       jsonRequest            `json:"request"`
	Output        string                 `json:"output"`
	ShowUsage     bool                   `json:"show_usage"`
	Authorization string                 `json:"authorization"`
}

func newJSONRequest(o config.Options) jsonRequest {
	req := jsonRequest{
		Temperature:  o.Temperature.Ptr(),
		MaxTokens:    o.MaxTokens.Ptr(),
		Retries:      o.Retries,
		RetryDelayMS: o.RetryDelay.Milliseconds(),
	}
	if t, ok := o.Timeout.Get(); ok {
		secs := int64(t / time.Second)
		req.TimeoutSecs = &secs
	}

	return req
}

// Render presents res. A [outcome.Failed] result is returned as its error
// with nothing written; report it with [Renderer.Fail].
func (r *Renderer) Render(res outcome.Result, o config.Options, save string) error {
	switch res := res.(type) {
	case outcome.Answered:
		return r.answered(res, o, save)
	case outcome.Failed:
		return res.Err
	default:
		return fmt.Errorf("render: unexpected result %T", res)
	}
}

func (r *Renderer) answered(res outcome.Answered, o config.Options, save string) error {
	payload := res.Answer
	if o.Output == config.OutputJSON {
		data, err := json.Marshal(jsonOutput{
			Provider:  o.Provider,
			Model:     o.Model,
			Answer:    res.Answer,
			LatencyMS: res.Latency.Milliseconds(),
			Request:   newJSONRequest(o),
			Usage:     res.Usage,
		})
		if err != nil {
			return fmt.Errorf("render: encode output: %w", err)
		}
		payload = string(data) + "\n"
	}

	if o.ShowUsage {
		r.usageLine(res.Usage, res.Latency.Milliseconds(), "")
	}

	display := payload
	if o.Output == config.OutputText && r.markdown != nil {
		if md, err := r.markdown(payload); err == nil {
			display = md
		}
	}

	if _, err := io.WriteString(r.stdout, display); err != nil {
		return fmt.Errorf("render: write output: %w", err)
	}

	return r.save(save, display)
}

// DryRun prints the request that would be sent, with the credential redacted.
func (r *Renderer) DryRun(req *modeladapter.Request, o config.Options, save string) error {
	red := req.Redacted()

	data, err := json.Marshal(dryRunOutput{
		DryRun:        true,
		Provider:      red.Provider,
		Endpoint:      red.Endpoint,
		Model:         red.Model,
		Messages:      red.Messages,
		Request:       newJSONRequest(o),
		Output:        string(o.Output),
		ShowUsage:     o.ShowUsage,
		Authorization: modeladapter.RedactedAuthorization,
	})
	if err != nil {
		return fmt.Errorf("render: encode dry run: %w", err)
	}
	payload := string(data) + "\n"

	if _, err := io.WriteString(r.stdout, payload); err != nil {
		return fmt.Errorf("render: write output: %w", err)
	}
	if err := r.save(save, payload); err != nil {
		return err
	}
	if o.ShowUsage {
		r.usageLine(nil, 0, " (dry-run)")
	}

	return nil
}

func (r *Renderer) save(path, payload string) error {
	if path == "" {
		return nil
	}
	if err := atomicfile.Write(path, []byte(payload), 0o644); err != nil {
		return fmt.Errorf("save output: %w", err)
	}
	return nil
}

func (r *Renderer) usageLine(u *usage.Usage, latencyMS int64, suffix string) {
	label := r.styles.usage.Render("usage:")
	if u == nil {
		fmt.Fprintf(r.stderr, "%s unavailable latency_ms=%d%s\n", label, latencyMS, suffix)
		return
	}
	fmt.Fprintf(r.stderr, "%s %s latency_ms=%d%s\n", label, u.Fields(), latencyMS, suffix)
}

// Fail writes err as a single "error: ..." line on stderr and returns the
// exit status to use.
func (r *Renderer) Fail(err error) int {
	msg := strings.Join(strings.Fields(err.Error()), " ")
	fmt.Fprintf(r.stderr, "%s %s\n", r.styles.errors.Render("error:"), msg)

	return ExitFailure
}
