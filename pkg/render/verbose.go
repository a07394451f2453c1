package render

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/germanamz/mpipe/pkg/config"
	"github.com/germanamz/mpipe/pkg/modeladapter"
	"github.com/mattn/go-runewidth"
)

// previewWidth is the display width of the prompt preview in verbose output.
const previewWidth = 60

// Verbose describes an invocation for the diagnostic lines written before the
// request is executed.
type Verbose struct {
	Options       config.Options
	Request       *modeladapter.Request
	PromptSource  string
	DryRun        bool
	APIKeyPresent bool
	RequestID     string
}

// Verbose writes the diagnostic lines to stderr. Nothing here ever includes
// the credential.
func (r *Renderer) Verbose(v Verbose) {
	o := v.Options
	label := r.styles.verbose.Render("verbose:")

	chars := 0
	for _, m := range v.Request.Messages {
		chars += utf8.RuneCountInString(m.Content)
	}

	fmt.Fprintf(r.stderr, "%s provider=%s endpoint=%s model=%s output=%s dry_run=%t show_usage=%t prompt_source=%s messages=%d chars=%d api_key_present=%t\n",
		label, o.Provider, v.Request.Endpoint, o.Model, o.Output, v.DryRun, o.ShowUsage,
		v.PromptSource, len(v.Request.Messages), chars, v.APIKeyPresent)

	timeout := "n/a"
	if t, ok := o.Timeout.Get(); ok {
		timeout = strconv.FormatInt(int64(t/time.Second), 10)
	}
	fmt.Fprintf(r.stderr, "%s options temperature=%s max_tokens=%s timeout_secs=%s retries=%d retry_delay_ms=%d backoff=exponential\n",
		label, optional(o.Temperature, formatFloat), optional(o.MaxTokens, strconv.Itoa), timeout,
		o.Retries, o.RetryDelay.Milliseconds())

	fmt.Fprintf(r.stderr, "%s sources %s\n", label, r.styles.dim.Render(sources(o.Sources)))

	if v.RequestID != "" {
		fmt.Fprintf(r.stderr, "%s request_id=%s\n", label, v.RequestID)
	}

	if n := len(v.Request.Messages); n > 0 {
		fmt.Fprintf(r.stderr, "%s prompt %q\n", label, preview(v.Request.Messages[n-1].Content))
	}
}

func optional[T any](o config.Optional[T], format func(T) string) string {
	if v, ok := o.Get(); ok {
		return format(v)
	}
	return "n/a"
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func sources(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := m[k]
		if strings.ContainsRune(v, ' ') {
			v = strconv.Quote(v)
		}
		parts = append(parts, k+"="+v)
	}

	return strings.Join(parts, " ")
}

// preview flattens s to one line and truncates it to previewWidth cells.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, previewWidth, "…")
}
