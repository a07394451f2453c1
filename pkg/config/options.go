package config

import "time"

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderFireworks = "fireworks"
)

// Providers lists the supported provider names in display order.
var Providers = []string{ProviderOpenAI, ProviderFireworks}

// OutputFormat selects how a successful answer is printed.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// Defaults for options no layer sets.
const (
	DefaultRetries    = 0
	DefaultRetryDelay = 500 * time.Millisecond
)

// Options is the merged, validated configuration for one invocation.
// Sources maps each set field name to the label of the layer that set it.
type Options struct {
	Provider    string
	Model       string
	Temperature Optional[float64]
	MaxTokens   Optional[int]
	Timeout     Optional[time.Duration]
	Retries     int
	RetryDelay  time.Duration
	Output      OutputFormat
	ShowUsage   bool
	FailOnEmpty bool
	System      Optional[string]
	Preprompt   Optional[string]
	Main        Optional[string]
	Postprompt  Optional[string]

	Sources map[string]string
}

// Source returns the label of the layer that set field, or "" when unset.
func (o *Options) Source(field string) string {
	return o.Sources[field]
}
