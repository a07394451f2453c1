package providers

import (
	"net/http"
	"strings"

	"github.com/germanamz/mpipe/pkg/config"
	"github.com/germanamz/mpipe/pkg/modeladapter"
	"github.com/germanamz/mpipe/pkg/providers/fireworks"
	"github.com/germanamz/mpipe/pkg/providers/openai"
)

// RequestIDHeader carries a per-invocation id so provider logs can be matched
// with local verbose output.
const RequestIDHeader = "X-Client-Request-Id"

// placeholderKey stands in for a missing credential during dry runs.
const placeholderKey = "***REDACTED***"

// Provider is one supported chat completions backend.
type Provider interface {
	modeladapter.Completer
	Name() string
	Endpoint() string
	KeyEnv() string
	Header(apiKey string) http.Header
}

// Factory creates a Provider using the given HTTP client (nil for the default).
type Factory func(client *http.Client) Provider

var factories = map[string]Factory{
	config.ProviderOpenAI: func(client *http.Client) Provider {
		return openai.New(openai.DefaultBaseURL, client)
	},
	config.ProviderFireworks: func(client *http.Client) Provider {
		return fireworks.New(fireworks.DefaultBaseURL, client)
	},
}

// Lookup returns the provider registered under name.
func Lookup(name string, client *http.Client) (Provider, error) {
	f, ok := factories[name]
	if !ok {
		return nil, &config.Error{
			Kind:   config.KindInvalidValue,
			Field:  config.FieldProvider,
			Source: "provider",
			Value:  name,
			Hint:   "supported values: " + strings.Join(config.Providers, ", "),
		}
	}

	return f(client), nil
}

// APIKey returns the provider credential and whether it is present.
// Whitespace-only values count as missing.
func APIKey(p Provider, lookup config.LookupEnv) (string, bool) {
	v, ok := lookup(p.KeyEnv())
	v = strings.TrimSpace(v)

	return v, ok && v != ""
}

// BuildOptions tweak request building.
type BuildOptions struct {
	DryRun    bool
	LookupEnv config.LookupEnv
	RequestID string
}

// BuildRequest turns resolved options and the composed prompt into the
// provider-specific request. The system message comes first when set; the
// prompt is always the single user message. Without a credential it fails
// with [config.ErrMissingAPIKey] unless this is a dry run.
func BuildRequest(p Provider, o config.Options, body string, b BuildOptions) (*modeladapter.Request, error) {
	key, ok := APIKey(p, b.LookupEnv)
	if !ok {
		if !b.DryRun {
			return nil, &config.Error{Kind: config.KindMissingAPIKey, Name: p.KeyEnv()}
		}
		key = placeholderKey
	}

	header := p.Header(key)
	if b.RequestID != "" {
		header.Set(RequestIDHeader, b.RequestID)
	}

	messages := make([]modeladapter.Message, 0, 2)
	if system, ok := o.System.Get(); ok && strings.TrimSpace(system) != "" {
		messages = append(messages, modeladapter.Message{Role: modeladapter.RoleSystem, Content: system})
	}
	messages = append(messages, modeladapter.Message{Role: modeladapter.RoleUser, Content: body})

	return &modeladapter.Request{
		Provider:    p.Name(),
		Endpoint:    p.Endpoint(),
		Model:       o.Model,
		Messages:    messages,
		Temperature: o.Temperature.Ptr(),
		MaxTokens:   o.MaxTokens.Ptr(),
		Header:      header,
	}, nil
}
