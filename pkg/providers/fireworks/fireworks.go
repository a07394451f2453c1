// Package fireworks implements the modeladapter.Completer interface for
// Fireworks AI using its OpenAI-compatible chat completions API.
package fireworks

import (
	"context"
	"fmt"
	"net/http"

	"github.com/germanamz/mpipe/pkg/modeladapter"
)

// DefaultBaseURL is the base URL for the Fireworks inference API.
const DefaultBaseURL = "https://api.fireworks.ai/inference/v1"

// KeyEnv is the environment variable holding the API key.
const KeyEnv = "FIREWORKS_API_KEY"

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter sends chat completions to Fireworks.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter for baseURL with the given HTTP client.
// A nil client falls back to the adapter's default client.
func New(baseURL string, client *http.Client) *Adapter {
	a := &Adapter{
		ModelAdapter: modeladapter.New(baseURL, modeladapter.Auth{}, client),
	}
	a.HeaderParser = modeladapter.ParseOpenAIRateLimitHeaders

	return a
}

// Name returns the provider name.
func (a *Adapter) Name() string { return "fireworks" }

// Endpoint returns the chat completions URL.
func (a *Adapter) Endpoint() string { return a.BaseURL + "/chat/completions" }

// KeyEnv returns the credential variable name.
func (a *Adapter) KeyEnv() string { return KeyEnv }

// Complete sends req to the Fireworks chat completions endpoint and returns
// the assistant's reply.
func (a *Adapter) Complete(ctx context.Context, req *modeladapter.Request) (modeladapter.Completion, error) {
	c, err := a.ModelAdapter.Complete(ctx, req)
	if err != nil {
		return modeladapter.Completion{}, fmt.Errorf("fireworks: %w", err)
	}

	return c, nil
}
