// Package openai provides a Completer for the OpenAI Chat Completions API.
package openai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/germanamz/mpipe/pkg/modeladapter"
)

// DefaultBaseURL is the base URL for the OpenAI API.
const DefaultBaseURL = "https://api.openai.com"

// KeyEnv is the environment variable holding the API key.
const KeyEnv = "OPENAI_API_KEY"

const completionsPath = "/v1/chat/completions"

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter sends chat completions to OpenAI.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter for baseURL. A nil client falls back to the
// adapter's default client.
func New(baseURL string, client *http.Client) *Adapter {
	a := &Adapter{
		ModelAdapter: modeladapter.New(baseURL, modeladapter.Auth{}, client),
	}
	a.HeaderParser = modeladapter.ParseOpenAIRateLimitHeaders

	return a
}

// Name returns the provider name.
func (a *Adapter) Name() string { return "openai" }

// Endpoint returns the chat completions URL.
func (a *Adapter) Endpoint() string { return a.BaseURL + completionsPath }

// KeyEnv returns the credential variable name.
func (a *Adapter) KeyEnv() string { return KeyEnv }

// Complete sends req and returns the assistant's reply.
func (a *Adapter) Complete(ctx context.Context, req *modeladapter.Request) (modeladapter.Completion, error) {
	c, err := a.ModelAdapter.Complete(ctx, req)
	if err != nil {
		return modeladapter.Completion{}, fmt.Errorf("openai: %w", err)
	}

	return c, nil
}
