package modeladapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/germanamz/mpipe/pkg/modeladapter/usage"
)

// Completion is the assistant text and usage extracted from a successful call.
type Completion struct {
	Content string
	Usage   *usage.Usage
}

// Completer performs exactly one chat completions call for a built request.
// Retrying is the caller's concern.
type Completer interface {
	Complete(ctx context.Context, req *Request) (Completion, error)
}

// Auth holds authentication settings for an LLM provider API.
type Auth struct {
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// ModelAdapter holds shared state for OpenAI-compatible providers. Embed it in
// concrete provider structs to get auth, custom headers and the chat
// completions call.
type ModelAdapter struct {
	BaseURL      string                // API base URL (no trailing slash).
	Auth         Auth                  // Authentication settings.
	Client       *http.Client          // HTTP client; falls back to a cached default.
	Headers      map[string]string     // Extra headers applied to every request.
	HeaderParser RateLimitHeaderParser // Optional parser for rate limit response headers.

	clientOnce    sync.Once
	defaultClient *http.Client
}

// New creates a ModelAdapter with the given settings.
// A nil client falls back to a default client at call time.
func New(baseURL string, auth Auth, client *http.Client) ModelAdapter {
	return ModelAdapter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Auth:    auth,
		Client:  client,
	}
}

// httpClient returns the configured client or a cached default client with a 10-minute timeout.
func (a *ModelAdapter) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}

	a.clientOnce.Do(func() {
		a.defaultClient = &http.Client{Timeout: 10 * time.Minute}
	})

	return a.defaultClient
}

// Header returns the headers every request carries: JSON content type, the
// credential under the configured auth header, and the custom headers.
func (a *ModelAdapter) Header(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")

	if apiKey != "" {
		name := a.Auth.Header
		if name == "" {
			name = "Authorization"
		}

		value := apiKey
		if name == "Authorization" {
			scheme := a.Auth.Scheme
			if scheme == "" {
				scheme = "Bearer"
			}

			value = scheme + " " + value
		} else if a.Auth.Scheme != "" {
			value = a.Auth.Scheme + " " + value
		}

		h.Set(name, value)
	}

	for k, v := range a.Headers {
		h.Set(k, v)
	}

	return h
}

// PostJSON marshals payload as JSON, POSTs it to url with the given headers,
// checks for a 2xx status, and unmarshals the response body into dest.
// If dest is nil the response body is discarded after the status check.
func (a *ModelAdapter) PostJSON(ctx context.Context, url string, header http.Header, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := a.httpClient().Do(req) //nolint:gosec // URL comes from the provider registry, not user input.
	if err != nil {
		return &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if readErr != nil && ctx.Err() != nil {
			return &TransportError{Err: ctx.Err()}
		}

		text := strings.TrimSpace(string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			return &RateLimitError{RetryAfter: a.retryAfter(resp.Header), Body: text}
		}

		return &StatusError{StatusCode: resp.StatusCode, Body: text}
	}

	if dest == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &TransportError{Err: ctxErr}
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return &TransportError{Err: err}
		}
		return &DecodeError{Err: err}
	}

	return nil
}

// retryAfter picks the longest wait hinted by a 429 response.
func (a *ModelAdapter) retryAfter(h http.Header) time.Duration {
	now := time.Now()
	wait := ParseRetryAfter(h.Get("Retry-After"), now)

	if a.HeaderParser != nil {
		if d := a.HeaderParser(h, now).Wait(now); d > wait {
			wait = d
		}
	}

	return wait
}

// Complete sends req to its endpoint and extracts the first choice's text.
// A missing or null content field yields an empty answer; a response without
// choices is a [DecodeError].
func (a *ModelAdapter) Complete(ctx context.Context, req *Request) (Completion, error) {
	var resp chatResponse
	if err := a.PostJSON(ctx, req.Endpoint, req.Header, req.Body(), &resp); err != nil {
		return Completion{}, err
	}

	if len(resp.Choices) == 0 {
		return Completion{}, &DecodeError{Err: errors.New("response has no choices")}
	}

	var c Completion
	if content := resp.Choices[0].Message.Content; content != nil {
		c.Content = *content
	}
	if u := resp.Usage; u != nil {
		c.Usage = usage.New(u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	}

	return c, nil
}
