package modeladapter

import (
	"maps"
	"net/http"
)

// Message roles used in chat completions payloads.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// RedactedAuthorization replaces the Authorization header value wherever a
// request is shown to the user.
const RedactedAuthorization = "Bearer ***REDACTED***"

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the fully built description of one chat completions call. It is
// built once per invocation and reused unchanged by every attempt.
type Request struct {
	Provider    string
	Endpoint    string
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   *int
	Header      http.Header
}

// ChatRequest is the chat completions request body. Optional knobs are omitted
// when unset; an explicit zero temperature is still sent.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// Body returns the JSON payload for the request.
func (r *Request) Body() ChatRequest {
	return ChatRequest{
		Model:       r.Model,
		Messages:    r.Messages,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	}
}

// Redacted returns a copy of the request whose Authorization header carries
// [RedactedAuthorization] instead of the credential.
func (r *Request) Redacted() *Request {
	cp := *r
	cp.Messages = append([]Message(nil), r.Messages...)
	cp.Header = maps.Clone(r.Header)
	if cp.Header == nil {
		cp.Header = http.Header{}
	}
	if cp.Header.Get("Authorization") != "" {
		cp.Header.Set("Authorization", RedactedAuthorization)
	}

	return &cp
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     *int `json:"prompt_tokens"`
		CompletionTokens *int `json:"completion_tokens"`
		TotalTokens      *int `json:"total_tokens"`
	} `json:"usage"`
}
