package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/germanamz/mpipe/pkg/modeladapter"
	"github.com/germanamz/mpipe/pkg/providers/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *openai.Adapter) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := openai.New(srv.URL, srv.Client())

	return srv, a
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}

	return req
}

func newRequest(a *openai.Adapter) *modeladapter.Request {
	temp := 0.0
	return &modeladapter.Request{
		Provider: a.Name(),
		Endpoint: a.Endpoint(),
		Model:    "gpt-4o-mini",
		Messages: []modeladapter.Message{
			{Role: modeladapter.RoleSystem, Content: "be brief"},
			{Role: modeladapter.RoleUser, Content: "Hello"},
		},
		Temperature: &temp,
		Header:      a.Header("test-key"),
	}
}

func TestDefaults(t *testing.T) {
	a := openai.New(openai.DefaultBaseURL, nil)

	assert.Equal(t, "openai", a.Name())
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", a.Endpoint())
	assert.Equal(t, "OPENAI_API_KEY", a.KeyEnv())
}

func TestComplete_SimpleText(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		req := readBody(t, r)
		assert.Equal(t, "gpt-4o-mini", req["model"])
		assert.Contains(t, req, "temperature")
		assert.NotContains(t, req, "max_tokens")

		msgs, ok := req["messages"].([]any)
		assert.True(t, ok)
		assert.Len(t, msgs, 2)

		first, _ := msgs[0].(map[string]any)
		assert.Equal(t, "system", first["role"])

		writeJSON(t, w, map[string]any{
			"choices": []map[string]any{
				{
					"message":       map[string]any{"role": "assistant", "content": "Hello there!"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	})

	got, err := adapter.Complete(context.Background(), newRequest(adapter))
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", got.Content)
	require.NotNil(t, got.Usage)
	assert.Equal(t, 10, *got.Usage.PromptTokens)
	assert.Equal(t, 5, *got.Usage.CompletionTokens)
	assert.Equal(t, 15, *got.Usage.TotalTokens)
}

func TestComplete_ErrorIsPrefixed(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	_, err := adapter.Complete(context.Background(), newRequest(adapter))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai: unexpected status 401")

	var statusErr *modeladapter.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestComplete_RateLimitResetHeaders(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("x-ratelimit-remaining-requests", "0")
		w.Header().Set("x-ratelimit-reset-requests", "3s")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := adapter.Complete(context.Background(), newRequest(adapter))

	var rlErr *modeladapter.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Positive(t, rlErr.RetryAfter)
}
