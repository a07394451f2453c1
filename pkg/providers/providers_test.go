package providers_test

import (
	"testing"

	"github.com/germanamz/mpipe/pkg/config"
	"github.com/germanamz/mpipe/pkg/modeladapter"
	"github.com/germanamz/mpipe/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(kv map[string]string) config.LookupEnv {
	return func(key string) (string, bool) {
		v, ok := kv[key]
		return v, ok
	}
}

func resolve(t *testing.T, flags config.Layer) config.Options {
	t.Helper()

	opts, err := config.Merge(flags)
	require.NoError(t, err)

	return opts
}

func TestLookup(t *testing.T) {
	for _, name := range config.Providers {
		p, err := providers.Lookup(name, nil)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := providers.Lookup("anthropic", nil)
	require.ErrorIs(t, err, config.ErrInvalidValue)
}

func TestBuildRequest_OpenAI(t *testing.T) {
	p, err := providers.Lookup(config.ProviderOpenAI, nil)
	require.NoError(t, err)

	opts := resolve(t, config.Layer{
		Model:       config.Some("gpt-4o-mini"),
		Temperature: config.Some(0.2),
		System:      config.Some("be brief"),
	})

	req, err := providers.BuildRequest(p, opts, "hello", providers.BuildOptions{
		LookupEnv: envMap(map[string]string{"OPENAI_API_KEY": "sk-123"}),
		RequestID: "req-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "openai", req.Provider)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", req.Endpoint)
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, []modeladapter.Message{
		{Role: modeladapter.RoleSystem, Content: "be brief"},
		{Role: modeladapter.RoleUser, Content: "hello"},
	}, req.Messages)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.2, *req.Temperature, 1e-9)
	assert.Nil(t, req.MaxTokens)
	assert.Equal(t, "Bearer sk-123", req.Header.Get("Authorization"))
	assert.Equal(t, "req-1", req.Header.Get(providers.RequestIDHeader))
}

func TestBuildRequest_NoSystemMessage(t *testing.T) {
	p, err := providers.Lookup(config.ProviderFireworks, nil)
	require.NoError(t, err)

	opts := resolve(t, config.Layer{Provider: config.Some("fireworks"), Model: config.Some("m")})

	req, err := providers.BuildRequest(p, opts, "hello", providers.BuildOptions{
		LookupEnv: envMap(map[string]string{"FIREWORKS_API_KEY": "fw"}),
	})
	require.NoError(t, err)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, modeladapter.RoleUser, req.Messages[0].Role)
	assert.Empty(t, req.Header.Get(providers.RequestIDHeader))
}

func TestBuildRequest_MissingKey(t *testing.T) {
	p, err := providers.Lookup(config.ProviderFireworks, nil)
	require.NoError(t, err)

	opts := resolve(t, config.Layer{Provider: config.Some("fireworks"), Model: config.Some("m")})

	_, err = providers.BuildRequest(p, opts, "hello", providers.BuildOptions{
		LookupEnv: envMap(map[string]string{"FIREWORKS_API_KEY": "   "}),
	})
	require.ErrorIs(t, err, config.ErrMissingAPIKey)
	assert.Contains(t, err.Error(), "FIREWORKS_API_KEY")
}

func TestBuildRequest_DryRunWithoutKey(t *testing.T) {
	p, err := providers.Lookup(config.ProviderOpenAI, nil)
	require.NoError(t, err)

	opts := resolve(t, config.Layer{Model: config.Some("m")})

	req, err := providers.BuildRequest(p, opts, "hello", providers.BuildOptions{
		DryRun:    true,
		LookupEnv: envMap(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, modeladapter.RedactedAuthorization, req.Header.Get("Authorization"))
}

func TestAPIKey(t *testing.T) {
	p, err := providers.Lookup(config.ProviderOpenAI, nil)
	require.NoError(t, err)

	key, ok := providers.APIKey(p, envMap(map[string]string{"OPENAI_API_KEY": " sk "}))
	assert.True(t, ok)
	assert.Equal(t, "sk", key)

	_, ok = providers.APIKey(p, envMap(nil))
	assert.False(t, ok)
}
