package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/germanamz/mpipe/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(kv map[string]string) config.LookupEnv {
	return func(key string) (string, bool) {
		v, ok := kv[key]
		return v, ok
	}
}

func writeProfiles(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestResolve_Defaults(t *testing.T) {
	opts, err := config.Resolve(config.Layer{Model: config.Some("gpt-4o-mini")}, "", envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, config.ProviderOpenAI, opts.Provider)
	assert.Equal(t, "gpt-4o-mini", opts.Model)
	assert.Equal(t, 0, opts.Retries)
	assert.Equal(t, 500*time.Millisecond, opts.RetryDelay)
	assert.Equal(t, config.OutputText, opts.Output)
	assert.False(t, opts.ShowUsage)
	assert.False(t, opts.FailOnEmpty)
	assert.False(t, opts.Temperature.IsSet())
	assert.False(t, opts.MaxTokens.IsSet())
	assert.False(t, opts.Timeout.IsSet())
	assert.Equal(t, "defaults", opts.Source(config.FieldProvider))
	assert.Equal(t, "--model", opts.Source(config.FieldModel))
}

func TestResolve_MissingModel(t *testing.T) {
	_, err := config.Resolve(config.Layer{}, "", envMap(nil))
	require.ErrorIs(t, err, config.ErrMissingModel)
	assert.Contains(t, err.Error(), "--model")
}

func TestResolve_BlankModelIsMissing(t *testing.T) {
	_, err := config.Resolve(config.Layer{}, "", envMap(map[string]string{"MP_MODEL": "   "}))
	require.ErrorIs(t, err, config.ErrMissingModel)
}

func TestResolve_EnvLayer(t *testing.T) {
	env := envMap(map[string]string{
		"MP_PROVIDER":    "fireworks",
		"MP_MODEL":       "accounts/fireworks/models/llama",
		"MP_TEMPERATURE": "0.4",
		"MP_MAX_TOKENS":  "256",
		"MP_TIMEOUT":     "30",
		"MP_RETRIES":     "2",
		"MP_RETRY_DELAY": "250",
	})

	opts, err := config.Resolve(config.Layer{}, "", env)
	require.NoError(t, err)

	assert.Equal(t, config.ProviderFireworks, opts.Provider)
	assert.Equal(t, "accounts/fireworks/models/llama", opts.Model)
	assert.InDelta(t, 0.4, opts.Temperature.OrElse(-1), 1e-9)
	assert.Equal(t, 256, opts.MaxTokens.OrElse(0))
	assert.Equal(t, 30*time.Second, opts.Timeout.OrElse(0))
	assert.Equal(t, 2, opts.Retries)
	assert.Equal(t, 250*time.Millisecond, opts.RetryDelay)
	assert.Equal(t, "MP_TEMPERATURE", opts.Source(config.FieldTemperature))
}

func TestResolve_BlankEnvIsUnset(t *testing.T) {
	env := envMap(map[string]string{
		"MP_MODEL":       "m",
		"MP_TEMPERATURE": "",
		"MP_RETRIES":     "  ",
	})

	opts, err := config.Resolve(config.Layer{}, "", env)
	require.NoError(t, err)
	assert.False(t, opts.Temperature.IsSet())
	assert.Equal(t, 0, opts.Retries)
}

func TestResolve_FlagsBeatEnv(t *testing.T) {
	env := envMap(map[string]string{"MP_MODEL": "env-model", "MP_RETRIES": "5"})
	flags := config.Layer{Model: config.Some("flag-model")}

	opts, err := config.Resolve(flags, "", env)
	require.NoError(t, err)
	assert.Equal(t, "flag-model", opts.Model)
	assert.Equal(t, 5, opts.Retries)
	assert.Equal(t, "MP_RETRIES", opts.Source(config.FieldRetries))
}

func TestResolve_InvalidEnvNumber(t *testing.T) {
	_, err := config.Resolve(config.Layer{}, "", envMap(map[string]string{"MP_MODEL": "m", "MP_TEMPERATURE": "warm"}))
	require.ErrorIs(t, err, config.ErrInvalidValue)
	assert.Contains(t, err.Error(), "MP_TEMPERATURE")
	assert.Contains(t, err.Error(), "warm")
}

func TestResolve_FlagBeatsInvalidEnv(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		flags config.Layer
		check func(t *testing.T, opts config.Options)
	}{
		{
			name:  "temperature",
			env:   "MP_TEMPERATURE",
			flags: config.Layer{Temperature: config.Some(0.5)},
			check: func(t *testing.T, opts config.Options) {
				assert.InDelta(t, 0.5, opts.Temperature.OrElse(-1), 1e-9)
			},
		},
		{
			name:  "max_tokens",
			env:   "MP_MAX_TOKENS",
			flags: config.Layer{MaxTokens: config.Some(64)},
			check: func(t *testing.T, opts config.Options) {
				assert.Equal(t, 64, opts.MaxTokens.OrElse(0))
			},
		},
		{
			name:  "timeout",
			env:   "MP_TIMEOUT",
			flags: config.Layer{Timeout: config.Some(10 * time.Second)},
			check: func(t *testing.T, opts config.Options) {
				assert.Equal(t, 10*time.Second, opts.Timeout.OrElse(0))
			},
		},
		{
			name:  "retries",
			env:   "MP_RETRIES",
			flags: config.Layer{Retries: config.Some(3)},
			check: func(t *testing.T, opts config.Options) {
				assert.Equal(t, 3, opts.Retries)
			},
		},
		{
			name:  "retry_delay",
			env:   "MP_RETRY_DELAY",
			flags: config.Layer{RetryDelay: config.Some(100 * time.Millisecond)},
			check: func(t *testing.T, opts config.Options) {
				assert.Equal(t, 100*time.Millisecond, opts.RetryDelay)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := tt.flags
			flags.Model = config.Some("m")

			opts, err := config.Resolve(flags, "", envMap(map[string]string{tt.env: "warm"}))
			require.NoError(t, err)
			tt.check(t, opts)
			assert.Equal(t, "--"+strings.ReplaceAll(tt.name, "_", "-"), opts.Source(tt.name))
		})
	}
}

func TestResolve_InvalidProvider(t *testing.T) {
	_, err := config.Resolve(config.Layer{Model: config.Some("m")}, "", envMap(map[string]string{"MP_PROVIDER": "anthropic"}))
	require.ErrorIs(t, err, config.ErrInvalidValue)
	assert.Contains(t, err.Error(), "MP_PROVIDER")
	assert.Contains(t, err.Error(), "openai, fireworks")
}

func TestResolve_ProviderCaseInsensitive(t *testing.T) {
	opts, err := config.Resolve(config.Layer{Model: config.Some("m"), Provider: config.Some(" FireWorks ")}, "", envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, config.ProviderFireworks, opts.Provider)
}

func TestResolve_InvalidOutput(t *testing.T) {
	_, err := config.Resolve(config.Layer{Model: config.Some("m"), Output: config.Some("xml")}, "", envMap(nil))
	require.ErrorIs(t, err, config.ErrInvalidValue)
	assert.Contains(t, err.Error(), "--output")
}

func TestResolve_OutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		flags  config.Layer
		source string
	}{
		{name: "temperature high", flags: config.Layer{Temperature: config.Some(2.5)}, source: "--temperature"},
		{name: "temperature negative", flags: config.Layer{Temperature: config.Some(-0.1)}, source: "--temperature"},
		{name: "max tokens zero", flags: config.Layer{MaxTokens: config.Some(0)}, source: "--max-tokens"},
		{name: "timeout zero", flags: config.Layer{Timeout: config.Some(time.Duration(0))}, source: "--timeout"},
		{name: "retries negative", flags: config.Layer{Retries: config.Some(-1)}, source: "--retries"},
		{name: "retry delay zero", flags: config.Layer{RetryDelay: config.Some(time.Duration(0))}, source: "--retry-delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := tt.flags
			flags.Model = config.Some("m")

			_, err := config.Resolve(flags, "", envMap(nil))
			require.ErrorIs(t, err, config.ErrOutOfRange)
			assert.Contains(t, err.Error(), tt.source)
		})
	}
}

func TestResolve_TemperatureBounds(t *testing.T) {
	for _, v := range []float64{0, 2} {
		opts, err := config.Resolve(config.Layer{Model: config.Some("m"), Temperature: config.Some(v)}, "", envMap(nil))
		require.NoError(t, err)

		got, ok := opts.Temperature.Get()
		assert.True(t, ok)
		assert.InDelta(t, v, got, 1e-9)
	}
}

func TestResolve_ProfileNotLoadedUnlessRequested(t *testing.T) {
	env := envMap(map[string]string{
		"MP_CONFIG": filepath.Join(t.TempDir(), "missing.toml"),
		"MP_MODEL":  "m",
	})

	_, err := config.Resolve(config.Layer{}, "", env)
	require.NoError(t, err)
}

func TestResolve_ProfilePrecedence(t *testing.T) {
	path := writeProfiles(t, `
[profiles.fast]
provider = "fireworks"
model = "profile-model"
temperature = 0.1
max_tokens = 100
timeout = 20
retries = 3
retry_delay = 200
output = "json"
show_usage = true
system = "be brief"
`)

	env := envMap(map[string]string{
		"MP_CONFIG":  path,
		"MP_RETRIES": "1",
	})
	flags := config.Layer{MaxTokens: config.Some(50)}

	opts, err := config.Resolve(flags, "fast", env)
	require.NoError(t, err)

	assert.Equal(t, config.ProviderFireworks, opts.Provider)
	assert.Equal(t, "profile-model", opts.Model)
	assert.Equal(t, 50, opts.MaxTokens.OrElse(0))
	assert.Equal(t, 1, opts.Retries)
	assert.Equal(t, 20*time.Second, opts.Timeout.OrElse(0))
	assert.Equal(t, 200*time.Millisecond, opts.RetryDelay)
	assert.Equal(t, config.OutputJSON, opts.Output)
	assert.True(t, opts.ShowUsage)
	assert.Equal(t, "be brief", opts.System.OrElse(""))
	assert.Equal(t, "profile fast model", opts.Source(config.FieldModel))
	assert.Equal(t, "--max-tokens", opts.Source(config.FieldMaxTokens))
	assert.Equal(t, "MP_RETRIES", opts.Source(config.FieldRetries))
}

func TestResolve_ProfileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("file missing", func(t *testing.T) {
		env := envMap(map[string]string{"MP_CONFIG": filepath.Join(dir, "nope.toml"), "MP_MODEL": "m"})

		_, err := config.Resolve(config.Layer{}, "fast", env)
		require.ErrorIs(t, err, config.ErrProfileNotFound)
		assert.Contains(t, err.Error(), "nope.toml")
	})

	t.Run("unknown profile", func(t *testing.T) {
		path := writeProfiles(t, "[profiles.slow]\nmodel = \"m\"\n")
		env := envMap(map[string]string{"MP_CONFIG": path})

		_, err := config.Resolve(config.Layer{}, "fast", env)
		require.ErrorIs(t, err, config.ErrProfileUnknown)
		assert.Contains(t, err.Error(), `"fast"`)
	})

	t.Run("malformed toml", func(t *testing.T) {
		path := writeProfiles(t, "[profiles.fast\nmodel = ")
		env := envMap(map[string]string{"MP_CONFIG": path})

		_, err := config.Resolve(config.Layer{}, "fast", env)
		require.ErrorIs(t, err, config.ErrProfileInvalid)
	})

	t.Run("wrong type", func(t *testing.T) {
		path := writeProfiles(t, "[profiles.fast]\nmax_tokens = \"lots\"\n")
		env := envMap(map[string]string{"MP_CONFIG": path})

		_, err := config.Resolve(config.Layer{}, "fast", env)
		require.ErrorIs(t, err, config.ErrProfileInvalid)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := writeProfiles(t, "[profiles.fast]\nmodel = \"m\"\ncolour = \"blue\"\n")
		env := envMap(map[string]string{"MP_CONFIG": path})

		_, err := config.Resolve(config.Layer{}, "fast", env)
		require.ErrorIs(t, err, config.ErrProfileInvalid)
		assert.Contains(t, err.Error(), "colour")
	})

	t.Run("profile value out of range", func(t *testing.T) {
		path := writeProfiles(t, "[profiles.fast]\nmodel = \"m\"\ntemperature = 3.0\n")
		env := envMap(map[string]string{"MP_CONFIG": path})

		_, err := config.Resolve(config.Layer{}, "fast", env)
		require.ErrorIs(t, err, config.ErrOutOfRange)
		assert.Contains(t, err.Error(), "profile fast temperature")
	})
}

func TestResolve_PromptSegments(t *testing.T) {
	flags := config.Layer{
		Model:      config.Some("m"),
		Preprompt:  config.Some("Context:"),
		Main:       config.Some("question"),
		Postprompt: config.Some("Answer briefly."),
	}

	opts, err := config.Resolve(flags, "", envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "Context:", opts.Preprompt.OrElse(""))
	assert.Equal(t, "question", opts.Main.OrElse(""))
	assert.Equal(t, "Answer briefly.", opts.Postprompt.OrElse(""))
	assert.Equal(t, "argument", opts.Source(config.FieldMain))
	assert.Equal(t, "--prompt", opts.Source(config.FieldPrompt))
}
