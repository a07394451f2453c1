package config

import (
	"strconv"
	"strings"
	"time"
)

// LookupEnv matches os.LookupEnv. It is injected so resolution never reads
// the process environment directly.
type LookupEnv func(key string) (string, bool)

// Layer names. A profile layer is named "profile <name>".
const (
	LayerFlags    = "flags"
	LayerEnv      = "env"
	LayerDefaults = "defaults"
)

// Option field names, shared by sources, profile keys and messages.
const (
	FieldProvider    = "provider"
	FieldModel       = "model"
	FieldTemperature = "temperature"
	FieldMaxTokens   = "max_tokens"
	FieldTimeout     = "timeout"
	FieldRetries     = "retries"
	FieldRetryDelay  = "retry_delay"
	FieldOutput      = "output"
	FieldShowUsage   = "show_usage"
	FieldFailOnEmpty = "fail_on_empty"
	FieldSystem      = "system"
	FieldPrompt      = "prompt"
	FieldPostprompt  = "postprompt"
	FieldMain        = "main"
)

// Environment variables read by [EnvLayer].
const (
	EnvProvider    = "MP_PROVIDER"
	EnvModel       = "MP_MODEL"
	EnvTemperature = "MP_TEMPERATURE"
	EnvMaxTokens   = "MP_MAX_TOKENS"
	EnvTimeout     = "MP_TIMEOUT"
	EnvRetries     = "MP_RETRIES"
	EnvRetryDelay  = "MP_RETRY_DELAY"
	EnvConfig      = "MP_CONFIG"
)

var envFields = map[string]string{
	FieldProvider:    EnvProvider,
	FieldModel:       EnvModel,
	FieldTemperature: EnvTemperature,
	FieldMaxTokens:   EnvMaxTokens,
	FieldTimeout:     EnvTimeout,
	FieldRetries:     EnvRetries,
	FieldRetryDelay:  EnvRetryDelay,
}

// Layer is one source of option values. Unset fields defer to the next layer.
// Main (the prompt argument) is only ever set by the flags layer.
type Layer struct {
	Name string

	Provider    Optional[string]
	Model       Optional[string]
	Temperature Optional[float64]
	MaxTokens   Optional[int]
	Timeout     Optional[time.Duration]
	Retries     Optional[int]
	RetryDelay  Optional[time.Duration]
	Output      Optional[string]
	ShowUsage   Optional[bool]
	FailOnEmpty Optional[bool]
	System      Optional[string]
	Preprompt   Optional[string]
	Main        Optional[string]
	Postprompt  Optional[string]
}

// Label names where a field of this layer came from, the way a user would
// type it: "--max-tokens", "MP_MAX_TOKENS" or "profile fast max_tokens".
func (l *Layer) Label(field string) string {
	switch {
	case l.Name == LayerFlags:
		if field == FieldMain {
			return "argument"
		}
		return "--" + strings.ReplaceAll(field, "_", "-")
	case l.Name == LayerEnv:
		if v, ok := envFields[field]; ok {
			return v
		}
	case strings.HasPrefix(l.Name, "profile "):
		return l.Name + " " + field
	}

	return l.Name
}

// Defaults returns the built-in fallback layer.
func Defaults() Layer {
	return Layer{
		Name:        LayerDefaults,
		Provider:    Some(ProviderOpenAI),
		Retries:     Some(DefaultRetries),
		RetryDelay:  Some(DefaultRetryDelay),
		Output:      Some(string(OutputText)),
		ShowUsage:   Some(false),
		FailOnEmpty: Some(false),
	}
}

// EnvLayer reads the MP_* variables for the fields over does not set, so a
// variable shadowed by a flag is never parsed. Blank values count as unset;
// values that do not parse as the expected number are reported as
// [KindInvalidValue]. Range checks happen after merging.
func EnvLayer(lookup LookupEnv, over Layer) (Layer, error) {
	l := Layer{Name: LayerEnv}

	get := func(key string, shadowed bool) (string, bool) {
		if shadowed {
			return "", false
		}
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvProvider, over.Provider.IsSet()); ok {
		l.Provider = Some(v)
	}
	if v, ok := get(EnvModel, over.Model.IsSet()); ok {
		l.Model = Some(v)
	}
	if v, ok := get(EnvTemperature, over.Temperature.IsSet()); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return l, invalidNumber(EnvTemperature, v, "expected a number between 0.0 and 2.0")
		}
		l.Temperature = Some(f)
	}
	if v, ok := get(EnvMaxTokens, over.MaxTokens.IsSet()); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return l, invalidNumber(EnvMaxTokens, v, "expected a positive integer")
		}
		l.MaxTokens = Some(n)
	}
	if v, ok := get(EnvTimeout, over.Timeout.IsSet()); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return l, invalidNumber(EnvTimeout, v, "expected a positive number of seconds")
		}
		l.Timeout = Some(time.Duration(n) * time.Second)
	}
	if v, ok := get(EnvRetries, over.Retries.IsSet()); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return l, invalidNumber(EnvRetries, v, "expected a non-negative integer")
		}
		l.Retries = Some(n)
	}
	if v, ok := get(EnvRetryDelay, over.RetryDelay.IsSet()); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return l, invalidNumber(EnvRetryDelay, v, "expected a positive number of milliseconds")
		}
		l.RetryDelay = Some(time.Duration(n) * time.Millisecond)
	}

	return l, nil
}

func invalidNumber(source, value, hint string) error {
	return &Error{Kind: KindInvalidValue, Source: source, Value: value, Hint: hint}
}
