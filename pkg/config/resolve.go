package config

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Resolve merges the flag layer, the MP_* environment, the named profile (only
// when profile is non-empty) and the built-in defaults, in that precedence
// order, and validates the result.
func Resolve(flags Layer, profile string, lookup LookupEnv) (Options, error) {
	flags.Name = LayerFlags

	env, err := EnvLayer(lookup, flags)
	if err != nil {
		return Options{}, err
	}

	layers := []Layer{flags, env}

	if profile != "" {
		path, err := Path(lookup)
		if err != nil {
			return Options{}, err
		}

		p, err := LoadProfile(path, profile)
		if err != nil {
			return Options{}, err
		}

		layers = append(layers, p.Layer(profile))
	}

	return Merge(layers...)
}

// Merge takes every field from the first layer that sets it, falling back to
// [Defaults], and validates ranges and enumerations.
func Merge(layers ...Layer) (Options, error) {
	layers = append(slices.Clone(layers), Defaults())
	o := Options{Sources: map[string]string{}}

	rawProvider, src, _ := pick(layers, FieldProvider, func(l *Layer) Optional[string] { return l.Provider })
	provider := strings.ToLower(strings.TrimSpace(rawProvider))
	if !slices.Contains(Providers, provider) {
		return Options{}, &Error{Kind: KindInvalidValue, Field: FieldProvider, Source: src, Value: rawProvider, Hint: "supported values: " + strings.Join(Providers, ", ")}
	}
	o.Provider = provider
	o.Sources[FieldProvider] = src

	model, src, _ := pick(layers, FieldModel, func(l *Layer) Optional[string] { return l.Model })
	if model = strings.TrimSpace(model); model == "" {
		return Options{}, &Error{Kind: KindMissingModel, Field: FieldModel}
	}
	o.Model = model
	o.Sources[FieldModel] = src

	if v, src, ok := pick(layers, FieldTemperature, func(l *Layer) Optional[float64] { return l.Temperature }); ok {
		if math.IsNaN(v) || v < 0 || v > 2 {
			return Options{}, outOfRange(FieldTemperature, src, strconv.FormatFloat(v, 'g', -1, 64), "must be between 0.0 and 2.0")
		}
		o.Temperature = Some(v)
		o.Sources[FieldTemperature] = src
	}

	if v, src, ok := pick(layers, FieldMaxTokens, func(l *Layer) Optional[int] { return l.MaxTokens }); ok {
		if v <= 0 {
			return Options{}, outOfRange(FieldMaxTokens, src, strconv.Itoa(v), "must be greater than 0")
		}
		o.MaxTokens = Some(v)
		o.Sources[FieldMaxTokens] = src
	}

	if v, src, ok := pick(layers, FieldTimeout, func(l *Layer) Optional[time.Duration] { return l.Timeout }); ok {
		if v <= 0 {
			return Options{}, outOfRange(FieldTimeout, src, strconv.FormatInt(int64(v/time.Second), 10), "must be at least 1 second")
		}
		o.Timeout = Some(v)
		o.Sources[FieldTimeout] = src
	}

	retries, src, _ := pick(layers, FieldRetries, func(l *Layer) Optional[int] { return l.Retries })
	if retries < 0 {
		return Options{}, outOfRange(FieldRetries, src, strconv.Itoa(retries), "must be 0 or greater")
	}
	o.Retries = retries
	o.Sources[FieldRetries] = src

	delay, src, _ := pick(layers, FieldRetryDelay, func(l *Layer) Optional[time.Duration] { return l.RetryDelay })
	if delay <= 0 {
		return Options{}, outOfRange(FieldRetryDelay, src, strconv.FormatInt(delay.Milliseconds(), 10), "must be at least 1 millisecond")
	}
	o.RetryDelay = delay
	o.Sources[FieldRetryDelay] = src

	output, src, _ := pick(layers, FieldOutput, func(l *Layer) Optional[string] { return l.Output })
	switch format := OutputFormat(strings.ToLower(strings.TrimSpace(output))); format {
	case OutputText, OutputJSON:
		o.Output = format
	default:
		return Options{}, &Error{Kind: KindInvalidValue, Field: FieldOutput, Source: src, Value: output, Hint: "supported values: text, json"}
	}
	o.Sources[FieldOutput] = src

	o.ShowUsage, o.Sources[FieldShowUsage], _ = pick(layers, FieldShowUsage, func(l *Layer) Optional[bool] { return l.ShowUsage })
	o.FailOnEmpty, o.Sources[FieldFailOnEmpty], _ = pick(layers, FieldFailOnEmpty, func(l *Layer) Optional[bool] { return l.FailOnEmpty })

	o.System = pickText(layers, o.Sources, FieldSystem, func(l *Layer) Optional[string] { return l.System })
	o.Preprompt = pickText(layers, o.Sources, FieldPrompt, func(l *Layer) Optional[string] { return l.Preprompt })
	o.Main = pickText(layers, o.Sources, FieldMain, func(l *Layer) Optional[string] { return l.Main })
	o.Postprompt = pickText(layers, o.Sources, FieldPostprompt, func(l *Layer) Optional[string] { return l.Postprompt })

	return o, nil
}

// pick returns the value from the first layer that sets it and that layer's
// label for field.
func pick[T any](layers []Layer, field string, get func(*Layer) Optional[T]) (T, string, bool) {
	for i := range layers {
		if v, ok := get(&layers[i]).Get(); ok {
			return v, layers[i].Label(field), true
		}
	}

	var zero T
	return zero, "", false
}

func pickText(layers []Layer, sources map[string]string, field string, get func(*Layer) Optional[string]) Optional[string] {
	v, src, ok := pick(layers, field, get)
	if !ok {
		return Optional[string]{}
	}
	sources[field] = src
	return Some(v)
}

func outOfRange(field, source, value, hint string) error {
	return &Error{Kind: KindOutOfRange, Field: field, Source: source, Value: value, Hint: hint}
}
