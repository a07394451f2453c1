package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/germanamz/mpipe/pkg/config"
)

// wizardProfile holds the form values as typed; empty strings mean unset.
type wizardProfile struct {
	Provider    string
	Model       string
	System      string
	Prompt      string
	Postprompt  string
	Temperature string
	MaxTokens   string
	Timeout     string
	Retries     string
	RetryDelay  string
	Output      string
	ShowUsage   bool
	FailOnEmpty bool
}

var providerDefaultModels = map[string]string{
	config.ProviderOpenAI:    "gpt-4o-mini",
	config.ProviderFireworks: "accounts/fireworks/models/llama-v3p1-8b-instruct",
}

func runProfileWizard(name string, current config.Profile) (config.Profile, error) {
	w := newWizardProfile(current)

	if err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(fmt.Sprintf("Provider for profile %q", name)).
			Options(
				huh.NewOption("OpenAI", config.ProviderOpenAI),
				huh.NewOption("Fireworks", config.ProviderFireworks),
			).
			Value(&w.Provider),
	)).Run(); err != nil {
		return config.Profile{}, err
	}

	if w.Model == "" {
		w.Model = providerDefaultModels[w.Provider]
	}

	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Model").Value(&w.Model).Validate(validateRequired),
			huh.NewText().Title("System message (optional)").Value(&w.System),
			huh.NewInput().Title("Text before every prompt (optional)").Value(&w.Prompt),
			huh.NewInput().Title("Text after every prompt (optional)").Value(&w.Postprompt),
		),
		huh.NewGroup(
			huh.NewInput().Title("Temperature, 0.0 to 2.0 (empty = provider default)").Value(&w.Temperature).Validate(validateTemperature),
			huh.NewInput().Title("Max tokens (empty = provider default)").Value(&w.MaxTokens).Validate(validatePositiveInt),
			huh.NewInput().Title("Timeout in seconds (empty = none)").Value(&w.Timeout).Validate(validatePositiveInt),
			huh.NewInput().Title("Retries on transient failures").Value(&w.Retries).Validate(validateNonNegativeInt),
			huh.NewInput().Title("Initial retry delay in milliseconds").Value(&w.RetryDelay).Validate(validatePositiveInt),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Output format").
				Options(
					huh.NewOption("Text", string(config.OutputText)),
					huh.NewOption("JSON", string(config.OutputJSON)),
				).
				Value(&w.Output),
			huh.NewConfirm().Title("Print usage to stderr?").Value(&w.ShowUsage),
			huh.NewConfirm().Title("Fail on empty answers?").Value(&w.FailOnEmpty),
		),
	).Run(); err != nil {
		return config.Profile{}, err
	}

	return w.profile()
}

func confirmOverwrite(title string) (bool, error) {
	var ok bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Value(&ok),
	)).Run()

	return ok, err
}

func newWizardProfile(p config.Profile) wizardProfile {
	w := wizardProfile{
		Provider:    deref(p.Provider, config.ProviderOpenAI),
		Model:       deref(p.Model, ""),
		System:      deref(p.System, ""),
		Prompt:      deref(p.Prompt, ""),
		Postprompt:  deref(p.Postprompt, ""),
		Output:      deref(p.Output, string(config.OutputText)),
		ShowUsage:   deref(p.ShowUsage, false),
		FailOnEmpty: deref(p.FailOnEmpty, false),
	}
	if p.Temperature != nil {
		w.Temperature = strconv.FormatFloat(*p.Temperature, 'g', -1, 64)
	}
	w.MaxTokens = itoa(p.MaxTokens)
	w.Timeout = itoa(p.Timeout)
	w.Retries = itoa(p.Retries)
	w.RetryDelay = itoa(p.RetryDelay)

	return w
}

// profile converts the form values. Empty fields stay unset, except that
// false booleans and the text output format are omitted as defaults.
func (w wizardProfile) profile() (config.Profile, error) {
	var (
		p   config.Profile
		err error
	)

	p.Provider = &w.Provider
	p.Model = optionalString(w.Model)
	p.System = optionalString(w.System)
	p.Prompt = optionalString(w.Prompt)
	p.Postprompt = optionalString(w.Postprompt)

	if s := strings.TrimSpace(w.Temperature); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return p, fmt.Errorf("temperature: %w", err)
		}
		p.Temperature = &f
	}
	if p.MaxTokens, err = optionalInt(w.MaxTokens); err != nil {
		return p, fmt.Errorf("max tokens: %w", err)
	}
	if p.Timeout, err = optionalInt(w.Timeout); err != nil {
		return p, fmt.Errorf("timeout: %w", err)
	}
	if p.Retries, err = optionalInt(w.Retries); err != nil {
		return p, fmt.Errorf("retries: %w", err)
	}
	if p.RetryDelay, err = optionalInt(w.RetryDelay); err != nil {
		return p, fmt.Errorf("retry delay: %w", err)
	}

	if w.Output != "" && w.Output != string(config.OutputText) {
		p.Output = &w.Output
	}
	if w.ShowUsage {
		p.ShowUsage = &w.ShowUsage
	}
	if w.FailOnEmpty {
		p.FailOnEmpty = &w.FailOnEmpty
	}

	return p, nil
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func itoa(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func optionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}

	return &n, nil
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}

	return nil
}

func validateTemperature(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > 2 {
		return fmt.Errorf("must be a number between 0.0 and 2.0")
	}

	return nil
}

func validatePositiveInt(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}

	return nil
}

func validateNonNegativeInt(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}

	return nil
}
