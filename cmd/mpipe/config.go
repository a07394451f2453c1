package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/germanamz/mpipe/pkg/atomicfile"
	"github.com/germanamz/mpipe/pkg/config"
	"github.com/germanamz/mpipe/pkg/providers"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// defaultProfile is the profile written by config init without --profile.
const defaultProfile = "default"

func newConfigCmd(s streams, opts *optionFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the profile file",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Validate the profile file (or only --profile)",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return runConfigCheck(s, opts)
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective options as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runConfigShow(cmd, s, opts)
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create or update a profile interactively",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return runConfigInit(s, opts)
			},
		},
	)

	return cmd
}

func runConfigCheck(s streams, opts *optionFlags) error {
	lookup, err := loadDotEnv(opts.envFile, s.lookupEnv)
	if err != nil {
		return err
	}

	path, err := config.Path(lookup)
	if err != nil {
		return err
	}

	f, err := config.LoadFile(path)
	if err != nil {
		return err
	}

	if opts.profile != "" {
		p, err := f.Profile(opts.profile)
		if err != nil {
			return err
		}
		if err := p.Validate(opts.profile); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	} else if err := f.Validate(); err != nil {
		return err
	}

	fmt.Fprintf(s.out, "config OK: %s\n", path)
	fmt.Fprintln(s.err, dimStyle.Render(fmt.Sprintf("profiles: %s", strings.Join(f.Names(), ", "))))

	return nil
}

// shownOptions is the YAML shape printed by config show. Unset optional
// values print as null.
type shownOptions struct {
	Provider     string            `yaml:"provider"`
	Endpoint     string            `yaml:"endpoint"`
	Model        string            `yaml:"model"`
	Temperature  *float64          `yaml:"temperature"`
	MaxTokens    *int              `yaml:"max_tokens"`
	TimeoutSecs  *int64            `yaml:"timeout_secs"`
	Retries      int               `yaml:"retries"`
	RetryDelayMS int64             `yaml:"retry_delay_ms"`
	Output       string            `yaml:"output"`
	ShowUsage    bool              `yaml:"show_usage"`
	FailOnEmpty  bool              `yaml:"fail_on_empty"`
	System       *string           `yaml:"system,omitempty"`
	Prompt       *string           `yaml:"prompt,omitempty"`
	Postprompt   *string           `yaml:"postprompt,omitempty"`
	APIKey       string            `yaml:"api_key"`
	Sources      map[string]string `yaml:"sources"`
}

func runConfigShow(cmd *cobra.Command, s streams, opts *optionFlags) error {
	lookup, err := loadDotEnv(opts.envFile, s.lookupEnv)
	if err != nil {
		return err
	}

	o, err := config.Resolve(opts.layer(cmd), opts.profile, lookup)
	if err != nil {
		return err
	}

	lookupProvider := s.providers
	if lookupProvider == nil {
		lookupProvider = providers.Lookup
	}

	p, err := lookupProvider(o.Provider, nil)
	if err != nil {
		return err
	}

	apiKey := p.KeyEnv() + " not set"
	if _, ok := providers.APIKey(p, lookup); ok {
		apiKey = p.KeyEnv() + " set"
	}

	shown := shownOptions{
		Provider:     o.Provider,
		Endpoint:     p.Endpoint(),
		Model:        o.Model,
		Temperature:  o.Temperature.Ptr(),
		MaxTokens:    o.MaxTokens.Ptr(),
		Retries:      o.Retries,
		RetryDelayMS: o.RetryDelay.Milliseconds(),
		Output:       string(o.Output),
		ShowUsage:    o.ShowUsage,
		FailOnEmpty:  o.FailOnEmpty,
		System:       o.System.Ptr(),
		Prompt:       o.Preprompt.Ptr(),
		Postprompt:   o.Postprompt.Ptr(),
		APIKey:       apiKey,
		Sources:      o.Sources,
	}
	if t, ok := o.Timeout.Get(); ok {
		secs := int64(t / time.Second)
		shown.TimeoutSecs = &secs
	}

	enc := yaml.NewEncoder(s.out)
	enc.SetIndent(2)
	if err := enc.Encode(shown); err != nil {
		return fmt.Errorf("config show: %w", err)
	}

	return enc.Close()
}

func runConfigInit(s streams, opts *optionFlags) error {
	lookup, err := loadDotEnv(opts.envFile, s.lookupEnv)
	if err != nil {
		return err
	}

	path, err := config.Path(lookup)
	if err != nil {
		return err
	}

	existing, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user.
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config init: %w", err)
	}

	name := opts.profile
	if name == "" {
		name = defaultProfile
	}

	var current config.Profile
	if len(existing) > 0 {
		f, err := config.ParseFile(path, existing)
		if err != nil {
			return err
		}
		current = f.Profiles[name]
	}

	wizard := s.wizard
	if wizard == nil {
		wizard = runProfileWizard
	}

	p, err := wizard(name, current)
	if err != nil {
		return err
	}

	data, err := config.MergeProfile(path, existing, name, p)
	if err != nil {
		return err
	}

	f, err := config.ParseFile(path, data)
	if err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}

	if len(existing) > 0 {
		diff, err := unifiedDiff(path, existing, data)
		if err != nil {
			return err
		}
		if diff == "" {
			fmt.Fprintf(s.err, "%s is up to date\n", path)
			return nil
		}

		fmt.Fprint(s.err, colorDiff(diff))

		confirm := s.confirm
		if confirm == nil {
			confirm = confirmOverwrite
		}

		ok, err := confirm(fmt.Sprintf("Overwrite %s?", path))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(s.err, "aborted, nothing written")
			return nil
		}
	}

	if err := atomicfile.Write(path, data, 0o600); err != nil {
		return fmt.Errorf("config init: %w", err)
	}

	fmt.Fprintf(s.err, "%s wrote profile %q to %s\n", okStyle.Render("✓"), name, path)

	return nil
}

func unifiedDiff(path string, a, b []byte) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: path,
		ToFile:   path + " (new)",
		Context:  3,
	}

	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("config init: diff: %w", err)
	}

	return out, nil
}

func colorDiff(diff string) string {
	lines := strings.SplitAfter(diff, "\n")
	var sb strings.Builder

	for _, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		nl := line[len(body):]

		switch {
		case strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"):
			sb.WriteString(dimStyle.Render(body))
		case strings.HasPrefix(body, "@@"):
			sb.WriteString(diffHunkStyle.Render(body))
		case strings.HasPrefix(body, "+"):
			sb.WriteString(diffAddStyle.Render(body))
		case strings.HasPrefix(body, "-"):
			sb.WriteString(diffRemoveStyle.Render(body))
		default:
			sb.WriteString(body)
		}
		sb.WriteString(nl)
	}

	return sb.String()
}
