package main

import (
	"time"

	"github.com/germanamz/mpipe/pkg/config"
	"github.com/germanamz/mpipe/pkg/pipeline"
	"github.com/germanamz/mpipe/pkg/render"
	"github.com/spf13/cobra"
)

// optionFlags are the flags shared by the root command and the config
// subcommands.
type optionFlags struct {
	prompt      string
	postprompt  string
	system      string
	provider    string
	model       string
	profile     string
	temperature float64
	maxTokens   int
	timeout     int
	retries     int
	retryDelay  int
	output      string
	json        bool
	showUsage   bool
	failOnEmpty bool
	envFile     string
}

func (f *optionFlags) register(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.StringVar(&f.prompt, "prompt", "", "text placed before the main prompt")
	fs.StringVar(&f.postprompt, "postprompt", "", "text placed after the main prompt")
	fs.StringVar(&f.system, "system", "", "system message")
	fs.StringVar(&f.provider, "provider", "", "provider: openai or fireworks (default openai)")
	fs.StringVar(&f.model, "model", "", "model name")
	fs.StringVar(&f.profile, "profile", "", "named profile from the config file")
	fs.Float64Var(&f.temperature, "temperature", 0, "sampling temperature, 0.0 to 2.0")
	fs.IntVar(&f.maxTokens, "max-tokens", 0, "maximum tokens in the answer")
	fs.IntVar(&f.timeout, "timeout", 0, "per-attempt timeout in seconds")
	fs.IntVar(&f.retries, "retries", 0, "extra attempts after a transient failure")
	fs.IntVar(&f.retryDelay, "retry-delay", 0, "initial backoff in milliseconds (default 500)")
	fs.StringVar(&f.output, "output", "", "output format: text or json (default text)")
	fs.BoolVar(&f.json, "json", false, "shorthand for --output json")
	fs.BoolVar(&f.showUsage, "show-usage", false, "print token usage and latency to stderr")
	fs.BoolVar(&f.failOnEmpty, "fail-on-empty", false, "fail when the answer is blank")
	fs.StringVar(&f.envFile, "env-file", "", "load variables from this .env file (ignored if missing)")
}

// layer turns the flags the user actually set into a resolution layer.
func (f *optionFlags) layer(cmd *cobra.Command) config.Layer {
	var l config.Layer

	changed := cmd.Flags().Changed

	if changed("provider") {
		l.Provider = config.Some(f.provider)
	}
	if changed("model") {
		l.Model = config.Some(f.model)
	}
	if changed("temperature") {
		l.Temperature = config.Some(f.temperature)
	}
	if changed("max-tokens") {
		l.MaxTokens = config.Some(f.maxTokens)
	}
	if changed("timeout") {
		l.Timeout = config.Some(time.Duration(f.timeout) * time.Second)
	}
	if changed("retries") {
		l.Retries = config.Some(f.retries)
	}
	if changed("retry-delay") {
		l.RetryDelay = config.Some(time.Duration(f.retryDelay) * time.Millisecond)
	}
	if changed("output") {
		l.Output = config.Some(f.output)
	}
	if changed("json") && f.json {
		l.Output = config.Some(string(config.OutputJSON))
	}
	if changed("show-usage") {
		l.ShowUsage = config.Some(f.showUsage)
	}
	if changed("fail-on-empty") {
		l.FailOnEmpty = config.Some(f.failOnEmpty)
	}
	if changed("system") {
		l.System = config.Some(f.system)
	}
	if changed("prompt") {
		l.Preprompt = config.Some(f.prompt)
	}
	if changed("postprompt") {
		l.Postprompt = config.Some(f.postprompt)
	}

	return l
}

func newRootCmd(s streams) *cobra.Command {
	var (
		opts     optionFlags
		verbose  bool
		dryRun   bool
		markdown bool
		save     string
	)

	cmd := &cobra.Command{
		Use:   "mpipe [prompt]",
		Short: "Send one prompt to an LLM provider and print the answer",
		Long: "mpipe sends a single prompt to an OpenAI-compatible chat completions API and prints the answer.\n\n" +
			"The prompt is the argument, or standard input when no argument is given. Options are taken\n" +
			"from flags, then MP_* environment variables, then the --profile section of the config file.",
		Args:          cobra.MaximumNArgs(1),
		Version:       versionString(),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			lookup, err := loadDotEnv(opts.envFile, s.lookupEnv)
			if err != nil {
				return err
			}

			flags := opts.layer(cmd)
			if len(args) == 1 {
				flags.Main = config.Some(args[0])
			}

			p := &pipeline.Pipeline{
				Stdin:            s.in,
				StdinInteractive: s.inTTY,
				Stdout:           s.out,
				Stderr:           s.err,
				LookupEnv:        lookup,
				Providers:        s.providers,
				Logger:           newLogger(s.err, verbose),
			}

			if markdown {
				md, err := render.NewMarkdown(s.width)
				if err != nil {
					return err
				}
				p.Markdown = md
			}

			if s.errTTY && !verbose {
				p.Progress = func(label string) func() {
					return startSpinner(s.err, label)
				}
			}

			return p.Run(cmd.Context(), pipeline.Invocation{
				Flags:   flags,
				Profile: opts.profile,
				DryRun:  dryRun,
				Verbose: verbose,
				Save:    save,
			})
		},
	}

	cmd.SetIn(s.in)
	cmd.SetOut(s.out)
	cmd.SetErr(s.err)
	cmd.SetVersionTemplate("{{.Version}}\n")

	opts.register(cmd)

	f := cmd.Flags()
	f.BoolVar(&verbose, "verbose", false, "print resolved options and debug logs to stderr")
	f.BoolVar(&dryRun, "dry-run", false, "print the request instead of sending it")
	f.BoolVar(&markdown, "markdown", false, "render the text answer as markdown")
	f.StringVar(&save, "save", "", "also write the output to this file")
	f.BoolP("version", "V", false, "print version information")

	cmd.AddCommand(newConfigCmd(s, &opts))

	return cmd
}
