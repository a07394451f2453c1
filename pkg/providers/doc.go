// Package providers is the closed registry of supported LLM providers and
// builds the provider-specific request for a resolved configuration.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/mpipe/pkg/providers/openai]: OpenAI chat completions
//   - [github.com/germanamz/mpipe/pkg/providers/fireworks]: Fireworks AI chat completions
//
// Both adapters embed [github.com/germanamz/mpipe/pkg/modeladapter.ModelAdapter]
// and differ only in endpoint and credential variable.
package providers
