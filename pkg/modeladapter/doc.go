// Package modeladapter defines the completion interface and the shared HTTP
// plumbing for OpenAI-compatible chat completions endpoints.
//
// It contains:
//   - [Completer] interface and embeddable [ModelAdapter] base struct with auth, custom headers and JSON POST helpers
//   - [Request], the fully built, provider-specific call description
//   - typed transport errors ([RateLimitError], [StatusError], [DecodeError], [TransportError])
//   - [github.com/germanamz/mpipe/pkg/modeladapter/usage] for provider-reported token counts
//
// This package contains no provider-specific code. Concrete adapters live in
// separate packages that import modeladapter.
package modeladapter
