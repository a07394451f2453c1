// Package usage holds the token counters a provider reports for one call.
package usage

import (
	"strconv"
	"strings"
)

// Usage holds provider-reported token counters. A nil field means the provider
// did not report that counter; nothing is estimated.
type Usage struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
	TotalTokens      *int `json:"total_tokens"`
}

// New returns a Usage for the given counters, or nil when none is reported.
func New(prompt, completion, total *int) *Usage {
	if prompt == nil && completion == nil && total == nil {
		return nil
	}

	return &Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}

// Fields renders the counters as space separated key=value pairs, with "n/a"
// for counters the provider left out.
func (u *Usage) Fields() string {
	var b strings.Builder
	b.WriteString("prompt_tokens=")
	b.WriteString(count(u.PromptTokens))
	b.WriteString(" completion_tokens=")
	b.WriteString(count(u.CompletionTokens))
	b.WriteString(" total_tokens=")
	b.WriteString(count(u.TotalTokens))

	return b.String()
}

func count(v *int) string {
	if v == nil {
		return "n/a"
	}
	return strconv.Itoa(*v)
}
