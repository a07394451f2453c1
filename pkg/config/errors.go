package config

import (
	"fmt"
	"strings"
)

// Kind classifies a configuration failure.
type Kind int

const (
	KindMissingModel Kind = iota + 1
	KindMissingAPIKey
	KindProfileNotFound
	KindProfileUnknown
	KindProfileInvalid
	KindOutOfRange
	KindInvalidValue
)

func (k Kind) String() string {
	switch k {
	case KindMissingModel:
		return "missing model"
	case KindMissingAPIKey:
		return "missing api key"
	case KindProfileNotFound:
		return "profile file not found"
	case KindProfileUnknown:
		return "unknown profile"
	case KindProfileInvalid:
		return "invalid profile"
	case KindOutOfRange:
		return "out of range"
	case KindInvalidValue:
		return "invalid value"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is; they match any [*Error] of the same kind.
var (
	ErrMissingModel    = &Error{Kind: KindMissingModel}
	ErrMissingAPIKey   = &Error{Kind: KindMissingAPIKey}
	ErrProfileNotFound = &Error{Kind: KindProfileNotFound}
	ErrProfileUnknown  = &Error{Kind: KindProfileUnknown}
	ErrProfileInvalid  = &Error{Kind: KindProfileInvalid}
	ErrOutOfRange      = &Error{Kind: KindOutOfRange}
	ErrInvalidValue    = &Error{Kind: KindInvalidValue}
)

// Error is a configuration failure. Every field except Kind is optional and
// only filled where it helps the message.
type Error struct {
	Kind   Kind
	Field  string // option name, e.g. "temperature"
	Source string // where the value came from, e.g. "--temperature" or "MP_TEMPERATURE"
	Value  string // offending raw value
	Path   string // profile file path
	Name   string // profile name or credential variable
	Hint   string // accepted values or range
	Err    error
}

func (e *Error) Error() string {
	var msg string

	switch e.Kind {
	case KindMissingModel:
		msg = "no model provided: use --model, set MP_MODEL, or set model in the profile"
	case KindMissingAPIKey:
		msg = fmt.Sprintf("%s is not set: export %s or use --dry-run to inspect the request", e.Name, e.Name)
	case KindProfileNotFound:
		msg = fmt.Sprintf("profile file %s not found", e.Path)
	case KindProfileUnknown:
		msg = fmt.Sprintf("profile %q not found in %s", e.Name, e.Path)
	case KindProfileInvalid:
		msg = fmt.Sprintf("invalid profile file %s", e.Path)
		if e.Name != "" {
			msg = fmt.Sprintf("invalid profile %q in %s", e.Name, e.Path)
		}
		if e.Hint != "" {
			msg += ": " + e.Hint
		}
	case KindOutOfRange:
		msg = fmt.Sprintf("%s %s from %s is out of range: %s", e.Field, e.Value, e.Source, e.Hint)
	case KindInvalidValue:
		msg = fmt.Sprintf("invalid %s %q", e.Source, e.Value)
		if e.Hint != "" {
			msg += ": " + e.Hint
		}
	default:
		msg = e.Kind.String()
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return "config: " + strings.TrimSpace(msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so the package sentinels work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
