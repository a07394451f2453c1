// Package outcome defines what a single attempt produced and what a whole
// request execution produced.
package outcome

import (
	"errors"
	"time"

	"github.com/germanamz/mpipe/pkg/modeladapter"
	"github.com/germanamz/mpipe/pkg/modeladapter/usage"
)

// ErrEmptyAnswer is the failure reported when the answer is blank and empty
// answers are configured to fail.
var ErrEmptyAnswer = errors.New("model returned an empty answer (--fail-on-empty)")

// Outcome is the result of one attempt: [Success], [RetryableFailure] or
// [FatalFailure].
type Outcome interface {
	outcome()
}

// Success carries the assistant text and any usage the provider reported.
type Success struct {
	Answer string
	Usage  *usage.Usage
}

// RetryableFailure is a transient failure; another attempt may succeed.
type RetryableFailure struct {
	Cause error
}

// FatalFailure ends execution immediately.
type FatalFailure struct {
	Cause error
}

func (Success) outcome()          {}
func (RetryableFailure) outcome() {}
func (FatalFailure) outcome()     {}

// Result is the result of a whole execution: [Answered] or [Failed].
type Result interface {
	result()
}

// Answered is a successful execution. Latency spans from the first attempt's
// start to the successful response, sleeps included.
type Answered struct {
	Answer   string
	Usage    *usage.Usage
	Latency  time.Duration
	Attempts int
	Request  *modeladapter.Request
}

// Failed is an unsuccessful execution.
type Failed struct {
	Err      error
	Attempts int
	Latency  time.Duration
}

func (Answered) result() {}
func (Failed) result()   {}
