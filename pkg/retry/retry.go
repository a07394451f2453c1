// Package retry executes a built request with per-attempt timeouts and
// exponential backoff between retryable failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/germanamz/mpipe/pkg/modeladapter"
	"github.com/germanamz/mpipe/pkg/outcome"
)

// MaxBackoff caps every sleep between attempts.
const MaxBackoff = 30 * time.Second

// Policy configures an [Executor]. Retries is the number of extra attempts
// after the first; Timeout bounds each attempt and is disabled when zero.
type Policy struct {
	Retries     int
	Delay       time.Duration
	Timeout     time.Duration
	FailOnEmpty bool
}

// AttemptFunc performs one attempt under ctx.
type AttemptFunc func(ctx context.Context) outcome.Outcome

// Executor runs attempts until one succeeds, one fails fatally or the retry
// budget is spent. Attempts never overlap.
type Executor struct {
	policy Policy
	log    *slog.Logger

	// nowFunc is used for testing; defaults to time.Now.
	nowFunc func() time.Time
	// sleepFunc is used for testing; defaults to a context-aware sleep.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// New creates an Executor for p.
func New(p Policy) *Executor {
	return &Executor{
		policy:    p,
		log:       slog.New(slog.DiscardHandler),
		nowFunc:   time.Now,
		sleepFunc: contextSleep,
	}
}

// SetNowFunc overrides the time source (for testing).
func (e *Executor) SetNowFunc(fn func() time.Time) { e.nowFunc = fn }

// SetSleepFunc overrides the sleep function (for testing).
func (e *Executor) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	e.sleepFunc = fn
}

// SetLogger sets the logger used for attempt and backoff events.
func (e *Executor) SetLogger(log *slog.Logger) { e.log = log }

// contextSleep sleeps for d or until ctx is cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns the sleep after the failed attempt with 0-based index n:
// base * 2^n, capped at [MaxBackoff].
func Backoff(base time.Duration, n int) time.Duration {
	d := base
	for i := 0; i < n && d < MaxBackoff; i++ {
		d *= 2
	}

	return min(d, MaxBackoff)
}

// Run sends req through c with the policy's timeout and retries.
func (e *Executor) Run(ctx context.Context, c modeladapter.Completer, req *modeladapter.Request) outcome.Result {
	res := e.Execute(ctx, func(ctx context.Context) outcome.Outcome {
		attemptCtx := ctx
		if e.policy.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, e.policy.Timeout)
			defer cancel()
		}

		completion, err := c.Complete(attemptCtx, req)
		if err != nil {
			return Classify(ctx, err)
		}

		return outcome.Success{Answer: completion.Content, Usage: completion.Usage}
	})

	if answered, ok := res.(outcome.Answered); ok {
		answered.Request = req
		return answered
	}

	return res
}

// Execute runs attempt up to Retries+1 times. Latency is measured from the
// start of the first attempt to the successful response.
func (e *Executor) Execute(ctx context.Context, attempt AttemptFunc) outcome.Result {
	start := e.nowFunc()

	var lastErr error
	attempts := 0

	for n := 0; n <= e.policy.Retries; n++ {
		if n > 0 {
			wait := e.wait(n-1, lastErr)
			e.log.DebugContext(ctx, "retrying after backoff",
				"attempt", n+1,
				"backoff", wait,
				"error", lastErr,
			)

			if err := e.sleepFunc(ctx, wait); err != nil {
				return outcome.Failed{Err: err, Attempts: attempts, Latency: e.nowFunc().Sub(start)}
			}
		}

		attempts++
		e.log.DebugContext(ctx, "attempt started", "attempt", attempts)

		switch o := attempt(ctx).(type) {
		case outcome.Success:
			latency := e.nowFunc().Sub(start)
			if e.policy.FailOnEmpty && strings.TrimSpace(o.Answer) == "" {
				return outcome.Failed{Err: outcome.ErrEmptyAnswer, Attempts: attempts, Latency: latency}
			}

			e.log.DebugContext(ctx, "attempt succeeded", "attempt", attempts, "latency", latency)

			return outcome.Answered{Answer: o.Answer, Usage: o.Usage, Latency: latency, Attempts: attempts}
		case outcome.FatalFailure:
			e.log.DebugContext(ctx, "attempt failed", "attempt", attempts, "retryable", false, "error", o.Cause)

			return outcome.Failed{Err: o.Cause, Attempts: attempts, Latency: e.nowFunc().Sub(start)}
		case outcome.RetryableFailure:
			e.log.DebugContext(ctx, "attempt failed", "attempt", attempts, "retryable", true, "error", o.Cause)
			lastErr = o.Cause
		default:
			return outcome.Failed{Err: fmt.Errorf("retry: unexpected outcome %T", o), Attempts: attempts}
		}
	}

	err := lastErr
	if attempts > 1 {
		err = fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
	}

	return outcome.Failed{Err: err, Attempts: attempts, Latency: e.nowFunc().Sub(start)}
}

// wait is the backoff after failed attempt n, stretched to a rate limit hint
// when the provider sent a longer one.
func (e *Executor) wait(n int, cause error) time.Duration {
	d := Backoff(e.policy.Delay, n)

	var rle *modeladapter.RateLimitError
	if errors.As(cause, &rle) && rle.RetryAfter > d {
		d = min(rle.RetryAfter, MaxBackoff)
	}

	return d
}

// Classify maps a Complete error to an attempt outcome. parent is the
// invocation context: once it is done nothing is retried.
func Classify(parent context.Context, err error) outcome.Outcome {
	if parent.Err() != nil {
		return outcome.FatalFailure{Cause: err}
	}

	var (
		rle          *modeladapter.RateLimitError
		statusErr    *modeladapter.StatusError
		transportErr *modeladapter.TransportError
		decodeErr    *modeladapter.DecodeError
	)

	switch {
	case errors.As(err, &rle):
		return outcome.RetryableFailure{Cause: err}
	case errors.As(err, &statusErr):
		if statusErr.ServerError() {
			return outcome.RetryableFailure{Cause: err}
		}
		return outcome.FatalFailure{Cause: err}
	case errors.As(err, &transportErr):
		if errors.Is(err, context.DeadlineExceeded) {
			return outcome.RetryableFailure{Cause: fmt.Errorf("request timed out: %w", err)}
		}
		return outcome.RetryableFailure{Cause: err}
	case errors.As(err, &decodeErr):
		return outcome.FatalFailure{Cause: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, io.ErrUnexpectedEOF):
		return outcome.RetryableFailure{Cause: err}
	default:
		return outcome.FatalFailure{Cause: err}
	}
}
