package modeladapter

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// maxErrorBody bounds how much of a failed response body is kept in errors.
const maxErrorBody = 2048

// RateLimitError is returned when the API responds with HTTP 429 (Too Many Requests).
// RetryAfter is the longest wait hinted by Retry-After or the provider's
// rate limit reset headers; zero when the response carried no usable hint.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("rate limited: %s", e.Body)
}

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// ServerError reports whether the status is in the 5xx range.
func (e *StatusError) ServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode <= 599
}

// DecodeError is returned when a 2xx response body is not a usable chat
// completions payload.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode response: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError wraps failures to reach the endpoint or to read its response:
// connection errors, resets and per-attempt deadlines.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "do request: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// ParseRetryAfter parses the Retry-After header value as either seconds (integer)
// or an HTTP-date (RFC 7231). Returns zero if unparseable or if the date is in the past.
func ParseRetryAfter(val string, now time.Time) time.Duration {
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
