// Package errs defines the error kinds a lookup can end in and how each one
// maps to a process exit code.
package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Exit codes returned by the CLI.
const (
	ExitOK          = 0
	ExitNotFound    = 1
	ExitUsage       = 2
	ExitUpstream    = 3
	ExitRateLimited = 4
)

// NotFoundError reports an unknown ticker or company name.
type NotFoundError struct {
	// Kind is "symbol" or "name".
	Kind  string
	Query string
}

func (e *NotFoundError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("no results for %q", e.Query)
	}
	return fmt.Sprintf("no results for %s %q", e.Kind, e.Query)
}

// Candidate is one of the competing matches reported by AmbiguousError.
type Candidate struct {
	Symbol string
	Name   string
}

// AmbiguousError reports a name that matches several companies equally well.
type AmbiguousError struct {
	Query      string
	Candidates []Candidate
}

func (e *AmbiguousError) Error() string {
	parts := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		if c.Name != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", c.Name, c.Symbol))
		} else {
			parts = append(parts, c.Symbol)
		}
	}
	return fmt.Sprintf("%q is ambiguous: %s", e.Query, strings.Join(parts, ", "))
}

// UpstreamError reports an unreachable provider or a response that could not
// be understood.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Provider != "" {
		return e.Provider + ": " + msg
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// RateLimitError reports that the provider, or the local limiter in front of
// it, refused the request.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	msg := "rate limited"
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.RetryAfter > 0 {
		msg = fmt.Sprintf("%s, retry after %s", msg, e.RetryAfter.Round(time.Second))
	}
	return msg
}

// UsageError reports invalid command-line input or configuration.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// Usagef builds a UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error to the process exit code. Cancellation and timeouts
// count as upstream failures; untyped errors come from flag parsing or setup
// and count as usage errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var notFound *NotFoundError
	var ambiguous *AmbiguousError
	var upstream *UpstreamError
	var limited *RateLimitError
	var usage *UsageError

	switch {
	case errors.As(err, &notFound), errors.As(err, &ambiguous):
		return ExitNotFound
	case errors.As(err, &limited):
		return ExitRateLimited
	case errors.As(err, &upstream):
		return ExitUpstream
	case errors.As(err, &usage):
		return ExitUsage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ExitUpstream
	default:
		return ExitUsage
	}
}
