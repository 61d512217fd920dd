package errs_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradedesk/internal/errs"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, errs.ExitOK},
		{"not found", &errs.NotFoundError{Kind: "symbol", Query: "ZZZZ"}, errs.ExitNotFound},
		{"ambiguous", &errs.AmbiguousError{Query: "ameri"}, errs.ExitNotFound},
		{"upstream", &errs.UpstreamError{Provider: "yahoo"}, errs.ExitUpstream},
		{"rate limited", &errs.RateLimitError{Provider: "yahoo"}, errs.ExitRateLimited},
		{"usage", errs.Usagef("provide --ticker or --name"), errs.ExitUsage},
		{"wrapped not found", fmt.Errorf("search: %w", &errs.NotFoundError{Query: "x"}), errs.ExitNotFound},
		{"timeout", context.DeadlineExceeded, errs.ExitUpstream},
		{"wrapped cancel", fmt.Errorf("yahoo: %w", context.Canceled), errs.ExitUpstream},
		{"unknown flag", errors.New("unknown flag: --symbol"), errs.ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, errs.ExitCode(tt.err))
		})
	}
}

func TestUpstreamError_Unwrap(t *testing.T) {
	t.Parallel()

	err := &errs.UpstreamError{Provider: "yahoo", Message: "performing request", Cause: context.DeadlineExceeded}

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, "yahoo: performing request: context deadline exceeded", err.Error())
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	require.Equal(t, `no results for name "Nope"`, (&errs.NotFoundError{Kind: "name", Query: "Nope"}).Error())
	require.Equal(t,
		`"micro" is ambiguous: Microsoft Corporation (MSFT), Micron Technology, Inc. (MU)`,
		(&errs.AmbiguousError{Query: "micro", Candidates: []errs.Candidate{
			{Symbol: "MSFT", Name: "Microsoft Corporation"},
			{Symbol: "MU", Name: "Micron Technology, Inc."},
		}}).Error())
	require.Equal(t, "polygon: rate limited, retry after 30s",
		(&errs.RateLimitError{Provider: "polygon", RetryAfter: 30 * time.Second}).Error())
	require.Equal(t, "yahoo: unexpected response (status 502)",
		(&errs.UpstreamError{Provider: "yahoo", StatusCode: 502, Message: "unexpected response"}).Error())
}
