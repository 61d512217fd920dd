package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tradedesk/internal/directory"
	"tradedesk/internal/errs"
	"tradedesk/internal/provider"
)

func builtinResolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()
	d, err := directory.Builtin()
	require.NoError(t, err)
	return New(d, opts...)
}

type fakeSearcher struct {
	symbol provider.Symbol
	name   string
	err    error
	calls  []string
}

func (f *fakeSearcher) SearchSymbol(_ context.Context, name string) (provider.Symbol, string, error) {
	f.calls = append(f.calls, name)
	return f.symbol, f.name, f.err
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Apple Inc.":              "apple",
		"apple":                   "apple",
		"The Walt Disney Company": "walt disney",
		"AT&T Inc.":               "at t",
		"Nestlé S.A.":             "nestle",
		"  MICROSOFT   corp. ":    "microsoft",
		"McDonald's":              "mcdonalds",
		"Merck & Co., Inc.":       "merck",
		"The":                     "the",
		"Inc":                     "inc",
		"!!!":                     "",
	}
	for in, want := range tests {
		require.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	r := builtinResolver(t)

	tests := []struct {
		query  string
		symbol provider.Symbol
		stage  string
	}{
		{query: "Apple Inc.", symbol: "AAPL", stage: StageExact},
		{query: "apple", symbol: "AAPL", stage: StageExact},
		{query: "aapl", symbol: "AAPL", stage: StageExact},
		{query: "Tesla", symbol: "TSLA", stage: StageExact},
		{query: "coca-cola", symbol: "KO", stage: StageExact},
		{query: "Nestlé", symbol: "NESN.SW", stage: StageExact},
		{query: "Google", symbol: "GOOG", stage: StageExact},
		{query: "Berk", symbol: "BRK.B", stage: StagePrefix},
		{query: "Netfl", symbol: "NFLX", stage: StagePrefix},
		{query: "Nvida", symbol: "NVDA", stage: StageFuzzy},
		{query: "Micorsoft", symbol: "MSFT", stage: StageFuzzy},
		{query: "Tesal", symbol: "TSLA", stage: StageFuzzy},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()

			m, err := r.Resolve(t.Context(), tt.query)
			require.NoError(t, err)
			require.Equal(t, tt.symbol, m.Symbol)
			require.Equal(t, tt.stage, m.Stage)
			require.NotEmpty(t, m.Name)
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	r := builtinResolver(t)
	for range 20 {
		m, err := r.Resolve(t.Context(), "Tesla")
		require.NoError(t, err)
		require.Equal(t, provider.Symbol("TSLA"), m.Symbol)
		require.Equal(t, "Tesla, Inc.", m.Name)
	}
}

func TestResolve_NotFound(t *testing.T) {
	t.Parallel()

	r := builtinResolver(t)

	// short queries never fuzz into ticker keys
	for _, q := range []string{"qwertyuiop", "   ", "!!!", "x", "ta", "nvd"} {
		_, err := r.Resolve(t.Context(), q)

		var nf *errs.NotFoundError
		require.ErrorAs(t, err, &nf, "query %q", q)
		require.Equal(t, "name", nf.Kind)
	}
}

func TestResolve_Ambiguous(t *testing.T) {
	t.Parallel()

	r := builtinResolver(t)

	tests := []struct {
		query   string
		symbols []string
	}{
		{query: "Alphabet", symbols: []string{"GOOG", "GOOGL"}},
		{query: "micro", symbols: []string{"MSFT", "MU"}},
	}

	for _, tt := range tests {
		_, err := r.Resolve(t.Context(), tt.query)

		var amb *errs.AmbiguousError
		require.ErrorAs(t, err, &amb, "query %q", tt.query)

		got := make([]string, 0, len(amb.Candidates))
		for _, c := range amb.Candidates {
			got = append(got, c.Symbol)
		}
		require.Equal(t, tt.symbols, got)
	}
}

func TestResolve_ExactTie(t *testing.T) {
	t.Parallel()

	d, err := directory.New([]directory.Entry{
		{Symbol: "ACME", Name: "Acme Corp", Exchange: "NYSE"},
		{Symbol: "ACMX", Name: "ACME Corporation", Exchange: "NASDAQ"},
		{Symbol: "BETA", Name: "Beta Inc", Exchange: "NYSE"},
	})
	require.NoError(t, err)

	_, err = New(d).Resolve(t.Context(), "acme")

	var amb *errs.AmbiguousError
	require.ErrorAs(t, err, &amb)
	require.Len(t, amb.Candidates, 2)
	require.Equal(t, "ACME", amb.Candidates[0].Symbol)
	require.Equal(t, "ACMX", amb.Candidates[1].Symbol)
}

func TestResolve_MaxDistance(t *testing.T) {
	t.Parallel()

	r := builtinResolver(t, WithMaxDistance(1))

	_, err := r.Resolve(t.Context(), "Micorsoft")

	var nf *errs.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestResolve_TickerKeysExactOnly(t *testing.T) {
	t.Parallel()

	d, err := directory.New([]directory.Entry{
		{Symbol: "TSLA", Name: "Tesla, Inc.", Exchange: "NASDAQ"},
		{Symbol: "T", Name: "AT&T Inc.", Exchange: "NYSE"},
	})
	require.NoError(t, err)
	r := New(d)

	// Act: the symbol itself still resolves
	m, err := r.Resolve(t.Context(), "tsla")
	require.NoError(t, err)
	require.Equal(t, provider.Symbol("TSLA"), m.Symbol)
	require.Equal(t, StageExact, m.Stage)

	// Act: neither a prefix nor a near miss of a symbol counts
	for _, q := range []string{"ts", "tsl", "tsle", "q"} {
		_, err = r.Resolve(t.Context(), q)

		var nf *errs.NotFoundError
		require.ErrorAs(t, err, &nf, "query %q", q)
	}
}

func TestResolve_RemoteFallback(t *testing.T) {
	t.Parallel()

	remote := &fakeSearcher{symbol: "RIVN", name: "Rivian Automotive, Inc."}
	r := builtinResolver(t, WithRemote(remote))

	// Act: local hit never reaches the remote
	m, err := r.Resolve(t.Context(), "Tesla")
	require.NoError(t, err)
	require.Equal(t, provider.Symbol("TSLA"), m.Symbol)
	require.Empty(t, remote.calls)

	// Act: ambiguity is not a miss
	_, err = r.Resolve(t.Context(), "Alphabet")
	var amb *errs.AmbiguousError
	require.ErrorAs(t, err, &amb)
	require.Empty(t, remote.calls)

	// Act: local miss goes remote
	m, err = r.Resolve(t.Context(), " Rivian ")
	require.NoError(t, err)
	require.Equal(t, provider.Symbol("RIVN"), m.Symbol)
	require.Equal(t, StageRemote, m.Stage)
	require.Equal(t, []string{"Rivian"}, remote.calls)
}

func TestResolve_RemoteErrors(t *testing.T) {
	t.Parallel()

	remote := &fakeSearcher{err: &errs.UpstreamError{Provider: "yahoo", StatusCode: 503}}
	r := builtinResolver(t, WithRemote(remote))

	_, err := r.Resolve(t.Context(), "Rivian")

	var up *errs.UpstreamError
	require.ErrorAs(t, err, &up)
	require.Equal(t, 503, up.StatusCode)
}
