package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// mockAdapter is a scriptable provider for cascade tests.
type mockAdapter struct {
	name  string
	fetch func(symbol string) (contracts.Quote, error)

	mu    sync.Mutex
	calls int
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Fetch(ctx context.Context, symbol string) (contracts.Quote, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fetch(symbol)
}

func (m *mockAdapter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func success(name string, cap float64) *mockAdapter {
	return &mockAdapter{name: name, fetch: func(symbol string) (contracts.Quote, error) {
		return contracts.Quote{Price: 1, MarketCap: cap, Source: name}, nil
	}}
}

func failing(name string, reason contracts.FetchReason) *mockAdapter {
	return &mockAdapter{name: name, fetch: func(symbol string) (contracts.Quote, error) {
		return contracts.Quote{}, &contracts.FetchError{Provider: name, Symbol: symbol, Reason: reason}
	}}
}

func newResolver(t *testing.T, adapters ...contracts.Adapter) *Resolver {
	t.Helper()
	order := make([]string, len(adapters))
	for i, a := range adapters {
		order[i] = a.Name()
	}
	r, err := NewResolver(adapters, order, 0, logger.NewWriter(nil))
	require.NoError(t, err)
	return r
}

func TestResolveFirstProviderWins(t *testing.T) {
	first := success("first", 100)
	second := success("second", 200)
	r := newResolver(t, first, second)

	quote, err := r.Resolve(context.Background(), "AAA")
	require.NoError(t, err)
	assert.Equal(t, "first", quote.Source)
	assert.Equal(t, 1, first.callCount())
	assert.Equal(t, 0, second.callCount())
}

func TestResolveFallsThroughToNextProvider(t *testing.T) {
	first := failing("first", contracts.ReasonNotFound)
	second := success("second", 200)
	r := newResolver(t, first, second)

	quote, err := r.Resolve(context.Background(), "AAA")
	require.NoError(t, err)
	assert.Equal(t, "second", quote.Source)
	assert.InDelta(t, 200, quote.MarketCap, 1e-9)
}

func TestResolveMemoizesSuccess(t *testing.T) {
	first := success("first", 100)
	r := newResolver(t, first)

	_, err := r.Resolve(context.Background(), "AAA")
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), "AAA")
	require.NoError(t, err)

	assert.Equal(t, 1, first.callCount())
}

func TestResolveMemoizesFailure(t *testing.T) {
	first := failing("first", contracts.ReasonNotFound)
	r := newResolver(t, first)

	_, err1 := r.Resolve(context.Background(), "AAA")
	require.Error(t, err1)
	_, err2 := r.Resolve(context.Background(), "AAA")
	require.Error(t, err2)

	assert.Equal(t, 1, first.callCount())
	assert.Equal(t, err1, err2)
}

func TestResolveAllFailReturnsMissingDataError(t *testing.T) {
	r := newResolver(t,
		failing("first", contracts.ReasonRateLimited),
		failing("second", contracts.ReasonNotFound),
	)

	_, err := r.Resolve(context.Background(), "AAA")

	var missingErr *contracts.MissingDataError
	require.True(t, errors.As(err, &missingErr))
	assert.Equal(t, "AAA", missingErr.Symbol)
	require.Len(t, missingErr.Attempts, 2)
	assert.Equal(t, "first=rate_limited,second=not_found", missingErr.Reason())
}

func TestResolvePlainErrorBecomesTransportFailure(t *testing.T) {
	broken := &mockAdapter{name: "broken", fetch: func(symbol string) (contracts.Quote, error) {
		return contracts.Quote{}, errors.New("connection refused")
	}}
	r := newResolver(t, broken)

	_, err := r.Resolve(context.Background(), "AAA")

	var missingErr *contracts.MissingDataError
	require.True(t, errors.As(err, &missingErr))
	require.Len(t, missingErr.Attempts, 1)
	assert.Equal(t, contracts.ReasonTransportError, missingErr.Attempts[0].Reason)
}

func TestResolveRateLimitPauseHonorsCancellation(t *testing.T) {
	adapters := []contracts.Adapter{
		failing("first", contracts.ReasonRateLimited),
		success("second", 200),
	}
	r, err := NewResolver(adapters, []string{"first", "second"}, time.Minute, logger.NewWriter(nil))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = r.Resolve(ctx, "AAA")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResolveCancelledRunIsNotMemoized(t *testing.T) {
	first := failing("first", contracts.ReasonRateLimited)
	second := success("second", 200)
	r, err := NewResolver([]contracts.Adapter{first, second}, []string{"first", "second"}, time.Minute, logger.NewWriter(nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Resolve(ctx, "AAA")
	require.Error(t, err)

	// A fresh context within the same resolver still walks the cascade.
	first.fetch = func(symbol string) (contracts.Quote, error) {
		return contracts.Quote{Price: 1, MarketCap: 50, Source: "first"}, nil
	}
	quote, err := r.Resolve(context.Background(), "AAA")
	require.NoError(t, err)
	assert.Equal(t, "first", quote.Source)
}

func TestNewResolverRejectsUnknownProvider(t *testing.T) {
	_, err := NewResolver([]contracts.Adapter{success("first", 1)}, []string{"first", "ghost"}, 0, logger.NewWriter(nil))
	assert.Error(t, err)

	_, err = NewResolver([]contracts.Adapter{success("first", 1)}, nil, 0, logger.NewWriter(nil))
	assert.Error(t, err)
}
