// Package ingest implements the daily market-cap ingestion pipeline: the
// provider fetch cascade with its per-run cache, and the collector that
// drives a full run across the instrument universe.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// Resolver resolves one symbol to a quote by walking the configured provider
// order. The first provider to answer wins; a provider failure moves on to
// the next. Results, including failures, are memoized for the lifetime of
// the Resolver, which lives exactly one ingestion run.
type Resolver struct {
	adapters map[string]contracts.Adapter
	order    []string
	pause    time.Duration
	logger   *logger.Logger

	mu    sync.Mutex
	cache map[string]resolution
}

type resolution struct {
	quote contracts.Quote
	err   error
}

// NewResolver builds a Resolver over the given adapters. Every name in order
// must be the Name() of one of the adapters.
func NewResolver(adapters []contracts.Adapter, order []string, pause time.Duration, log *logger.Logger) (*Resolver, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("provider order is empty")
	}

	byName := make(map[string]contracts.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	for _, name := range order {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("provider order names unknown provider %q", name)
		}
	}

	return &Resolver{
		adapters: byName,
		order:    order,
		pause:    pause,
		logger:   log.WithField("module", "resolver"),
		cache:    make(map[string]resolution),
	}, nil
}

// Resolve returns the quote for symbol, walking providers in priority order.
// When every provider fails the error is a *contracts.MissingDataError
// carrying each provider's failure reason; the caller must treat the symbol
// as absent, never substitute a value.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (contracts.Quote, error) {
	r.mu.Lock()
	if cached, ok := r.cache[symbol]; ok {
		r.mu.Unlock()
		return cached.quote, cached.err
	}
	r.mu.Unlock()

	quote, err := r.cascade(ctx, symbol)

	// Context failures are not memoized: a cancelled run must not poison a
	// retried symbol within the same Resolver.
	if err != nil && ctx.Err() != nil {
		return contracts.Quote{}, err
	}

	r.mu.Lock()
	r.cache[symbol] = resolution{quote: quote, err: err}
	r.mu.Unlock()

	return quote, err
}

func (r *Resolver) cascade(ctx context.Context, symbol string) (contracts.Quote, error) {
	attempts := make([]contracts.FetchError, 0, len(r.order))

	for i, name := range r.order {
		adapter := r.adapters[name]

		quote, err := adapter.Fetch(ctx, symbol)
		if err == nil {
			if i > 0 {
				r.logger.WithFields(map[string]interface{}{
					"symbol":   symbol,
					"provider": name,
					"attempt":  i + 1,
				}).Debug("Resolved after fallback")
			}
			return quote, nil
		}

		fetchErr := asFetchError(err, name, symbol)
		attempts = append(attempts, *fetchErr)

		r.logger.WithFields(map[string]interface{}{
			"symbol":   symbol,
			"provider": name,
			"reason":   string(fetchErr.Reason),
		}).Debug("Provider failed, trying next")

		// Back off before the next provider after a throttle, but never
		// retry the same provider within a run.
		if fetchErr.Reason == contracts.ReasonRateLimited && i < len(r.order)-1 {
			if err := sleepCtx(ctx, r.pause); err != nil {
				return contracts.Quote{}, err
			}
		}

		if ctx.Err() != nil {
			return contracts.Quote{}, ctx.Err()
		}
	}

	return contracts.Quote{}, &contracts.MissingDataError{
		Symbol:   symbol,
		Attempts: attempts,
	}
}

// asFetchError normalizes adapter errors; an adapter returning a plain error
// is treated as a transport failure.
func asFetchError(err error, provider, symbol string) *contracts.FetchError {
	var fetchErr *contracts.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr
	}
	return &contracts.FetchError{
		Provider: provider,
		Symbol:   symbol,
		Reason:   contracts.ReasonTransportError,
		Err:      err,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
