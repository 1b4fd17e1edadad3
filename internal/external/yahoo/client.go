// Package yahoo implements the Yahoo Finance fallback provider on top of
// piquette/finance-go. Yahoo needs no API key, which makes it the natural
// second tier when Finnhub is rate limited.
package yahoo

import (
	"context"
	"fmt"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/pkg/logger"
)

const providerName = "yahoo"

// Client fetches quotes from Yahoo Finance.
type Client struct {
	logger *logger.Logger
}

// NewClient creates a new Yahoo Finance client.
func NewClient(log *logger.Logger) *Client {
	return &Client{
		logger: log.WithField("provider", providerName),
	}
}

// Name returns the provider identifier used by the cascade configuration.
func (c *Client) Name() string {
	return providerName
}

// Fetch retrieves price, market cap and shares outstanding for one symbol.
// The finance-go library has no context support, so the call runs in a
// goroutine and the requester abandons it when the context expires.
func (c *Client) Fetch(ctx context.Context, symbol string) (contracts.Quote, error) {
	if symbol == "" {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonMalformedResponse,
			Err:      fmt.Errorf("empty symbol"),
		}
	}

	type result struct {
		q   *finance.Equity
		err error
	}

	ch := make(chan result, 1)
	go func() {
		q, err := equity.Get(symbol)
		ch <- result{q: q, err: err}
	}()

	select {
	case <-ctx.Done():
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonTransportError,
			Err:      ctx.Err(),
		}
	case r := <-ch:
		return c.convert(symbol, r.q, r.err)
	}
}

func (c *Client) convert(symbol string, q *finance.Equity, err error) (contracts.Quote, error) {
	if err != nil {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonTransportError,
			Err:      err,
		}
	}

	if q == nil {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonNotFound,
		}
	}

	price := q.RegularMarketPrice
	if price <= 0 {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonNotFound,
			Err:      fmt.Errorf("no regular market price"),
		}
	}

	marketCap := float64(q.MarketCap)
	shares := float64(q.SharesOutstanding)
	if marketCap == 0 && shares > 0 {
		marketCap = price * shares
	}
	if marketCap == 0 {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonMalformedResponse,
			Err:      fmt.Errorf("quote carries no market cap or share count"),
		}
	}

	return contracts.Quote{
		Price:             price,
		MarketCap:         marketCap,
		SharesOutstanding: shares,
		Source:            providerName,
	}, nil
}
