// Package finnhub implements the primary market-data provider.
// Finnhub's company profile carries market cap and shares outstanding in
// millions; the quote endpoint carries the current price.
package finnhub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/pkg/httputil"
	"github.com/t2dlabs/pulse/pkg/logger"
)

const providerName = "finnhub"

// Client talks to the Finnhub REST API.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

// NewClient creates a new Finnhub client.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("provider", providerName),
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Name returns the provider identifier used by the cascade configuration.
func (c *Client) Name() string {
	return providerName
}

// profileResponse mirrors /stock/profile2. Finnhub reports market cap and
// share count in millions.
type profileResponse struct {
	Name                 string  `json:"name"`
	MarketCapitalization float64 `json:"marketCapitalization"`
	ShareOutstanding     float64 `json:"shareOutstanding"`
}

// quoteResponse mirrors /quote; c is the current price.
type quoteResponse struct {
	Current float64 `json:"c"`
}

// Fetch retrieves price, market cap and shares outstanding for one symbol.
// No retries here; the cascade decides what happens on failure.
func (c *Client) Fetch(ctx context.Context, symbol string) (contracts.Quote, error) {
	if symbol == "" {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonMalformedResponse,
			Err:      fmt.Errorf("empty symbol"),
		}
	}

	var profile profileResponse
	profileURL := fmt.Sprintf("%s/stock/profile2?symbol=%s&token=%s",
		c.baseURL, url.QueryEscape(symbol), c.apiKey)
	if err := c.httpClient.GetJSON(ctx, profileURL, &profile); err != nil {
		return contracts.Quote{}, c.classify(symbol, err)
	}

	// Finnhub answers 200 with an empty object for unknown symbols.
	if profile.MarketCapitalization == 0 && profile.ShareOutstanding == 0 {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonNotFound,
		}
	}

	var quote quoteResponse
	quoteURL := fmt.Sprintf("%s/quote?symbol=%s&token=%s",
		c.baseURL, url.QueryEscape(symbol), c.apiKey)
	if err := c.httpClient.GetJSON(ctx, quoteURL, &quote); err != nil {
		return contracts.Quote{}, c.classify(symbol, err)
	}

	if quote.Current <= 0 {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonNotFound,
			Err:      fmt.Errorf("no current price"),
		}
	}

	shares := profile.ShareOutstanding * 1e6
	marketCap := profile.MarketCapitalization * 1e6
	if marketCap == 0 && shares > 0 {
		// Derived from the provider's own figures, not an estimate.
		marketCap = quote.Current * shares
	}

	return contracts.Quote{
		Price:             quote.Current,
		MarketCap:         marketCap,
		SharesOutstanding: shares,
		Source:            providerName,
	}, nil
}

// classify maps transport and status failures onto the fetch error taxonomy.
func (c *Client) classify(symbol string, err error) error {
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) {
		reason := contracts.ReasonTransportError
		switch {
		case statusErr.Code == http.StatusTooManyRequests:
			reason = contracts.ReasonRateLimited
		case statusErr.Code == http.StatusNotFound:
			reason = contracts.ReasonNotFound
		}
		return &contracts.FetchError{Provider: providerName, Symbol: symbol, Reason: reason, Err: err}
	}

	var decodeErr *httputil.DecodeError
	if errors.As(err, &decodeErr) {
		return &contracts.FetchError{Provider: providerName, Symbol: symbol, Reason: contracts.ReasonMalformedResponse, Err: err}
	}

	return &contracts.FetchError{Provider: providerName, Symbol: symbol, Reason: contracts.ReasonTransportError, Err: err}
}
