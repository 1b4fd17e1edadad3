// Package alphavantage implements the Alpha Vantage fallback provider.
// OVERVIEW carries market cap and shares outstanding as decimal strings;
// GLOBAL_QUOTE carries the price. The free tier throttles aggressively and
// signals it with a "Note" body instead of a 429.
package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/pkg/httputil"
	"github.com/t2dlabs/pulse/pkg/logger"
)

const providerName = "alphavantage"

// Client talks to the Alpha Vantage REST API.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

// NewClient creates a new Alpha Vantage client.
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

type overviewResponse struct {
	Symbol               string `json:"Symbol"`
	MarketCapitalization string `json:"MarketCapitalization"`
	SharesOutstanding    string `json:"SharesOutstanding"`
	Note                 string `json:"Note"`
	Information          string `json:"Information"`
}

type globalQuoteResponse struct {
	GlobalQuote struct {
		Price string `json:"05. price"`
	} `json:"Global Quote"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// Fetch retrieves price, market cap and shares outstanding for one symbol.
func (c *Client) Fetch(ctx context.Context, symbol string) (contracts.Quote, error) {
	if symbol == "" {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonMalformedResponse,
			Err:      fmt.Errorf("empty symbol"),
		}
	}

	if c.apiKey == "" {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonTransportError,
			Err:      fmt.Errorf("no API key configured"),
		}
	}

	var overview overviewResponse
	overviewURL := fmt.Sprintf("%s/query?function=OVERVIEW&symbol=%s&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), c.apiKey)
	if err := c.httpClient.GetJSON(ctx, overviewURL, &overview); err != nil {
		return contracts.Quote{}, c.classify(symbol, err)
	}

	if throttled(overview.Note, overview.Information) {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonRateLimited,
			Err:      fmt.Errorf("throttle note in response"),
		}
	}

	// Unknown symbols come back as an empty object.
	if overview.Symbol == "" {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonNotFound,
		}
	}

	marketCap, err := strconv.ParseFloat(overview.MarketCapitalization, 64)
	if err != nil {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonMalformedResponse,
			Err:      fmt.Errorf("parse market cap %q: %w", overview.MarketCapitalization, err),
		}
	}

	shares, err := strconv.ParseFloat(overview.SharesOutstanding, 64)
	if err != nil {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonMalformedResponse,
			Err:      fmt.Errorf("parse shares outstanding %q: %w", overview.SharesOutstanding, err),
		}
	}

	var quote globalQuoteResponse
	quoteURL := fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), c.apiKey)
	if err := c.httpClient.GetJSON(ctx, quoteURL, &quote); err != nil {
		return contracts.Quote{}, c.classify(symbol, err)
	}

	if throttled(quote.Note, quote.Information) {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonRateLimited,
			Err:      fmt.Errorf("throttle note in response"),
		}
	}

	price, err := strconv.ParseFloat(quote.GlobalQuote.Price, 64)
	if err != nil || price <= 0 {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonMalformedResponse,
			Err:      fmt.Errorf("parse price %q", quote.GlobalQuote.Price),
		}
	}

	if marketCap == 0 && shares > 0 {
		marketCap = price * shares
	}

	return contracts.Quote{
		Price:             price,
		MarketCap:         marketCap,
		SharesOutstanding: shares,
		Source:            providerName,
	}, nil
}

func throttled(note, information string) bool {
	return note != "" || information != ""
}

func (c *Client) classify(symbol string, err error) error {
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) {
		reason := contracts.ReasonTransportError
		switch statusErr.Code {
		case http.StatusTooManyRequests:
			reason = contracts.ReasonRateLimited
		case http.StatusNotFound:
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
