// Package stockanalysis implements the last-resort provider, scraping the
// stockanalysis.com quote page. It exists for the handful of symbols the
// JSON providers refuse; keep it at the bottom of the cascade.
package stockanalysis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/pkg/httputil"
	"github.com/t2dlabs/pulse/pkg/logger"
)

const providerName = "stockanalysis"

// Client scrapes stockanalysis.com.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new stockanalysis.com client.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("provider", providerName),
		baseURL:    baseURL,
	}
}

// Name returns the provider identifier used by the cascade configuration.
func (c *Client) Name() string {
	return providerName
}

// Fetch scrapes price, market cap and shares outstanding for one symbol.
func (c *Client) Fetch(ctx context.Context, symbol string) (contracts.Quote, error) {
	if symbol == "" {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonMalformedResponse,
			Err:      fmt.Errorf("empty symbol"),
		}
	}

	url := fmt.Sprintf("%s/stocks/%s/", c.baseURL, strings.ToLower(symbol))
	resp, err := c.httpClient.GetWithHeaders(ctx, url, map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	})
	if err != nil {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonTransportError,
			Err:      err,
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonNotFound,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonRateLimited,
		}
	case resp.StatusCode != http.StatusOK:
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonTransportError,
			Err:      fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonTransportError,
			Err:      err,
		}
	}

	quote, err := c.parseQuotePage(string(body))
	if err != nil {
		return contracts.Quote{}, &contracts.FetchError{
			Provider: providerName,
			Symbol:   symbol,
			Reason:   contracts.ReasonMalformedResponse,
			Err:      err,
		}
	}

	quote.Source = providerName
	return quote, nil
}

// parseQuotePage extracts the quote from the overview page. The price sits
// in the quote header; market cap and shares outstanding sit in the
// statistics tables as label/value cell pairs.
func (c *Client) parseQuotePage(html string) (contracts.Quote, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return contracts.Quote{}, fmt.Errorf("parse HTML: %w", err)
	}

	var quote contracts.Quote

	priceText := doc.Find(`div[data-test="quote-price"]`).First().Text()
	if priceText == "" {
		// Older page layout.
		priceText = doc.Find("main .price-large").First().Text()
	}
	price, err := parseAbbreviated(priceText)
	if err != nil {
		return contracts.Quote{}, fmt.Errorf("parse price %q: %w", priceText, err)
	}
	quote.Price = price

	doc.Find("table td").Each(func(i int, s *goquery.Selection) {
		label := strings.TrimSpace(s.Text())
		value := strings.TrimSpace(s.Next().Text())
		if value == "" {
			return
		}

		switch {
		case strings.EqualFold(label, "Market Cap"):
			if v, err := parseAbbreviated(value); err == nil {
				quote.MarketCap = v
			}
		case strings.EqualFold(label, "Shares Out"), strings.EqualFold(label, "Shares Outstanding"):
			if v, err := parseAbbreviated(value); err == nil {
				quote.SharesOutstanding = v
			}
		}
	})

	if quote.MarketCap == 0 && quote.SharesOutstanding > 0 {
		quote.MarketCap = quote.Price * quote.SharesOutstanding
	}
	if quote.MarketCap == 0 {
		return contracts.Quote{}, fmt.Errorf("page carries no market cap or share count")
	}

	return quote, nil
}

// parseAbbreviated parses numbers like "3.45T", "212.50", "1,234.5M".
func parseAbbreviated(text string) (float64, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	text = strings.TrimPrefix(text, "$")
	if text == "" {
		return 0, fmt.Errorf("empty value")
	}

	multiplier := 1.0
	switch text[len(text)-1] {
	case 'T':
		multiplier = 1e12
		text = text[:len(text)-1]
	case 'B':
		multiplier = 1e9
		text = text[:len(text)-1]
	case 'M':
		multiplier = 1e6
		text = text[:len(text)-1]
	case 'K':
		multiplier = 1e3
		text = text[:len(text)-1]
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	return value * multiplier, nil
}
