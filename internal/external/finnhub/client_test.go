package finnhub

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/pkg/httputil"
	"github.com/t2dlabs/pulse/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logger.NewWriter(&bytes.Buffer{})
	httpClient := httputil.New(log, 5*time.Second)
	return NewClient(httpClient, log, server.URL, "test-token"), server
}

func TestFetch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/stock/profile2":
			w.Write([]byte(`{"name":"Apple Inc","marketCapitalization":3200000,"shareOutstanding":15400}`))
		case "/quote":
			w.Write([]byte(`{"c":212.5,"h":214.0,"l":210.1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	quote, err := client.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}

	if quote.Price != 212.5 {
		t.Errorf("price = %f, want 212.5", quote.Price)
	}
	// Finnhub reports in millions.
	if quote.MarketCap != 3200000*1e6 {
		t.Errorf("market cap = %f", quote.MarketCap)
	}
	if quote.SharesOutstanding != 15400*1e6 {
		t.Errorf("shares = %f", quote.SharesOutstanding)
	}
	if quote.Source != "finnhub" {
		t.Errorf("source = %s", quote.Source)
	}
}

func TestFetchDerivesMarketCapFromShares(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/stock/profile2":
			w.Write([]byte(`{"name":"Example","marketCapitalization":0,"shareOutstanding":100}`))
		case "/quote":
			w.Write([]byte(`{"c":10}`))
		}
	})

	quote, err := client.Fetch(context.Background(), "EXMP")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}

	// 100M shares at $10.
	if quote.MarketCap != 100*1e6*10 {
		t.Errorf("derived market cap = %f", quote.MarketCap)
	}
}

func TestFetchUnknownSymbol(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	_, err := client.Fetch(context.Background(), "NOPE")
	var fe *contracts.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fe.Reason != contracts.ReasonNotFound {
		t.Errorf("reason = %s, want not_found", fe.Reason)
	}
}

func TestFetchRateLimited(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Fetch(context.Background(), "AAPL")
	if !contracts.IsRateLimited(err) {
		t.Errorf("expected rate_limited, got %v", err)
	}
}

func TestFetchMalformedResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := client.Fetch(context.Background(), "AAPL")
	var fe *contracts.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fe.Reason != contracts.ReasonMalformedResponse {
		t.Errorf("reason = %s, want malformed_response", fe.Reason)
	}
}

func TestFetchEmptySymbol(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty symbol")
	})

	if _, err := client.Fetch(context.Background(), ""); err == nil {
		t.Error("expected error for empty symbol")
	}
}
