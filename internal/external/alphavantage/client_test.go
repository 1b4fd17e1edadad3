package alphavantage

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

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logger.NewWriter(&bytes.Buffer{})
	httpClient := httputil.New(log, 5*time.Second)
	return NewClient(httpClient, log, server.URL, "test-key")
}

func TestFetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("function") {
		case "OVERVIEW":
			w.Write([]byte(`{"Symbol":"MSFT","MarketCapitalization":"3100000000000","SharesOutstanding":"7430000000"}`))
		case "GLOBAL_QUOTE":
			w.Write([]byte(`{"Global Quote":{"01. symbol":"MSFT","05. price":"417.2200"}}`))
		}
	})

	quote, err := client.Fetch(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}

	if quote.Price != 417.22 {
		t.Errorf("price = %f", quote.Price)
	}
	if quote.MarketCap != 3.1e12 {
		t.Errorf("market cap = %f", quote.MarketCap)
	}
	if quote.SharesOutstanding != 7.43e9 {
		t.Errorf("shares = %f", quote.SharesOutstanding)
	}
	if quote.Source != "alphavantage" {
		t.Errorf("source = %s", quote.Source)
	}
}

func TestFetchThrottleNote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Note":"Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	})

	_, err := client.Fetch(context.Background(), "MSFT")
	if !contracts.IsRateLimited(err) {
		t.Errorf("expected rate_limited for throttle note, got %v", err)
	}
}

func TestFetchUnknownSymbol(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
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

func TestFetchMissingAPIKey(t *testing.T) {
	log := logger.NewWriter(&bytes.Buffer{})
	client := NewClient(httputil.New(log, time.Second), log, "http://localhost:0", "")

	_, err := client.Fetch(context.Background(), "MSFT")
	var fe *contracts.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fe.Reason != contracts.ReasonTransportError {
		t.Errorf("reason = %s, want transport_error", fe.Reason)
	}
}
