package contracts

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &FetchError{
		Provider: "finnhub",
		Symbol:   "AAPL",
		Reason:   ReasonTransportError,
		Err:      cause,
	}

	wrapped := fmt.Errorf("resolve: %w", err)

	var fe *FetchError
	if !errors.As(wrapped, &fe) {
		t.Fatal("errors.As should find *FetchError")
	}
	if fe.Reason != ReasonTransportError {
		t.Errorf("reason = %s", fe.Reason)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should reach the transport cause")
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "rate limited fetch error",
			err:  &FetchError{Provider: "alphavantage", Symbol: "MSFT", Reason: ReasonRateLimited},
			want: true,
		},
		{
			name: "not found fetch error",
			err:  &FetchError{Provider: "finnhub", Symbol: "MSFT", Reason: ReasonNotFound},
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimited(tt.err); got != tt.want {
				t.Errorf("IsRateLimited() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMissingDataErrorReason(t *testing.T) {
	err := &MissingDataError{
		Symbol: "NET",
		Date:   time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		Attempts: []FetchError{
			{Provider: "finnhub", Symbol: "NET", Reason: ReasonRateLimited},
			{Provider: "yahoo", Symbol: "NET", Reason: ReasonNotFound},
		},
	}

	want := "finnhub=rate_limited,yahoo=not_found"
	if got := err.Reason(); got != want {
		t.Errorf("Reason() = %q, want %q", got, want)
	}
}
