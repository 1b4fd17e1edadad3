package contracts

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FetchReason classifies why a single provider call failed.
type FetchReason string

const (
	ReasonNotFound          FetchReason = "not_found"
	ReasonRateLimited       FetchReason = "rate_limited"
	ReasonTransportError    FetchReason = "transport_error"
	ReasonMalformedResponse FetchReason = "malformed_response"
)

// FetchError reports a failed provider call for one instrument. Adapters
// never retry; recovery is the cascade's fallback to the next provider.
type FetchError struct {
	Provider string
	Symbol   string
	Reason   FetchReason
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: fetch %s: %s: %v", e.Provider, e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: fetch %s: %s", e.Provider, e.Symbol, e.Reason)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a rate-limited provider failure.
func IsRateLimited(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Reason == ReasonRateLimited
}

// MissingDataError reports that every provider in the cascade failed for an
// instrument. The caller must record the instrument as missing and must not
// substitute zero, a prior value, or any estimate.
type MissingDataError struct {
	Symbol   string
	Date     time.Time
	Attempts []FetchError
}

func (e *MissingDataError) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, fmt.Sprintf("%s=%s", a.Provider, a.Reason))
	}
	return fmt.Sprintf("no provider resolved %s: %s", e.Symbol, strings.Join(reasons, ", "))
}

// Reason summarizes the per-provider failures for the missing-data log.
func (e *MissingDataError) Reason() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, fmt.Sprintf("%s=%s", a.Provider, a.Reason))
	}
	return strings.Join(reasons, ",")
}

// ConflictError reports an upsert whose key already holds different values.
// The stored row is authentic history and is never overwritten; the
// conflicting ingestion must be investigated instead.
type ConflictError struct {
	Entity string
	ID     string
	Date   time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s observation for %s on %s already recorded with different values",
		e.Entity, e.ID, e.Date.Format("2006-01-02"))
}

// WeightReason classifies a rejected weight edit.
type WeightReason string

const (
	WeightOutOfBounds   WeightReason = "out_of_bounds"
	WeightInfeasible    WeightReason = "infeasible"
	WeightUnknownSector WeightReason = "unknown_sector"
)

// WeightError reports a rejected weight edit. The stored vector is left
// unchanged.
type WeightError struct {
	Sector string
	Reason WeightReason
	Detail string
}

func (e *WeightError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("weight edit for %s rejected (%s): %s", e.Sector, e.Reason, e.Detail)
	}
	return fmt.Sprintf("weight edit for %s rejected (%s)", e.Sector, e.Reason)
}

// ErrNoObservations is returned by Latest when an entity has no history.
var ErrNoObservations = errors.New("no observations")

// ErrUndefinedSentiment is returned when a score is requested and no sector
// has a defined sentiment.
var ErrUndefinedSentiment = errors.New("sentiment undefined")
