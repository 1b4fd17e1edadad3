package contracts

import (
	"context"
	"time"
)

// Repository interfaces are defined here and implemented in internal/store.

// InstrumentHistory persists per-instrument daily observations.
// Upsert is idempotent: repeating a write with identical fields is a no-op,
// and a write with different fields for an existing (symbol, date) key
// returns *ConflictError. Range returns rows ascending by date; missing
// trading days are absent entries, never filled.
type InstrumentHistory interface {
	Upsert(ctx context.Context, obs InstrumentObservation) error
	Range(ctx context.Context, symbol string, from, to time.Time) ([]InstrumentObservation, error)
	Latest(ctx context.Context, symbol string) (*InstrumentObservation, error)
}

// SectorHistory persists per-sector daily observations with the same
// idempotence and conflict semantics as InstrumentHistory. Sector
// observations are derived, so re-aggregation within the same ingestion run
// may replace a row before the run completes.
type SectorHistory interface {
	Upsert(ctx context.Context, obs SectorObservation) error
	Replace(ctx context.Context, obs SectorObservation) error
	Range(ctx context.Context, sector string, from, to time.Time) ([]SectorObservation, error)
	Latest(ctx context.Context, sector string) (*SectorObservation, error)
	LatestAll(ctx context.Context) ([]SectorObservation, error)
}

// MissingDataLog is the write-only observability sink for unresolved
// instruments, consumed by operational tooling outside the core.
type MissingDataLog interface {
	Append(ctx context.Context, entry MissingEntry) error
}

// WeightStore persists the latest sector weight snapshot. Save replaces the
// whole vector in one transaction.
type WeightStore interface {
	Load(ctx context.Context) (map[string]float64, error)
	Save(ctx context.Context, weights map[string]float64) error
}

// Adapter fetches one instrument's quote from one upstream provider.
// Implementations are stateless and never retry.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (Quote, error)
}
