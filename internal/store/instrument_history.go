package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/pkg/database"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// numericTolerance absorbs float round-trips through the database when
// deciding whether a re-ingested row matches the stored one.
const numericTolerance = 1e-9

// InstrumentHistoryRepo persists per-instrument daily observations.
type InstrumentHistoryRepo struct {
	db     *database.DB
	logger *logger.Logger
}

// NewInstrumentHistory creates a new InstrumentHistoryRepo.
func NewInstrumentHistory(db *database.DB, log *logger.Logger) *InstrumentHistoryRepo {
	return &InstrumentHistoryRepo{
		db:     db,
		logger: log.WithField("repository", "instrument_history"),
	}
}

// Upsert writes one observation. Re-writing the same values is a no-op;
// different values for an existing (symbol, date) key return a
// *contracts.ConflictError and leave the stored row alone.
func (r *InstrumentHistoryRepo) Upsert(ctx context.Context, obs contracts.InstrumentObservation) error {
	query := `
		INSERT INTO instrument_observations (
			symbol, observed_on, price, market_cap, shares_outstanding, source
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol, observed_on) DO NOTHING
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		obs.Symbol, obs.Date, obs.Price, obs.MarketCap, obs.SharesOutstanding, obs.Source,
	)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// The key exists; decide whether this is a harmless replay or a
	// genuine conflict.
	stored, err := r.get(ctx, obs.Symbol, obs.Date)
	if err != nil {
		return fmt.Errorf("read stored observation: %w", err)
	}

	if sameObservation(*stored, obs) {
		return nil
	}
	return &contracts.ConflictError{Entity: "instrument", ID: obs.Symbol, Date: obs.Date}
}

func sameObservation(a, b contracts.InstrumentObservation) bool {
	return math.Abs(a.Price-b.Price) < numericTolerance &&
		math.Abs(a.MarketCap-b.MarketCap) < numericTolerance &&
		math.Abs(a.SharesOutstanding-b.SharesOutstanding) < numericTolerance
}

func (r *InstrumentHistoryRepo) get(ctx context.Context, symbol string, date time.Time) (*contracts.InstrumentObservation, error) {
	query := `
		SELECT symbol, observed_on, price, market_cap, shares_outstanding, source
		FROM instrument_observations
		WHERE symbol = $1 AND observed_on = $2
	`

	var obs contracts.InstrumentObservation
	err := r.db.Pool.QueryRow(ctx, query, symbol, date).Scan(
		&obs.Symbol, &obs.Date, &obs.Price, &obs.MarketCap, &obs.SharesOutstanding, &obs.Source,
	)
	if err != nil {
		return nil, err
	}
	return &obs, nil
}

// Range returns observations for symbol between from and to inclusive,
// ascending by date. Days without data are simply absent.
func (r *InstrumentHistoryRepo) Range(ctx context.Context, symbol string, from, to time.Time) ([]contracts.InstrumentObservation, error) {
	query := `
		SELECT symbol, observed_on, price, market_cap, shares_outstanding, source
		FROM instrument_observations
		WHERE symbol = $1 AND observed_on BETWEEN $2 AND $3
		ORDER BY observed_on ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []contracts.InstrumentObservation
	for rows.Next() {
		var obs contracts.InstrumentObservation
		if err := rows.Scan(
			&obs.Symbol, &obs.Date, &obs.Price, &obs.MarketCap, &obs.SharesOutstanding, &obs.Source,
		); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}

	return out, nil
}

// Latest returns the most recent observation for symbol, or
// contracts.ErrNoObservations.
func (r *InstrumentHistoryRepo) Latest(ctx context.Context, symbol string) (*contracts.InstrumentObservation, error) {
	query := `
		SELECT symbol, observed_on, price, market_cap, shares_outstanding, source
		FROM instrument_observations
		WHERE symbol = $1
		ORDER BY observed_on DESC
		LIMIT 1
	`

	var obs contracts.InstrumentObservation
	err := r.db.Pool.QueryRow(ctx, query, symbol).Scan(
		&obs.Symbol, &obs.Date, &obs.Price, &obs.MarketCap, &obs.SharesOutstanding, &obs.Source,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNoObservations
	}
	if err != nil {
		return nil, fmt.Errorf("query latest observation: %w", err)
	}
	return &obs, nil
}
