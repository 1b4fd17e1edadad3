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

// SectorHistoryRepo persists per-sector daily observations.
type SectorHistoryRepo struct {
	db     *database.DB
	logger *logger.Logger
}

// NewSectorHistory creates a new SectorHistoryRepo.
func NewSectorHistory(db *database.DB, log *logger.Logger) *SectorHistoryRepo {
	return &SectorHistoryRepo{
		db:     db,
		logger: log.WithField("repository", "sector_history"),
	}
}

// Upsert writes one sector observation with the same replay/conflict
// semantics as the instrument store.
func (r *SectorHistoryRepo) Upsert(ctx context.Context, obs contracts.SectorObservation) error {
	query := `
		INSERT INTO sector_observations (sector, observed_on, market_cap, sentiment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sector, observed_on) DO NOTHING
	`

	tag, err := r.db.Pool.Exec(ctx, query, obs.Sector, obs.Date, obs.MarketCap, obs.Sentiment)
	if err != nil {
		return fmt.Errorf("insert sector observation: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	stored, err := r.get(ctx, obs.Sector, obs.Date)
	if err != nil {
		return fmt.Errorf("read stored sector observation: %w", err)
	}

	if sameSectorObservation(*stored, obs) {
		return nil
	}
	return &contracts.ConflictError{Entity: "sector", ID: obs.Sector, Date: obs.Date}
}

// Replace overwrites the row for (sector, date). Sector rows are derived
// from instrument observations, so re-aggregation within a run may
// legitimately rewrite them; only this method may do so.
func (r *SectorHistoryRepo) Replace(ctx context.Context, obs contracts.SectorObservation) error {
	query := `
		INSERT INTO sector_observations (sector, observed_on, market_cap, sentiment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sector, observed_on) DO UPDATE SET
			market_cap = EXCLUDED.market_cap,
			sentiment  = EXCLUDED.sentiment
	`

	if _, err := r.db.Pool.Exec(ctx, query, obs.Sector, obs.Date, obs.MarketCap, obs.Sentiment); err != nil {
		return fmt.Errorf("replace sector observation: %w", err)
	}
	return nil
}

func sameSectorObservation(a, b contracts.SectorObservation) bool {
	if math.Abs(a.MarketCap-b.MarketCap) >= numericTolerance {
		return false
	}
	switch {
	case a.Sentiment == nil && b.Sentiment == nil:
		return true
	case a.Sentiment == nil || b.Sentiment == nil:
		return false
	default:
		return math.Abs(*a.Sentiment-*b.Sentiment) < numericTolerance
	}
}

func (r *SectorHistoryRepo) get(ctx context.Context, sector string, date time.Time) (*contracts.SectorObservation, error) {
	query := `
		SELECT sector, observed_on, market_cap, sentiment
		FROM sector_observations
		WHERE sector = $1 AND observed_on = $2
	`

	var obs contracts.SectorObservation
	err := r.db.Pool.QueryRow(ctx, query, sector, date).Scan(
		&obs.Sector, &obs.Date, &obs.MarketCap, &obs.Sentiment,
	)
	if err != nil {
		return nil, err
	}
	return &obs, nil
}

// Range returns observations for sector between from and to inclusive,
// ascending by date.
func (r *SectorHistoryRepo) Range(ctx context.Context, sector string, from, to time.Time) ([]contracts.SectorObservation, error) {
	query := `
		SELECT sector, observed_on, market_cap, sentiment
		FROM sector_observations
		WHERE sector = $1 AND observed_on BETWEEN $2 AND $3
		ORDER BY observed_on ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, sector, from, to)
	if err != nil {
		return nil, fmt.Errorf("query sector observations: %w", err)
	}
	defer rows.Close()

	var out []contracts.SectorObservation
	for rows.Next() {
		var obs contracts.SectorObservation
		if err := rows.Scan(&obs.Sector, &obs.Date, &obs.MarketCap, &obs.Sentiment); err != nil {
			return nil, fmt.Errorf("scan sector observation: %w", err)
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sector observations: %w", err)
	}

	return out, nil
}

// Latest returns the most recent observation for sector, or
// contracts.ErrNoObservations.
func (r *SectorHistoryRepo) Latest(ctx context.Context, sector string) (*contracts.SectorObservation, error) {
	query := `
		SELECT sector, observed_on, market_cap, sentiment
		FROM sector_observations
		WHERE sector = $1
		ORDER BY observed_on DESC
		LIMIT 1
	`

	var obs contracts.SectorObservation
	err := r.db.Pool.QueryRow(ctx, query, sector).Scan(
		&obs.Sector, &obs.Date, &obs.MarketCap, &obs.Sentiment,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNoObservations
	}
	if err != nil {
		return nil, fmt.Errorf("query latest sector observation: %w", err)
	}
	return &obs, nil
}

// LatestAll returns the most recent observation of every sector.
func (r *SectorHistoryRepo) LatestAll(ctx context.Context) ([]contracts.SectorObservation, error) {
	query := `
		SELECT DISTINCT ON (sector) sector, observed_on, market_cap, sentiment
		FROM sector_observations
		ORDER BY sector, observed_on DESC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest sector observations: %w", err)
	}
	defer rows.Close()

	var out []contracts.SectorObservation
	for rows.Next() {
		var obs contracts.SectorObservation
		if err := rows.Scan(&obs.Sector, &obs.Date, &obs.MarketCap, &obs.Sentiment); err != nil {
			return nil, fmt.Errorf("scan sector observation: %w", err)
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sector observations: %w", err)
	}

	return out, nil
}
