package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/pkg/config"
	"github.com/t2dlabs/pulse/pkg/database"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// Integration tests run against a real database and are skipped unless
// TEST_DATABASE_URL is set.
func testDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := &config.Config{}
	cfg.Database.URL = url
	cfg.Database.MaxConns = 4
	cfg.Database.MinConns = 1
	cfg.Database.MaxConnLifetime = time.Hour
	cfg.Database.MaxConnIdleTime = 30 * time.Minute

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, EnsureSchema(context.Background(), db))

	// Each test starts from clean tables.
	for _, table := range []string{"instrument_observations", "sector_observations", "missing_data_log", "sector_weights"} {
		_, err := db.Pool.Exec(context.Background(), "TRUNCATE "+table)
		require.NoError(t, err)
	}

	return db
}

func TestInstrumentHistoryUpsertIdempotent(t *testing.T) {
	db := testDB(t)
	repo := NewInstrumentHistory(db, logger.NewWriter(nil))
	ctx := context.Background()

	obs := contracts.InstrumentObservation{
		Symbol:            "AAPL",
		Date:              time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Price:             212.5,
		MarketCap:         3.19e12,
		SharesOutstanding: 1.5e10,
		Source:            "finnhub",
	}

	require.NoError(t, repo.Upsert(ctx, obs))

	// Same values again is a no-op.
	require.NoError(t, repo.Upsert(ctx, obs))

	// Different values for the same key conflict and never overwrite.
	changed := obs
	changed.MarketCap = 1
	err := repo.Upsert(ctx, changed)
	var conflictErr *contracts.ConflictError
	require.True(t, errors.As(err, &conflictErr))

	stored, err := repo.Latest(ctx, "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, 3.19e12, stored.MarketCap, 1)
}

func TestInstrumentHistoryRangeAscending(t *testing.T) {
	db := testDB(t)
	repo := NewInstrumentHistory(db, logger.NewWriter(nil))
	ctx := context.Background()

	base := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	// Written out of order, with a gap on day 1.
	for _, offset := range []int{2, 0, 3} {
		require.NoError(t, repo.Upsert(ctx, contracts.InstrumentObservation{
			Symbol: "MSFT", Date: base.AddDate(0, 0, offset),
			Price: float64(100 + offset), MarketCap: 1e12, SharesOutstanding: 1e10, Source: "finnhub",
		}))
	}

	out, err := repo.Range(ctx, "MSFT", base, base.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.True(t, out[0].Date.Before(out[1].Date))
	assert.True(t, out[1].Date.Before(out[2].Date))
}

func TestInstrumentHistoryLatestEmpty(t *testing.T) {
	db := testDB(t)
	repo := NewInstrumentHistory(db, logger.NewWriter(nil))

	_, err := repo.Latest(context.Background(), "NOPE")
	assert.ErrorIs(t, err, contracts.ErrNoObservations)
}

func TestSectorHistoryReplaceAndConflict(t *testing.T) {
	db := testDB(t)
	repo := NewSectorHistory(db, logger.NewWriter(nil))
	ctx := context.Background()

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	obs := contracts.SectorObservation{Sector: "Cloud", Date: day, MarketCap: 350}
	require.NoError(t, repo.Upsert(ctx, obs))

	// Upsert with different values conflicts.
	changed := obs
	changed.MarketCap = 999
	err := repo.Upsert(ctx, changed)
	var conflictErr *contracts.ConflictError
	require.True(t, errors.As(err, &conflictErr))

	// Replace is the sanctioned path for re-derived rows.
	sentiment := 62.5
	changed.Sentiment = &sentiment
	require.NoError(t, repo.Replace(ctx, changed))

	stored, err := repo.Latest(ctx, "Cloud")
	require.NoError(t, err)
	assert.InDelta(t, 999, stored.MarketCap, 1e-9)
	require.NotNil(t, stored.Sentiment)
	assert.InDelta(t, 62.5, *stored.Sentiment, 1e-9)
}

func TestSectorHistoryLatestAll(t *testing.T) {
	db := testDB(t)
	repo := NewSectorHistory(db, logger.NewWriter(nil))
	ctx := context.Background()

	day1 := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	require.NoError(t, repo.Replace(ctx, contracts.SectorObservation{Sector: "Cloud", Date: day1, MarketCap: 300}))
	require.NoError(t, repo.Replace(ctx, contracts.SectorObservation{Sector: "Cloud", Date: day2, MarketCap: 310}))
	require.NoError(t, repo.Replace(ctx, contracts.SectorObservation{Sector: "Fintech", Date: day1, MarketCap: 120}))

	latest, err := repo.LatestAll(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)

	byName := make(map[string]contracts.SectorObservation)
	for _, obs := range latest {
		byName[obs.Sector] = obs
	}
	assert.InDelta(t, 310, byName["Cloud"].MarketCap, 1e-9)
	assert.Equal(t, day1, byName["Fintech"].Date.UTC())
}

func TestMissingLogAppend(t *testing.T) {
	db := testDB(t)
	repo := NewMissingLog(db, logger.NewWriter(nil))
	ctx := context.Background()

	entry := contracts.MissingEntry{
		Symbol: "GONE",
		Date:   time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Reason: "finnhub=not_found,yahoo=not_found",
	}
	require.NoError(t, repo.Append(ctx, entry))
	require.NoError(t, repo.Append(ctx, entry))

	var count int
	require.NoError(t, db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM missing_data_log WHERE symbol = 'GONE'").Scan(&count))
	assert.Equal(t, 2, count)
}
