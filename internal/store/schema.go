// Package store implements the pgx-backed history repositories. Observed
// rows are authentic upstream data: once written they are never overwritten
// with different values, and gaps stay gaps.
package store

import (
	"context"
	"fmt"

	"github.com/t2dlabs/pulse/pkg/database"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS instrument_observations (
		symbol             TEXT             NOT NULL,
		observed_on        DATE             NOT NULL,
		price              DOUBLE PRECISION NOT NULL,
		market_cap         DOUBLE PRECISION NOT NULL,
		shares_outstanding DOUBLE PRECISION NOT NULL,
		source             TEXT             NOT NULL,
		created_at         TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		PRIMARY KEY (symbol, observed_on)
	)`,
	`CREATE TABLE IF NOT EXISTS sector_observations (
		sector      TEXT             NOT NULL,
		observed_on DATE             NOT NULL,
		market_cap  DOUBLE PRECISION NOT NULL,
		sentiment   DOUBLE PRECISION,
		created_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		PRIMARY KEY (sector, observed_on)
	)`,
	`CREATE TABLE IF NOT EXISTS missing_data_log (
		id          BIGSERIAL   PRIMARY KEY,
		symbol      TEXT        NOT NULL,
		observed_on DATE        NOT NULL,
		reason      TEXT        NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sector_weights (
		sector     TEXT             PRIMARY KEY,
		weight     DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ      NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables if they do not exist yet. Statements are
// idempotent, so running it on every startup is safe.
func EnsureSchema(ctx context.Context, db *database.DB) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
