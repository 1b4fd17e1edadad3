package weights

import (
	"context"
	"fmt"

	"github.com/t2dlabs/pulse/pkg/database"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// Repository persists the sector weight vector in the sector_weights table,
// one row per sector, latest snapshot only.
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new weight Repository.
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log.WithField("repository", "weights"),
	}
}

// Load returns the stored vector; an empty map when none has been saved yet.
func (r *Repository) Load(ctx context.Context) (map[string]float64, error) {
	query := `SELECT sector, weight FROM sector_weights`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query weights: %w", err)
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var sector string
		var weight float64
		if err := rows.Scan(&sector, &weight); err != nil {
			return nil, fmt.Errorf("scan weight: %w", err)
		}
		weights[sector] = weight
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weights: %w", err)
	}

	return weights, nil
}

// Save replaces the whole vector in one transaction so readers never see a
// partially edited snapshot.
func (r *Repository) Save(ctx context.Context, weights map[string]float64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM sector_weights`); err != nil {
		return fmt.Errorf("clear weights: %w", err)
	}

	query := `
		INSERT INTO sector_weights (sector, weight, updated_at)
		VALUES ($1, $2, NOW())
	`
	for sector, weight := range weights {
		if _, err := tx.Exec(ctx, query, sector, weight); err != nil {
			return fmt.Errorf("insert weight for %s: %w", sector, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit weights: %w", err)
	}

	r.logger.WithField("sectors", len(weights)).Debug("Saved weight vector")
	return nil
}
