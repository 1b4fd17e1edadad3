package store

import (
	"context"
	"fmt"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/pkg/database"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// MissingLogRepo is the append-only sink for instruments no provider could
// resolve. Operational tooling reads the table directly.
type MissingLogRepo struct {
	db     *database.DB
	logger *logger.Logger
}

// NewMissingLog creates a new MissingLogRepo.
func NewMissingLog(db *database.DB, log *logger.Logger) *MissingLogRepo {
	return &MissingLogRepo{
		db:     db,
		logger: log.WithField("repository", "missing_log"),
	}
}

// Append records one unresolved instrument for one trading day.
func (r *MissingLogRepo) Append(ctx context.Context, entry contracts.MissingEntry) error {
	query := `
		INSERT INTO missing_data_log (symbol, observed_on, reason)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.Pool.Exec(ctx, query, entry.Symbol, entry.Date, entry.Reason); err != nil {
		return fmt.Errorf("append missing-data entry: %w", err)
	}
	return nil
}
