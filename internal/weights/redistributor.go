// Package weights owns the sector weight vector. All mutation goes through
// the Redistributor so the vector always sums to 100 with every sector at or
// above the floor.
package weights

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// Redistributor applies single-sector weight edits, redistributing the
// difference across the other sectors. One edit is in flight at a time.
type Redistributor struct {
	store     contracts.WeightStore
	sectors   []string
	floor     float64
	tolerance float64
	logger    *logger.Logger

	mu sync.Mutex
}

// New creates a Redistributor over the given sector names. Floor is the
// minimum weight any sector may hold; tolerance bounds the acceptable
// deviation of the vector sum from 100.
func New(store contracts.WeightStore, sectors []string, floor, tolerance float64, log *logger.Logger) *Redistributor {
	return &Redistributor{
		store:     store,
		sectors:   sectors,
		floor:     floor,
		tolerance: tolerance,
		logger:    log.WithField("module", "weights"),
	}
}

// Current returns the persisted weight vector, seeding equal weights on
// first use.
func (r *Redistributor) Current(ctx context.Context) (map[string]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *Redistributor) load(ctx context.Context) (map[string]float64, error) {
	weights, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}
	if len(weights) > 0 {
		return weights, nil
	}

	if len(r.sectors) == 0 {
		return nil, fmt.Errorf("no sectors configured")
	}

	equal := 100.0 / float64(len(r.sectors))
	weights = make(map[string]float64, len(r.sectors))
	for _, name := range r.sectors {
		weights[name] = equal
	}
	if err := r.store.Save(ctx, weights); err != nil {
		return nil, fmt.Errorf("seed weights: %w", err)
	}

	r.logger.WithField("sectors", len(r.sectors)).Info("Seeded equal sector weights")
	return weights, nil
}

// ApplyEdit sets one sector's weight to exactly newWeight and spreads the
// difference over the remaining sectors in proportion to their current
// weights, clamping each at the floor. On success the returned vector sums
// to 100 within the tolerance and the edited sector holds the requested
// value exactly. On any error the persisted vector is untouched.
func (r *Redistributor) ApplyEdit(ctx context.Context, sector string, newWeight float64) (map[string]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	weights, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	old, ok := weights[sector]
	if !ok {
		return nil, &contracts.WeightError{
			Sector: sector,
			Reason: contracts.WeightUnknownSector,
			Detail: "sector is not part of the configured universe",
		}
	}

	n := len(weights)
	maxAllowed := 100 - r.floor*float64(n-1)
	if newWeight < r.floor || newWeight > maxAllowed {
		return nil, &contracts.WeightError{
			Sector: sector,
			Reason: contracts.WeightOutOfBounds,
			Detail: fmt.Sprintf("weight %.4f outside [%.4f, %.4f]", newWeight, r.floor, maxAllowed),
		}
	}

	updated, err := redistribute(weights, sector, newWeight, r.floor, r.tolerance)
	if err != nil {
		return nil, err
	}

	if err := r.store.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("save weights: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"sector": sector,
		"old":    old,
		"new":    newWeight,
	}).Info("Applied weight edit")

	return updated, nil
}

// redistribute computes the new vector without touching storage. The edited
// sector is pinned at newWeight; the others are rescaled proportionally onto
// the remaining mass, then sectors pushed under the floor are pinned there
// and the residual rescaled over the sectors that still have room.
func redistribute(weights map[string]float64, sector string, newWeight, floor, tolerance float64) (map[string]float64, error) {
	target := 100 - newWeight

	updated := make(map[string]float64, len(weights))
	updated[sector] = newWeight

	var sumOthers float64
	for name, w := range weights {
		if name != sector {
			sumOthers += w
		}
	}

	if sumOthers <= 0 {
		// Degenerate stored vector; spread the mass evenly.
		share := target / float64(len(weights)-1)
		for name := range weights {
			if name != sector {
				updated[name] = share
			}
		}
	} else {
		scale := target / sumOthers
		for name, w := range weights {
			if name != sector {
				updated[name] = w * scale
			}
		}
	}

	// Clamp and rescale until no sector sits below the floor. Each pass pins
	// at least one sector, so the loop terminates within n iterations.
	for i := 0; i < len(weights); i++ {
		var pinnedMass, freeMass float64
		for name, w := range updated {
			if name == sector {
				continue
			}
			if w <= floor {
				pinnedMass += floor
			} else {
				freeMass += w
			}
		}

		residual := target - pinnedMass
		if freeMass == 0 {
			break
		}
		if residual <= 0 {
			return nil, &contracts.WeightError{
				Sector: sector,
				Reason: contracts.WeightInfeasible,
				Detail: "remaining mass cannot keep every sector at the floor",
			}
		}

		adjusted := false
		scale := residual / freeMass
		for name, w := range updated {
			if name == sector {
				continue
			}
			if w <= floor {
				updated[name] = floor
				continue
			}
			scaled := w * scale
			if scaled < floor {
				adjusted = true
			}
			updated[name] = scaled
		}
		if !adjusted {
			break
		}
	}

	var sum float64
	for _, w := range updated {
		sum += w
	}
	if math.Abs(sum-100) > tolerance {
		return nil, &contracts.WeightError{
			Sector: sector,
			Reason: contracts.WeightInfeasible,
			Detail: fmt.Sprintf("vector sums to %.4f after redistribution", sum),
		}
	}
	for name, w := range updated {
		if w < floor-tolerance {
			return nil, &contracts.WeightError{
				Sector: name,
				Reason: contracts.WeightInfeasible,
				Detail: "sector fell below the floor during redistribution",
			}
		}
	}

	return updated, nil
}
