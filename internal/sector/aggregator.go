// Package sector aggregates resolved instrument quotes into per-sector
// market-cap observations.
package sector

import (
	"sort"
	"time"

	"github.com/t2dlabs/pulse/internal/contracts"
)

// Result is the output of one aggregation pass. Observations are ordered by
// sector name; Missing lists, per sector, the members that had no resolved
// quote that day.
type Result struct {
	Observations []contracts.SectorObservation
	Missing      map[string][]string
}

// Aggregate sums the market caps of each sector's resolved members for one
// trading day. An instrument that belongs to several sectors contributes its
// full market cap to each of them; overlap is part of the product's
// definition of a sector, not an accounting bug. Sectors whose members all
// failed to resolve still produce an observation with a zero market cap so
// the gap is visible downstream.
func Aggregate(sectors []contracts.Sector, resolved map[string]contracts.Quote, date time.Time) Result {
	result := Result{
		Observations: make([]contracts.SectorObservation, 0, len(sectors)),
		Missing:      make(map[string][]string),
	}

	for _, s := range sectors {
		var total float64
		for _, symbol := range s.Members {
			quote, ok := resolved[symbol]
			if !ok {
				result.Missing[s.Name] = append(result.Missing[s.Name], symbol)
				continue
			}
			total += quote.MarketCap
		}

		result.Observations = append(result.Observations, contracts.SectorObservation{
			Sector:    s.Name,
			Date:      date,
			MarketCap: total,
		})
	}

	sort.Slice(result.Observations, func(i, j int) bool {
		return result.Observations[i].Sector < result.Observations[j].Sector
	})

	return result
}
