package scoring

import "github.com/t2dlabs/pulse/internal/contracts"

// Scorer maps instrument price history to sector sentiment on a 0..100
// scale. With the default midpoint 50 and slope 10, a momentum of ±5%
// saturates the scale.
type Scorer struct {
	span     int
	midpoint float64
	slope    float64
}

// NewScorer creates a Scorer. Span is the EMA window in trading days.
func NewScorer(span int, midpoint, slope float64) *Scorer {
	return &Scorer{span: span, midpoint: midpoint, slope: slope}
}

// Span returns the EMA window, used by callers sizing history queries.
func (s *Scorer) Span() int {
	return s.span
}

// InstrumentMomentum returns the momentum signal for one instrument, or
// false when the history is too short.
func (s *Scorer) InstrumentMomentum(prices []contracts.PricePoint) (float64, bool) {
	return Momentum(prices, s.span)
}

// SectorSentiment folds per-instrument momenta into one sector sentiment.
// Momenta are weighted by market cap over the instruments that have a
// defined momentum; members without one contribute nothing here even though
// they still count toward the sector's market-cap total. When no member has
// a defined momentum the sentiment is undefined and the second return is
// false; callers store nil, never a neutral 50.
func (s *Scorer) SectorSentiment(momenta map[string]float64, caps map[string]float64) (float64, bool) {
	var weightedSum, capSum float64
	for symbol, momentum := range momenta {
		cap, ok := caps[symbol]
		if !ok || cap <= 0 {
			continue
		}
		weightedSum += momentum * cap
		capSum += cap
	}

	if capSum == 0 {
		return 0, false
	}

	sectorMomentum := weightedSum / capSum
	return clamp(s.midpoint+s.slope*sectorMomentum, 0, 100), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
