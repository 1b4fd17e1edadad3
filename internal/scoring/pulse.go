package scoring

// Composite computes the weighted pulse score from sector weights and the
// latest sector sentiments. Sectors with nil sentiment are excluded and the
// remaining weights renormalized, so a few dark sectors skew the composite
// toward the sectors that do have data rather than toward neutral. Undefined
// (false) when no sector has a sentiment.
func Composite(weights map[string]float64, sentiments map[string]*float64) (float64, bool) {
	var weightedSum, weightSum float64
	for sector, sentiment := range sentiments {
		if sentiment == nil {
			continue
		}
		w, ok := weights[sector]
		if !ok || w <= 0 {
			continue
		}
		weightedSum += w * (*sentiment)
		weightSum += w
	}

	if weightSum == 0 {
		return 0, false
	}
	return weightedSum / weightSum, true
}
