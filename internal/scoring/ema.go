// Package scoring turns closing-price history into momentum and sentiment
// signals, and folds sector sentiments into the composite pulse score.
package scoring

import "github.com/t2dlabs/pulse/internal/contracts"

// EMA computes the exponential moving average of values with the given span.
// Alpha is 2/(span+1) and the series is seeded with the first value, so the
// early average leans on the oldest observations rather than on zero.
// Returns false when values is empty.
func EMA(values []float64, span int) (float64, bool) {
	if len(values) == 0 || span < 1 {
		return 0, false
	}

	alpha := 2.0 / (float64(span) + 1.0)
	ema := values[0]
	for _, v := range values[1:] {
		ema = alpha*v + (1-alpha)*ema
	}
	return ema, true
}

// Momentum returns the percent deviation of the latest close from the EMA
// over the series. Prices must be oldest first. The signal is undefined
// (false) until the series carries at least span closes.
func Momentum(prices []contracts.PricePoint, span int) (float64, bool) {
	if len(prices) < span {
		return 0, false
	}

	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}

	ema, ok := EMA(closes, span)
	if !ok || ema == 0 {
		return 0, false
	}

	current := closes[len(closes)-1]
	return (current - ema) / ema * 100, true
}
