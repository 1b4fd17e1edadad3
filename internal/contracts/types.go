package contracts

import "time"

// Instrument is a single tradable entity tracked by the system.
// Immutable once created; referenced by many sectors.
type Instrument struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Sector is a named grouping of instruments. Membership is many-to-many:
// an instrument may belong to several sectors at once, and no
// de-duplication or cross-sector weighting correction is applied.
type Sector struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Quote is the value fetched for one instrument from one upstream provider.
// MarketCap is price times shares outstanding; Source records which provider
// satisfied the request.
type Quote struct {
	Price             float64 `json:"price"`
	MarketCap         float64 `json:"market_cap"`
	SharesOutstanding float64 `json:"shares_outstanding"`
	Source            string  `json:"source"`
}

// InstrumentObservation is the stored record for one instrument on one
// trading day. Unique per (symbol, date); created once and never overwritten
// with different values.
type InstrumentObservation struct {
	Symbol            string    `json:"symbol"`
	Date              time.Time `json:"date"`
	Price             float64   `json:"price"`
	MarketCap         float64   `json:"market_cap"`
	SharesOutstanding float64   `json:"shares_outstanding"`
	Source            string    `json:"source"`
}

// SectorObservation is the derived record for one sector on one trading day.
// MarketCap sums the member instruments that have an observation that day.
// Sentiment is nil when no member had enough history for a momentum signal;
// it is never defaulted to neutral.
type SectorObservation struct {
	Sector    string    `json:"sector"`
	Date      time.Time `json:"date"`
	MarketCap float64   `json:"market_cap"`
	Sentiment *float64  `json:"sentiment,omitempty"`
}

// PricePoint is one closing price used by the momentum scorer, oldest first.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// MissingEntry is one unresolved instrument appended to the missing-data log.
type MissingEntry struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}
