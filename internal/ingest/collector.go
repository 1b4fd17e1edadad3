package ingest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/internal/scoring"
	"github.com/t2dlabs/pulse/internal/sector"
	"github.com/t2dlabs/pulse/internal/universe"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// Collector orchestrates one full ingestion run: resolve every symbol in the
// universe through the provider cascade, persist instrument observations,
// then aggregate and score sectors.
type Collector struct {
	adapters    []contracts.Adapter
	universe    *universe.Universe
	instruments contracts.InstrumentHistory
	sectors     contracts.SectorHistory
	missing     contracts.MissingDataLog
	scorer      *scoring.Scorer
	logger      *logger.Logger
	cfg         Config
}

// Config holds run parameters.
type Config struct {
	Workers        int
	ProviderOrder  []string
	RateLimitPause time.Duration
}

// NewCollector creates a new Collector instance.
func NewCollector(
	adapters []contracts.Adapter,
	uni *universe.Universe,
	instruments contracts.InstrumentHistory,
	sectors contracts.SectorHistory,
	missing contracts.MissingDataLog,
	scorer *scoring.Scorer,
	log *logger.Logger,
	cfg Config,
) *Collector {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Collector{
		adapters:    adapters,
		universe:    uni,
		instruments: instruments,
		sectors:     sectors,
		missing:     missing,
		scorer:      scorer,
		logger:      log.WithField("module", "collector"),
		cfg:         cfg,
	}
}

// RunReport summarizes one ingestion run.
type RunReport struct {
	Date      time.Time     `json:"date"`
	Symbols   int           `json:"symbols"`
	Resolved  int           `json:"resolved"`
	Missing   []string      `json:"missing,omitempty"`
	Conflicts []string      `json:"conflicts,omitempty"`
	Failed    []string      `json:"failed,omitempty"`
	Sectors   int           `json:"sectors"`
	Duration  time.Duration `json:"duration"`
}

type symbolResult struct {
	symbol   string
	quote    contracts.Quote
	missing  bool
	conflict bool
	err      error
}

// Run executes one ingestion run for the given trading day. Individual
// symbol failures never abort the run: unresolved symbols go to the
// missing-data log, write conflicts are reported per key, and everything
// that did resolve still flows into sector aggregation. Instrument
// observations are persisted as each resolution lands, so a cancelled run
// leaves a valid partial day behind, never a corrupt one.
func (c *Collector) Run(ctx context.Context, date time.Time) (*RunReport, error) {
	start := time.Now()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	symbols := c.universe.UniqueSymbols()
	report := &RunReport{Date: day, Symbols: len(symbols)}

	resolver, err := NewResolver(c.adapters, c.cfg.ProviderOrder, c.cfg.RateLimitPause, c.logger)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"date":    day.Format("2006-01-02"),
		"symbols": len(symbols),
		"workers": c.cfg.Workers,
	}).Info("Starting ingestion run")

	symbolCh := make(chan string, len(symbols))
	resultCh := make(chan symbolResult, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.worker(ctx, workerID, resolver, day, symbolCh, resultCh)
		}(i)
	}

	for _, symbol := range symbols {
		symbolCh <- symbol
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	resolved := make(map[string]contracts.Quote, len(symbols))
	for result := range resultCh {
		switch {
		case result.missing:
			report.Missing = append(report.Missing, result.symbol)
		case result.conflict:
			report.Conflicts = append(report.Conflicts, result.symbol)
		case result.err != nil:
			report.Failed = append(report.Failed, result.symbol)
		default:
			resolved[result.symbol] = result.quote
			report.Resolved++
		}
	}
	sort.Strings(report.Missing)
	sort.Strings(report.Conflicts)
	sort.Strings(report.Failed)

	if ctx.Err() != nil {
		report.Duration = time.Since(start)
		return report, ctx.Err()
	}

	if err := c.scoreSectors(ctx, day, resolved, report); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	report.Duration = time.Since(start)
	c.logger.WithFields(map[string]interface{}{
		"resolved": report.Resolved,
		"missing":  len(report.Missing),
		"failed":   len(report.Failed),
		"sectors":  report.Sectors,
		"duration": report.Duration.String(),
	}).Info("Ingestion run completed")

	return report, nil
}

// Rescore rebuilds the derived sector rows for a trading day from the
// instrument observations already in the store, without contacting any
// provider. Useful after a scoring-parameter change or a partial run.
func (c *Collector) Rescore(ctx context.Context, date time.Time) (*RunReport, error) {
	start := time.Now()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	symbols := c.universe.UniqueSymbols()
	report := &RunReport{Date: day, Symbols: len(symbols)}

	resolved := make(map[string]contracts.Quote, len(symbols))
	for _, symbol := range symbols {
		history, err := c.instruments.Range(ctx, symbol, day, day)
		if err != nil {
			if ctx.Err() != nil {
				report.Duration = time.Since(start)
				return report, ctx.Err()
			}
			c.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load stored observation")
			report.Failed = append(report.Failed, symbol)
			continue
		}
		if len(history) == 0 {
			report.Missing = append(report.Missing, symbol)
			continue
		}

		obs := history[len(history)-1]
		resolved[symbol] = contracts.Quote{
			Price:             obs.Price,
			MarketCap:         obs.MarketCap,
			SharesOutstanding: obs.SharesOutstanding,
			Source:            obs.Source,
		}
		report.Resolved++
	}
	sort.Strings(report.Missing)
	sort.Strings(report.Failed)

	if err := c.scoreSectors(ctx, day, resolved, report); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	report.Duration = time.Since(start)
	c.logger.WithFields(map[string]interface{}{
		"date":     day.Format("2006-01-02"),
		"resolved": report.Resolved,
		"sectors":  report.Sectors,
	}).Info("Rescore completed")

	return report, nil
}

func (c *Collector) worker(ctx context.Context, workerID int, resolver *Resolver, day time.Time, symbolCh <-chan string, resultCh chan<- symbolResult) {
	for symbol := range symbolCh {
		select {
		case <-ctx.Done():
			resultCh <- symbolResult{symbol: symbol, err: ctx.Err()}
			return
		default:
		}

		quote, err := resolver.Resolve(ctx, symbol)
		if err != nil {
			var missingErr *contracts.MissingDataError
			if errors.As(err, &missingErr) {
				c.logger.WithFields(map[string]interface{}{
					"worker": workerID,
					"symbol": symbol,
					"reason": missingErr.Reason(),
				}).Warn("Symbol unresolved by all providers")

				if logErr := c.missing.Append(ctx, contracts.MissingEntry{
					Symbol: symbol,
					Date:   day,
					Reason: missingErr.Reason(),
				}); logErr != nil {
					c.logger.WithError(logErr).WithField("symbol", symbol).Error("Failed to append missing-data log")
				}
				resultCh <- symbolResult{symbol: symbol, missing: true, err: err}
				continue
			}

			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Error("Failed to resolve symbol")
			resultCh <- symbolResult{symbol: symbol, err: err}
			continue
		}

		obs := contracts.InstrumentObservation{
			Symbol:            symbol,
			Date:              day,
			Price:             quote.Price,
			MarketCap:         quote.MarketCap,
			SharesOutstanding: quote.SharesOutstanding,
			Source:            quote.Source,
		}
		if err := c.instruments.Upsert(ctx, obs); err != nil {
			var conflictErr *contracts.ConflictError
			if errors.As(err, &conflictErr) {
				c.logger.WithError(err).WithFields(map[string]interface{}{
					"worker": workerID,
					"symbol": symbol,
				}).Error("Observation conflicts with stored value")
				resultCh <- symbolResult{symbol: symbol, conflict: true, err: err}
				continue
			}

			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Error("Failed to save observation")
			resultCh <- symbolResult{symbol: symbol, err: err}
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"worker":   workerID,
			"symbol":   symbol,
			"provider": quote.Source,
		}).Debug("Resolved symbol")

		resultCh <- symbolResult{symbol: symbol, quote: quote}
	}
}

// scoreSectors aggregates resolved quotes into sector observations, attaches
// sentiment where enough history exists, and persists the derived rows.
// Sector rows are derived, so within a run they are written with Replace.
func (c *Collector) scoreSectors(ctx context.Context, day time.Time, resolved map[string]contracts.Quote, report *RunReport) error {
	agg := sector.Aggregate(c.universe.Sectors, resolved, day)

	momenta := c.momentaBySymbol(ctx, day, resolved)
	caps := make(map[string]float64, len(resolved))
	for symbol, quote := range resolved {
		caps[symbol] = quote.MarketCap
	}

	for _, obs := range agg.Observations {
		sec, ok := c.universe.Sector(obs.Sector)
		if !ok {
			continue
		}

		memberMomenta := make(map[string]float64)
		memberCaps := make(map[string]float64)
		for _, symbol := range sec.Members {
			if m, ok := momenta[symbol]; ok {
				memberMomenta[symbol] = m
			}
			if cap, ok := caps[symbol]; ok {
				memberCaps[symbol] = cap
			}
		}

		if sentiment, ok := c.scorer.SectorSentiment(memberMomenta, memberCaps); ok {
			obs.Sentiment = &sentiment
		}

		if err := c.sectors.Replace(ctx, obs); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.WithError(err).WithField("sector", obs.Sector).Error("Failed to save sector observation")
			continue
		}
		report.Sectors++
	}

	return nil
}

// momentaBySymbol computes each resolved symbol's momentum once; symbols
// shared by several sectors reuse the value.
func (c *Collector) momentaBySymbol(ctx context.Context, day time.Time, resolved map[string]contracts.Quote) map[string]float64 {
	// Twice the span in calendar days comfortably covers weekends and
	// holidays for a span counted in trading days.
	from := day.AddDate(0, 0, -c.scorer.Span()*2)

	momenta := make(map[string]float64, len(resolved))
	for symbol := range resolved {
		history, err := c.instruments.Range(ctx, symbol, from, day)
		if err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to load price history")
			continue
		}

		prices := make([]contracts.PricePoint, len(history))
		for i, h := range history {
			prices[i] = contracts.PricePoint{Date: h.Date, Close: h.Price}
		}

		if m, ok := c.scorer.InstrumentMomentum(prices); ok {
			momenta[symbol] = m
		}
	}
	return momenta
}
