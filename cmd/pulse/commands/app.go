package commands

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/internal/external/alphavantage"
	"github.com/t2dlabs/pulse/internal/external/finnhub"
	"github.com/t2dlabs/pulse/internal/external/stockanalysis"
	"github.com/t2dlabs/pulse/internal/external/yahoo"
	"github.com/t2dlabs/pulse/internal/ingest"
	"github.com/t2dlabs/pulse/internal/scoring"
	"github.com/t2dlabs/pulse/internal/store"
	"github.com/t2dlabs/pulse/internal/universe"
	"github.com/t2dlabs/pulse/internal/weights"
	"github.com/t2dlabs/pulse/pkg/config"
	"github.com/t2dlabs/pulse/pkg/database"
	"github.com/t2dlabs/pulse/pkg/httputil"
	"github.com/t2dlabs/pulse/pkg/logger"
	"github.com/t2dlabs/pulse/pkg/redis"
)

// app holds the wired application, shared by the CLI commands.
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
	rdb *redis.Client

	universe      *universe.Universe
	instruments   *store.InstrumentHistoryRepo
	sectors       *store.SectorHistoryRepo
	missingLog    *store.MissingLogRepo
	collector     *ingest.Collector
	redistributor *weights.Redistributor
}

// newApp loads config and wires every component.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := store.EnsureSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	uni, err := universe.Load(cfg.UniverseFile)
	if err != nil {
		db.Close()
		rdb.Close()
		return nil, fmt.Errorf("load universe: %w", err)
	}

	instruments := store.NewInstrumentHistory(db, log)
	sectors := store.NewSectorHistory(db, log)
	missingLog := store.NewMissingLog(db, log)

	scorer := scoring.NewScorer(cfg.Scoring.EMASpan, cfg.Scoring.SentimentMidpoint, cfg.Scoring.SentimentSlope)

	collector := ingest.NewCollector(
		buildAdapters(cfg, log, rdb),
		uni,
		instruments,
		sectors,
		missingLog,
		scorer,
		log,
		ingest.Config{
			Workers:        cfg.Ingest.Workers,
			ProviderOrder:  cfg.Ingest.ProviderOrder,
			RateLimitPause: cfg.Ingest.RateLimitPause,
		},
	)

	weightsRepo := weights.NewRepository(db, log)
	redistributor := weights.New(weightsRepo, uni.SectorNames(), cfg.Weights.Floor, cfg.Weights.Tolerance, log)

	return &app{
		cfg:           cfg,
		log:           log,
		db:            db,
		rdb:           rdb,
		universe:      uni,
		instruments:   instruments,
		sectors:       sectors,
		missingLog:    missingLog,
		collector:     collector,
		redistributor: redistributor,
	}, nil
}

// buildAdapters wires each provider with its in-process pacing limiter and
// the Redis-backed limiter shared across processes.
func buildAdapters(cfg *config.Config, log *logger.Logger, rdb *redis.Client) []contracts.Adapter {
	shared := redis.NewRateLimiter(rdb, "pulse")
	timeout := cfg.Ingest.FetchTimeout

	finnhubHTTP := httputil.New(log, timeout).
		WithLimiter(rate.NewLimiter(rate.Every(time.Second), 1)).
		WithSharedLimiter(shared, redis.FinnhubRateLimit)

	alphaHTTP := httputil.New(log, timeout).
		WithLimiter(rate.NewLimiter(rate.Every(12*time.Second), 1)).
		WithSharedLimiter(shared, redis.AlphaVantageRateLimit)

	scrapeHTTP := httputil.New(log, timeout).
		WithLimiter(rate.NewLimiter(rate.Every(time.Second), 1)).
		WithSharedLimiter(shared, redis.StockAnalysisRateLimit)

	return []contracts.Adapter{
		finnhub.NewClient(finnhubHTTP, log, cfg.Providers.FinnhubBaseURL, cfg.Providers.FinnhubAPIKey),
		yahoo.NewClient(log),
		alphavantage.NewClient(alphaHTTP, log, cfg.Providers.AlphaVantageBaseURL, cfg.Providers.AlphaVantageAPIKey),
		stockanalysis.NewClient(scrapeHTTP, log, cfg.Providers.StockAnalysisBaseURL),
	}
}

// Close releases the app's connections.
func (a *app) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
