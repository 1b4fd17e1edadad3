// Package jobs defines the scheduled jobs hosted by the scheduler.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/t2dlabs/pulse/internal/ingest"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// DailyIngestion runs one ingestion pass for the current trading day on US
// market weekdays, shortly after the close.
type DailyIngestion struct {
	collector *ingest.Collector
	logger    *logger.Logger
	schedule  string
	timeout   time.Duration
}

// NewDailyIngestion creates the job. An empty schedule falls back to 21:30
// UTC on weekdays, after the US close.
func NewDailyIngestion(collector *ingest.Collector, log *logger.Logger, schedule string) *DailyIngestion {
	if schedule == "" {
		schedule = "0 30 21 * * 1-5"
	}
	return &DailyIngestion{
		collector: collector,
		logger:    log.WithField("job", "daily_ingestion"),
		schedule:  schedule,
		timeout:   30 * time.Minute,
	}
}

func (j *DailyIngestion) Name() string {
	return "daily_ingestion"
}

func (j *DailyIngestion) Schedule() string {
	return j.schedule
}

func (j *DailyIngestion) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	report, err := j.collector.Run(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ingestion run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"resolved": report.Resolved,
		"missing":  len(report.Missing),
		"sectors":  report.Sectors,
	}).Info("Daily ingestion finished")

	return nil
}
