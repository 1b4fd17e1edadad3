package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Rebuild sector rows for a day from stored observations",
	Long: `Recompute sector market caps and sentiment for one trading day
from the instrument observations already in the store. No provider is
contacted; run this after changing scoring parameters or to repair a
partially ingested day.

Examples:
  pulse score
  pulse score --date 2026-08-28`,
	RunE: runScore,
}

var scoreDate string

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().StringVar(&scoreDate, "date", "", "trading day to rescore (YYYY-MM-DD, default today)")
}

func runScore(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	date := time.Now().UTC()
	if scoreDate != "" {
		date, err = time.Parse("2006-01-02", scoreDate)
		if err != nil {
			return fmt.Errorf("invalid --date (expected YYYY-MM-DD): %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := app.collector.Rescore(ctx, date)
	if err != nil {
		return fmt.Errorf("rescore: %w", err)
	}

	fmt.Printf("Date:     %s\n", report.Date.Format("2006-01-02"))
	fmt.Printf("Symbols:  %d\n", report.Symbols)
	fmt.Printf("Resolved: %d\n", report.Resolved)
	fmt.Printf("Missing:  %d\n", len(report.Missing))
	fmt.Printf("Sectors:  %d\n", report.Sectors)
	fmt.Printf("Duration: %s\n", report.Duration)

	return nil
}
