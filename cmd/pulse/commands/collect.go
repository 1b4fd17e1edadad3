package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one ingestion pass",
	Long: `Resolve every instrument in the universe through the provider
cascade, persist the day's observations, and aggregate and score sectors.

Examples:
  pulse collect
  pulse collect --date 2026-08-28`,
	RunE: runCollect,
}

var collectDate string

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().StringVar(&collectDate, "date", "", "trading day to ingest (YYYY-MM-DD, default today)")
}

func runCollect(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	date := time.Now().UTC()
	if collectDate != "" {
		date, err = time.Parse("2006-01-02", collectDate)
		if err != nil {
			return fmt.Errorf("invalid --date (expected YYYY-MM-DD): %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	report, err := app.collector.Run(ctx, date)
	if err != nil {
		return fmt.Errorf("ingestion run: %w", err)
	}

	fmt.Printf("Date:      %s\n", report.Date.Format("2006-01-02"))
	fmt.Printf("Symbols:   %d\n", report.Symbols)
	fmt.Printf("Resolved:  %d\n", report.Resolved)
	fmt.Printf("Missing:   %d\n", len(report.Missing))
	fmt.Printf("Conflicts: %d\n", len(report.Conflicts))
	fmt.Printf("Failed:    %d\n", len(report.Failed))
	fmt.Printf("Sectors:   %d\n", report.Sectors)
	fmt.Printf("Duration:  %s\n", report.Duration)

	for _, symbol := range report.Missing {
		fmt.Printf("  missing: %s\n", symbol)
	}
	for _, symbol := range report.Conflicts {
		fmt.Printf("  conflict: %s\n", symbol)
	}

	return nil
}
