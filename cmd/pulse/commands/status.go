package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/t2dlabs/pulse/internal/scoring"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest sector observations and the composite pulse",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := app.db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	fmt.Printf("Database: healthy (%s, %d/%d conns)\n",
		health.ResponseTime, health.Stats.AcquiredConns, health.Stats.MaxConns)

	latest, err := app.sectors.LatestAll(ctx)
	if err != nil {
		return fmt.Errorf("load sector observations: %w", err)
	}
	if len(latest) == 0 {
		fmt.Println("No sector observations yet; run 'pulse collect' first")
		return nil
	}

	fmt.Printf("\n%-28s %-12s %16s %10s\n", "SECTOR", "DATE", "MARKET CAP", "SENTIMENT")
	sentiments := make(map[string]*float64, len(latest))
	for _, obs := range latest {
		sentiment := "-"
		if obs.Sentiment != nil {
			sentiment = fmt.Sprintf("%.1f", *obs.Sentiment)
		}
		fmt.Printf("%-28s %-12s %16.0f %10s\n",
			obs.Sector, obs.Date.Format("2006-01-02"), obs.MarketCap, sentiment)
		sentiments[obs.Sector] = obs.Sentiment
	}

	weights, err := app.redistributor.Current(ctx)
	if err != nil {
		return fmt.Errorf("load weights: %w", err)
	}

	pulse, ok := scoring.Composite(weights, sentiments)
	if !ok {
		fmt.Println("\nPulse: undefined (no sector has a sentiment yet)")
		return nil
	}

	fmt.Printf("\nPulse: %.1f\n", pulse)
	return nil
}
