package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/t2dlabs/pulse/internal/scheduler"
	"github.com/t2dlabs/pulse/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the cron scheduler with the daily ingestion job",
	RunE:  runScheduler,
}

var ingestionSchedule string

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.Flags().StringVar(&ingestionSchedule, "schedule", "", "cron expression for the daily ingestion job")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sched := scheduler.New(app.log)
	if err := sched.AddJob(jobs.NewDailyIngestion(app.collector, app.log, ingestionSchedule)); err != nil {
		return fmt.Errorf("register ingestion job: %w", err)
	}

	sched.Start()
	fmt.Println("Scheduler running; press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}
