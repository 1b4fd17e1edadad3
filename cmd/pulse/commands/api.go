package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/t2dlabs/pulse/internal/api"
	"github.com/t2dlabs/pulse/internal/api/handlers"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Start the REST API server.

Endpoints:
  GET  /health
  GET  /api/instruments/{symbol}/history
  GET  /api/sectors
  GET  /api/sectors/{name}/history
  GET  /api/sectors/{name}/latest
  GET  /api/pulse
  GET  /api/weights
  PUT  /api/weights/{sector}
  POST /api/collect
  GET  /api/stream (websocket)`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "override the configured port")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if apiPort != "" {
		app.cfg.Port = apiPort
	}

	hub := api.NewHub(app.log)
	defer hub.Close()

	history := handlers.NewHistoryHandler(app.instruments, app.sectors, app.log)
	weightsH := handlers.NewWeightsHandler(app.redistributor, hub, app.log)
	pulseH := handlers.NewPulseHandler(app.sectors, app.redistributor, app.log)
	collectH := handlers.NewCollectHandler(app.collector, hub, app.log)

	router := api.NewRouter(history, weightsH, pulseH, collectH, hub, app.log)
	server := api.New(app.cfg, app.log, router)

	go func() {
		if err := server.Start(); err != nil {
			app.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", app.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
