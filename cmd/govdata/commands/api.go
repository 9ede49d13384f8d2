package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mindthegap/govdata/internal/api"
	"github.com/mindthegap/govdata/internal/api/handlers"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the API server exposing pipeline status, manual run
triggers, and stored region profiles.

Endpoints:
  GET  /health
  GET  /api/v1/pipeline/status
  POST /api/v1/pipeline/run
  GET  /api/v1/regions/{code}/profile`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.close()

	router := api.NewRouter(
		handlers.NewPipelineHandler(application.orchestrator, application.logger),
		handlers.NewRegionHandler(application.profileStore, application.logger),
		application.logger,
	)
	server := api.New(application.cfg, application.logger, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
