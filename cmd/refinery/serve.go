package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/longregen/refinery/internal/adapters/id"
	"github.com/longregen/refinery/internal/exemplar"
	"github.com/longregen/refinery/internal/history"
	"github.com/longregen/refinery/internal/refine"
	"github.com/longregen/refinery/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the Refinery HTTP API server.

Endpoints:
  POST /v1/refinements   run a refinement
  GET  /v1/history       list recorded runs
  GET  /healthz          liveness probe
  GET  /metrics          Prometheus metrics

Required configuration:
  - LLM endpoint (REFINERY_LLM_URL)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// runServer initializes and starts the HTTP API server
func runServer() error {
	log.Println("Starting Refinery API server...")
	log.Printf("  HTTP: http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("  LLM:  %s (model %s)", cfg.LLM.URL, cfg.LLM.Model)

	metrics := server.NewMetrics()
	gateway := metrics.InstrumentGateway(buildGateway())
	exGateway := metrics.InstrumentGateway(buildExampleGateway())

	engine := refine.NewEngine(gateway, exemplar.NewStore(exGateway), id.New())
	histLog := history.NewLog(cfg.Data.HistoryFile)

	srv := server.NewServer(cfg, engine, histLog, metrics)

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
		serverErrors <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		log.Println("Shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		log.Println("Server stopped")
		return nil
	}
}
