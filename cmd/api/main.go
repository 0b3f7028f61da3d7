package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dvloznov/finassist/internal/api/handlers"
	"github.com/dvloznov/finassist/internal/api/middleware"
	"github.com/dvloznov/finassist/internal/app"
	"github.com/dvloznov/finassist/internal/config"
	"github.com/dvloznov/finassist/internal/jobs"
	"github.com/dvloznov/finassist/internal/jobs/inmemory"
	"github.com/dvloznov/finassist/internal/logger"
)

func main() {
	// Parse command-line flags
	var (
		configFile = flag.String("config", "", "Path to a finassist config file")
		port       = flag.Int("port", 0, "HTTP server port (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Initialize logger
	log, err := logger.NewFromConfig(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	if cfg.Audit.Bucket == "" {
		log.Warn().Msg("No audit bucket configured - dispatch results are only logged")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Queue.Buffer, cfg.Queue.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.Queue.Workers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobs.DispatchHandler(a.Dispatcher)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	router := handlers.Router{
		Operations: handlers.NewOperationsHandler(a.Dispatcher, jobQueue, log),
		Records:    handlers.NewRecordsHandler(a.Categorizer),
		Categories: handlers.NewCategoriesHandler(a.Taxonomy),
		Jobs:       handlers.NewJobsHandler(jobStore, log),
		Users:      handlers.NewUsersHandler(a.BigQuery, log),
	}

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      middleware.Chain(router.Mux(), log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight dispatches
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
