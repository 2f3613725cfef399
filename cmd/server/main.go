/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), apply command-line flags
  2. Load work rules and timezone
  3. Open the store (SQLite or PostgreSQL)
  4. Build engine, notification dispatcher and approval service
  5. Configure HTTP router, start the reminder scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -port    HTTP server port (PORT)
  -db      SQLite database path (DB_PATH); ":memory:" for in-memory
  -rules   Work rules document (RULES_FILE)
  -env     .env file to load (default .env, missing is fine)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the reminder scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/approval"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/notify"
	"github.com/warp/attendance-engine/store"
	"github.com/warp/attendance-engine/worktime"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	rulesFile := flag.String("rules", "", "Work rules document (overrides RULES_FILE)")
	envFile := flag.String("env", ".env", "Environment file to load")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.App.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = *dbPath
	}
	if *rulesFile != "" {
		cfg.Rules.File = *rulesFile
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	level, _ := cfg.Level()
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "attendance-engine").Logger()

	settings, err := cfg.Settings()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load work rules")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	backend, err := store.Open(ctx, cfg.Database, settings.Location)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to initialize database")
	}
	defer backend.Close()
	log.Info().Str("driver", cfg.Database.Driver).Msg("Database connection established")

	// Domain services
	engine := worktime.NewEngine(settings.Rules)
	dispatcher := notify.NewDispatcher(
		&notify.DirectoryResolver{Subjects: backend, Log: log},
		notify.NewSender(cfg.Notify.SlackToken, log),
		log,
	)
	service := approval.NewService(backend, engine, dispatcher, log)

	// Create router
	handler := api.NewHandler(service, backend, settings, log)
	router := api.NewRouter(handler)

	// Reminder scheduler
	scheduler := api.NewReminderScheduler(service, settings.Location, log)
	scheduler.CheckInterval = cfg.Reminder.Interval
	scheduler.DaysBeforeEnd = cfg.Reminder.DaysBeforeEnd
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Int("port", cfg.App.Port).
			Str("timezone", settings.Location.String()).
			Bool("slack", cfg.Notify.SlackToken != "").
			Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
