// cmd/server/main.go
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
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/7Francus7/CourtOps-sub003/internal/config"
	"github.com/7Francus7/CourtOps-sub003/internal/db"
	"github.com/7Francus7/CourtOps-sub003/internal/events"
	"github.com/7Francus7/CourtOps-sub003/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	publisher, err := events.NewPublisher(cfg.Events.URL, cfg.Events.Exchange)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to event broker")
	}
	if publisher != nil {
		defer publisher.Close()
	}

	sched, err := scheduler.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	if err := sched.RegisterMembershipExpiryJob(database); err != nil {
		log.Fatal().Err(err).Msg("Failed to register membership expiry job")
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown error")
		}
	}()

	server := newServer(cfg, database, publisher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("app", cfg.App.Name).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
