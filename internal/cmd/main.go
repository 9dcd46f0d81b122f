package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if config.Auth.Secret == "" {
		log.Fatal().Msg("AUTH_SECRET environment variable is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	pool, err := setupDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	services := setupServices(pool, config)
	server := setupServer(services, config)

	log.Info().
		Str("port", config.Server.Port).
		Str("nats_url", config.NATS.URL).
		Int("total_rounds", config.Game.TotalRounds).
		Int("round_duration_sec", config.Game.RoundDurationSec).
		Msg("starting trivia server")

	// Round timer scheduler
	go func() {
		if err := services.Scheduler.Start(ctx); err != nil {
			log.Error().Err(err).Msg("scheduler failed")
		}
	}()

	// Websocket broadcast loop
	go services.Manager.Start(ctx)

	// JetStream consumer feeding the gateway
	if services.EventConsumer != nil {
		go func() {
			if err := services.EventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	// Start HTTP server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stop scheduler, broadcast loop and consumer
	cancel()

	if services.EventConsumer != nil {
		services.EventConsumer.Stop()
	}
	if services.Publisher != nil {
		services.Publisher.Close()
	}

	// Give services time to clean up
	time.Sleep(1 * time.Second)

	log.Info().Msg("trivia server shutdown complete")
}
