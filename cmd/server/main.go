package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Glx28/billigst-mat/config"
	httpDelivery "github.com/Glx28/billigst-mat/internal/delivery/http"
	"github.com/Glx28/billigst-mat/internal/app"
	"github.com/Glx28/billigst-mat/internal/infrastructure/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "billigst-server",
	})

	log.Info().
		Str("version", httpDelivery.Version).
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("starting billigst-mat server")

	if cfg.Etilbudsavis.APIKey != "" && cfg.Server.Environment == "development" {
		cfg.Etilbudsavis.Debug = true
		log.Debug().Msg("etilbudsavis client debug mode enabled")
	}

	application, err := app.New(cfg, log, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer application.Close()

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(application, logger.Named(log, "http"))
	router := httpDelivery.SetupRouter(cfg, handler, logger.Named(log, "http"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
